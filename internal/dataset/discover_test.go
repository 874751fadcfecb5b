package dataset

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepstage-eval/internal/labels"
)

func TestDiscoverImageFolderBasic(t *testing.T) {
	dir := t.TempDir()
	mustPNG(t, filepath.Join(dir, "REM", "b.png"), 8, 4)
	mustPNG(t, filepath.Join(dir, "REM", "a.png"), 8, 4)
	mustPNG(t, filepath.Join(dir, "N1", "nested", "c.png"), 8, 4)
	mustWrite(t, filepath.Join(dir, "N1", "notes.txt"), []byte("ignored"))

	items, err := DiscoverImageFolder(dir)
	require.NoError(t, err)

	want := []Item{
		{Path: filepath.Join(dir, "N1", "nested", "c.png"), Label: 0},
		{Path: filepath.Join(dir, "REM", "a.png"), Label: 3},
		{Path: filepath.Join(dir, "REM", "b.png"), Label: 3},
	}
	assert.Equal(t, want, items)
}

func TestDiscoverImageFolderMissingDir(t *testing.T) {
	_, err := DiscoverImageFolder(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDiscoverImageFolderEmptyClass(t *testing.T) {
	dir := t.TempDir()
	mustPNG(t, filepath.Join(dir, "N1", "a.png"), 4, 4)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "N2"), 0o755))

	_, err := DiscoverImageFolder(dir)
	require.ErrorIs(t, err, ErrNoImages)
}

func TestDiscoverImageFolderUnknownClass(t *testing.T) {
	dir := t.TempDir()
	mustPNG(t, filepath.Join(dir, "Awake", "a.png"), 4, 4)

	_, err := DiscoverImageFolder(dir)
	require.ErrorContains(t, err, "unknown class folder")
}

func TestDiscoverImageFolderCorruptHeader(t *testing.T) {
	dir := t.TempDir()
	mustPNG(t, filepath.Join(dir, "N1", "a.png"), 4, 4)
	mustWrite(t, filepath.Join(dir, "N1", "broken.png"), []byte("not a png"))

	_, err := DiscoverImageFolder(dir)
	require.ErrorContains(t, err, "broken.png")
}

func TestTestDir(t *testing.T) {
	assert.Equal(t, filepath.Join("root", "Pz-Oz_test"), TestDir("root", "Pz-Oz"))
}

// mustSyntheticSet writes perClass images for every stage under
// <root>/<channel>_test and returns root.
func mustSyntheticSet(t *testing.T, channel string, perClass int) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range labels.Names {
		for i := 0; i < perClass; i++ {
			mustPNG(t, filepath.Join(TestDir(root, channel), name, filepath.Base(name)+"_"+string(rune('a'+i))+".png"), 16, 8)
		}
	}
	return root
}

func mustPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
