package dataset

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"sleepstage-eval/internal/labels"
)

// ErrNoImages indicates a class folder without any decodable image files.
var ErrNoImages = errors.New("dataset: no valid image files")

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// Item is one labeled image on disk.
type Item struct {
	Path  string
	Label int
}

// TestDir returns the test split directory for a signal channel.
func TestDir(root, channel string) string {
	return filepath.Join(root, channel+"_test")
}

// DiscoverImageFolder lists images beneath dir, one subdirectory per class.
// Classes are visited in sorted order and files are sorted within each class.
// Every image header is decoded so a corrupt file fails here rather than
// halfway through a run.
func DiscoverImageFolder(dir string) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", dir, err)
	}

	classDirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			classDirs = append(classDirs, e.Name())
		}
	}
	if len(classDirs) == 0 {
		return nil, fmt.Errorf("dataset: no class folders under %s", dir)
	}
	sort.Strings(classDirs)

	var items []Item
	for _, class := range classDirs {
		label, ok := labels.Index(class)
		if !ok {
			return nil, fmt.Errorf("dataset: unknown class folder %q (want one of %v)", class, labels.Names)
		}
		paths, err := listImages(filepath.Join(dir, class))
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("%w for class %s in %s", ErrNoImages, class, dir)
		}
		for _, p := range paths {
			if err := checkHeader(p); err != nil {
				return nil, err
			}
			items = append(items, Item{Path: p, Label: label})
		}
	}
	return items, nil
}

func listImages(classDir string) ([]string, error) {
	paths := make([]string, 0)
	err := filepath.WalkDir(classDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: walk %s: %w", classDir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("dataset: decode header %s: %w", path, err)
	}
	return nil
}
