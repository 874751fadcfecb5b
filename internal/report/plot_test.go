package report

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepstage-eval/internal/labels"
	"sleepstage-eval/internal/metrics"
)

func TestPlotConfusionPairWritesPNGs(t *testing.T) {
	cm, err := metrics.NewConfusion([]int{0, 1, 2, 3, 4, 4, 2}, []int{0, 1, 1, 3, 4, 0, 2}, 5)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "plots")
	paths, err := PlotConfusionPair(cm, labels.Names, dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for i, path := range paths {
		assert.Equal(t, filepath.Join(dir, PlotFiles[i]), path)
		f, err := os.Open(path)
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Positive(t, img.Bounds().Dx())
		assert.Positive(t, img.Bounds().Dy())
	}
}

func TestPlotConfusionAllZeroMatrix(t *testing.T) {
	cm, err := metrics.NewConfusion(nil, nil, 5)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "empty.png")
	require.NoError(t, PlotConfusion(cm, labels.Names, true, "Confusion matrix", path))
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestPlotConfusionRejectsWrongClassCount(t *testing.T) {
	cm, err := metrics.NewConfusion([]int{0}, []int{0}, 5)
	require.NoError(t, err)
	err = PlotConfusion(cm, []string{"a", "b"}, false, "x", filepath.Join(t.TempDir(), "x.png"))
	require.Error(t, err)
}
