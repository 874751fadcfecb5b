package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestConfusionEveryPairIncrementsOneCell(t *testing.T) {
	trueLabels := []int{0, 0, 1, 2, 2, 2, 4}
	predicted := []int{0, 1, 1, 2, 0, 2, 3}
	c, err := NewConfusion(trueLabels, predicted, 5)
	require.NoError(t, err)

	assert.Equal(t, len(trueLabels), c.Total())
	assert.Equal(t, 1, c.At(0, 0))
	assert.Equal(t, 1, c.At(0, 1))
	assert.Equal(t, 2, c.At(2, 2))
	assert.Equal(t, 1, c.At(2, 0))
	assert.Equal(t, 1, c.At(4, 3))
	assert.Equal(t, []int{2, 1, 3, 0, 1}, c.Support())
}

func TestConfusionNormalizedRowsSumToOne(t *testing.T) {
	c, err := NewConfusion([]int{0, 0, 0, 1, 2, 2}, []int{0, 1, 2, 1, 1, 1}, 5)
	require.NoError(t, err)
	norm := c.Normalized()
	for i := 0; i < 5; i++ {
		sum := mat.Sum(norm.RowView(i))
		if c.Support()[i] == 0 {
			assert.Zero(t, sum, "row %d", i)
			continue
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "row %d", i)
	}
	assert.InDelta(t, 1.0/3, norm.At(0, 2), 1e-12)
}

func TestConfusionCountsIsCopy(t *testing.T) {
	c, err := NewConfusion([]int{1}, []int{1}, 3)
	require.NoError(t, err)
	m := c.Counts()
	m.Set(1, 1, 99)
	assert.Equal(t, 1, c.At(1, 1))
}

func TestConfusionRejectsBadInput(t *testing.T) {
	_, err := NewConfusion([]int{0, 1}, []int{0}, 5)
	require.Error(t, err)
	_, err = NewConfusion([]int{5}, []int{0}, 5)
	require.Error(t, err)
	_, err = NewConfusion([]int{0}, []int{-1}, 5)
	require.Error(t, err)
	_, err = NewConfusion(nil, nil, 0)
	require.Error(t, err)
}
