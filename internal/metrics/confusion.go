package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Confusion is a square count table: rows are true labels, columns are
// predicted labels.
type Confusion struct {
	n      int
	counts *mat.Dense
}

// NewConfusion tallies paired label sequences over numClasses classes.
func NewConfusion(trueLabels, predicted []int, numClasses int) (*Confusion, error) {
	if len(trueLabels) != len(predicted) {
		return nil, fmt.Errorf("metrics: %d true labels but %d predictions", len(trueLabels), len(predicted))
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("metrics: numClasses must be > 0 (got %d)", numClasses)
	}
	c := &Confusion{n: numClasses, counts: mat.NewDense(numClasses, numClasses, nil)}
	for i := range trueLabels {
		t, p := trueLabels[i], predicted[i]
		if t < 0 || t >= numClasses || p < 0 || p >= numClasses {
			return nil, fmt.Errorf("metrics: pair %d (%d, %d) outside [0,%d)", i, t, p, numClasses)
		}
		c.counts.Set(t, p, c.counts.At(t, p)+1)
	}
	return c, nil
}

// NumClasses returns the matrix order.
func (c *Confusion) NumClasses() int { return c.n }

// At returns the count for (true, predicted).
func (c *Confusion) At(trueLabel, predicted int) int {
	return int(c.counts.At(trueLabel, predicted))
}

// Counts returns a copy of the raw count matrix.
func (c *Confusion) Counts() *mat.Dense {
	return mat.DenseCopyOf(c.counts)
}

// Total is the number of recorded pairs.
func (c *Confusion) Total() int {
	return int(mat.Sum(c.counts))
}

// Support returns the number of true samples per class (row sums).
func (c *Confusion) Support() []int {
	out := make([]int, c.n)
	for i := range out {
		out[i] = int(mat.Sum(c.counts.RowView(i)))
	}
	return out
}

// Normalized divides each row by its sum. Rows without samples stay zero.
func (c *Confusion) Normalized() *mat.Dense {
	out := mat.NewDense(c.n, c.n, nil)
	for i := 0; i < c.n; i++ {
		sum := mat.Sum(c.counts.RowView(i))
		if sum == 0 {
			continue
		}
		for j := 0; j < c.n; j++ {
			out.Set(i, j, c.counts.At(i, j)/sum)
		}
	}
	return out
}
