// Package report prints evaluation summaries and renders confusion-matrix
// heatmaps.
package report

import (
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/mat"

	"sleepstage-eval/internal/metrics"
)

// Summary is everything printed after an evaluation pass.
type Summary struct {
	Confusion *metrics.Confusion
	F1        metrics.F1Scores
	Accuracy  float64
	Loss      float64
}

// PrintSummary writes both confusion matrices, the F1 figures and the final
// accuracy/loss line.
func PrintSummary(w io.Writer, s Summary) error {
	var b strings.Builder
	b.WriteString("Confusion matrix, without normalization\n")
	writeMatrix(&b, s.Confusion.Counts(), false)
	b.WriteString("Normalized confusion matrix\n")
	writeMatrix(&b, s.Confusion.Normalized(), true)

	fmt.Fprintf(&b, "F1 score : %s\n", formatVector(s.F1.PerClass))
	fmt.Fprintf(&b, "F1 score macro : %.6f\n", s.F1.Macro)
	fmt.Fprintf(&b, "F1 score micro : %.6f\n", s.F1.Micro)
	fmt.Fprintf(&b, "F1 score weighted : %.6f\n", s.F1.Weighted)
	fmt.Fprintf(&b, "[TEST ACC : %.6f] | [TEST LOSS : %.6f]\n", s.Accuracy, s.Loss)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeMatrix(b *strings.Builder, m *mat.Dense, normalized bool) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		b.WriteString("[")
		for j := 0; j < c; j++ {
			if j > 0 {
				b.WriteString(" ")
			}
			b.WriteString(formatCell(m.At(i, j), normalized))
		}
		b.WriteString("]\n")
	}
}

func formatCell(v float64, normalized bool) string {
	if normalized {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%4d", int(v))
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.6f", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
