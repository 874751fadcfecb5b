package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepstage-eval/internal/metrics"
)

func TestPrintSummary(t *testing.T) {
	cm, err := metrics.NewConfusion([]int{0, 0, 1, 4}, []int{0, 1, 1, 4}, 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, Summary{
		Confusion: cm,
		F1:        metrics.F1(cm),
		Accuracy:  0.75,
		Loss:      0.5,
	}))
	out := buf.String()

	assert.Contains(t, out, "Confusion matrix, without normalization\n[   1    1    0    0    0]\n")
	assert.Contains(t, out, "Normalized confusion matrix\n[0.50 0.50 0.00 0.00 0.00]\n")
	assert.Contains(t, out, "F1 score : [0.666667 0.666667 0.000000 0.000000 1.000000]")
	assert.Contains(t, out, "F1 score macro : 0.466667")
	assert.Contains(t, out, "F1 score micro : 0.750000")
	assert.True(t, strings.HasSuffix(out, "[TEST ACC : 0.750000] | [TEST LOSS : 0.500000]\n"))
}
