package metrics

// F1Scores holds per-class F1 and its three averages.
type F1Scores struct {
	PerClass []float64
	Macro    float64
	Micro    float64
	Weighted float64
}

// F1 computes F1 over every class of the matrix, so classes that never
// occur still count towards the macro average. Undefined precision or
// recall is treated as zero.
func F1(c *Confusion) F1Scores {
	n := c.NumClasses()
	support := c.Support()
	scores := F1Scores{PerClass: make([]float64, n)}

	var tpSum, fpSum, fnSum float64
	var weighted float64
	totalSupport := 0
	for k := 0; k < n; k++ {
		tp := float64(c.At(k, k))
		var fp, fn float64
		for j := 0; j < n; j++ {
			if j == k {
				continue
			}
			fp += float64(c.At(j, k))
			fn += float64(c.At(k, j))
		}
		tpSum += tp
		fpSum += fp
		fnSum += fn

		f := f1FromCounts(tp, fp, fn)
		scores.PerClass[k] = f
		scores.Macro += f
		weighted += f * float64(support[k])
		totalSupport += support[k]
	}
	if n > 0 {
		scores.Macro /= float64(n)
	}
	scores.Micro = f1FromCounts(tpSum, fpSum, fnSum)
	if totalSupport > 0 {
		scores.Weighted = weighted / float64(totalSupport)
	}
	return scores
}

// f1FromCounts is 2TP / (2TP + FP + FN), the harmonic mean of precision and
// recall, and zero when there are no positives at all.
func f1FromCounts(tp, fp, fn float64) float64 {
	denom := 2*tp + fp + fn
	if denom == 0 {
		return 0
	}
	return 2 * tp / denom
}
