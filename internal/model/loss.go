package model

import (
	"fmt"
	"math"
)

// CrossEntropy returns the mean softmax cross-entropy of scores against
// labels.
func CrossEntropy(scores [][]float32, labels []int) (float64, error) {
	if len(scores) != len(labels) {
		return 0, fmt.Errorf("model: %d score vectors for %d labels", len(scores), len(labels))
	}
	if len(scores) == 0 {
		return 0, nil
	}
	total := 0.0
	for i, s := range scores {
		if labels[i] < 0 || labels[i] >= len(s) {
			return 0, fmt.Errorf("model: label %d out of range for %d classes", labels[i], len(s))
		}
		total -= logSoftmax(s)[labels[i]]
	}
	return total / float64(len(scores)), nil
}

// Argmax returns the index of the largest score; ties go to the lowest index.
func Argmax(scores []float32) int {
	best := 0
	for i, v := range scores {
		if v > scores[best] {
			best = i
		}
	}
	return best
}

// Softmax converts logits to probabilities.
func Softmax(logits []float32) []float64 {
	out := logSoftmax(logits)
	for i, v := range out {
		out[i] = math.Exp(v)
	}
	return out
}

func logSoftmax(logits []float32) []float64 {
	maxLogit := float64(logits[0])
	for _, v := range logits {
		if float64(v) > maxLogit {
			maxLogit = float64(v)
		}
	}
	sum := 0.0
	for _, v := range logits {
		sum += math.Exp(float64(v) - maxLogit)
	}
	logSum := maxLogit + math.Log(sum)
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = float64(v) - logSum
	}
	return out
}
