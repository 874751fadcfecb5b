package metrics

import "time"

// Window accumulates throughput stats across evaluation batches.
type Window struct {
	samples int
	data    time.Duration
	compute time.Duration
	batches int
	lossSum float64
}

// Record adds one batch measurement to the window.
func (w *Window) Record(batchLen int, dataTime, computeTime time.Duration, loss float64) {
	w.samples += batchLen
	w.data += dataTime
	w.compute += computeTime
	w.batches++
	w.lossSum += loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Batches: w.batches}
	total := w.data + w.compute
	if total > 0 {
		snap.ImagesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.batches > 0 {
		snap.AvgDataMS = (w.data.Seconds() * 1000) / float64(w.batches)
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.batches)
		snap.MeanLoss = w.lossSum / float64(w.batches)
	}

	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Batches      int
	ImagesPerSec float64
	AvgDataMS    float64
	AvgComputeMS float64
	MeanLoss     float64
}
