package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(64, 20*time.Millisecond, 10*time.Millisecond, 1.2)
	w.Record(64, 10*time.Millisecond, 20*time.Millisecond, 0.8)
	snap := w.Snapshot()

	assert.InDelta(t, 2133.3333, snap.ImagesPerSec, 1)
	assert.InDelta(t, 15.0, snap.AvgDataMS, 1e-9)
	assert.InDelta(t, 15.0, snap.AvgComputeMS, 1e-9)
	assert.InDelta(t, 1.0, snap.MeanLoss, 1e-9)
	assert.Equal(t, 2, snap.Batches)
	assert.Zero(t, w.samples)
	assert.Zero(t, w.batches)
}

func TestWindowEmptySnapshot(t *testing.T) {
	var w Window
	assert.Equal(t, Snapshot{}, w.Snapshot())
}
