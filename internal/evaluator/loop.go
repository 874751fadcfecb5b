package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"sleepstage-eval/internal/dataset"
	"sleepstage-eval/internal/metrics"
	"sleepstage-eval/internal/model"
)

// RunConfig captures what one evaluation pass needs.
type RunConfig struct {
	Loader *dataset.Loader
	Model  model.Classifier
	// FirstSampleOnly records only the first (true, predicted) pair of each
	// batch for the confusion matrix and F1 scores. Accuracy and loss still
	// cover every sample.
	FirstSampleOnly bool
	LogEvery        int
	// ProgressOut receives a progress bar when non-nil.
	ProgressOut io.Writer
	Logger      *zap.SugaredLogger
}

// Result is the outcome of one pass over the test set.
type Result struct {
	Correct    int
	LossSum    float64
	Batches    int
	BatchSize  int
	Samples    int
	TrueLabels []int
	Predicted  []int
}

// Accuracy is correct / (batches * batch size). With a partial last batch
// this undercounts relative to SampleAccuracy.
func (r *Result) Accuracy() float64 {
	return float64(r.Correct) / r.denominator()
}

// Loss is the summed per-batch mean loss over (batches * batch size).
func (r *Result) Loss() float64 {
	return r.LossSum / r.denominator()
}

// SampleAccuracy is correct / samples.
func (r *Result) SampleAccuracy() float64 {
	if r.Samples == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Samples)
}

func (r *Result) denominator() float64 {
	d := float64(r.Batches * r.BatchSize)
	if d == 0 {
		return 1
	}
	return d
}

// Run evaluates the model over one shuffled pass of the loader. Any error
// aborts the pass.
func Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if cfg.Loader == nil {
		return nil, errors.New("evaluator: loader is nil")
	}
	if cfg.Model == nil {
		return nil, errors.New("evaluator: model is nil")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 50
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	total := cfg.Loader.Len()
	var bar *progressbar.ProgressBar
	if cfg.ProgressOut != nil {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(cfg.ProgressOut),
			progressbar.OptionSetDescription("test"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
		)
	}

	res := &Result{
		BatchSize:  cfg.Loader.BatchSize(),
		TrueLabels: make([]int, 0, total),
		Predicted:  make([]int, 0, total),
	}
	var window metrics.Window
	it := cfg.Loader.Iter()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		startData := time.Now()
		batch, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		dataTime := time.Since(startData)

		startCompute := time.Now()
		scores, err := cfg.Model.Forward(batch.Inputs)
		if err != nil {
			return nil, fmt.Errorf("evaluator: batch %d: %w", res.Batches, err)
		}
		if len(scores) != batch.Len() {
			return nil, fmt.Errorf("evaluator: batch %d: model returned %d score vectors for %d inputs", res.Batches, len(scores), batch.Len())
		}
		predicted := make([]int, len(scores))
		for i, s := range scores {
			predicted[i] = model.Argmax(s)
			if predicted[i] == batch.Labels[i] {
				res.Correct++
			}
		}
		loss, err := model.CrossEntropy(scores, batch.Labels)
		if err != nil {
			return nil, fmt.Errorf("evaluator: batch %d: %w", res.Batches, err)
		}
		computeTime := time.Since(startCompute)

		res.LossSum += loss
		res.Batches++
		res.Samples += batch.Len()
		if cfg.FirstSampleOnly {
			res.TrueLabels = append(res.TrueLabels, batch.Labels[0])
			res.Predicted = append(res.Predicted, predicted[0])
		} else {
			res.TrueLabels = append(res.TrueLabels, batch.Labels...)
			res.Predicted = append(res.Predicted, predicted...)
		}

		window.Record(batch.Len(), dataTime, computeTime, loss)
		if res.Batches%cfg.LogEvery == 0 {
			snap := window.Snapshot()
			logger.Debugw("eval progress",
				"batch", res.Batches,
				"of", total,
				"images_per_sec", snap.ImagesPerSec,
				"data_ms", snap.AvgDataMS,
				"compute_ms", snap.AvgComputeMS,
				"loss", snap.MeanLoss,
			)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	logger.Infow("eval pass complete",
		"batches", res.Batches,
		"samples", res.Samples,
		"correct", res.Correct,
		"recorded_pairs", len(res.TrueLabels),
	)
	return res, nil
}
