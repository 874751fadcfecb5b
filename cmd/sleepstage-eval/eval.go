package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sleepstage-eval/internal/config"
	"sleepstage-eval/internal/dataset"
	"sleepstage-eval/internal/evaluator"
	"sleepstage-eval/internal/labels"
	"sleepstage-eval/internal/ledger"
	"sleepstage-eval/internal/metrics"
	"sleepstage-eval/internal/model"
	"sleepstage-eval/internal/report"
)

var (
	cfgPath   string
	seed      int64
	overrides config.Overrides
)

// rootCmd evaluates a checkpoint against the <channel>_test split.
var rootCmd = &cobra.Command{
	Use:           "sleepstage-eval",
	Short:         "Evaluate a sleep-stage classifier on a held-out image set",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return reportErr(fmt.Errorf("failed to load config: %w", err))
		}
		if cmd.Flags().Changed("seed") {
			overrides.Seed = &seed
		}
		cfg.ApplyOverrides(overrides)
		if err := cfg.Validate(); err != nil {
			return reportErr(fmt.Errorf("invalid config: %w", err))
		}

		logger, err := newLogger(cfg.LogLevel)
		if err != nil {
			return reportErr(err)
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := evaluate(ctx, cfg, cmd.OutOrStdout(), logger); err != nil {
			logger.Errorw("evaluation failed", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfgPath, "config", "", "Path to YAML config")
	f.StringVar(&overrides.DataPath, "data-path", "", "Dataset root (default "+config.DefaultDataPath+")")
	f.StringVar(&overrides.LoadPath, "load-path", "", "Checkpoint path, .safetensors or .onnx (default "+config.DefaultLoadPath+")")
	f.StringVar(&overrides.Channel, "channel", "", "EEG channel; selects <data-path>/<channel>_test (default "+config.DefaultChannel+")")
	f.StringVar(&overrides.Device, "device", "", "Compute device: cpu, cuda or cuda:N (default "+config.DefaultDevice+")")
	f.IntVar(&overrides.BatchSize, "batch-size", 0, "Batch size")
	f.IntVar(&overrides.NumWorkers, "num-workers", 0, "Number of image decode workers")
	f.Int64Var(&seed, "seed", config.DefaultSeed, "Shuffle seed")
	f.IntVar(&overrides.ImageHeight, "image-height", 0, "Model input height")
	f.IntVar(&overrides.ImageWidth, "image-width", 0, "Model input width")
	f.StringVar(&overrides.PlotDir, "plot-dir", "", "Directory for confusion matrix images (default "+config.DefaultPlotDir+")")
	f.BoolVar(&overrides.FirstSampleOnly, "first-sample-only", false, "Record only the first sample of each batch in the confusion matrix")
	f.StringVar(&overrides.ResultsDB, "results-db", "", "SQLite file to record the run in")
	f.StringVar(&overrides.ONNXLibrary, "onnx-lib", "", "Path to the onnxruntime shared library")
	f.IntVar(&overrides.LogEvery, "log-every", 0, "Log every N batches")
	f.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.BoolVar(&overrides.NoProgress, "no-progress", false, "Disable the progress bar")
}

// reportErr prints errors that occur before the logger exists.
func reportErr(err error) error {
	fmt.Fprintln(os.Stderr, err)
	return err
}

func evaluate(ctx context.Context, cfg *config.Config, out io.Writer, logger *zap.SugaredLogger) error {
	loader, err := dataset.Open(cfg.DataPath, cfg.Channel, dataset.LoaderOptions{
		BatchSize:  cfg.BatchSize,
		Seed:       cfg.Seed,
		NumWorkers: cfg.NumWorkers,
		Transform:  dataset.Transform{Height: cfg.ImageHeight, Width: cfg.ImageWidth},
	})
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	logger.Infow("dataset ready",
		"dir", dataset.TestDir(cfg.DataPath, cfg.Channel),
		"samples", loader.NumSamples(),
		"batches", loader.Len(),
	)

	clf, err := model.Load(model.LoadOptions{
		Path:        cfg.LoadPath,
		Device:      cfg.Device,
		NumClasses:  labels.NumClasses,
		InputHeight: cfg.ImageHeight,
		InputWidth:  cfg.ImageWidth,
		ONNXLibrary: cfg.ONNXLibrary,
	})
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	defer clf.Close()
	logger.Infow("model loaded", "path", cfg.LoadPath, "device", clf.Device())

	runCfg := evaluator.RunConfig{
		Loader:          loader,
		Model:           clf,
		FirstSampleOnly: cfg.FirstSampleOnly,
		LogEvery:        cfg.LogEvery,
		Logger:          logger,
	}
	if cfg.Progress {
		runCfg.ProgressOut = os.Stderr
	}
	res, err := evaluator.Run(ctx, runCfg)
	if err != nil {
		return err
	}

	cm, err := metrics.NewConfusion(res.TrueLabels, res.Predicted, labels.NumClasses)
	if err != nil {
		return fmt.Errorf("confusion matrix: %w", err)
	}
	scores := metrics.F1(cm)
	if err := report.PrintSummary(out, report.Summary{
		Confusion: cm,
		F1:        scores,
		Accuracy:  res.Accuracy(),
		Loss:      res.Loss(),
	}); err != nil {
		return fmt.Errorf("print summary: %w", err)
	}

	paths, err := report.PlotConfusionPair(cm, labels.Names, cfg.PlotDir)
	if err != nil {
		return fmt.Errorf("plot confusion matrix: %w", err)
	}
	logger.Infow("plots written", "files", paths)

	if cfg.ResultsDB == "" {
		return nil
	}
	return recordRun(cfg, res, cm, scores, logger)
}

func recordRun(cfg *config.Config, res *evaluator.Result, cm *metrics.Confusion, scores metrics.F1Scores, logger *zap.SugaredLogger) error {
	if dir := filepath.Dir(cfg.ResultsDB); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("results db dir: %w", err)
		}
	}
	store, err := ledger.NewStore(cfg.ResultsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Record(ledger.Run{
		Checkpoint: cfg.LoadPath,
		Channel:    cfg.Channel,
		Device:     cfg.Device,
		BatchSize:  res.BatchSize,
		Samples:    res.Samples,
		Batches:    res.Batches,
		Accuracy:   res.Accuracy(),
		Loss:       res.Loss(),
		F1Macro:    scores.Macro,
		F1Micro:    scores.Micro,
		F1Weighted: scores.Weighted,
		F1PerClass: scores.PerClass,
		Confusion:  confusionRows(cm),
	})
	if err != nil {
		return err
	}
	logger.Infow("run recorded", "run_id", run.RunID, "db", cfg.ResultsDB)
	return nil
}

func confusionRows(cm *metrics.Confusion) [][]int {
	n := cm.NumClasses()
	rows := make([][]int, n)
	for i := range rows {
		rows[i] = make([]int, n)
		for j := range rows[i] {
			rows[i][j] = cm.At(i, j)
		}
	}
	return rows
}
