package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDataPath    = "store/public_dataset"
	DefaultLoadPath    = "./checkpoint/resnet18_pz.safetensors"
	DefaultChannel     = "Pz-Oz"
	DefaultDevice      = "cpu"
	DefaultBatchSize   = 1
	DefaultNumWorkers  = 1
	DefaultSeed        = 42
	DefaultImageHeight = 128
	DefaultImageWidth  = 1024
	DefaultPlotDir     = "plots"
	DefaultLogEvery    = 50
	DefaultLogLevel    = "info"
)

// Config captures the runtime knobs for an evaluation run.
type Config struct {
	DataPath        string `yaml:"data_path"`
	LoadPath        string `yaml:"load_path"`
	Channel         string `yaml:"channel"`
	Device          string `yaml:"device"`
	BatchSize       int    `yaml:"batch_size"`
	NumWorkers      int    `yaml:"num_workers"`
	Seed            int64  `yaml:"seed"`
	ImageHeight     int    `yaml:"image_height"`
	ImageWidth      int    `yaml:"image_width"`
	PlotDir         string `yaml:"plot_dir"`
	FirstSampleOnly bool   `yaml:"first_sample_only"`
	ResultsDB       string `yaml:"results_db"`
	ONNXLibrary     string `yaml:"onnx_library"`
	LogEvery        int    `yaml:"log_every"`
	LogLevel        string `yaml:"log_level"`
	Progress        bool   `yaml:"progress"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	DataPath        string
	LoadPath        string
	Channel         string
	Device          string
	BatchSize       int
	NumWorkers      int
	Seed            *int64 // nil keeps the configured seed; 0 is a valid seed
	ImageHeight     int
	ImageWidth      int
	PlotDir         string
	FirstSampleOnly bool
	ResultsDB       string
	ONNXLibrary     string
	LogEvery        int
	LogLevel        string
	NoProgress      bool
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DataPath:    DefaultDataPath,
		LoadPath:    DefaultLoadPath,
		Channel:     DefaultChannel,
		Device:      DefaultDevice,
		BatchSize:   DefaultBatchSize,
		NumWorkers:  DefaultNumWorkers,
		Seed:        DefaultSeed,
		ImageHeight: DefaultImageHeight,
		ImageWidth:  DefaultImageWidth,
		PlotDir:     DefaultPlotDir,
		LogEvery:    DefaultLogEvery,
		LogLevel:    DefaultLogLevel,
		Progress:    true,
	}
}

// Load reads a Config from YAML on top of the defaults. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataPath != "" {
		c.DataPath = o.DataPath
	}
	if o.LoadPath != "" {
		c.LoadPath = o.LoadPath
	}
	if o.Channel != "" {
		c.Channel = o.Channel
	}
	if o.Device != "" {
		c.Device = o.Device
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.NumWorkers > 0 {
		c.NumWorkers = o.NumWorkers
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.ImageHeight > 0 {
		c.ImageHeight = o.ImageHeight
	}
	if o.ImageWidth > 0 {
		c.ImageWidth = o.ImageWidth
	}
	if o.PlotDir != "" {
		c.PlotDir = o.PlotDir
	}
	if o.FirstSampleOnly {
		c.FirstSampleOnly = true
	}
	if o.ResultsDB != "" {
		c.ResultsDB = o.ResultsDB
	}
	if o.ONNXLibrary != "" {
		c.ONNXLibrary = o.ONNXLibrary
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.NoProgress {
		c.Progress = false
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DataPath == "" {
		return errors.New("data_path must be set")
	}
	if c.LoadPath == "" {
		return errors.New("load_path must be set")
	}
	if c.Channel == "" {
		return errors.New("channel must be set")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.NumWorkers < 0 {
		return fmt.Errorf("num_workers must be >= 0 (got %d)", c.NumWorkers)
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = DefaultNumWorkers
	}
	if c.ImageHeight <= 0 || c.ImageWidth <= 0 {
		return fmt.Errorf("image size must be > 0 (got %dx%d)", c.ImageHeight, c.ImageWidth)
	}
	if c.Device == "" {
		c.Device = DefaultDevice
	}
	if c.PlotDir == "" {
		c.PlotDir = DefaultPlotDir
	}
	if c.LogEvery <= 0 {
		c.LogEvery = DefaultLogEvery
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return nil
}
