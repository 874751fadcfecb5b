package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"sleepstage-eval/internal/labels"
)

var (
	// ErrShapeMismatch indicates checkpoint parameters that do not fit the
	// constructed network.
	ErrShapeMismatch = errors.New("model: shape mismatch")
	// ErrUnsupportedDevice indicates a device string the backend cannot use.
	ErrUnsupportedDevice = errors.New("model: unsupported device")
)

// Classifier maps input tensors to per-class score vectors.
type Classifier interface {
	// Forward returns one score vector per input. Each input is a flattened
	// [1][H][W] tensor.
	Forward(inputs [][]float32) ([][]float32, error)
	NumClasses() int
	Device() string
	Close() error
}

// LoadOptions describes which checkpoint to restore and where to run it.
type LoadOptions struct {
	Path        string
	Device      string
	NumClasses  int
	InputHeight int
	InputWidth  int
	// ONNXLibrary is the onnxruntime shared library path; empty uses the
	// library default.
	ONNXLibrary string
}

// Load restores a classifier from a checkpoint. The backend is chosen by
// file extension: .safetensors restores the built-in ResNet-18, .onnx runs
// the exported graph under onnxruntime.
func Load(opts LoadOptions) (Classifier, error) {
	if opts.NumClasses <= 0 {
		opts.NumClasses = labels.NumClasses
	}
	if opts.Device == "" {
		opts.Device = "cpu"
	}
	if opts.InputHeight <= 0 || opts.InputWidth <= 0 {
		return nil, fmt.Errorf("model: invalid input size %dx%d", opts.InputHeight, opts.InputWidth)
	}
	switch ext := strings.ToLower(filepath.Ext(opts.Path)); ext {
	case ".safetensors":
		return loadNative(opts)
	case ".onnx":
		return loadONNX(opts)
	default:
		return nil, fmt.Errorf("model: unsupported checkpoint format %q (want .safetensors or .onnx)", ext)
	}
}

func loadNative(opts LoadOptions) (*ResNet, error) {
	if !strings.EqualFold(opts.Device, "cpu") {
		return nil, fmt.Errorf("%w %q: the native backend runs on cpu only", ErrUnsupportedDevice, opts.Device)
	}
	tensors, err := readSafetensors(opts.Path)
	if err != nil {
		return nil, err
	}
	net := NewResNet18(opts.NumClasses, opts.InputHeight, opts.InputWidth)
	if err := net.LoadStateDict(tensors); err != nil {
		return nil, fmt.Errorf("model: load %s: %w", opts.Path, err)
	}
	return net, nil
}
