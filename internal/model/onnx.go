package model

import (
	"fmt"
	"strconv"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXClassifier runs an exported graph through onnxruntime.
type ONNXClassifier struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	numClasses int
	inH, inW   int
	device     string
	ownsEnv    bool
}

func loadONNX(opts LoadOptions) (*ONNXClassifier, error) {
	kind, deviceID, err := parseDevice(opts.Device)
	if err != nil {
		return nil, err
	}

	ownsEnv := false
	if !ort.IsInitialized() {
		if opts.ONNXLibrary != "" {
			ort.SetSharedLibraryPath(opts.ONNXLibrary)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("model: init onnxruntime: %w", err)
		}
		ownsEnv = true
	}
	cleanup := func() {
		if ownsEnv {
			ort.DestroyEnvironment()
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.Path)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("model: inspect %s: %w", opts.Path, err)
	}
	inName, outName, err := validateIO(inputs, outputs, opts.NumClasses, opts.InputHeight, opts.InputWidth)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("model: %s: %w", opts.Path, err)
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("model: session options: %w", err)
	}
	defer sessionOpts.Destroy()

	if kind == "cuda" {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("model: cuda provider: %w", err)
		}
		defer cudaOpts.Destroy()
		if err := cudaOpts.Update(map[string]string{"device_id": strconv.Itoa(deviceID)}); err != nil {
			cleanup()
			return nil, fmt.Errorf("model: cuda provider options: %w", err)
		}
		if err := sessionOpts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			cleanup()
			return nil, fmt.Errorf("%w %q: %v", ErrUnsupportedDevice, opts.Device, err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(opts.Path, []string{inName}, []string{outName}, sessionOpts)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("model: open session %s: %w", opts.Path, err)
	}

	return &ONNXClassifier{
		session:    session,
		inputName:  inName,
		outputName: outName,
		numClasses: opts.NumClasses,
		inH:        opts.InputHeight,
		inW:        opts.InputWidth,
		device:     opts.Device,
		ownsEnv:    ownsEnv,
	}, nil
}

// parseDevice accepts "cpu", "cuda" and "cuda:N".
func parseDevice(device string) (string, int, error) {
	d := strings.ToLower(strings.TrimSpace(device))
	switch {
	case d == "" || d == "cpu":
		return "cpu", 0, nil
	case d == "cuda":
		return "cuda", 0, nil
	case strings.HasPrefix(d, "cuda:"):
		id, err := strconv.Atoi(strings.TrimPrefix(d, "cuda:"))
		if err != nil || id < 0 {
			return "", 0, fmt.Errorf("%w %q", ErrUnsupportedDevice, device)
		}
		return "cuda", id, nil
	default:
		return "", 0, fmt.Errorf("%w %q", ErrUnsupportedDevice, device)
	}
}

// validateIO checks the graph takes [N,1,H,W] floats and yields
// [N,numClasses] scores. Negative dimensions are symbolic and match anything.
func validateIO(inputs, outputs []ort.InputOutputInfo, numClasses, h, w int) (string, string, error) {
	if len(inputs) != 1 {
		return "", "", fmt.Errorf("%w: graph has %d inputs, want 1", ErrShapeMismatch, len(inputs))
	}
	if len(outputs) < 1 {
		return "", "", fmt.Errorf("%w: graph has no outputs", ErrShapeMismatch)
	}
	in, out := inputs[0], outputs[0]
	if in.OrtValueType != ort.ONNXTypeTensor || in.DataType != ort.TensorElementDataTypeFloat {
		return "", "", fmt.Errorf("%w: input %s is not a float tensor", ErrShapeMismatch, in.Name)
	}
	if !dimsMatch(in.Dimensions, []int64{-1, 1, int64(h), int64(w)}) {
		return "", "", fmt.Errorf("%w: input %s has shape %v, want [N 1 %d %d]", ErrShapeMismatch, in.Name, in.Dimensions, h, w)
	}
	if out.OrtValueType != ort.ONNXTypeTensor || out.DataType != ort.TensorElementDataTypeFloat {
		return "", "", fmt.Errorf("%w: output %s is not a float tensor", ErrShapeMismatch, out.Name)
	}
	if !dimsMatch(out.Dimensions, []int64{-1, int64(numClasses)}) {
		return "", "", fmt.Errorf("%w: output %s has shape %v, want [N %d]", ErrShapeMismatch, out.Name, out.Dimensions, numClasses)
	}
	return in.Name, out.Name, nil
}

func dimsMatch(got ort.Shape, want []int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i, d := range got {
		if d < 0 || want[i] < 0 {
			continue
		}
		if d != want[i] {
			return false
		}
	}
	return true
}

// Forward runs the batch as one [N,1,H,W] tensor.
func (c *ONNXClassifier) Forward(inputs [][]float32) ([][]float32, error) {
	n := len(inputs)
	if n == 0 {
		return [][]float32{}, nil
	}
	plane := c.inH * c.inW
	data := make([]float32, 0, n*plane)
	for i, in := range inputs {
		if len(in) != plane {
			return nil, fmt.Errorf("%w: input %d has %d values, want 1x%dx%d", ErrShapeMismatch, i, len(in), c.inH, c.inW)
		}
		data = append(data, in...)
	}

	inTensor, err := ort.NewTensor(ort.NewShape(int64(n), 1, int64(c.inH), int64(c.inW)), data)
	if err != nil {
		return nil, fmt.Errorf("model: input tensor: %w", err)
	}
	defer inTensor.Destroy()

	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), int64(c.numClasses)))
	if err != nil {
		return nil, fmt.Errorf("model: output tensor: %w", err)
	}
	defer outTensor.Destroy()

	if err := c.session.Run([]ort.Value{inTensor}, []ort.Value{outTensor}); err != nil {
		return nil, fmt.Errorf("model: run: %w", err)
	}

	flat := outTensor.GetData()
	scores := make([][]float32, n)
	for i := range scores {
		scores[i] = append([]float32(nil), flat[i*c.numClasses:(i+1)*c.numClasses]...)
	}
	return scores, nil
}

func (c *ONNXClassifier) NumClasses() int { return c.numClasses }

func (c *ONNXClassifier) Device() string { return c.device }

// Close releases the session and, if this classifier started it, the
// onnxruntime environment.
func (c *ONNXClassifier) Close() error {
	err := c.session.Destroy()
	if c.ownsEnv {
		if envErr := ort.DestroyEnvironment(); err == nil {
			err = envErr
		}
	}
	return err
}
