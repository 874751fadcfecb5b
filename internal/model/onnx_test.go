package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func TestParseDevice(t *testing.T) {
	for _, tc := range []struct {
		in   string
		kind string
		id   int
	}{
		{"cpu", "cpu", 0},
		{"", "cpu", 0},
		{"CUDA", "cuda", 0},
		{"cuda:2", "cuda", 2},
	} {
		kind, id, err := parseDevice(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.kind, kind)
		assert.Equal(t, tc.id, id)
	}
	for _, bad := range []string{"mps", "cuda:x", "cuda:-1"} {
		_, _, err := parseDevice(bad)
		require.ErrorIs(t, err, ErrUnsupportedDevice, bad)
	}
}

func TestValidateIO(t *testing.T) {
	input := ort.InputOutputInfo{
		Name:         "input",
		OrtValueType: ort.ONNXTypeTensor,
		Dimensions:   ort.NewShape(-1, 1, 128, 1024),
		DataType:     ort.TensorElementDataTypeFloat,
	}
	output := ort.InputOutputInfo{
		Name:         "logits",
		OrtValueType: ort.ONNXTypeTensor,
		Dimensions:   ort.NewShape(-1, 5),
		DataType:     ort.TensorElementDataTypeFloat,
	}

	in, out, err := validateIO([]ort.InputOutputInfo{input}, []ort.InputOutputInfo{output}, 5, 128, 1024)
	require.NoError(t, err)
	assert.Equal(t, "input", in)
	assert.Equal(t, "logits", out)

	threeClass := output
	threeClass.Dimensions = ort.NewShape(-1, 3)
	_, _, err = validateIO([]ort.InputOutputInfo{input}, []ort.InputOutputInfo{threeClass}, 5, 128, 1024)
	require.ErrorIs(t, err, ErrShapeMismatch)

	rgb := input
	rgb.Dimensions = ort.NewShape(1, 3, 128, 1024)
	_, _, err = validateIO([]ort.InputOutputInfo{rgb}, []ort.InputOutputInfo{output}, 5, 128, 1024)
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, _, err = validateIO(nil, []ort.InputOutputInfo{output}, 5, 128, 1024)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestONNXForwardEmptyBatch(t *testing.T) {
	c := &ONNXClassifier{numClasses: 5, inH: 2, inW: 2}
	scores, err := c.Forward(nil)
	require.NoError(t, err)
	require.NotNil(t, scores)
	assert.Empty(t, scores)
}
