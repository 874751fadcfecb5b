package model

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

type testTensor struct {
	shape []int
	data  []float32
}

// writeSafetensors stores F32 tensors in safetensors layout.
func writeSafetensors(t *testing.T, path string, tensors map[string]testTensor) {
	t.Helper()
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := map[string]any{"__metadata__": map[string]string{"format": "pt"}}
	var body []byte
	for _, name := range names {
		tt := tensors[name]
		start := len(body)
		for _, v := range tt.data {
			body = binary.LittleEndian.AppendUint32(body, math.Float32bits(v))
		}
		header[name] = map[string]any{
			"dtype":        "F32",
			"shape":        tt.shape,
			"data_offsets": []int{start, len(body)},
		}
	}
	hdr, err := json.Marshal(header)
	require.NoError(t, err)

	out := binary.LittleEndian.AppendUint64(nil, uint64(len(hdr)))
	out = append(out, hdr...)
	out = append(out, body...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, out, 0o644))
}

// stateDictFor returns a checkpoint matching net, with every value produced
// by fill.
func stateDictFor(net *ResNet, fill func(name string, i int) float32) map[string]testTensor {
	out := make(map[string]testTensor)
	for name, shape := range net.ParamShapes() {
		n := 1
		for _, d := range shape {
			n *= d
		}
		data := make([]float32, n)
		for i := range data {
			data[i] = fill(name, i)
		}
		out[name] = testTensor{shape: shape, data: data}
	}
	return out
}

var tinyArch = resnetArch{
	blocks: [4]int{1, 1, 1, 1},
	planes: [4]int{2, 4, 4, 8},
}
