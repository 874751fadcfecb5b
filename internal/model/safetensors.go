package model

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/x448/float16"
)

// rawTensor is one entry of a safetensors checkpoint. data is nil for
// integer dtypes.
type rawTensor struct {
	dtype string
	shape []int
	data  []float32
}

type tensorHeader struct {
	DType   string   `json:"dtype"`
	Shape   []int    `json:"shape"`
	Offsets [2]int64 `json:"data_offsets"`
}

var dtypeSize = map[string]int64{
	"F64":  8,
	"F32":  4,
	"F16":  2,
	"BF16": 2,
	"I64":  8,
	"I32":  4,
	"I16":  2,
	"I8":   1,
	"U8":   1,
	"BOOL": 1,
}

// readSafetensors parses a safetensors file: an 8-byte little-endian header
// length, a JSON header, then the raw tensor bytes.
func readSafetensors(path string) (map[string]rawTensor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: read checkpoint: %w", err)
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("model: checkpoint %s is truncated", path)
	}
	headerLen := binary.LittleEndian.Uint64(raw[:8])
	if headerLen > uint64(len(raw)-8) {
		return nil, fmt.Errorf("model: checkpoint %s header length %d exceeds file size", path, headerLen)
	}
	body := raw[8+headerLen:]

	var header map[string]json.RawMessage
	if err := json.Unmarshal(raw[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("model: parse checkpoint header: %w", err)
	}

	tensors := make(map[string]rawTensor, len(header))
	for name, msg := range header {
		if name == "__metadata__" {
			continue
		}
		var h tensorHeader
		if err := json.Unmarshal(msg, &h); err != nil {
			return nil, fmt.Errorf("model: tensor %s header: %w", name, err)
		}
		size, ok := dtypeSize[h.DType]
		if !ok {
			return nil, fmt.Errorf("model: tensor %s has unsupported dtype %s", name, h.DType)
		}
		count := int64(1)
		for _, d := range h.Shape {
			count *= int64(d)
		}
		start, end := h.Offsets[0], h.Offsets[1]
		if start < 0 || end < start || end > int64(len(body)) || end-start != count*size {
			return nil, fmt.Errorf("model: tensor %s has invalid offsets %v", name, h.Offsets)
		}
		tensors[name] = rawTensor{
			dtype: h.DType,
			shape: h.Shape,
			data:  decodeFloats(h.DType, body[start:end], int(count)),
		}
	}
	return tensors, nil
}

func decodeFloats(dtype string, b []byte, n int) []float32 {
	var out []float32
	switch dtype {
	case "F32":
		out = make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
	case "F64":
		out = make([]float32, n)
		for i := range out {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:])))
		}
	case "F16":
		out = make([]float32, n)
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(b[i*2:])).Float32()
		}
	case "BF16":
		out = make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(uint32(binary.LittleEndian.Uint16(b[i*2:])) << 16)
		}
	}
	return out
}
