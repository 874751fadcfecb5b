package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRejectsThreeClassHead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "three.safetensors")
	writeSafetensors(t, path, map[string]testTensor{
		"fc.weight": {shape: []int{3, 512}, data: make([]float32, 3*512)},
		"fc.bias":   {shape: []int{3}, data: make([]float32, 3)},
	})
	_, err := Load(LoadOptions{Path: path, Device: "cpu", NumClasses: 5, InputHeight: 32, InputWidth: 64})
	require.ErrorIs(t, err, ErrShapeMismatch)
	require.ErrorContains(t, err, "fc.weight")
}

func TestLoadNativeRejectsAcceleratorDevice(t *testing.T) {
	_, err := Load(LoadOptions{Path: "resnet.safetensors", Device: "cuda", InputHeight: 8, InputWidth: 8})
	require.ErrorIs(t, err, ErrUnsupportedDevice)
}

func TestLoadMissingCheckpoint(t *testing.T) {
	_, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "none.safetensors"), InputHeight: 8, InputWidth: 8})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadUnknownFormat(t *testing.T) {
	_, err := Load(LoadOptions{Path: "resnet18_pz.pth", InputHeight: 8, InputWidth: 8})
	require.ErrorContains(t, err, "unsupported checkpoint format")
}

func TestLoadInvalidInputSize(t *testing.T) {
	_, err := Load(LoadOptions{Path: "x.safetensors"})
	require.ErrorContains(t, err, "invalid input size")
}
