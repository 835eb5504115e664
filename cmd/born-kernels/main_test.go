package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernels/backend/cpu"
	"github.com/born-ml/kernels/internal/serialization"
	"github.com/born-ml/kernels/tensor"
)

func TestRunScenarios(t *testing.T) {
	backend := cpu.New()
	defer func() { assert.NoError(t, backend.Close()) }()

	var out bytes.Buffer
	require.NoError(t, runScenarios(&out, backend), out.String())
	assert.NotContains(t, out.String(), "FAIL")
	assert.Contains(t, out.String(), "pad_reflect")
}

func TestBench(t *testing.T) {
	backend := cpu.New()
	defer func() { assert.NoError(t, backend.Close()) }()

	var out bytes.Buffer
	require.NoError(t, bench(&out, backend, "CosineSimilarity", 16, 8, 2))
	assert.Contains(t, out.String(), "throughput")

	err := bench(&out, backend, "MaxPoolWithIndex", 16, 8, 2)
	assert.True(t, errors.Is(err, tensor.ErrUnknownOperator))

	err = bench(&out, backend, "Sin", 0, 8, 2)
	assert.True(t, errors.Is(err, tensor.ErrInvalidArgument))
}

func TestBytesPerSecond(t *testing.T) {
	assert.Equal(t, uint64(2000), bytesPerSecond(2000, time.Second))
	assert.InDelta(t, 4e9, float64(bytesPerSecond(4, 0)), 1)
	assert.Equal(t, uint64(0), bytesPerSecond(0, 0))
}

func TestNewBackend(t *testing.T) {
	backend, closeBackend, err := newBackend("cpu")
	require.NoError(t, err)
	assert.Equal(t, tensor.CPU, backend.Device())
	assert.NoError(t, closeBackend())

	_, _, err = newBackend("tpu")
	assert.Error(t, err)
}

func TestRunNet(t *testing.T) {
	backend := cpu.New()
	defer func() { assert.NoError(t, backend.Close()) }()

	dir := t.TempDir()
	netPath := filepath.Join(dir, "net.yaml")
	require.NoError(t, os.WriteFile(netPath, []byte(`
name: sin_net
nodes:
  - op: Sin
    inputs: [X]
    outputs: [Y]
`), 0o600))

	x, err := tensor.FromSlice([]float32{0, math.Pi / 2}, tensor.Shape{2}, tensor.CPU)
	require.NoError(t, err)
	seed, err := tensor.FromSlice([]float32{1, 1}, tensor.Shape{2}, tensor.CPU)
	require.NoError(t, err)
	inputsPath := filepath.Join(dir, "inputs.safetensors")
	require.NoError(t, serialization.WriteFile(inputsPath, map[string]*tensor.RawTensor{"X": x, "Y_grad": seed}, nil))

	outputsPath := filepath.Join(dir, "outputs.safetensors")
	var out bytes.Buffer
	require.NoError(t, runNet(&out, backend, netPath, inputsPath, outputsPath, true))
	assert.Contains(t, out.String(), "wrote 2 blobs")

	blobs, metadata, err := serialization.ReadFile(outputsPath)
	require.NoError(t, err)
	assert.Equal(t, "sin_net", metadata["net"])
	assert.NotContains(t, blobs, "X")
	assert.InDeltaSlice(t, []float32{0, 1}, blobs["Y"].AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{1, 0}, blobs["X_grad"].AsFloat32(), 1e-6)
}
