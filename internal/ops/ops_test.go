package ops

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernels/internal/backend/cpu"
	"github.com/born-ml/kernels/internal/tensor"
)

const tolerance = 1e-5

func newBackend(t *testing.T) *cpu.CPUBackend {
	t.Helper()
	b := cpu.New(cpu.WithBlockSize(8), cpu.WithMaxBlocks(4))
	t.Cleanup(func() {
		assert.NoError(t, b.Close())
	})
	return b
}

func synchronize(t *testing.T, b tensor.Backend) {
	t.Helper()
	require.NoError(t, b.Synchronize(context.Background()))
}

func f32(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromSlice(data, tensor.Shape(shape), tensor.CPU)
	require.NoError(t, err)
	return raw
}

func randomF32(t *testing.T, rng *rand.Rand, shape ...int) *tensor.RawTensor {
	t.Helper()
	data := make([]float32, tensor.Shape(shape).NumElements())
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	return f32(t, data, shape...)
}

func sum(values []float32) float64 {
	var total float64
	for _, v := range values {
		total += float64(v)
	}
	return total
}

func TestRowsOf(t *testing.T) {
	tests := []struct {
		name  string
		shape tensor.Shape
		n, d  int
	}{
		{"scalar", tensor.Shape{}, 1, 1},
		{"vector", tensor.Shape{4}, 4, 1},
		{"matrix", tensor.Shape{2, 3}, 2, 3},
		{"higher rank", tensor.Shape{2, 3, 4}, 2, 12},
		{"empty rows", tensor.Shape{3, 0}, 3, 0},
		{"no rows", tensor.Shape{0, 5}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tensor.NewRaw(tt.shape, tensor.Float32, tensor.CPU)
			require.NoError(t, err)
			n, d := rowsOf(raw)
			assert.Equal(t, tt.n, n)
			assert.Equal(t, tt.d, d)
		})
	}
}
