package cpu

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernels/internal/tensor"
)

func TestRowReduce(t *testing.T) {
	tests := []struct {
		name string
		kind tensor.ReduceKind
		x, y []float32
		n, d int
		want []float32
	}{
		{"squared_l2", tensor.ReduceSquaredL2, []float32{1, 2, 3}, []float32{0, 0, 0}, 1, 3, []float32{7}},
		{"squared_l2 two rows", tensor.ReduceSquaredL2, []float32{1, 1, 3, 3}, []float32{0, 0, 1, 1}, 2, 2, []float32{1, 4}},
		{"l1", tensor.ReduceL1, []float32{1, -2, 3}, []float32{0, 0, 0}, 1, 3, []float32{6}},
		{"dot", tensor.ReduceDot, []float32{1, 2, 3, 4}, []float32{5, 6, 7, 8}, 2, 2, []float32{17, 53}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newTestBackend(t)
			out := zeros(t, tensor.Float32, tt.n)
			err := backend.RowReduce(tt.kind, tt.n, tt.d,
				fromFloat32(t, tt.x, tt.n, tt.d), fromFloat32(t, tt.y, tt.n, tt.d), out)
			require.NoError(t, err)
			synchronize(t, backend)
			assert.InDeltaSlice(t, tt.want, out.AsFloat32(), epsilon)
		})
	}
}

// TestRowReduce_MatchesSequentialSum checks rows longer than the block and
// more rows than blocks against a plain loop.
func TestRowReduce_MatchesSequentialSum(t *testing.T) {
	backend := newTestBackend(t)
	rng := rand.New(rand.NewSource(7))

	n, d := 11, 37
	x := make([]float32, n*d)
	y := make([]float32, n*d)
	for i := range x {
		x[i] = rng.Float32()*2 - 1
		y[i] = rng.Float32()*2 - 1
	}

	out := zeros(t, tensor.Float32, n)
	require.NoError(t, backend.RowReduce(tensor.ReduceSquaredL2, n, d, fromFloat32(t, x, n, d), fromFloat32(t, y, n, d), out))
	synchronize(t, backend)

	for i := 0; i < n; i++ {
		var want float64
		for j := 0; j < d; j++ {
			diff := float64(x[i*d+j] - y[i*d+j])
			want += diff * diff
		}
		assert.InDelta(t, 0.5*want, out.AsFloat32()[i], 1e-4, "row %d", i)
	}
}

func TestRowReduce_EmptyRows(t *testing.T) {
	backend := newTestBackend(t)

	empty := zeros(t, tensor.Float32, 3, 0)
	out := fromFloat32(t, []float32{9, 9, 9}, 3)
	require.NoError(t, backend.RowReduce(tensor.ReduceL1, 3, 0, empty, empty, out))
	synchronize(t, backend)
	assert.Equal(t, []float32{0, 0, 0}, out.AsFloat32())
}

func TestRowReduce_Validation(t *testing.T) {
	backend := newTestBackend(t)

	x := zeros(t, tensor.Float32, 2, 3)
	out := zeros(t, tensor.Float32, 2)

	err := backend.RowReduce(tensor.ReduceDot, 2, 2, x, x, out)
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))

	err = backend.RowReduce(tensor.ReduceDot, 2, 3, x, x, zeros(t, tensor.Float32, 3))
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))

	err = backend.RowReduce(tensor.ReduceDot, 2, 3, zeros(t, tensor.Float16, 2, 3), x, out)
	assert.True(t, errors.Is(err, tensor.ErrUnsupportedDType))

	err = backend.RowReduce(tensor.ReduceKind(42), 2, 3, x, x, out)
	assert.True(t, errors.Is(err, tensor.ErrInvalidArgument))
}

func TestRowwiseKernels(t *testing.T) {
	backend := newTestBackend(t)

	alpha := fromFloat32(t, []float32{2, -1}, 2)
	x := fromFloat32(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	t.Run("striped_scale", func(t *testing.T) {
		y := zeros(t, tensor.Float32, 2, 3)
		require.NoError(t, backend.StripedScale(2, 3, alpha, x, y))
		synchronize(t, backend)
		assert.Equal(t, []float32{2, 4, 6, -4, -5, -6}, y.AsFloat32())
	})

	t.Run("batched_axpy", func(t *testing.T) {
		y := fromFloat32(t, []float32{1, 1, 1, 1, 1, 1}, 2, 3)
		require.NoError(t, backend.BatchedAxpy(2, 3, alpha, x, y))
		synchronize(t, backend)
		assert.Equal(t, []float32{3, 5, 7, -3, -4, -5}, y.AsFloat32())
	})

	t.Run("axpy_scale", func(t *testing.T) {
		scale := fromFloat32(t, []float32{1, 2}, 2)
		xy := fromFloat32(t, []float32{4, 3}, 2)
		norm := fromFloat32(t, []float32{2, 1}, 2)
		out := zeros(t, tensor.Float32, 2)
		require.NoError(t, backend.AxpyScale(2, scale, xy, norm, out))
		synchronize(t, backend)
		assert.Equal(t, []float32{-1, -6}, out.AsFloat32())
	})
}

func TestL1DistanceGradient_DeadBand(t *testing.T) {
	backend := newTestBackend(t)

	x := fromFloat32(t, []float32{1, 0, 5, 2}, 1, 4)
	y := fromFloat32(t, []float32{0, 1, 5, 2}, 1, 4)
	dDist := fromFloat32(t, []float32{3}, 1)
	dx := zeros(t, tensor.Float32, 1, 4)
	dy := fromFloat32(t, []float32{9, 9, 9, 9}, 1, 4)

	require.NoError(t, backend.L1DistanceGradient(1, 4, x, y, dDist, dx, dy))
	synchronize(t, backend)
	assert.Equal(t, []float32{3, -3, 0, 0}, dx.AsFloat32())
	assert.Equal(t, []float32{-3, 3, 0, 0}, dy.AsFloat32())
}

func TestDotProductGradient(t *testing.T) {
	backend := newTestBackend(t)

	x := fromFloat32(t, []float32{1, 2, 3, 4}, 2, 2)
	y := fromFloat32(t, []float32{5, 6, 7, 8}, 2, 2)
	dDot := fromFloat32(t, []float32{1, 2}, 2)
	dx := zeros(t, tensor.Float32, 2, 2)
	dy := zeros(t, tensor.Float32, 2, 2)

	require.NoError(t, backend.DotProductGradient(2, 2, x, y, dDot, dx, dy))
	synchronize(t, backend)
	assert.Equal(t, []float32{5, 6, 14, 16}, dx.AsFloat32())
	assert.Equal(t, []float32{1, 2, 6, 8}, dy.AsFloat32())
}

func TestSin(t *testing.T) {
	backend := newTestBackend(t)

	x := fromFloat32(t, []float32{0, 1.5707964, -1.5707964, 3.1415927}, 4)
	y := zeros(t, tensor.Float32, 4)
	require.NoError(t, backend.Sin(x, y))

	dy := fromFloat32(t, []float32{2, 2, 2, 2}, 4)
	dx := zeros(t, tensor.Float32, 4)
	require.NoError(t, backend.SinGradient(x, dy, dx))
	synchronize(t, backend)

	assert.InDeltaSlice(t, []float32{0, 1, -1, 0}, y.AsFloat32(), epsilon)
	assert.InDeltaSlice(t, []float32{2, 0, 0, -2}, dx.AsFloat32(), epsilon)
}

func TestOneHot(t *testing.T) {
	backend := newTestBackend(t)

	for _, indices := range []*tensor.RawTensor{
		mustFromSlice(t, []int64{2, 0, 1}),
		mustFromSlice(t, []int32{2, 0, 1}),
	} {
		out := zeros(t, tensor.Float32, 3, 3)
		require.NoError(t, backend.OneHot(indices, out, 3))
		synchronize(t, backend)
		assert.Equal(t, []float32{0, 0, 1, 1, 0, 0, 0, 1, 0}, out.AsFloat32())
	}

	out := zeros(t, tensor.Float32, 3)
	err := backend.OneHot(mustFromSlice(t, []float32{0, 1, 2}), out, 1)
	assert.True(t, errors.Is(err, tensor.ErrUnsupportedDType))
	err = backend.OneHot(mustFromSlice(t, []int64{0}), out, 0)
	assert.True(t, errors.Is(err, tensor.ErrInvalidArgument))
}

func TestOneHot_OutOfRangeFailsLaunch(t *testing.T) {
	backend := newTestBackend(t)

	out := zeros(t, tensor.Float32, 2, 2)
	require.NoError(t, backend.OneHot(mustFromSlice(t, []int64{0, 5}), out, 2))
	err := backend.Synchronize(t.Context())
	assert.True(t, errors.Is(err, tensor.ErrLaunchFailed))
}

func mustFromSlice[T tensor.DType](t *testing.T, data []T) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromSlice(data, tensor.Shape{len(data)}, tensor.CPU)
	require.NoError(t, err)
	return raw
}
