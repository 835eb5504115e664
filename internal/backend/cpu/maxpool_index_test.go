package cpu

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/born-ml/kernels/internal/tensor"
)

var pool2x2 = tensor.PoolParams{KernelH: 2, KernelW: 2, StrideH: 2, StrideW: 2}

func TestMaxPoolWithIndex_Basic(t *testing.T) {
	backend := newTestBackend(t)

	x := fromFloat32(t, iota32(16), 1, 1, 4, 4)
	y := zeros(t, tensor.Float32, 1, 1, 2, 2)
	mask := zeros(t, tensor.Int32, 1, 1, 2, 2)

	require.NoError(t, backend.MaxPoolWithIndex(x, y, mask, pool2x2))
	synchronize(t, backend)

	assert.Equal(t, []float32{5, 7, 13, 15}, y.AsFloat32())
	assert.Equal(t, []int32{5, 7, 13, 15}, mask.AsInt32())
}

func TestMaxPoolWithIndex_FirstMaxWins(t *testing.T) {
	backend := newTestBackend(t)

	x := fromFloat32(t, []float32{
		3, 3,
		3, 3,
	}, 1, 1, 2, 2)
	y := zeros(t, tensor.Float32, 1, 1, 1, 1)
	mask := zeros(t, tensor.Int32, 1, 1, 1, 1)

	require.NoError(t, backend.MaxPoolWithIndex(x, y, mask, pool2x2))
	synchronize(t, backend)
	assert.Equal(t, []int32{0}, mask.AsInt32())
}

func TestMaxPoolWithIndex_PaddedWindows(t *testing.T) {
	backend := newTestBackend(t)

	// 3x3 kernel, stride 1, pad 1 over a 2x2 plane: every window is clipped.
	p := tensor.PoolParams{KernelH: 3, KernelW: 3, StrideH: 1, StrideW: 1, PadT: 1, PadL: 1}
	x := fromFloat32(t, []float32{
		4, 1,
		2, 3,
	}, 1, 1, 2, 2)
	y := zeros(t, tensor.Float32, 1, 1, 2, 2)
	mask := zeros(t, tensor.Int32, 1, 1, 2, 2)

	require.NoError(t, backend.MaxPoolWithIndex(x, y, mask, p))
	synchronize(t, backend)
	assert.Equal(t, []float32{4, 4, 4, 4}, y.AsFloat32())
	assert.Equal(t, []int32{0, 0, 0, 0}, mask.AsInt32())
}

func TestMaxPoolWithIndex_WindowInPadding(t *testing.T) {
	backend := newTestBackend(t)

	// A 1x1 kernel with pad 1 has corner windows that miss the input.
	p := tensor.PoolParams{KernelH: 1, KernelW: 1, StrideH: 2, StrideW: 2, PadT: 1, PadL: 1}
	x := fromFloat32(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)
	y := zeros(t, tensor.Float32, 1, 1, 1, 1)
	mask := zeros(t, tensor.Int32, 1, 1, 1, 1)

	require.NoError(t, backend.MaxPoolWithIndex(x, y, mask, p))
	synchronize(t, backend)
	assert.True(t, math.IsInf(float64(y.AsFloat32()[0]), -1))
	assert.Equal(t, []int32{-1}, mask.AsInt32())
}

func TestMaxPoolWithIndex_MultiChannel(t *testing.T) {
	backend := newTestBackend(t)

	// N=2, C=3, 4x4 planes; plane k holds k*16 + 0..15.
	x := fromFloat32(t, iota32(2*3*16), 2, 3, 4, 4)
	y := zeros(t, tensor.Float32, 2, 3, 2, 2)
	mask := zeros(t, tensor.Int32, 2, 3, 2, 2)

	require.NoError(t, backend.MaxPoolWithIndex(x, y, mask, pool2x2))
	synchronize(t, backend)

	for plane := 0; plane < 6; plane++ {
		base := float32(plane * 16)
		assert.Equal(t, []float32{base + 5, base + 7, base + 13, base + 15}, y.AsFloat32()[plane*4:plane*4+4])
		assert.Equal(t, []int32{5, 7, 13, 15}, mask.AsInt32()[plane*4:plane*4+4])
	}
}

func TestMaxPoolWithIndex_Float16(t *testing.T) {
	backend := newTestBackend(t)

	data := make([]float16.Float16, 16)
	for i := range data {
		data[i] = float16.Fromfloat32(float32(i) / 4)
	}
	x, err := tensor.FromSlice(data, tensor.Shape{1, 1, 4, 4}, tensor.CPU)
	require.NoError(t, err)
	y := zeros(t, tensor.Float16, 1, 1, 2, 2)
	mask := zeros(t, tensor.Int32, 1, 1, 2, 2)

	require.NoError(t, backend.MaxPoolWithIndex(x, y, mask, pool2x2))
	synchronize(t, backend)

	values, err := tensor.Float32Values(y)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.25, 1.75, 3.25, 3.75}, values)
	assert.Equal(t, []int32{5, 7, 13, 15}, mask.AsInt32())
}

func TestMaxPoolWithIndex_Validation(t *testing.T) {
	backend := newTestBackend(t)

	x := zeros(t, tensor.Float32, 1, 1, 4, 4)
	y := zeros(t, tensor.Float32, 1, 1, 2, 2)
	mask := zeros(t, tensor.Int32, 1, 1, 2, 2)

	err := backend.MaxPoolWithIndex(zeros(t, tensor.Float32, 4, 4), y, mask, pool2x2)
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))

	err = backend.MaxPoolWithIndex(x, y, mask, tensor.PoolParams{KernelH: 0, KernelW: 2, StrideH: 1, StrideW: 1})
	assert.True(t, errors.Is(err, tensor.ErrInvalidArgument))

	err = backend.MaxPoolWithIndex(zeros(t, tensor.Int32, 1, 1, 4, 4), zeros(t, tensor.Int32, 1, 1, 2, 2), mask, pool2x2)
	assert.True(t, errors.Is(err, tensor.ErrUnsupportedDType))

	err = backend.MaxPoolWithIndex(x, y, zeros(t, tensor.Int64, 1, 1, 2, 2), pool2x2)
	assert.True(t, errors.Is(err, tensor.ErrUnsupportedDType))
}

func TestMaxPoolWithIndexGradient(t *testing.T) {
	backend := newTestBackend(t)

	x := fromFloat32(t, iota32(16), 1, 1, 4, 4)
	y := zeros(t, tensor.Float32, 1, 1, 2, 2)
	mask := zeros(t, tensor.Int32, 1, 1, 2, 2)
	require.NoError(t, backend.MaxPoolWithIndex(x, y, mask, pool2x2))

	dy := fromFloat32(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)
	dx := zeros(t, tensor.Float32, 1, 1, 4, 4)
	require.NoError(t, backend.MaxPoolWithIndexGradient(dy, mask, dx, pool2x2))
	synchronize(t, backend)

	want := make([]float32, 16)
	want[5], want[7], want[13], want[15] = 1, 2, 3, 4
	assert.Equal(t, want, dx.AsFloat32())
}

func TestMaxPoolWithIndexGradient_OverlappingWindows(t *testing.T) {
	backend := newTestBackend(t)

	// 2x2 kernel with stride 1: the center cell is the max of all four windows.
	p := tensor.PoolParams{KernelH: 2, KernelW: 2, StrideH: 1, StrideW: 1}
	x := fromFloat32(t, []float32{
		0, 0, 0,
		0, 9, 0,
		0, 0, 0,
	}, 1, 1, 3, 3)
	y := zeros(t, tensor.Float32, 1, 1, 2, 2)
	mask := zeros(t, tensor.Int32, 1, 1, 2, 2)
	require.NoError(t, backend.MaxPoolWithIndex(x, y, mask, p))

	dy := fromFloat32(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)
	dx := zeros(t, tensor.Float32, 1, 1, 3, 3)
	require.NoError(t, backend.MaxPoolWithIndexGradient(dy, mask, dx, p))
	synchronize(t, backend)

	assert.Equal(t, []int32{4, 4, 4, 4}, mask.AsInt32())
	assert.Equal(t, []float32{0, 0, 0, 0, 10, 0, 0, 0, 0}, dx.AsFloat32())
}

// TestMaxPoolWithIndexGradient_ConservesMass checks that the gradient sums
// to the sum of dy over windows with a valid mask.
func TestMaxPoolWithIndexGradient_ConservesMass(t *testing.T) {
	backend := newTestBackend(t)

	p := tensor.PoolParams{KernelH: 3, KernelW: 2, StrideH: 2, StrideW: 1, PadT: 1}
	x := fromFloat32(t, []float32{
		1, 8, 3, 2, 7,
		6, 5, 4, 9, 0,
		2, 2, 8, 1, 3,
		4, 7, 1, 6, 5,
	}, 1, 1, 4, 5)
	// (4 + 1 - 3)/2 + 1 = 2 rows, (5 - 2)/1 + 1 = 4 columns.
	y := zeros(t, tensor.Float32, 1, 1, 2, 4)
	mask := zeros(t, tensor.Int32, 1, 1, 2, 4)
	require.NoError(t, backend.MaxPoolWithIndex(x, y, mask, p))

	dy := fromFloat32(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, 1, 1, 2, 4)
	dx := zeros(t, tensor.Float32, 1, 1, 4, 5)
	require.NoError(t, backend.MaxPoolWithIndexGradient(dy, mask, dx, p))
	synchronize(t, backend)

	var total float32
	for _, v := range dx.AsFloat32() {
		total += v
	}
	assert.InDelta(t, 36, total, epsilon)

	// Every routed gradient lands on a cell that holds its window's max.
	for i, m := range mask.AsInt32() {
		require.GreaterOrEqual(t, m, int32(0))
		assert.Equal(t, y.AsFloat32()[i], x.AsFloat32()[m])
	}
}
