package ops

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernels/internal/tensor"
)

func TestSquaredL2Distance_Scenario(t *testing.T) {
	b := newBackend(t)

	x := f32(t, []float32{1, 2, 3}, 1, 3)
	y := f32(t, []float32{0, 0, 0}, 1, 3)
	dist, err := SquaredL2Distance(b, x, y)
	require.NoError(t, err)

	dx, dy, err := SquaredL2DistanceGradient(b, x, y, f32(t, []float32{1}, 1))
	require.NoError(t, err)
	synchronize(t, b)

	assert.Equal(t, tensor.Shape{1}, dist.Shape())
	assert.InDelta(t, 7.0, dist.AsFloat32()[0], tolerance)
	assert.Equal(t, []float32{1, 2, 3}, dx.AsFloat32())
	assert.Equal(t, []float32{-1, -2, -3}, dy.AsFloat32())
}

func TestSquaredL2Distance_MatchesReference(t *testing.T) {
	b := newBackend(t)
	rng := rand.New(rand.NewSource(1))

	x := randomF32(t, rng, 6, 5, 7)
	y := randomF32(t, rng, 6, 5, 7)
	dist, err := SquaredL2Distance(b, x, y)
	require.NoError(t, err)
	dDist := randomF32(t, rng, 6)
	dx, dy, err := SquaredL2DistanceGradient(b, x, y, dDist)
	require.NoError(t, err)
	synchronize(t, b)

	xs, ys := x.AsFloat32(), y.AsFloat32()
	for i := 0; i < 6; i++ {
		var want float64
		for j := 0; j < 35; j++ {
			diff := float64(xs[i*35+j] - ys[i*35+j])
			want += diff * diff
		}
		want *= 0.5
		assert.InDelta(t, want, dist.AsFloat32()[i], tolerance*math.Max(1, want), "row %d", i)
	}
	for i, v := range dx.AsFloat32() {
		require.Equal(t, -v, dy.AsFloat32()[i], "dY must be exactly -dX")
		assert.InDelta(t, (xs[i]-ys[i])*dDist.AsFloat32()[i/35], v, tolerance)
	}
}

func TestSquaredL2Distance_Validation(t *testing.T) {
	b := newBackend(t)

	x := f32(t, make([]float32, 6), 2, 3)
	_, err := SquaredL2Distance(b, x, f32(t, make([]float32, 6), 3, 2))
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))

	_, err = SquaredL2Distance(b, x, f32(t, make([]float32, 6), 6))
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))

	_, _, err = SquaredL2DistanceGradient(b, x, x, f32(t, make([]float32, 3), 3))
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))

	_, _, err = SquaredL2DistanceGradient(b, x, x, f32(t, make([]float32, 2), 2, 1))
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))

	ints, err := tensor.Zeros(tensor.Shape{2, 3}, tensor.Int32, tensor.CPU)
	require.NoError(t, err)
	_, err = SquaredL2Distance(b, ints, ints)
	assert.True(t, errors.Is(err, tensor.ErrUnsupportedDType))
}

func TestDistance_EmptyInputs(t *testing.T) {
	b := newBackend(t)

	emptyRows := f32(t, nil, 3, 0)
	dist, err := SquaredL2Distance(b, emptyRows, emptyRows)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, dist.AsFloat32())

	l1, err := L1Distance(b, emptyRows, emptyRows)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3}, l1.Shape())

	noRows := f32(t, nil, 0, 4)
	dist, err = SquaredL2Distance(b, noRows, noRows)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{0}, dist.Shape())

	// DotProduct collapses any empty input to zero rows.
	dot, err := DotProduct(b, emptyRows, emptyRows)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{0}, dot.Shape())

	dx, dy, err := DotProductGradient(b, emptyRows, emptyRows, f32(t, nil, 0))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 0}, dx.Shape())
	assert.Equal(t, tensor.Shape{3, 0}, dy.Shape())
	synchronize(t, b)
}

func TestDistance_ScalarInput(t *testing.T) {
	b := newBackend(t)

	x := f32(t, []float32{3}) // 0-D: one row of one element
	y := f32(t, []float32{1})
	dist, err := L1Distance(b, x, y)
	require.NoError(t, err)
	synchronize(t, b)
	assert.Equal(t, tensor.Shape{1}, dist.Shape())
	assert.Equal(t, []float32{2}, dist.AsFloat32())
}

func TestL1Distance(t *testing.T) {
	b := newBackend(t)

	x := f32(t, []float32{1, -2, 3, 0, 5, 5}, 2, 3)
	y := f32(t, []float32{0, 0, 0, 1, 1, 1}, 2, 3)
	dist, err := L1Distance(b, x, y)
	require.NoError(t, err)
	synchronize(t, b)
	assert.InDeltaSlice(t, []float32{6, 9}, dist.AsFloat32(), tolerance)
}

func TestL1Distance_DeadBandScenario(t *testing.T) {
	b := newBackend(t)

	x := f32(t, []float32{1.0, 2.0}, 1, 2)
	y := f32(t, []float32{float32(1.0 + 1e-15), float32(2.0 - 1e-15)}, 1, 2)
	dist, err := L1Distance(b, x, y)
	require.NoError(t, err)
	dx, dy, err := L1DistanceGradient(b, x, y, f32(t, []float32{1}, 1))
	require.NoError(t, err)
	synchronize(t, b)

	assert.InDelta(t, 0, dist.AsFloat32()[0], tolerance)
	assert.Equal(t, []float32{0, 0}, dx.AsFloat32())
	assert.Equal(t, []float32{0, 0}, dy.AsFloat32())
}

func TestL1DistanceGradient_SignRegions(t *testing.T) {
	b := newBackend(t)

	x := f32(t, []float32{0, 2, 1}, 1, 3)
	y := f32(t, []float32{1, 1, 1}, 1, 3)
	dx, dy, err := L1DistanceGradient(b, x, y, f32(t, []float32{2}, 1))
	require.NoError(t, err)
	synchronize(t, b)

	assert.Equal(t, []float32{-2, 2, 0}, dx.AsFloat32())
	assert.Equal(t, []float32{2, -2, 0}, dy.AsFloat32())
}

func TestDotProduct_Scenario(t *testing.T) {
	b := newBackend(t)

	x := f32(t, []float32{3, 4}, 1, 2)
	dot, err := DotProduct(b, x, x)
	require.NoError(t, err)
	synchronize(t, b)
	assert.Equal(t, []float32{25}, dot.AsFloat32())
}

func TestDotProduct_Bilinear(t *testing.T) {
	b := newBackend(t)
	rng := rand.New(rand.NewSource(3))

	x := randomF32(t, rng, 9, 13)
	y := randomF32(t, rng, 9, 13)
	scaled := f32(t, make([]float32, 9*13), 9, 13)
	require.NoError(t, b.Scale(2.5, x, scaled))

	dot, err := DotProduct(b, x, y)
	require.NoError(t, err)
	dotScaled, err := DotProduct(b, scaled, y)
	require.NoError(t, err)
	synchronize(t, b)

	for i := range dot.AsFloat32() {
		assert.InDelta(t, 2.5*dot.AsFloat32()[i], dotScaled.AsFloat32()[i], 1e-4)
	}
}

func TestDotProductGradient(t *testing.T) {
	b := newBackend(t)

	x := f32(t, []float32{1, 2, 3, 4}, 2, 2)
	y := f32(t, []float32{5, 6, 7, 8}, 2, 2)
	dx, dy, err := DotProductGradient(b, x, y, f32(t, []float32{1, -1}, 2))
	require.NoError(t, err)
	synchronize(t, b)

	assert.Equal(t, []float32{5, 6, -7, -8}, dx.AsFloat32())
	assert.Equal(t, []float32{1, 2, -3, -4}, dy.AsFloat32())
}

// numericGradient estimates d(sum_i w[i]*f(x)[i])/dx by central differences.
func numericGradient(t *testing.T, f func(x *tensor.RawTensor) []float32, x *tensor.RawTensor, w []float32) []float32 {
	t.Helper()
	const h = 1e-2
	data := x.AsFloat32()
	grad := make([]float32, len(data))
	for i := range data {
		orig := data[i]
		data[i] = orig + h
		plus := f(x)
		data[i] = orig - h
		minus := f(x)
		data[i] = orig

		var diff float64
		for k := range plus {
			diff += float64(w[k]) * float64(plus[k]-minus[k])
		}
		grad[i] = float32(diff / (2 * h))
	}
	return grad
}

func TestDistanceGradients_MatchNumeric(t *testing.T) {
	b := newBackend(t)
	rng := rand.New(rand.NewSource(5))

	type forward func(x, y *tensor.RawTensor) (*tensor.RawTensor, error)
	type backward func(x, y, d *tensor.RawTensor) (*tensor.RawTensor, *tensor.RawTensor, error)
	tests := []struct {
		name string
		fwd  forward
		bwd  backward
	}{
		{"squared_l2",
			func(x, y *tensor.RawTensor) (*tensor.RawTensor, error) { return SquaredL2Distance(b, x, y) },
			func(x, y, d *tensor.RawTensor) (*tensor.RawTensor, *tensor.RawTensor, error) {
				return SquaredL2DistanceGradient(b, x, y, d)
			}},
		{"dot",
			func(x, y *tensor.RawTensor) (*tensor.RawTensor, error) { return DotProduct(b, x, y) },
			func(x, y, d *tensor.RawTensor) (*tensor.RawTensor, *tensor.RawTensor, error) {
				return DotProductGradient(b, x, y, d)
			}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := randomF32(t, rng, 3, 4)
			y := randomF32(t, rng, 3, 4)
			w := randomF32(t, rng, 3)

			eval := func(x, y *tensor.RawTensor) []float32 {
				out, err := tt.fwd(x, y)
				require.NoError(t, err)
				synchronize(t, b)
				return out.AsFloat32()
			}
			dx, dy, err := tt.bwd(x, y, w)
			require.NoError(t, err)
			synchronize(t, b)

			numX := numericGradient(t, func(x *tensor.RawTensor) []float32 { return eval(x, y) }, x, w.AsFloat32())
			numY := numericGradient(t, func(y *tensor.RawTensor) []float32 { return eval(x, y) }, y, w.AsFloat32())
			assert.InDeltaSlice(t, numX, dx.AsFloat32(), 1e-3)
			assert.InDeltaSlice(t, numY, dy.AsFloat32(), 1e-3)
		})
	}
}
