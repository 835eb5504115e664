package ops

import (
	"github.com/born-ml/kernels/internal/tensor"
)

// SquaredL2Distance returns distance[i] = 0.5 * sum_j (x[i,j] - y[i,j])^2.
//
// Example:
//
//	x = [[1, 2, 3]], y = [[0, 0, 0]]  ->  [7]
func SquaredL2Distance(b tensor.Backend, x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return rowDistance(b, "SquaredL2Distance", tensor.ReduceSquaredL2, x, y)
}

// SquaredL2DistanceGradient returns dx = (x - y) * dDistance[i] and dy = -dx.
func SquaredL2DistanceGradient(b tensor.Backend, x, y, dDistance *tensor.RawTensor) (dx, dy *tensor.RawTensor, err error) {
	const op = "SquaredL2DistanceGradient"
	n, d, dx, dy, err := gradientOperands(b, op, x, y, dDistance)
	if err != nil || n*d == 0 {
		return dx, dy, err
	}
	err = firstErr(
		func() error { return b.Sub(x, y, dx) },
		func() error { return b.StripedScale(n, d, dDistance, dx, dx) },
		func() error { return b.Scale(-1, dx, dy) },
	)
	return dx, dy, err
}

// L1Distance returns distance[i] = sum_j |x[i,j] - y[i,j]|.
func L1Distance(b tensor.Backend, x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return rowDistance(b, "L1Distance", tensor.ReduceL1, x, y)
}

// L1DistanceGradient returns the sign of x - y scaled by dDistance[i]. The
// gradient is zero where |x - y| <= 1e-12.
func L1DistanceGradient(b tensor.Backend, x, y, dDistance *tensor.RawTensor) (dx, dy *tensor.RawTensor, err error) {
	n, d, dx, dy, err := gradientOperands(b, "L1DistanceGradient", x, y, dDistance)
	if err != nil || n*d == 0 {
		return dx, dy, err
	}
	return dx, dy, b.L1DistanceGradient(n, d, x, y, dDistance, dx, dy)
}

// DotProduct returns result[i] = sum_j x[i,j] * y[i,j]. An input with no
// elements yields an empty result, whatever its outer dim.
//
// The accumulator has the element type of the inputs.
func DotProduct(b tensor.Backend, x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	const op = "DotProduct"
	n, d, err := pairwise(op, x, y)
	if err != nil {
		return nil, err
	}
	if x.NumElements() == 0 {
		n, d = 0, 0
	}
	out, err := newLike(b, tensor.Shape{n}, x.DType())
	if err != nil || n*d == 0 {
		return out, err
	}
	return out, b.RowReduce(tensor.ReduceDot, n, d, x, y, out)
}

// DotProductGradient returns dx = y * dDot[i] and dy = x * dDot[i].
func DotProductGradient(b tensor.Backend, x, y, dDot *tensor.RawTensor) (dx, dy *tensor.RawTensor, err error) {
	const op = "DotProductGradient"
	if err := sameShape(op, x, y); err != nil {
		return nil, nil, err
	}
	n, d := rowsOf(x)
	if x.NumElements() == 0 {
		n, d = 0, 0
	}
	n, d, dx, dy, err = gradientRows(b, op, n, d, x, y, dDot)
	if err != nil || n*d == 0 {
		return dx, dy, err
	}
	return dx, dy, b.DotProductGradient(n, d, x, y, dDot, dx, dy)
}

func rowDistance(b tensor.Backend, op string, kind tensor.ReduceKind, x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	n, d, err := pairwise(op, x, y)
	if err != nil {
		return nil, err
	}
	out, err := newLike(b, tensor.Shape{n}, tensor.Float32)
	if err != nil || n*d == 0 {
		return out, err
	}
	return out, b.RowReduce(kind, n, d, x, y, out)
}

// gradientOperands validates the (x, y, dOut) triple of a distance gradient
// and allocates dx and dy.
func gradientOperands(b tensor.Backend, op string, x, y, dOut *tensor.RawTensor) (n, d int, dx, dy *tensor.RawTensor, err error) {
	if err := sameShape(op, x, y); err != nil {
		return 0, 0, nil, nil, err
	}
	n, d = rowsOf(x)
	return gradientRows(b, op, n, d, x, y, dOut)
}

func gradientRows(b tensor.Backend, op string, n, d int, x, y, dOut *tensor.RawTensor) (int, int, *tensor.RawTensor, *tensor.RawTensor, error) {
	if err := requireFloat32(op, x, y, dOut); err != nil {
		return 0, 0, nil, nil, err
	}
	if err := requirePerRow(op, "output gradient", dOut, n); err != nil {
		return 0, 0, nil, nil, err
	}
	dx, err := newLike(b, x.Shape(), x.DType())
	if err != nil {
		return 0, 0, nil, nil, err
	}
	dy, err := newLike(b, y.Shape(), y.DType())
	if err != nil {
		return 0, 0, nil, nil, err
	}
	return n, d, dx, dy, nil
}
