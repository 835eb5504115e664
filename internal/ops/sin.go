package ops

import (
	"github.com/born-ml/kernels/internal/tensor"
)

// Sin returns sin(x) element-wise.
func Sin(b tensor.Backend, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := requireFloat32("Sin", x); err != nil {
		return nil, err
	}
	y, err := newLike(b, x.Shape(), x.DType())
	if err != nil || y.NumElements() == 0 {
		return y, err
	}
	return y, b.Sin(x, y)
}

// SinGradient returns dy * cos(x) element-wise.
func SinGradient(b tensor.Backend, x, dy *tensor.RawTensor) (*tensor.RawTensor, error) {
	const op = "SinGradient"
	if err := sameShape(op, x, dy); err != nil {
		return nil, err
	}
	if err := requireFloat32(op, x, dy); err != nil {
		return nil, err
	}
	dx, err := newLike(b, x.Shape(), x.DType())
	if err != nil || dx.NumElements() == 0 {
		return dx, err
	}
	return dx, b.SinGradient(x, dy, dx)
}
