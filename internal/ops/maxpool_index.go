package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

func checkPoolInput(op string, g ConvPoolBase, x *tensor.RawTensor) error {
	if x.Rank() != 4 {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%s: only 4D tensors are supported, got %v", op, x.Shape())
	}
	if x.DType() != tensor.Float32 && x.DType() != tensor.Float16 {
		return errors.Wrapf(tensor.ErrUnsupportedDType, "%s: %s", op, x.DType())
	}
	if g.Order != tensor.NCHW {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: only NCHW is supported, got %s", op, g.Order)
	}
	if err := g.Validate(); err != nil {
		return errors.WithMessage(err, op)
	}
	return nil
}

// MaxPoolWithIndex max-pools x and returns the pooled values together with
// an int32 mask of the same shape. Each mask entry is the offset h*W+w of
// the maximum within its (n, c) plane, or -1 when the window holds no input
// cell. The first maximum in row-major order wins.
func MaxPoolWithIndex(b tensor.Backend, g ConvPoolBase, x *tensor.RawTensor) (y, mask *tensor.RawTensor, err error) {
	const op = "MaxPoolWithIndex"
	if err := checkPoolInput(op, g, x); err != nil {
		return nil, nil, err
	}
	shape, err := g.SetOutputSize(x, x.Dim(1))
	if err != nil {
		return nil, nil, errors.WithMessage(err, op)
	}
	if y, err = newLike(b, shape, x.DType()); err != nil {
		return nil, nil, err
	}
	if mask, err = newLike(b, shape, tensor.Int32); err != nil {
		return nil, nil, err
	}
	if y.NumElements() == 0 {
		return y, mask, nil
	}
	return y, mask, b.MaxPoolWithIndex(x, y, mask, g.PoolParams())
}

// MaxPoolWithIndexGradient routes dy to the input cells selected by mask.
// x supplies the input shape; dy and mask have the pooled shape.
func MaxPoolWithIndexGradient(b tensor.Backend, g ConvPoolBase, x, dy, mask *tensor.RawTensor) (*tensor.RawTensor, error) {
	const op = "MaxPoolWithIndexGradient"
	if err := checkPoolInput(op, g, x); err != nil {
		return nil, err
	}
	if dy.DType() != x.DType() {
		return nil, errors.Wrapf(tensor.ErrUnsupportedDType, "%s: dY is %s, X is %s", op, dy.DType(), x.DType())
	}
	if mask.DType() != tensor.Int32 {
		return nil, errors.Wrapf(tensor.ErrUnsupportedDType, "%s: mask is %s, want int32", op, mask.DType())
	}
	shape, err := g.SetOutputSize(x, x.Dim(1))
	if err != nil {
		return nil, errors.WithMessage(err, op)
	}
	if !dy.Shape().Equal(shape) || mask.NumElements() != shape.NumElements() {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "%s: dY %v and mask %v do not match pooled shape %v",
			op, dy.Shape(), mask.Shape(), shape)
	}

	dx, err := newLike(b, x.Shape(), dy.DType())
	if err != nil || x.NumElements() == 0 {
		return dx, err
	}
	return dx, b.MaxPoolWithIndexGradient(dy, mask, dx, g.PoolParams())
}
