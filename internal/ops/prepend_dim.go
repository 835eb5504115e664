package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

// PrependDim splits the outer dim of x: (N, ...) becomes
// (dimSize, N/dimSize, ...). The result is a view sharing x's storage.
func PrependDim(x *tensor.RawTensor, dimSize int) (*tensor.RawTensor, error) {
	const op = "PrependDim"
	if dimSize <= 0 {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "%s: dim_size must be positive, got %d", op, dimSize)
	}
	if x.Rank() == 0 {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "%s: input must have at least one dim", op)
	}
	if x.Dim(0)%dimSize != 0 {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "%s: outer dim %d is not a multiple of dim_size %d",
			op, x.Dim(0), dimSize)
	}
	shape := append(tensor.Shape{dimSize, x.Dim(0) / dimSize}, x.Shape()[1:]...)
	return x.Reshape(shape)
}

// MergeDim is the inverse of PrependDim: (a, b, ...) becomes (a*b, ...).
func MergeDim(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if x.Rank() < 2 {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "MergeDim: input must have at least two dims, got %v", x.Shape())
	}
	shape := append(tensor.Shape{x.Dim(0) * x.Dim(1)}, x.Shape()[2:]...)
	return x.Reshape(shape)
}
