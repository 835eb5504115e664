package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

// OneHot returns a (len(indices), indexSize) float32 matrix with a single 1
// per row at column indices[i].
//
// indices must be 1-D int64 or int32. Values are not range-checked here:
// keeping them in [0, indexSize) is the caller's job, and an index outside
// that range fails the launch.
func OneHot(b tensor.Backend, indices *tensor.RawTensor, indexSize int) (*tensor.RawTensor, error) {
	const op = "OneHot"
	if indices.Rank() != 1 {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "%s: indices must be 1-D, got %v", op, indices.Shape())
	}
	if dt := indices.DType(); dt != tensor.Int64 && dt != tensor.Int32 {
		return nil, errors.Wrapf(tensor.ErrUnsupportedDType, "%s: indices are %s", op, dt)
	}
	if indexSize <= 0 {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "%s: index_size must be positive, got %d", op, indexSize)
	}

	batch := indices.Dim(0)
	out, err := newLike(b, tensor.Shape{batch, indexSize}, tensor.Float32)
	if err != nil || batch == 0 {
		return out, err
	}
	err = firstErr(
		func() error { return b.Set(out, 0) },
		func() error { return b.OneHot(indices, out, indexSize) },
	)
	return out, err
}

// IndexSizeFromTensor reads index_size from a one-element integer tensor,
// the form in which OneHot receives it as a second input.
func IndexSizeFromTensor(t *tensor.RawTensor) (int, error) {
	if t.NumElements() != 1 {
		return 0, errors.Wrapf(tensor.ErrShapeMismatch, "index_size must hold one element, got %v", t.Shape())
	}
	switch t.DType() {
	case tensor.Int64:
		return int(t.AsInt64()[0]), nil
	case tensor.Int32:
		return int(t.AsInt32()[0]), nil
	default:
		return 0, errors.Wrapf(tensor.ErrUnsupportedDType, "index_size is %s", t.DType())
	}
}
