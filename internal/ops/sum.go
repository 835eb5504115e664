package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

// Sum adds same-shaped float32 tensors element-wise. Gradient nets use it to
// accumulate the partial gradients of a blob read by more than one node.
func Sum(b tensor.Backend, xs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	const op = "Sum"
	if len(xs) == 0 {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "%s: no inputs", op)
	}
	for _, x := range xs[1:] {
		if err := sameShape(op, xs[0], x); err != nil {
			return nil, err
		}
	}
	if err := requireFloat32(op, xs...); err != nil {
		return nil, err
	}
	out, err := newLike(b, xs[0].Shape(), tensor.Float32)
	if err != nil || out.NumElements() == 0 {
		return out, err
	}
	n := out.NumElements()
	one, err := tensor.Full(tensor.Shape{1}, tensor.Float32, 1, b.Device())
	if err != nil {
		return nil, err
	}

	steps := []func() error{func() error { return b.Scale(1, xs[0], out) }}
	for _, x := range xs[1:] {
		steps = append(steps, func() error { return b.BatchedAxpy(1, n, one, x, out) })
	}
	return out, firstErr(steps...)
}
