// Package ops implements the operator drivers.
//
// A driver validates its operands, allocates outputs (and scratch, for
// CosineSimilarity) on the backend's device, enqueues one or more kernels on
// the backend's stream and returns without waiting. Callers read results
// after Backend.Synchronize.
//
// Validation errors are returned before anything is enqueued. Inputs with
// no rows or empty rows yield correctly shaped, zeroed outputs without any
// kernel launch.
package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

// kEps is the norm floor of the cosine operators. The L1 gradient uses the
// same value as its dead band inside the kernel.
const kEps = 1e-12

// rowsOf views x as an (n, d) matrix: n is the outer dim (1 for a scalar)
// and d the product of the remaining dims.
func rowsOf(x *tensor.RawTensor) (n, d int) {
	if x.Rank() == 0 {
		return 1, x.NumElements()
	}
	n = x.Dim(0)
	if n == 0 {
		return 0, 0
	}
	return n, x.NumElements() / n
}

func sameShape(op string, x, y *tensor.RawTensor) error {
	if !x.Shape().Equal(y.Shape()) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%s: X %v and Y %v differ", op, x.Shape(), y.Shape())
	}
	return nil
}

func requireFloat32(op string, ts ...*tensor.RawTensor) error {
	for _, t := range ts {
		if t.DType() != tensor.Float32 {
			return errors.Wrapf(tensor.ErrUnsupportedDType, "%s: got %s, want float32", op, t.DType())
		}
	}
	return nil
}

// requirePerRow checks that g is a 1-D tensor with one entry per row.
func requirePerRow(op, name string, g *tensor.RawTensor, n int) error {
	if g.Rank() != 1 || g.Dim(0) != n {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%s: %s has shape %v, want (%d)", op, name, g.Shape(), n)
	}
	return nil
}

// pairwise validates the X, Y operands shared by the distance operators.
func pairwise(op string, x, y *tensor.RawTensor) (n, d int, err error) {
	if err := sameShape(op, x, y); err != nil {
		return 0, 0, err
	}
	if err := requireFloat32(op, x, y); err != nil {
		return 0, 0, err
	}
	n, d = rowsOf(x)
	return n, d, nil
}

func newLike(b tensor.Backend, shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return tensor.NewRaw(shape, dtype, b.Device())
}

// firstErr runs the enqueue steps in order and stops at the first error.
func firstErr(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
