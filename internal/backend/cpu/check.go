package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

func requireFloat32(op string, ts ...*tensor.RawTensor) error {
	for _, t := range ts {
		if t.DType() != tensor.Float32 {
			return errors.Wrapf(tensor.ErrUnsupportedDType, "%s: got %s, want float32", op, t.DType())
		}
	}
	return nil
}

func requireSize(op string, n int, ts ...*tensor.RawTensor) error {
	for _, t := range ts {
		if t.NumElements() != n {
			return errors.Wrapf(tensor.ErrShapeMismatch, "%s: tensor %v has %d elements, want %d",
				op, t.Shape(), t.NumElements(), n)
		}
	}
	return nil
}

func requireRank4(op string, ts ...*tensor.RawTensor) error {
	for _, t := range ts {
		if t.Rank() != 4 {
			return errors.Wrapf(tensor.ErrShapeMismatch, "%s: expected 4D tensor, got %v", op, t.Shape())
		}
	}
	return nil
}

// checkRows validates the operands of an (n, d) row kernel.
func checkRows(op string, n, d int, rows []*tensor.RawTensor, perRow []*tensor.RawTensor) error {
	if n < 0 || d < 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: negative extent (%d, %d)", op, n, d)
	}
	if err := requireFloat32(op, append(append([]*tensor.RawTensor{}, rows...), perRow...)...); err != nil {
		return err
	}
	if err := requireSize(op, n*d, rows...); err != nil {
		return err
	}
	return requireSize(op, n, perRow...)
}
