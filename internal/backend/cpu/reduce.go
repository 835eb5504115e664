package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

// RowReduce writes one scalar per row of the (n, d) operands x and y.
//
// One block handles one row: each lane accumulates a strided slice of the
// row, the block folds the lane partials and the result is written once.
// Rows beyond the grid are taken round-robin, so out is correct for any n.
//
// Example (ReduceSquaredL2, n=1, d=3):
//
//	x = [1, 2, 3], y = [0, 0, 0]  ->  out = [7]
func (cpu *CPUBackend) RowReduce(kind tensor.ReduceKind, n, d int, x, y, out *tensor.RawTensor) error {
	op := "row_reduce_" + kind.String()
	if err := checkRows(op, n, d, []*tensor.RawTensor{x, y}, []*tensor.RawTensor{out}); err != nil {
		return err
	}

	var term func(a, b float32) float32
	switch kind {
	case tensor.ReduceSquaredL2:
		term = func(a, b float32) float32 {
			diff := a - b
			return diff * diff
		}
	case tensor.ReduceL1:
		term = func(a, b float32) float32 {
			if a > b {
				return a - b
			}
			return b - a
		}
	case tensor.ReduceDot:
		term = func(a, b float32) float32 { return a * b }
	default:
		return errors.Wrapf(tensor.ErrInvalidArgument, "row reduce: unknown kind %d", kind)
	}
	scale := float32(1)
	if kind == tensor.ReduceSquaredL2 {
		scale = 0.5
	}

	if n == 0 {
		return nil
	}
	xs, ys, res := x.AsFloat32(), y.AsFloat32(), out.AsFloat32()
	return cpu.launchRows(op, n, func(b *block, row int) {
		base := row * d
		total := b.rowSum(d, func(j int) float32 {
			return term(xs[base+j], ys[base+j])
		})
		res[row] = scale * total
	})
}
