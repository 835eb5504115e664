package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

// OneHot writes 1 at (i, indices[i]) of out, one lane per row. out must be
// zeroed first. Indices are not range-checked; an index outside
// [0, indexSize) fails the launch.
func (cpu *CPUBackend) OneHot(indices, out *tensor.RawTensor, indexSize int) error {
	if indexSize <= 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "one_hot: index_size %d", indexSize)
	}
	if err := requireFloat32("one_hot", out); err != nil {
		return err
	}
	batch := indices.NumElements()
	if err := requireSize("one_hot", batch*indexSize, out); err != nil {
		return err
	}
	dst := out.AsFloat32()

	var index func(i int) int
	switch indices.DType() {
	case tensor.Int64:
		src := indices.AsInt64()
		index = func(i int) int { return int(src[i]) }
	case tensor.Int32:
		src := indices.AsInt32()
		index = func(i int) int { return int(src[i]) }
	default:
		return errors.Wrapf(tensor.ErrUnsupportedDType, "one_hot: indices are %s", indices.DType())
	}

	return cpu.launch1D("one_hot", batch, func(i int) {
		k := index(i)
		row := dst[i*indexSize : (i+1)*indexSize]
		row[k] = 1
	})
}
