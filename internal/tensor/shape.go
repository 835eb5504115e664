package tensor

import (
	"math"
	"math/bits"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Shape represents the dimensions of a tensor.
//
// Dimensions may be zero: an empty batch is a valid tensor with no elements.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate rejects negative dimensions and element counts that overflow int.
func (s Shape) Validate() error {
	if i := slices.IndexFunc(s, func(d int) bool { return d < 0 }); i >= 0 {
		return errors.Wrapf(ErrInvalidArgument, "dimension %d of %v is negative", i, s)
	}
	if slices.Contains(s, 0) {
		return nil
	}
	n := uint(1)
	for _, dim := range s {
		hi, lo := bits.Mul(n, uint(dim))
		if hi != 0 || lo > math.MaxInt {
			return errors.Wrapf(ErrInvalidArgument, "%v has too many elements", s)
		}
		n = lo
	}
	return nil
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy of the shape. A nil shape clones to an empty one.
func (s Shape) Clone() Shape {
	return append(Shape{}, s...)
}

// SizeFromDim returns the product of the dimensions starting at k.
// SizeFromDim(len(s)) is 1.
func (s Shape) SizeFromDim(k int) int {
	n := 1
	for i := k; i < len(s); i++ {
		n *= s[i]
	}
	return n
}

// ComputeStrides returns the row-major strides: stride[i] is the product
// of the dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	for i := range s {
		strides[i] = s.SizeFromDim(i + 1)
	}
	return strides
}

// String formats the shape as (d0, d1, ...).
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
