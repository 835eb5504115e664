package tensor

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// FromSlice creates a tensor that holds a copy of data.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU)
func FromSlice[T DType](data []T, shape Shape, device Device) (*RawTensor, error) {
	if len(data) != shape.NumElements() {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d values for shape %v", len(data), shape)
	}
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), device)
	if err != nil {
		return nil, err
	}
	copy(asSlice[T](raw), data)
	return raw, nil
}

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return NewRaw(shape, dtype, device)
}

// Full creates a float tensor filled with value.
func Full(shape Shape, dtype DataType, value float32, device Device) (*RawTensor, error) {
	raw, err := NewRaw(shape, dtype, device)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case Float32:
		data := raw.AsFloat32()
		for i := range data {
			data[i] = value
		}
	case Float16:
		data := raw.AsFloat16()
		h := float16.Fromfloat32(value)
		for i := range data {
			data[i] = h
		}
	default:
		return nil, errors.Wrapf(ErrUnsupportedDType, "full: %s", dtype)
	}
	return raw, nil
}

// Float32Values returns a copy of a float tensor's elements as float32.
// Float16 elements are widened.
func Float32Values(r *RawTensor) ([]float32, error) {
	switch r.DType() {
	case Float32:
		return append([]float32(nil), r.AsFloat32()...), nil
	case Float16:
		src := r.AsFloat16()
		out := make([]float32, len(src))
		for i, h := range src {
			out[i] = h.Float32()
		}
		return out, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedDType, "float32 values of %s", r.DType())
	}
}
