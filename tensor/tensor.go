// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/kernels/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for tensor element types.
// Supported types: float32, float16.Float16, int32, int64.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float16 DataType = tensor.Float16
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
)

// Device represents the device a tensor is launched on.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	WebGPU Device = tensor.WebGPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// RawTensor is a dense row-major buffer with a shape and element type.
//
// Kernels write into RawTensors allocated by the caller. Results are only
// valid on the host after the backend has been synchronized.
type RawTensor = tensor.RawTensor

// Errors returned by the backends and operators. Match them with errors.Is.
var (
	ErrShapeMismatch    = tensor.ErrShapeMismatch
	ErrUnsupportedDType = tensor.ErrUnsupportedDType
	ErrInvalidArgument  = tensor.ErrInvalidArgument
	ErrUnknownOperator  = tensor.ErrUnknownOperator
	ErrLaunchFailed     = tensor.ErrLaunchFailed
)

// Creation functions

// NewRaw creates a zeroed raw tensor with the given shape, dtype, and device.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Zeros creates a zero-filled tensor.
//
// Example:
//
//	x, err := tensor.Zeros(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
func Zeros(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.Zeros(shape, dtype, device)
}

// Full creates a float32 or float16 tensor filled with value.
func Full(shape Shape, dtype DataType, value float32, device Device) (*RawTensor, error) {
	return tensor.Full(shape, dtype, value, device)
}

// FromSlice creates a tensor holding a copy of data.
//
// Example:
//
//	data := []float32{1, 2, 3, 4, 5, 6}
//	x, err := tensor.FromSlice(data, tensor.Shape{2, 3}, tensor.CPU)
func FromSlice[T DType](data []T, shape Shape, device Device) (*RawTensor, error) {
	return tensor.FromSlice(data, shape, device)
}

// Float32Values returns a copy of a float tensor's elements, widening float16.
func Float32Values(r *RawTensor) ([]float32, error) {
	return tensor.Float32Values(r)
}
