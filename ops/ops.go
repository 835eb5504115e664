// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ops

import (
	"github.com/born-ml/kernels/internal/ops"
	"github.com/born-ml/kernels/tensor"
)

// Distances

// SquaredL2Distance returns distance[i] = 0.5 * sum_j (x[i,j] - y[i,j])^2.
func SquaredL2Distance(b tensor.Backend, x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return ops.SquaredL2Distance(b, x, y)
}

// SquaredL2DistanceGradient returns dx = (x - y) * dDistance[i] and dy = -dx.
func SquaredL2DistanceGradient(b tensor.Backend, x, y, dDistance *tensor.RawTensor) (dx, dy *tensor.RawTensor, err error) {
	return ops.SquaredL2DistanceGradient(b, x, y, dDistance)
}

// L1Distance returns distance[i] = sum_j |x[i,j] - y[i,j]|.
func L1Distance(b tensor.Backend, x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return ops.L1Distance(b, x, y)
}

// L1DistanceGradient returns the sign of x - y scaled by dDistance[i].
func L1DistanceGradient(b tensor.Backend, x, y, dDistance *tensor.RawTensor) (dx, dy *tensor.RawTensor, err error) {
	return ops.L1DistanceGradient(b, x, y, dDistance)
}

// DotProduct returns dot[i] = sum_j x[i,j] * y[i,j].
func DotProduct(b tensor.Backend, x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return ops.DotProduct(b, x, y)
}

// DotProductGradient returns dx = y * dDot[i] and dy = x * dDot[i].
func DotProductGradient(b tensor.Backend, x, y, dDot *tensor.RawTensor) (dx, dy *tensor.RawTensor, err error) {
	return ops.DotProductGradient(b, x, y, dDot)
}

// CosineSimilarity computes row-wise cosine similarity. An instance owns a
// scratch buffer that grows across calls, so use one instance per graph
// node and do not share it between goroutines.
type CosineSimilarity = ops.CosineSimilarity

// NewCosineSimilarity returns an operator with an empty scratch buffer.
func NewCosineSimilarity() *CosineSimilarity {
	return ops.NewCosineSimilarity()
}

// Spatial operators

// LegacyPad selects how pads are derived from the input size.
type LegacyPad = ops.LegacyPad

// Legacy padding schemes.
const (
	LegacyPadNotSet LegacyPad = ops.LegacyPadNotSet
	LegacyPadValid  LegacyPad = ops.LegacyPadValid
	LegacyPadSame   LegacyPad = ops.LegacyPadSame
)

// ConvPoolBase is the 2D window geometry shared by pooling and padding.
type ConvPoolBase = ops.ConvPoolBase

// NewConvPoolBase returns a square geometry with symmetric pads in NCHW.
func NewConvPoolBase(kernel, stride, pad int) ConvPoolBase {
	return ops.NewConvPoolBase(kernel, stride, pad)
}

// MaxPoolWithIndex pools the NCHW input x and returns the pooled output and
// the int32 mask of argmax offsets within each plane.
func MaxPoolWithIndex(b tensor.Backend, g ConvPoolBase, x *tensor.RawTensor) (y, mask *tensor.RawTensor, err error) {
	return ops.MaxPoolWithIndex(b, g, x)
}

// MaxPoolWithIndexGradient routes dy back to the cells selected by mask.
func MaxPoolWithIndexGradient(b tensor.Backend, g ConvPoolBase, x, dy, mask *tensor.RawTensor) (*tensor.RawTensor, error) {
	return ops.MaxPoolWithIndexGradient(b, g, x, dy, mask)
}

// PadImageConfig configures PadImage and PadImageGradient.
type PadImageConfig = ops.PadImageConfig

// NewPadImageConfig returns a configuration with the same pad on every side.
func NewPadImageConfig(mode tensor.PadMode, order tensor.StorageOrder, pad int) PadImageConfig {
	return ops.NewPadImageConfig(mode, order, pad)
}

// PadImage pads the spatial dims of x.
func PadImage(b tensor.Backend, c PadImageConfig, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return ops.PadImage(b, c, x)
}

// PadImageGradient folds the padded gradient dy back onto the image.
func PadImageGradient(b tensor.Backend, c PadImageConfig, dy *tensor.RawTensor) (*tensor.RawTensor, error) {
	return ops.PadImageGradient(b, c, dy)
}

// Utility operators

// OneHot expands 1-D int32 or int64 indices into a (len(indices), indexSize)
// float32 matrix. An index outside [0, indexSize) fails the launch and is
// reported by Synchronize.
func OneHot(b tensor.Backend, indices *tensor.RawTensor, indexSize int) (*tensor.RawTensor, error) {
	return ops.OneHot(b, indices, indexSize)
}

// Sin computes y = sin(x) element-wise.
func Sin(b tensor.Backend, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return ops.Sin(b, x)
}

// SinGradient computes dx = dy * cos(x).
func SinGradient(b tensor.Backend, x, dy *tensor.RawTensor) (*tensor.RawTensor, error) {
	return ops.SinGradient(b, x, dy)
}

// PrependDim reshapes (N, ...) into (dimSize, N/dimSize, ...). The result
// shares storage with x.
func PrependDim(x *tensor.RawTensor, dimSize int) (*tensor.RawTensor, error) {
	return ops.PrependDim(x, dimSize)
}

// MergeDim merges the two outer dims of x. The result shares storage with x.
func MergeDim(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return ops.MergeDim(x)
}

// Sum adds same-shaped float32 tensors element-wise.
func Sum(b tensor.Backend, xs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	return ops.Sum(b, xs...)
}
