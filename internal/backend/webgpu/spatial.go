//go:build windows

package webgpu

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/born-ml/kernels/internal/tensor"
)

// poolParams packs the pooling uniform: extents of the NCHW input x and
// pooled output y, then the window.
func poolParams(total int, x, y *tensor.RawTensor, p tensor.PoolParams) []uint32 {
	words := []int{total, x.Dim(2), x.Dim(3), y.Dim(2), y.Dim(3),
		p.KernelH, p.KernelW, p.StrideH, p.StrideW, p.PadT, p.PadL}
	out := make([]uint32, len(words))
	for i, w := range words {
		out[i] = uint32(w) //nolint:gosec // G115: extents and pads are non-negative and fit in u32
	}
	return out
}

func checkPool(op string, x, y, mask *tensor.RawTensor, p tensor.PoolParams) error {
	if err := requireRank4(op, x, y); err != nil {
		return err
	}
	if p.KernelH <= 0 || p.KernelW <= 0 || p.StrideH <= 0 || p.StrideW <= 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument,
			"%s: kernel %dx%d and stride %dx%d must be positive", op, p.KernelH, p.KernelW, p.StrideH, p.StrideW)
	}
	if p.PadT < 0 || p.PadL < 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: negative pads (%d, %d)", op, p.PadT, p.PadL)
	}
	if x.Dim(0) != y.Dim(0) || x.Dim(1) != y.Dim(1) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%s: input %v and output %v disagree on N, C", op, x.Shape(), y.Shape())
	}
	if mask.DType() != tensor.Int32 {
		return errors.Wrapf(tensor.ErrUnsupportedDType, "%s: mask is %s, want int32", op, mask.DType())
	}
	if x.DType() != y.DType() {
		return errors.Wrapf(tensor.ErrUnsupportedDType, "%s: %s and %s", op, x.DType(), y.DType())
	}
	if x.DType() != tensor.Float32 && x.DType() != tensor.Float16 {
		return errors.Wrapf(tensor.ErrUnsupportedDType, "%s: %s", op, x.DType())
	}
	return requireSize(op, y.NumElements(), mask)
}

// widen returns a float32 copy of a float16 tensor, or t itself.
func widen(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	if t.DType() == tensor.Float32 {
		return t, nil
	}
	values, err := tensor.Float32Values(t)
	if err != nil {
		return nil, err
	}
	return tensor.FromSlice(values, t.Shape(), tensor.WebGPU)
}

// narrowInto writes a float32 result back into its float16 destination.
func narrowInto(dst, src *tensor.RawTensor) {
	if dst == src {
		return
	}
	out := dst.AsFloat16()
	for i, v := range src.AsFloat32() {
		out[i] = float16.Fromfloat32(v)
	}
}

// MaxPoolWithIndex performs NCHW max pooling and records the offset h*W+w of
// each window maximum within its plane. Float16 is pooled in float32; WGSL
// f16 needs an optional device feature.
func (b *Backend) MaxPoolWithIndex(x, y, mask *tensor.RawTensor, p tensor.PoolParams) error {
	const op = "max_pool_with_index"
	if err := checkPool(op, x, y, mask, p); err != nil {
		return err
	}
	if y.NumElements() == 0 {
		return nil
	}
	x32, err := widen(x)
	if err != nil {
		return err
	}
	y32, err := widen(y)
	if err != nil {
		return err
	}
	if err := b.launch(kernel{
		name:     op,
		code:     maxPoolShader,
		groups:   elementwise(y.NumElements()),
		params:   poolParams(y.NumElements(), x, y, p),
		operands: []operand{input(x32), output(y32), output(mask)},
	}); err != nil {
		return err
	}
	narrowInto(y, y32)
	return nil
}

// MaxPoolWithIndexGradient gathers dy into dx wherever the mask selects the
// input cell.
func (b *Backend) MaxPoolWithIndexGradient(dy, mask, dx *tensor.RawTensor, p tensor.PoolParams) error {
	const op = "max_pool_with_index_gradient"
	if err := checkPool(op, dx, dy, mask, p); err != nil {
		return err
	}
	if dx.NumElements() == 0 {
		return nil
	}
	dy32, err := widen(dy)
	if err != nil {
		return err
	}
	dx32, err := widen(dx)
	if err != nil {
		return err
	}
	if err := b.launch(kernel{
		name:     op,
		code:     maxPoolGradientShader,
		groups:   elementwise(dx.NumElements()),
		params:   poolParams(dx.NumElements(), dx, dy, p),
		operands: []operand{input(dy32), input(mask), output(dx32)},
	}); err != nil {
		return err
	}
	narrowInto(dx, dx32)
	return nil
}

// padParams packs the padding uniform for an image (small) and its padded
// counterpart.
func padParams(total int, small, padded *tensor.RawTensor, p tensor.PadParams) ([]uint32, error) {
	if err := requireFloat32("pad_image", small, padded); err != nil {
		return nil, err
	}
	if err := requireRank4("pad_image", small, padded); err != nil {
		return nil, err
	}
	if p.PadT < 0 || p.PadL < 0 || p.PadB < 0 || p.PadR < 0 {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "pad_image: negative pads (%d, %d, %d, %d)",
			p.PadT, p.PadL, p.PadB, p.PadR)
	}
	s, ps := small.Shape(), padded.Shape()
	n, c, h, w := s[0], s[1], s[2], s[3]
	pn, pc, ph, pw := ps[0], ps[1], ps[2], ps[3]
	if p.Order == tensor.NHWC {
		n, c, h, w = s[0], s[3], s[1], s[2]
		pn, pc, ph, pw = ps[0], ps[3], ps[1], ps[2]
	}
	if n != pn || c != pc || ph != h+p.PadT+p.PadB || pw != w+p.PadL+p.PadR {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "pad_image: %v padded by (%d, %d, %d, %d) is not %v",
			s, p.PadT, p.PadL, p.PadB, p.PadR, ps)
	}
	words := []int{total, int(p.Order), int(p.Mode), c, h, w, ph, pw, p.PadT, p.PadL}
	out := make([]uint32, 0, len(words)+1)
	for _, v := range words {
		out = append(out, uint32(v)) //nolint:gosec // G115: extents and pads are non-negative and fit in u32
	}
	return append(out, f32bits(p.Value)), nil
}

// PadImage pads the spatial dims of x into y.
func (b *Backend) PadImage(x, y *tensor.RawTensor, p tensor.PadParams) error {
	params, err := padParams(y.NumElements(), x, y, p)
	if err != nil || y.NumElements() == 0 {
		return err
	}
	return b.launch(kernel{
		name:     "pad_image",
		code:     padShader,
		groups:   elementwise(y.NumElements()),
		params:   params,
		operands: []operand{input(x), output(y)},
	})
}

// PadImageGradient folds dy back onto dx. The constant mode gathers one
// image cell per invocation; reflect and edge scatter one padded cell per
// invocation with atomic adds into the pre-zeroed dx.
func (b *Backend) PadImageGradient(dy, dx *tensor.RawTensor, p tensor.PadParams) error {
	if p.Mode == tensor.PadConstant {
		params, err := padParams(dx.NumElements(), dx, dy, p)
		if err != nil || dx.NumElements() == 0 {
			return err
		}
		return b.launch(kernel{
			name:     "pad_image_gradient_gather",
			code:     padGradientGatherShader,
			groups:   elementwise(dx.NumElements()),
			params:   params,
			operands: []operand{input(dy), output(dx)},
		})
	}
	params, err := padParams(dy.NumElements(), dx, dy, p)
	if err != nil || dy.NumElements() == 0 {
		return err
	}
	return b.launch(kernel{
		name:     "pad_image_gradient_scatter",
		code:     padGradientScatterShader,
		groups:   elementwise(dy.NumElements()),
		params:   params,
		operands: []operand{input(dy), inout(dx)},
	})
}
