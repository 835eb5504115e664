package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

// PadImageConfig configures PadImage and PadImageGradient. Only the pads
// and the storage order of the geometry are used; kernel and stride must be
// left at 1 and legacy padding unset.
type PadImageConfig struct {
	ConvPoolBase
	Mode  tensor.PadMode
	Value float32 // fill of the constant mode
}

// NewPadImageConfig returns a configuration with the same pad on every side.
func NewPadImageConfig(mode tensor.PadMode, order tensor.StorageOrder, pad int) PadImageConfig {
	base := NewConvPoolBase(1, 1, pad)
	base.Order = order
	return PadImageConfig{ConvPoolBase: base, Mode: mode}
}

func (c PadImageConfig) params() tensor.PadParams {
	return tensor.PadParams{
		Mode:  c.Mode,
		Order: c.Order,
		Value: c.Value,
		PadT:  c.PadT, PadL: c.PadL,
		PadB: c.PadB, PadR: c.PadR,
	}
}

func (c PadImageConfig) validate(op string, x *tensor.RawTensor) error {
	if c.KernelH != 1 || c.KernelW != 1 || c.StrideH != 1 || c.StrideW != 1 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: kernel and stride must be 1", op)
	}
	if c.LegacyPad != LegacyPadNotSet {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: legacy_pad %s is not supported", op, c.LegacyPad)
	}
	if err := c.Validate(); err != nil {
		return errors.WithMessage(err, op)
	}
	if x.Rank() != 4 {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%s: only 4D tensors are supported, got %v", op, x.Shape())
	}
	return requireFloat32(op, x)
}

func (c PadImageConfig) channels(x *tensor.RawTensor) int {
	if c.Order == tensor.NHWC {
		return x.Dim(3)
	}
	return x.Dim(1)
}

// PadImage pads the spatial dims of the 4D tensor x. The output has
// H + pad_t + pad_b rows and W + pad_l + pad_r columns.
//
// Reflect mode requires every pad to be smaller than the extent it pads;
// larger pads are not checked and fail the launch or produce garbage.
func PadImage(b tensor.Backend, c PadImageConfig, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	const op = "PadImage"
	if err := c.validate(op, x); err != nil {
		return nil, err
	}
	shape, err := c.SetOutputSize(x, c.channels(x))
	if err != nil {
		return nil, errors.WithMessage(err, op)
	}
	if x.NumElements() == 0 {
		// SetOutputSize keeps degenerate extents at 1; an empty image
		// pads to an empty output in the non-spatial dims.
		shape = paddedShape(c, x.Shape())
	}
	y, err := newLike(b, shape, x.DType())
	if err != nil || y.NumElements() == 0 {
		return y, err
	}
	return y, b.PadImage(x, y, c.params())
}

// PadImageGradient folds dy back into the gradient of the unpadded image,
// whose spatial dims are dY's minus the pads.
func PadImageGradient(b tensor.Backend, c PadImageConfig, dy *tensor.RawTensor) (*tensor.RawTensor, error) {
	const op = "PadImageGradient"
	if err := c.validate(op, dy); err != nil {
		return nil, err
	}
	shape := dy.Shape().Clone()
	hAxis, wAxis := 2, 3
	if c.Order == tensor.NHWC {
		hAxis, wAxis = 1, 2
	}
	shape[hAxis] -= c.PadT + c.PadB
	shape[wAxis] -= c.PadL + c.PadR
	if shape[hAxis] < 0 || shape[wAxis] < 0 {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "%s: dY %v is smaller than pads (%d, %d, %d, %d)",
			op, dy.Shape(), c.PadT, c.PadL, c.PadB, c.PadR)
	}

	dx, err := newLike(b, shape, dy.DType())
	if err != nil || dx.NumElements() == 0 {
		return dx, err
	}
	err = firstErr(
		func() error { return b.Set(dx, 0) },
		func() error { return b.PadImageGradient(dy, dx, c.params()) },
	)
	return dx, err
}

func paddedShape(c PadImageConfig, s tensor.Shape) tensor.Shape {
	out := s.Clone()
	hAxis, wAxis := 2, 3
	if c.Order == tensor.NHWC {
		hAxis, wAxis = 1, 2
	}
	out[hAxis] += c.PadT + c.PadB
	out[wAxis] += c.PadL + c.PadR
	return out
}
