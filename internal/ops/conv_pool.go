package ops

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

// LegacyPad selects how pads are derived from the input size.
type LegacyPad int

// Legacy padding schemes.
const (
	// LegacyPadNotSet uses the explicit pads.
	LegacyPadNotSet LegacyPad = iota
	// LegacyPadValid ignores the pads: windows never leave the input.
	LegacyPadValid
	// LegacyPadSame picks pads so that out = ceil(in / stride).
	LegacyPadSame
)

// String returns the scheme name.
func (p LegacyPad) String() string {
	switch p {
	case LegacyPadValid:
		return "VALID"
	case LegacyPadSame:
		return "SAME"
	default:
		return "NOTSET"
	}
}

// ParseLegacyPad parses "NOTSET", "VALID" or "SAME" (case-insensitive).
func ParseLegacyPad(s string) (LegacyPad, error) {
	switch strings.ToUpper(s) {
	case "", "NOTSET":
		return LegacyPadNotSet, nil
	case "VALID":
		return LegacyPadValid, nil
	case "SAME":
		return LegacyPadSame, nil
	default:
		return LegacyPadNotSet, errors.Wrapf(tensor.ErrInvalidArgument, "unknown legacy_pad %q", s)
	}
}

// ConvPoolBase is the 2D window geometry shared by pooling and padding.
type ConvPoolBase struct {
	KernelH, KernelW int
	StrideH, StrideW int
	PadT, PadL       int
	PadB, PadR       int
	LegacyPad        LegacyPad
	Order            tensor.StorageOrder
}

// NewConvPoolBase returns a square geometry with symmetric pads in NCHW.
func NewConvPoolBase(kernel, stride, pad int) ConvPoolBase {
	return ConvPoolBase{
		KernelH: kernel, KernelW: kernel,
		StrideH: stride, StrideW: stride,
		PadT: pad, PadL: pad, PadB: pad, PadR: pad,
	}
}

// Validate checks that kernel and stride are positive and pads
// non-negative.
func (g ConvPoolBase) Validate() error {
	if g.KernelH <= 0 || g.KernelW <= 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "kernel %dx%d must be positive", g.KernelH, g.KernelW)
	}
	if g.StrideH <= 0 || g.StrideW <= 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "stride %dx%d must be positive", g.StrideH, g.StrideW)
	}
	if g.PadT < 0 || g.PadL < 0 || g.PadB < 0 || g.PadR < 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "pads (%d, %d, %d, %d) must be non-negative",
			g.PadT, g.PadL, g.PadB, g.PadR)
	}
	return nil
}

// ComputePads resolves the pads for the given (H, W) according to the
// legacy padding scheme. Explicit pads are left untouched for NOTSET.
func (g *ConvPoolBase) ComputePads(height, width int) {
	switch g.LegacyPad {
	case LegacyPadValid:
		g.PadT, g.PadB, g.PadL, g.PadR = 0, 0, 0, 0
	case LegacyPadSame:
		g.PadT, g.PadB = samePads(height, g.KernelH, g.StrideH)
		g.PadL, g.PadR = samePads(width, g.KernelW, g.StrideW)
	}
}

func samePads(in, kernel, stride int) (head, tail int) {
	out := (in + stride - 1) / stride
	needed := max(0, (out-1)*stride+kernel-in)
	head = needed / 2
	return head, needed - head
}

// SetOutputSize resolves the pads for x and returns the pooled output shape
// with the given number of channels, in the geometry's storage order.
// Every spatial extent is at least 1.
func (g *ConvPoolBase) SetOutputSize(x *tensor.RawTensor, channels int) (tensor.Shape, error) {
	if x.Rank() != 4 {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "expected 4D input, got %v", x.Shape())
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	n, h, w := x.Dim(0), x.Dim(2), x.Dim(3)
	if g.Order == tensor.NHWC {
		h, w = x.Dim(1), x.Dim(2)
	}
	g.ComputePads(h, w)

	ph := max(1, (h+g.PadT+g.PadB-g.KernelH)/g.StrideH+1)
	pw := max(1, (w+g.PadL+g.PadR-g.KernelW)/g.StrideW+1)
	if g.Order == tensor.NHWC {
		return tensor.Shape{n, ph, pw, channels}, nil
	}
	return tensor.Shape{n, channels, ph, pw}, nil
}

// PoolParams returns the launch geometry of a pooling kernel.
func (g ConvPoolBase) PoolParams() tensor.PoolParams {
	return tensor.PoolParams{
		KernelH: g.KernelH, KernelW: g.KernelW,
		StrideH: g.StrideH, StrideW: g.StrideW,
		PadT: g.PadT, PadL: g.PadL,
	}
}
