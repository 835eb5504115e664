package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

// padGeometry is the resolved extent of a padding launch. H, W belong to
// the unpadded image, PH, PW to the padded one.
type padGeometry struct {
	N, C, H, W int
	PH, PW     int
	tensor.PadParams
}

// spatial returns the (N, C, H, W) extents of t in the given order.
func spatial(t *tensor.RawTensor, order tensor.StorageOrder) (n, c, h, w int) {
	s := t.Shape()
	if order == tensor.NHWC {
		return s[0], s[3], s[1], s[2]
	}
	return s[0], s[1], s[2], s[3]
}

func newPadGeometry(op string, small, padded *tensor.RawTensor, p tensor.PadParams) (padGeometry, error) {
	if err := requireFloat32(op, small, padded); err != nil {
		return padGeometry{}, err
	}
	if err := requireRank4(op, small, padded); err != nil {
		return padGeometry{}, err
	}
	if p.PadT < 0 || p.PadL < 0 || p.PadB < 0 || p.PadR < 0 {
		return padGeometry{}, errors.Wrapf(tensor.ErrInvalidArgument, "%s: negative pads (%d, %d, %d, %d)",
			op, p.PadT, p.PadL, p.PadB, p.PadR)
	}
	n, c, h, w := spatial(small, p.Order)
	pn, pc, ph, pw := spatial(padded, p.Order)
	if n != pn || c != pc || ph != h+p.PadT+p.PadB || pw != w+p.PadL+p.PadR {
		return padGeometry{}, errors.Wrapf(tensor.ErrShapeMismatch, "%s: %v padded by (%d, %d, %d, %d) is not %v",
			op, small.Shape(), p.PadT, p.PadL, p.PadB, p.PadR, padded.Shape())
	}
	return padGeometry{N: n, C: c, H: h, W: w, PH: ph, PW: pw, PadParams: p}, nil
}

// source maps a padded coordinate (ph, pw) back to the image according to
// the mode. ok is false only in constant mode, for cells outside the image.
//
// Reflect mirrors about the border cell without repeating it and assumes
// every pad is smaller than the extent it pads.
func (g padGeometry) source(ph, pw int) (h, w int, ok bool) {
	h, w = ph-g.PadT, pw-g.PadL
	switch g.Mode {
	case tensor.PadReflect:
		h = max(h, -h)
		h = min(h, 2*g.H-h-2)
		w = max(w, -w)
		w = min(w, 2*g.W-w-2)
	case tensor.PadEdge:
		h = min(max(h, 0), g.H-1)
		w = min(max(w, 0), g.W-1)
	default:
		if h < 0 || w < 0 || h >= g.H || w >= g.W {
			return 0, 0, false
		}
	}
	return h, w, true
}

// padded decomposes a linear index into the padded tensor.
func (g padGeometry) padded(index int) (n, c, ph, pw int) {
	if g.Order == tensor.NHWC {
		c = index % g.C
		n = index / g.C
		pw = n % g.PW
		n /= g.PW
		ph = n % g.PH
		n /= g.PH
		return n, c, ph, pw
	}
	pw = index % g.PW
	nc := index / g.PW
	ph = nc % g.PH
	nc /= g.PH
	return nc / g.C, nc % g.C, ph, pw
}

// imageOffset returns the linear offset of (n, c, h, w) in an image of
// height rows and width columns.
func (g padGeometry) imageOffset(n, c, h, w, height, width int) int {
	if g.Order == tensor.NHWC {
		return ((n*height+h)*width+w)*g.C + c
	}
	return ((n*g.C+c)*height+h)*width + w
}

// PadImage pads the spatial dims of x into y.
//
// Example (reflect, pad=1, 3x3 input 1..9):
//
//	5 4 5 6 5
//	2 1 2 3 2
//	5 4 5 6 5
//	8 7 8 9 8
//	5 4 5 6 5
func (cpu *CPUBackend) PadImage(x, y *tensor.RawTensor, p tensor.PadParams) error {
	g, err := newPadGeometry("pad_image", x, y, p)
	if err != nil {
		return err
	}
	in, out := x.AsFloat32(), y.AsFloat32()
	name := "pad_image_" + p.Mode.String() + "_" + p.Order.String()
	return cpu.launch1D(name, y.NumElements(), func(index int) {
		n, c, ph, pw := g.padded(index)
		h, w, ok := g.source(ph, pw)
		if !ok {
			out[index] = g.Value
			return
		}
		out[index] = in[g.imageOffset(n, c, h, w, g.H, g.W)]
	})
}

// PadImageGradient folds dy back onto the image gradient dx.
//
// Constant mode gathers: one lane per image cell reads the padded cell it
// was copied to. Reflect and edge scatter: one lane per padded cell adds
// into the image cell it was read from, with atomic adds since several
// padded cells share a source. dx must be zeroed before the scatter modes.
func (cpu *CPUBackend) PadImageGradient(dy, dx *tensor.RawTensor, p tensor.PadParams) error {
	g, err := newPadGeometry("pad_image_gradient", dx, dy, p)
	if err != nil {
		return err
	}
	grad, out := dy.AsFloat32(), dx.AsFloat32()
	name := "pad_image_gradient_" + p.Mode.String() + "_" + p.Order.String()

	if p.Mode == tensor.PadConstant {
		return cpu.launch1D(name, dx.NumElements(), func(index int) {
			n, c, h, w := g.image(index)
			out[index] = grad[g.imageOffset(n, c, h+g.PadT, w+g.PadL, g.PH, g.PW)]
		})
	}
	return cpu.launch1D(name, dy.NumElements(), func(index int) {
		n, c, ph, pw := g.padded(index)
		h, w, _ := g.source(ph, pw)
		atomicAddFloat32(&out[g.imageOffset(n, c, h, w, g.H, g.W)], grad[index])
	})
}

// image decomposes a linear index into the unpadded tensor.
func (g padGeometry) image(index int) (n, c, h, w int) {
	if g.Order == tensor.NHWC {
		c = index % g.C
		n = index / g.C
		w = n % g.W
		n /= g.W
		h = n % g.H
		n /= g.H
		return n, c, h, w
	}
	w = index % g.W
	nc := index / g.W
	h = nc % g.H
	nc /= g.H
	return nc / g.C, nc % g.C, h, w
}
