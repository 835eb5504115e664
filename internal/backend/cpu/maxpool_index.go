package cpu

import (
	"math"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/born-ml/kernels/internal/tensor"
)

// poolGeometry is the resolved extent of one NCHW pooling launch.
type poolGeometry struct {
	N, C, H, W int // input
	PH, PW     int // pooled output
	tensor.PoolParams
}

func newPoolGeometry(op string, x, y, mask *tensor.RawTensor, p tensor.PoolParams) (poolGeometry, error) {
	if err := requireRank4(op, x, y); err != nil {
		return poolGeometry{}, err
	}
	if p.KernelH <= 0 || p.KernelW <= 0 || p.StrideH <= 0 || p.StrideW <= 0 {
		return poolGeometry{}, errors.Wrapf(tensor.ErrInvalidArgument,
			"%s: kernel %dx%d and stride %dx%d must be positive", op, p.KernelH, p.KernelW, p.StrideH, p.StrideW)
	}
	if p.PadT < 0 || p.PadL < 0 {
		return poolGeometry{}, errors.Wrapf(tensor.ErrInvalidArgument, "%s: negative pads (%d, %d)", op, p.PadT, p.PadL)
	}
	xs, ys := x.Shape(), y.Shape()
	if xs[0] != ys[0] || xs[1] != ys[1] {
		return poolGeometry{}, errors.Wrapf(tensor.ErrShapeMismatch, "%s: input %v and output %v disagree on N, C", op, xs, ys)
	}
	if mask.DType() != tensor.Int32 {
		return poolGeometry{}, errors.Wrapf(tensor.ErrUnsupportedDType, "%s: mask is %s, want int32", op, mask.DType())
	}
	if err := requireSize(op, y.NumElements(), mask); err != nil {
		return poolGeometry{}, err
	}
	return poolGeometry{
		N: xs[0], C: xs[1], H: xs[2], W: xs[3],
		PH: ys[2], PW: ys[3],
		PoolParams: p,
	}, nil
}

// MaxPoolWithIndex performs NCHW max pooling and records, for every output
// cell, the offset h*W+w of the maximum within its channel plane.
//
// Windows are clipped to the input. The first maximum in row-major order
// wins; a window that lies entirely in padding yields -Inf with mask -1.
// Float16 inputs are compared in float32.
//
// Example (2x2 pool, stride=2, 4x4 input 0..15):
//
//	y    = [5, 7, 13, 15]
//	mask = [5, 7, 13, 15]
func (cpu *CPUBackend) MaxPoolWithIndex(x, y, mask *tensor.RawTensor, p tensor.PoolParams) error {
	g, err := newPoolGeometry("max_pool_with_index", x, y, mask, p)
	if err != nil {
		return err
	}
	if x.DType() != y.DType() {
		return errors.Wrapf(tensor.ErrUnsupportedDType, "max_pool_with_index: input %s, output %s", x.DType(), y.DType())
	}

	switch x.DType() {
	case tensor.Float32:
		return launchMaxPool(cpu, g, x.AsFloat32(), y.AsFloat32(), mask.AsInt32(),
			func(v float32) float32 { return v },
			func(v float32) float32 { return v })
	case tensor.Float16:
		return launchMaxPool(cpu, g, x.AsFloat16(), y.AsFloat16(), mask.AsInt32(),
			float16.Float16.Float32,
			float16.Fromfloat32)
	default:
		return errors.Wrapf(tensor.ErrUnsupportedDType, "max_pool_with_index: %s", x.DType())
	}
}

func launchMaxPool[T float32 | float16.Float16](cpu *CPUBackend, g poolGeometry, in, out []T, mask []int32,
	widen func(T) float32, narrow func(float32) T,
) error {
	total := g.N * g.C * g.PH * g.PW
	negInf := float32(math.Inf(-1))
	return cpu.launch1D("max_pool_with_index", total, func(index int) {
		pw := index % g.PW
		ph := (index / g.PW) % g.PH
		nc := index / g.PW / g.PH

		hstart := ph*g.StrideH - g.PadT
		wstart := pw*g.StrideW - g.PadL
		hend := min(hstart+g.KernelH, g.H)
		wend := min(wstart+g.KernelW, g.W)
		hstart = max(hstart, 0)
		wstart = max(wstart, 0)

		plane := in[nc*g.H*g.W : (nc+1)*g.H*g.W]
		maxval := negInf
		maxidx := -1
		for h := hstart; h < hend; h++ {
			for w := wstart; w < wend; w++ {
				if v := widen(plane[h*g.W+w]); v > maxval {
					maxval = v
					maxidx = h*g.W + w
				}
			}
		}
		out[index] = narrow(maxval)
		mask[index] = int32(maxidx)
	})
}

// MaxPoolWithIndexGradient routes dy back through the recorded argmax
// offsets. One lane per input cell gathers every output cell whose window
// can contain it and whose mask selects it, so no two lanes write the same
// cell.
func (cpu *CPUBackend) MaxPoolWithIndexGradient(dy, mask, dx *tensor.RawTensor, p tensor.PoolParams) error {
	g, err := newPoolGeometry("max_pool_with_index_gradient", dx, dy, mask, p)
	if err != nil {
		return err
	}
	if dx.DType() != dy.DType() {
		return errors.Wrapf(tensor.ErrUnsupportedDType, "max_pool_with_index_gradient: dy %s, dx %s", dy.DType(), dx.DType())
	}

	switch dy.DType() {
	case tensor.Float32:
		return launchMaxPoolGradient(cpu, g, dy.AsFloat32(), mask.AsInt32(), dx.AsFloat32(),
			func(v float32) float32 { return v },
			func(v float32) float32 { return v })
	case tensor.Float16:
		return launchMaxPoolGradient(cpu, g, dy.AsFloat16(), mask.AsInt32(), dx.AsFloat16(),
			float16.Float16.Float32,
			float16.Fromfloat32)
	default:
		return errors.Wrapf(tensor.ErrUnsupportedDType, "max_pool_with_index_gradient: %s", dy.DType())
	}
}

func launchMaxPoolGradient[T float32 | float16.Float16](cpu *CPUBackend, g poolGeometry, dy []T, mask []int32, dx []T,
	widen func(T) float32, narrow func(float32) T,
) error {
	total := g.N * g.C * g.H * g.W
	return cpu.launch1D("max_pool_with_index_gradient", total, func(index int) {
		w := index % g.W
		h := (index / g.W) % g.H
		nc := index / g.W / g.H

		phstart := 0
		if h+g.PadT >= g.KernelH {
			phstart = (h+g.PadT-g.KernelH)/g.StrideH + 1
		}
		phend := min((h+g.PadT)/g.StrideH+1, g.PH)
		pwstart := 0
		if w+g.PadL >= g.KernelW {
			pwstart = (w+g.PadL-g.KernelW)/g.StrideW + 1
		}
		pwend := min((w+g.PadL)/g.StrideW+1, g.PW)

		offset := nc * g.PH * g.PW
		target := int32(h*g.W + w)
		var gradient float32
		for ph := phstart; ph < phend; ph++ {
			for pw := pwstart; pw < pwend; pw++ {
				if mask[offset+ph*g.PW+pw] == target {
					gradient += widen(dy[offset+ph*g.PW+pw])
				}
			}
		}
		dx[index] = narrow(gradient)
	})
}
