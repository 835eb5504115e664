package cpu

import (
	"github.com/born-ml/kernels/internal/tensor"
)

// kEps is the dead band of the L1 gradient sign rule.
const kEps = 1e-12

// StripedScale computes y[i] = x[i] * alpha[i/d].
func (cpu *CPUBackend) StripedScale(n, d int, alpha, x, y *tensor.RawTensor) error {
	if err := checkRows("striped_scale", n, d, []*tensor.RawTensor{x, y}, []*tensor.RawTensor{alpha}); err != nil {
		return err
	}
	a, in, out := alpha.AsFloat32(), x.AsFloat32(), y.AsFloat32()
	return cpu.launch1D("striped_scale", n*d, func(i int) {
		out[i] = in[i] * a[i/d]
	})
}

// BatchedAxpy computes y[i] += alpha[i/d] * x[i].
func (cpu *CPUBackend) BatchedAxpy(n, d int, alpha, x, y *tensor.RawTensor) error {
	if err := checkRows("batched_axpy", n, d, []*tensor.RawTensor{x, y}, []*tensor.RawTensor{alpha}); err != nil {
		return err
	}
	a, in, out := alpha.AsFloat32(), x.AsFloat32(), y.AsFloat32()
	return cpu.launch1D("batched_axpy", n*d, func(i int) {
		out[i] += a[i/d] * in[i]
	})
}

// AxpyScale computes out[i] = -scale[i] * xy[i] / (norm[i] * norm[i]).
func (cpu *CPUBackend) AxpyScale(n int, scale, xy, norm, out *tensor.RawTensor) error {
	if err := checkRows("axpy_scale", n, 1, []*tensor.RawTensor{scale, xy, norm, out}, nil); err != nil {
		return err
	}
	s, p, nm, res := scale.AsFloat32(), xy.AsFloat32(), norm.AsFloat32(), out.AsFloat32()
	return cpu.launch1D("axpy_scale", n, func(i int) {
		res[i] = -s[i] * p[i] / (nm[i] * nm[i])
	})
}

// L1DistanceGradient applies the sign rule with a dead band of kEps:
// the gradient is zero where |x-y| <= kEps.
func (cpu *CPUBackend) L1DistanceGradient(n, d int, x, y, dDistance, dx, dy *tensor.RawTensor) error {
	rows := []*tensor.RawTensor{x, y, dx, dy}
	if err := checkRows("l1_distance_gradient", n, d, rows, []*tensor.RawTensor{dDistance}); err != nil {
		return err
	}
	xs, ys, dd := x.AsFloat32(), y.AsFloat32(), dDistance.AsFloat32()
	gx, gy := dx.AsFloat32(), dy.AsFloat32()
	return cpu.launch1D("l1_distance_gradient", n*d, func(i int) {
		diff := xs[i] - ys[i]
		g := dd[i/d]
		switch {
		case diff < -kEps:
			gx[i], gy[i] = -g, g
		case diff > kEps:
			gx[i], gy[i] = g, -g
		default:
			gx[i], gy[i] = 0, 0
		}
	})
}

// DotProductGradient computes dx = y*dDot[i/d] and dy = x*dDot[i/d] in one
// pass.
func (cpu *CPUBackend) DotProductGradient(n, d int, x, y, dDot, dx, dy *tensor.RawTensor) error {
	rows := []*tensor.RawTensor{x, y, dx, dy}
	if err := checkRows("dot_product_gradient", n, d, rows, []*tensor.RawTensor{dDot}); err != nil {
		return err
	}
	xs, ys, dd := x.AsFloat32(), y.AsFloat32(), dDot.AsFloat32()
	gx, gy := dx.AsFloat32(), dy.AsFloat32()
	return cpu.launch1D("dot_product_gradient", n*d, func(i int) {
		g := dd[i/d]
		gx[i] = ys[i] * g
		gy[i] = xs[i] * g
	})
}
