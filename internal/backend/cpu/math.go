package cpu

import (
	"math"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/born-ml/kernels/internal/tensor"
)

// Set fills dst with value. Float32 and float16 are supported.
func (cpu *CPUBackend) Set(dst *tensor.RawTensor, value float32) error {
	n := dst.NumElements()
	switch dst.DType() {
	case tensor.Float32:
		out := dst.AsFloat32()
		return cpu.launch1D("set", n, func(i int) {
			out[i] = value
		})
	case tensor.Float16:
		out := dst.AsFloat16()
		h := float16.Fromfloat32(value)
		return cpu.launch1D("set", n, func(i int) {
			out[i] = h
		})
	default:
		return errors.Wrapf(tensor.ErrUnsupportedDType, "set: %s", dst.DType())
	}
}

// Sub computes dst = a - b.
func (cpu *CPUBackend) Sub(a, b, dst *tensor.RawTensor) error {
	return cpu.binary("sub", a, b, dst, func(x, y float32) float32 { return x - y })
}

// Mul computes dst = a * b.
func (cpu *CPUBackend) Mul(a, b, dst *tensor.RawTensor) error {
	return cpu.binary("mul", a, b, dst, func(x, y float32) float32 { return x * y })
}

// Div computes dst = a / b.
func (cpu *CPUBackend) Div(a, b, dst *tensor.RawTensor) error {
	return cpu.binary("div", a, b, dst, func(x, y float32) float32 { return x / y })
}

// Scale computes dst = alpha * src.
func (cpu *CPUBackend) Scale(alpha float32, src, dst *tensor.RawTensor) error {
	return cpu.unary("scale", src, dst, func(x float32) float32 { return alpha * x })
}

// Maximum computes dst = max(src, floor).
func (cpu *CPUBackend) Maximum(floor float32, src, dst *tensor.RawTensor) error {
	return cpu.unary("maximum", src, dst, func(x float32) float32 { return max(x, floor) })
}

// Sqrt computes dst = sqrt(src).
func (cpu *CPUBackend) Sqrt(src, dst *tensor.RawTensor) error {
	return cpu.unary("sqrt", src, dst, func(x float32) float32 {
		return float32(math.Sqrt(float64(x)))
	})
}

// InvSqrt computes dst = 1 / sqrt(src).
func (cpu *CPUBackend) InvSqrt(src, dst *tensor.RawTensor) error {
	return cpu.unary("inv_sqrt", src, dst, func(x float32) float32 {
		return float32(1 / math.Sqrt(float64(x)))
	})
}

func (cpu *CPUBackend) unary(op string, src, dst *tensor.RawTensor, f func(float32) float32) error {
	if err := requireFloat32(op, src, dst); err != nil {
		return err
	}
	n := src.NumElements()
	if err := requireSize(op, n, dst); err != nil {
		return err
	}
	in, out := src.AsFloat32(), dst.AsFloat32()
	return cpu.launch1D(op, n, func(i int) {
		out[i] = f(in[i])
	})
}

func (cpu *CPUBackend) binary(op string, a, b, dst *tensor.RawTensor, f func(x, y float32) float32) error {
	if err := requireFloat32(op, a, b, dst); err != nil {
		return err
	}
	n := a.NumElements()
	if err := requireSize(op, n, b, dst); err != nil {
		return err
	}
	x, y, out := a.AsFloat32(), b.AsFloat32(), dst.AsFloat32()
	return cpu.launch1D(op, n, func(i int) {
		out[i] = f(x[i], y[i])
	})
}
