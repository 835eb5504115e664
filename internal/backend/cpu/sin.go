package cpu

import (
	"math"

	"github.com/born-ml/kernels/internal/tensor"
)

// Sin computes y = sin(x).
func (cpu *CPUBackend) Sin(x, y *tensor.RawTensor) error {
	return cpu.unary("sin", x, y, func(v float32) float32 {
		return float32(math.Sin(float64(v)))
	})
}

// SinGradient computes dx = dy * cos(x).
func (cpu *CPUBackend) SinGradient(x, dy, dx *tensor.RawTensor) error {
	return cpu.binary("sin_gradient", x, dy, dx, func(v, g float32) float32 {
		return g * float32(math.Cos(float64(v)))
	})
}
