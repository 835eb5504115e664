//go:build windows

package webgpu

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/born-ml/kernels/internal/tensor"
)

// Set fills dst with value. Float32 and float16 are supported.
func (b *Backend) Set(dst *tensor.RawTensor, value float32) error {
	n := dst.NumElements()
	if n == 0 {
		return nil
	}
	var bits uint32
	words := n
	switch dst.DType() {
	case tensor.Float32:
		bits = f32bits(value)
	case tensor.Float16:
		h := uint32(float16.Fromfloat32(value).Bits())
		bits = h | h<<16
		words = (n + 1) / 2
	default:
		return errors.Wrapf(tensor.ErrUnsupportedDType, "set: %s", dst.DType())
	}
	return b.launch(kernel{
		name:     "set",
		code:     setShaderCode,
		groups:   elementwise(words),
		params:   []uint32{uint32(words), bits}, //nolint:gosec // G115: element counts fit in u32
		operands: []operand{output(dst)},
	})
}

// Sub computes dst = a - b.
func (b *Backend) Sub(x, y, dst *tensor.RawTensor) error {
	return b.binary("sub", "a[i] - b[i]", x, y, dst)
}

// Mul computes dst = a * b.
func (b *Backend) Mul(x, y, dst *tensor.RawTensor) error {
	return b.binary("mul", "a[i] * b[i]", x, y, dst)
}

// Div computes dst = a / b.
func (b *Backend) Div(x, y, dst *tensor.RawTensor) error {
	return b.binary("div", "a[i] / b[i]", x, y, dst)
}

// Scale computes dst = alpha * src.
func (b *Backend) Scale(alpha float32, src, dst *tensor.RawTensor) error {
	return b.unary("scale", "params.value * v", alpha, src, dst)
}

// Maximum computes dst = max(src, floor).
func (b *Backend) Maximum(floor float32, src, dst *tensor.RawTensor) error {
	return b.unary("maximum", "max(v, params.value)", floor, src, dst)
}

// Sqrt computes dst = sqrt(src).
func (b *Backend) Sqrt(src, dst *tensor.RawTensor) error {
	return b.unary("sqrt", "sqrt(v)", 0, src, dst)
}

// InvSqrt computes dst = 1 / sqrt(src).
func (b *Backend) InvSqrt(src, dst *tensor.RawTensor) error {
	return b.unary("inv_sqrt", "inverseSqrt(v)", 0, src, dst)
}

// Sin computes y = sin(x).
func (b *Backend) Sin(x, y *tensor.RawTensor) error {
	return b.unary("sin", "sin(v)", 0, x, y)
}

// SinGradient computes dx = dy * cos(x).
func (b *Backend) SinGradient(x, dy, dx *tensor.RawTensor) error {
	return b.binary("sin_gradient", "b[i] * cos(a[i])", x, dy, dx)
}

func (b *Backend) unary(op, expr string, value float32, src, dst *tensor.RawTensor) error {
	if err := requireFloat32(op, src, dst); err != nil {
		return err
	}
	n := src.NumElements()
	if err := requireSize(op, n, dst); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return b.launch(kernel{
		name:     op,
		code:     unaryShader(expr),
		groups:   elementwise(n),
		params:   []uint32{uint32(n), f32bits(value)}, //nolint:gosec // G115: element counts fit in u32
		operands: []operand{input(src), output(dst)},
	})
}

func (b *Backend) binary(op, expr string, x, y, dst *tensor.RawTensor) error {
	if err := requireFloat32(op, x, y, dst); err != nil {
		return err
	}
	n := x.NumElements()
	if err := requireSize(op, n, y, dst); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return b.launch(kernel{
		name:     op,
		code:     binaryShader(expr),
		groups:   elementwise(n),
		params:   []uint32{uint32(n)}, //nolint:gosec // G115: element counts fit in u32
		operands: []operand{input(x), input(y), output(dst)},
	})
}

var reduceTerms = map[tensor.ReduceKind]string{
	tensor.ReduceSquaredL2: "let diff = a - b;\n    return diff * diff;",
	tensor.ReduceL1:        "return abs(a - b);",
	tensor.ReduceDot:       "return a * b;",
}

// RowReduce writes one scalar per row of the (n, d) operands x and y, one
// workgroup per row.
func (b *Backend) RowReduce(kind tensor.ReduceKind, n, d int, x, y, out *tensor.RawTensor) error {
	op := "row_reduce_" + kind.String()
	if err := checkRows(op, n, d, []*tensor.RawTensor{x, y}, []*tensor.RawTensor{out}); err != nil {
		return err
	}
	term, ok := reduceTerms[kind]
	if !ok {
		return errors.Wrapf(tensor.ErrInvalidArgument, "row reduce: unknown kind %d", kind)
	}
	scale := float32(1)
	if kind == tensor.ReduceSquaredL2 {
		scale = 0.5
	}
	if n == 0 {
		return nil
	}
	return b.launch(kernel{
		name:     op,
		code:     rowReduceShader(term),
		groups:   n,
		params:   []uint32{uint32(n), uint32(d), f32bits(scale)}, //nolint:gosec // G115: extents fit in u32
		operands: []operand{input(x), input(y), output(out)},
	})
}

// StripedScale computes y[i] = x[i] * alpha[i/d].
func (b *Backend) StripedScale(n, d int, alpha, x, y *tensor.RawTensor) error {
	if err := checkRows("striped_scale", n, d, []*tensor.RawTensor{x, y}, []*tensor.RawTensor{alpha}); err != nil {
		return err
	}
	return b.striped("striped_scale", "y[i] = x[i] * alpha[i / params.d];", n, d, alpha, x, output(y))
}

// BatchedAxpy computes y[i] += alpha[i/d] * x[i].
func (b *Backend) BatchedAxpy(n, d int, alpha, x, y *tensor.RawTensor) error {
	if err := checkRows("batched_axpy", n, d, []*tensor.RawTensor{x, y}, []*tensor.RawTensor{alpha}); err != nil {
		return err
	}
	return b.striped("batched_axpy", "y[i] += alpha[i / params.d] * x[i];", n, d, alpha, x, inout(y))
}

func (b *Backend) striped(op, body string, n, d int, alpha, x *tensor.RawTensor, y operand) error {
	if n*d == 0 {
		return nil
	}
	return b.launch(kernel{
		name:     op,
		code:     stripedShader(body),
		groups:   elementwise(n * d),
		params:   []uint32{uint32(n * d), uint32(d)}, //nolint:gosec // G115: extents fit in u32
		operands: []operand{input(alpha), input(x), y},
	})
}

// AxpyScale computes out[i] = -scale[i] * xy[i] / (norm[i] * norm[i]).
func (b *Backend) AxpyScale(n int, scale, xy, norm, out *tensor.RawTensor) error {
	if err := checkRows("axpy_scale", n, 1, []*tensor.RawTensor{scale, xy, norm, out}, nil); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return b.launch(kernel{
		name:     "axpy_scale",
		code:     axpyScaleShader,
		groups:   elementwise(n),
		params:   []uint32{uint32(n)}, //nolint:gosec // G115: extents fit in u32
		operands: []operand{input(scale), input(xy), input(norm), output(out)},
	})
}

// L1DistanceGradient applies the sign rule with a dead band of kEps.
func (b *Backend) L1DistanceGradient(n, d int, x, y, dDistance, dx, dy *tensor.RawTensor) error {
	return b.rowGradient("l1_distance_gradient", l1GradientBody, n, d, x, y, dDistance, dx, dy)
}

// DotProductGradient computes dx = y*dDot[i/d] and dy = x*dDot[i/d].
func (b *Backend) DotProductGradient(n, d int, x, y, dDot, dx, dy *tensor.RawTensor) error {
	return b.rowGradient("dot_product_gradient", dotGradientBody, n, d, x, y, dDot, dx, dy)
}

func (b *Backend) rowGradient(op, body string, n, d int, x, y, dOut, dx, dy *tensor.RawTensor) error {
	if err := checkRows(op, n, d, []*tensor.RawTensor{x, y, dx, dy}, []*tensor.RawTensor{dOut}); err != nil {
		return err
	}
	if n*d == 0 {
		return nil
	}
	return b.launch(kernel{
		name:     op,
		code:     rowGradientShader(body),
		groups:   elementwise(n * d),
		params:   []uint32{uint32(n * d), uint32(d)}, //nolint:gosec // G115: extents fit in u32
		operands: []operand{input(x), input(y), input(dOut), output(dx), output(dy)},
	})
}

// OneHot writes 1 at (i, indices[i]) of the pre-zeroed out. Indices are
// narrowed to int32 on the host; an index outside [0, indexSize) fails the
// launch.
func (b *Backend) OneHot(indices, out *tensor.RawTensor, indexSize int) error {
	if indexSize <= 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "one_hot: index_size %d", indexSize)
	}
	if err := requireFloat32("one_hot", out); err != nil {
		return err
	}
	batch := indices.NumElements()
	if err := requireSize("one_hot", batch*indexSize, out); err != nil {
		return err
	}
	var index func(i int) int64
	switch indices.DType() {
	case tensor.Int64:
		src := indices.AsInt64()
		index = func(i int) int64 { return src[i] }
	case tensor.Int32:
		src := indices.AsInt32()
		index = func(i int) int64 { return int64(src[i]) }
	default:
		return errors.Wrapf(tensor.ErrUnsupportedDType, "one_hot: indices are %s", indices.DType())
	}
	if batch == 0 {
		return nil
	}
	narrow := make([]int32, batch)
	for i := range narrow {
		v := index(i)
		if v < 0 || v >= int64(indexSize) {
			b.fail("one_hot", errors.Errorf("index %d at row %d out of range [0, %d)", v, i, indexSize))
			return nil
		}
		narrow[i] = int32(v)
	}
	narrowed, err := tensor.FromSlice(narrow, tensor.Shape{batch}, tensor.WebGPU)
	if err != nil {
		return err
	}
	return b.launch(kernel{
		name:     "one_hot",
		code:     oneHotShader,
		groups:   elementwise(batch),
		params:   []uint32{uint32(batch), uint32(indexSize)}, //nolint:gosec // G115: extents fit in u32
		operands: []operand{input(narrowed), inout(out)},
	})
}
