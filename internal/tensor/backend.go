package tensor

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Backend defines the kernels a compute device must provide.
//
// Every method enqueues work on the backend's stream and returns without
// waiting for it; work enqueued on one backend runs in program order. Call
// Synchronize before reading results on the host. Errors returned directly
// are validation errors; failures while a kernel runs are reported by
// Synchronize.
//
// Row kernels view their operands as (n, d) row-major matrices. Output and
// scratch tensors are allocated by the caller.
//
// Implementations:
//   - CPU: goroutine blocks over host memory (internal/backend/cpu)
//   - WebGPU: WGSL compute shaders (internal/backend/webgpu, windows)
type Backend interface {
	// Math primitives over flat float32 buffers of equal size.
	Set(dst *RawTensor, value float32) error
	Sub(a, b, dst *RawTensor) error
	Mul(a, b, dst *RawTensor) error
	Div(a, b, dst *RawTensor) error
	Scale(alpha float32, src, dst *RawTensor) error
	Maximum(floor float32, src, dst *RawTensor) error // dst = max(src, floor)
	Sqrt(src, dst *RawTensor) error
	InvSqrt(src, dst *RawTensor) error

	// RowReduce writes one scalar per row of (x, y) into out.
	RowReduce(kind ReduceKind, n, d int, x, y, out *RawTensor) error

	// StripedScale computes y[i] = x[i] * alpha[i/d]. It is also the
	// batched multiply of the cosine gradient.
	StripedScale(n, d int, alpha, x, y *RawTensor) error

	// BatchedAxpy computes y[i] += alpha[i/d] * x[i].
	BatchedAxpy(n, d int, alpha, x, y *RawTensor) error

	// AxpyScale computes out[i] = -scale[i] * xy[i] / (norm[i] * norm[i]).
	AxpyScale(n int, scale, xy, norm, out *RawTensor) error

	// L1DistanceGradient applies the dead-band sign rule per element.
	L1DistanceGradient(n, d int, x, y, dDistance, dx, dy *RawTensor) error

	// DotProductGradient computes dx = y*dDot[i/d] and dy = x*dDot[i/d].
	DotProductGradient(n, d int, x, y, dDot, dx, dy *RawTensor) error

	// MaxPoolWithIndex writes the window maxima into y and their plane
	// offsets into mask.
	MaxPoolWithIndex(x, y, mask *RawTensor, p PoolParams) error

	// MaxPoolWithIndexGradient gathers dy into dx where mask selects the cell.
	MaxPoolWithIndexGradient(dy, mask, dx *RawTensor, p PoolParams) error

	// PadImage pads the spatial dims of x into y.
	PadImage(x, y *RawTensor, p PadParams) error

	// PadImageGradient folds dy back into dx. dx must be zeroed first for
	// the reflect and edge modes.
	PadImageGradient(dy, dx *RawTensor, p PadParams) error

	// OneHot writes 1 at (i, indices[i]) of the pre-zeroed out.
	OneHot(indices, out *RawTensor, indexSize int) error

	Sin(x, y *RawTensor) error
	SinGradient(x, dy, dx *RawTensor) error

	// Synchronize blocks until all enqueued work is done or ctx ends and
	// returns the first kernel failure.
	Synchronize(ctx context.Context) error

	// Metadata
	Name() string
	Device() Device
}

// ReduceKind selects the per-row reduction of RowReduce.
type ReduceKind int

// Row reductions.
const (
	// ReduceSquaredL2 is 0.5 * sum (x-y)^2 with a float32 accumulator.
	ReduceSquaredL2 ReduceKind = iota
	// ReduceL1 is sum |x-y| with a float32 accumulator.
	ReduceL1
	// ReduceDot is sum x*y with an element-type accumulator.
	ReduceDot
)

// String returns the reduction name.
func (k ReduceKind) String() string {
	switch k {
	case ReduceSquaredL2:
		return "squared_l2"
	case ReduceL1:
		return "l1"
	case ReduceDot:
		return "dot"
	default:
		return "unknown"
	}
}

// StorageOrder is the memory layout of a 4-D feature map.
type StorageOrder int

// Storage orders.
const (
	NCHW StorageOrder = iota
	NHWC
)

// String returns the order name.
func (o StorageOrder) String() string {
	if o == NHWC {
		return "NHWC"
	}
	return "NCHW"
}

// ParseStorageOrder parses "NCHW" or "NHWC" (case-insensitive).
func ParseStorageOrder(s string) (StorageOrder, error) {
	switch strings.ToUpper(s) {
	case "NCHW", "":
		return NCHW, nil
	case "NHWC":
		return NHWC, nil
	default:
		return NCHW, errors.Wrapf(ErrInvalidArgument, "unknown storage order %q", s)
	}
}

// PadMode selects how padded cells are filled.
type PadMode int

// Pad modes.
const (
	PadConstant PadMode = iota
	PadReflect
	PadEdge
)

// String returns the mode name as used in operator attributes.
func (m PadMode) String() string {
	switch m {
	case PadConstant:
		return "constant"
	case PadReflect:
		return "reflect"
	case PadEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// ParsePadMode parses "constant", "reflect" or "edge".
func ParsePadMode(s string) (PadMode, error) {
	switch strings.ToLower(s) {
	case "constant", "":
		return PadConstant, nil
	case "reflect":
		return PadReflect, nil
	case "edge":
		return PadEdge, nil
	default:
		return PadConstant, errors.Wrapf(ErrInvalidArgument, "unknown pad mode %q", s)
	}
}

// PoolParams is the resolved geometry of a pooling launch. Spatial sizes are
// taken from the tensors; pads are top and left only, the bottom and right
// pads are already folded into the pooled size.
type PoolParams struct {
	KernelH, KernelW int
	StrideH, StrideW int
	PadT, PadL       int
}

// PadParams is the resolved configuration of a padding launch.
type PadParams struct {
	Mode       PadMode
	Order      StorageOrder
	Value      float32
	PadT, PadL int
	PadB, PadR int
}
