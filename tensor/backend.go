// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/kernels/internal/tensor"

// Backend defines the kernels that every compute device implements.
//
// Launches are asynchronous and ordered per backend. Validation errors are
// returned by the launching call; failures while a kernel runs are reported
// by Synchronize.
//
// Implementations:
//   - backend/cpu: Pure Go, goroutine blocks over host memory
//   - backend/webgpu: WGSL compute shaders via WebGPU (Windows)
//
// Example:
//
//	import (
//	    "github.com/born-ml/kernels/backend/cpu"
//	    "github.com/born-ml/kernels/ops"
//	)
//
//	backend := cpu.New()
//	defer backend.Close()
//	d, err := ops.SquaredL2Distance(backend, x, y)
//	// ...
//	err = backend.Synchronize(ctx)
type Backend = tensor.Backend

// ReduceKind selects the per-row reduction of Backend.RowReduce.
type ReduceKind = tensor.ReduceKind

// Row reductions.
const (
	ReduceSquaredL2 ReduceKind = tensor.ReduceSquaredL2
	ReduceL1        ReduceKind = tensor.ReduceL1
	ReduceDot       ReduceKind = tensor.ReduceDot
)

// StorageOrder is the memory layout of a 4-D feature map.
type StorageOrder = tensor.StorageOrder

// Storage orders.
const (
	NCHW StorageOrder = tensor.NCHW
	NHWC StorageOrder = tensor.NHWC
)

// PadMode selects how padded cells are filled.
type PadMode = tensor.PadMode

// Pad modes.
const (
	PadConstant PadMode = tensor.PadConstant
	PadReflect  PadMode = tensor.PadReflect
	PadEdge     PadMode = tensor.PadEdge
)

// PoolParams is the resolved geometry of a pooling launch.
type PoolParams = tensor.PoolParams

// PadParams is the resolved configuration of a padding launch.
type PadParams = tensor.PadParams

// ParseStorageOrder parses "NCHW" or "NHWC".
func ParseStorageOrder(s string) (StorageOrder, error) {
	return tensor.ParseStorageOrder(s)
}

// ParsePadMode parses "constant", "reflect" or "edge".
func ParsePadMode(s string) (PadMode, error) {
	return tensor.ParsePadMode(s)
}
