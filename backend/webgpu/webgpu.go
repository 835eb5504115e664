//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated kernels.
//
// Kernels are WGSL compute shaders. Tensors stay in host memory: each launch
// uploads its operands, dispatches, and reads the written operands back
// before the next launch starts.
//
// Example:
//
//	import (
//	    "github.com/born-ml/kernels/backend/webgpu"
//	    "github.com/born-ml/kernels/ops"
//	)
//
//	func main() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Close()
//
//	    y, mask, err := ops.MaxPoolWithIndex(gpu, ops.NewConvPoolBase(2, 2, 0), x)
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/kernels/internal/backend/webgpu"
	"github.com/born-ml/kernels/tensor"
)

// Backend represents the WebGPU backend implementation for GPU-accelerated
// kernels.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new WebGPU backend.
//
// This function initializes the WebGPU device and returns a backend
// ready for launches. Call Close() when done to free GPU resources.
//
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// It is useful for graceful fallback to the CPU backend:
//
//	var backend tensor.Backend = cpu.New()
//	if webgpu.IsAvailable() {
//	    if gpu, err := webgpu.New(); err == nil {
//	        backend = gpu
//	    }
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
