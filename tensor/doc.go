// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensor and backend types shared by the kernel
// library.
//
// # Overview
//
// A RawTensor is a dense row-major buffer with a Shape and a DataType. The
// kernels never allocate behind the caller's back: operator drivers in the
// ops package allocate outputs and scratch, then enqueue work on a Backend.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/kernels/backend/cpu"
//	    "github.com/born-ml/kernels/ops"
//	    "github.com/born-ml/kernels/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    defer backend.Close()
//
//	    x, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, tensor.CPU)
//	    y, _ := tensor.FromSlice([]float32{1, 2, 4}, tensor.Shape{1, 3}, tensor.CPU)
//
//	    d, _ := ops.SquaredL2Distance(backend, x, y)
//	    _ = backend.Synchronize(context.Background())
//	    fmt.Println(d.AsFloat32()) // [0.5]
//	}
//
// # Supported Data Types
//
//   - float32 (all kernels)
//   - float16 (Set and max pooling)
//   - int32 (pooling masks, one-hot indices)
//   - int64 (one-hot indices)
//
// # Devices
//
//   - CPU: Pure Go implementation
//   - WebGPU: Zero-CGO GPU acceleration (Windows)
//
// # Errors
//
// Failures wrap one of the Err* sentinels and are matched with errors.Is.
package tensor
