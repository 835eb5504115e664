// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for the kernel library.
//
// # Overview
//
// Kernels are written the way a GPU kernel is written:
//   - A grid of blocks with a fixed number of lanes each
//   - One element per lane, or one row per block for reductions
//   - Per-block shared scratch for tree reductions
//
// Blocks run as bounded goroutines (errgroup). Every launch is enqueued on
// an ordered asynchronous stream, so results must be read only after
// Synchronize.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/kernels/backend/cpu"
//	    "github.com/born-ml/kernels/ops"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    defer backend.Close()
//
//	    out, err := ops.Sin(backend, x)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := backend.Synchronize(ctx); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Errors
//
// A kernel that panics or fails marks the stream as failed. Later launches
// are skipped until Synchronize reports the error and clears it.
//
// # Thread Safety
//
// The backend is safe for concurrent use. Launches from different goroutines
// are serialized by the stream in enqueue order.
package cpu
