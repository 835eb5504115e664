// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/kernels/internal/backend/cpu"
	"github.com/born-ml/kernels/tensor"
)

// Backend represents the CPU backend implementation.
//
// Kernels run as a grid of goroutine blocks over host memory, enqueued on
// an ordered asynchronous stream.
type Backend = internalcpu.CPUBackend

// Option configures a Backend.
type Option = internalcpu.Option

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/born-ml/kernels/backend/cpu"
//	    "github.com/born-ml/kernels/ops"
//	)
//
//	func main() {
//	    backend := cpu.New(cpu.WithMaxParallelism(4))
//	    defer backend.Close()
//	    d, err := ops.DotProduct(backend, x, y)
//	}
func New(opts ...Option) *Backend {
	return internalcpu.New(opts...)
}

// WithMaxParallelism bounds the number of blocks running at once.
// n <= 1 runs every block on the stream goroutine.
func WithMaxParallelism(n int) Option {
	return internalcpu.WithMaxParallelism(n)
}

// WithBlockSize sets the lanes per block, rounded down to a power of two.
func WithBlockSize(n int) Option {
	return internalcpu.WithBlockSize(n)
}

// WithMaxBlocks caps the grid size of row and 1-D launches.
func WithMaxBlocks(n int) Option {
	return internalcpu.WithMaxBlocks(n)
}

// WithQueueDepth sets how many launches may be queued before Enqueue blocks.
func WithQueueDepth(n int) Option {
	return internalcpu.WithQueueDepth(n)
}
