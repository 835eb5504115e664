// Package cpu implements the reference data-parallel device on the host.
//
// Kernels are written the way a GPU kernel is: a grid of blocks, each block a
// fixed number of lanes, one 1-D index per lane or one row per block. Blocks
// run as bounded goroutines; the lanes of one block run phase by phase, with
// per-block shared scratch for reductions. All launches go through an ordered
// asynchronous Stream.
package cpu

import (
	"context"

	"github.com/born-ml/kernels/internal/parallel"
	"github.com/born-ml/kernels/internal/tensor"
)

// CPUBackend implements tensor.Backend on the host.
type CPUBackend struct {
	device tensor.Device
	stream *Stream
	par    parallel.Config

	blockSize  int // lanes per block, a power of two
	maxBlocks  int // grid size cap
	queueDepth int
}

var _ tensor.Backend = (*CPUBackend)(nil)

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithMaxParallelism bounds the number of blocks running at once.
// n <= 1 runs every block on the stream goroutine.
func WithMaxParallelism(n int) Option {
	return func(cpu *CPUBackend) {
		if n <= 1 {
			cpu.par = parallel.Sequential()
			return
		}
		cpu.par.Enabled = true
		cpu.par.NumWorkers = n
	}
}

// WithBlockSize sets the number of lanes per block. It is rounded down to a
// power of two, with a minimum of 1.
func WithBlockSize(n int) Option {
	return func(cpu *CPUBackend) {
		size := 1
		for size*2 <= n {
			size *= 2
		}
		cpu.blockSize = size
	}
}

// WithMaxBlocks caps the grid size of row and 1-D launches.
func WithMaxBlocks(n int) Option {
	return func(cpu *CPUBackend) {
		if n > 0 {
			cpu.maxBlocks = n
		}
	}
}

// WithQueueDepth sets how many launches may be queued before Enqueue blocks.
func WithQueueDepth(n int) Option {
	return func(cpu *CPUBackend) {
		cpu.queueDepth = n
	}
}

// New creates a new CPU backend with its own stream.
func New(opts ...Option) *CPUBackend {
	cpu := &CPUBackend{
		device:     tensor.CPU,
		par:        parallel.DefaultConfig(),
		blockSize:  NumThreads,
		maxBlocks:  MaxBlocks,
		queueDepth: defaultQueueDepth,
	}
	for _, opt := range opts {
		opt(cpu)
	}
	cpu.stream = NewStream(cpu.queueDepth)
	return cpu
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Stream returns the backend's command stream.
func (cpu *CPUBackend) Stream() *Stream {
	return cpu.stream
}

// BlockSize returns the number of lanes per block.
func (cpu *CPUBackend) BlockSize() int {
	return cpu.blockSize
}

// Synchronize waits for all enqueued kernels and returns the first failure
// since the previous Synchronize.
func (cpu *CPUBackend) Synchronize(ctx context.Context) error {
	return cpu.stream.Synchronize(ctx)
}

// Close drains the stream and stops it. The backend must not be used after.
func (cpu *CPUBackend) Close() error {
	return cpu.stream.Close()
}
