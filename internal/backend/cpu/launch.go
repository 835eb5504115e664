package cpu

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/born-ml/kernels/internal/parallel"
)

// Device launch limits.
const (
	// NumThreads is the default number of lanes per block.
	NumThreads = 512
	// MaxBlocks caps the grid size of every launch.
	MaxBlocks = 4096
)

// GetBlocks returns the grid size for a 1-D launch over n elements with the
// default block size, capped at MaxBlocks. It is at least 1.
func GetBlocks(n int) int {
	return gridFor(n, NumThreads, MaxBlocks)
}

func gridFor(n, block, maxBlocks int) int {
	blocks := (n + block - 1) / block
	return max(1, min(blocks, maxBlocks))
}

// LaunchConfig describes one kernel launch.
type LaunchConfig struct {
	Grid        int // number of blocks
	Block       int // lanes per block
	SharedBytes int // per-block shared scratch
}

// block is the execution state of one block: its id within the grid and its
// shared scratch, one float32 slot per lane.
type block struct {
	id     int
	dim    int
	shared []float32
}

// rowSum reduces term(j) for j in [0, d) across the lanes of the block. Each
// lane first accumulates the columns lane, lane+dim, ... into its slot; the
// slots are then folded in halves until slot 0 holds the row total.
func (b *block) rowSum(d int, term func(j int) float32) float32 {
	for lane := 0; lane < b.dim; lane++ {
		var partial float32
		for j := lane; j < d; j += b.dim {
			partial += term(j)
		}
		b.shared[lane] = partial
	}
	// Each halving step is one barrier-separated phase.
	for s := b.dim / 2; s > 0; s >>= 1 {
		for lane := 0; lane < s; lane++ {
			b.shared[lane] += b.shared[lane+s]
		}
	}
	return b.shared[0]
}

// launch1D enqueues a grid-stride launch of kernel over [0, n): one index
// per lane, the grid covering the range as many times as needed.
func (cpu *CPUBackend) launch1D(name string, n int, kernel func(i int)) error {
	cfg := LaunchConfig{
		Grid:  gridFor(n, cpu.blockSize, cpu.maxBlocks),
		Block: cpu.blockSize,
	}
	return cpu.stream.Enqueue(name, func(ctx context.Context) error {
		klog.V(2).Infof("launch %s: n=%d grid=%d block=%d", name, n, cfg.Grid, cfg.Block)
		stride := cfg.Grid * cfg.Block
		return parallel.Grid(ctx, cfg.Grid, func(b int) error {
			for base := b * cfg.Block; base < n; base += stride {
				end := min(base+cfg.Block, n)
				for i := base; i < end; i++ {
					kernel(i)
				}
			}
			return nil
		}, cpu.par)
	})
}

// launchRows enqueues one block per row of an (n, d) problem. Rows beyond
// the grid size are taken round-robin by the same blocks.
func (cpu *CPUBackend) launchRows(name string, n int, kernel func(b *block, row int)) error {
	cfg := LaunchConfig{
		Grid:        max(1, min(n, cpu.maxBlocks)),
		Block:       cpu.blockSize,
		SharedBytes: cpu.blockSize * 4,
	}
	return cpu.stream.Enqueue(name, func(ctx context.Context) error {
		klog.V(2).Infof("launch %s: rows=%d grid=%d block=%d shared=%dB",
			name, n, cfg.Grid, cfg.Block, cfg.SharedBytes)
		return parallel.Grid(ctx, cfg.Grid, func(id int) error {
			blk := &block{id: id, dim: cfg.Block, shared: make([]float32, cfg.Block)}
			for row := id; row < n; row += cfg.Grid {
				kernel(blk, row)
			}
			return nil
		}, cpu.par)
	})
}
