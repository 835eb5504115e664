// Package parallel launches a grid of independent blocks on bounded
// goroutines. It is how the CPU backend emulates a data-parallel device.
package parallel

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Maximum number of blocks running at once.
}

// DefaultConfig returns one worker per CPU.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
	}
}

// Sequential returns a Config that runs every block on the calling goroutine.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1}
}

func (cfg Config) sequential(blocks int) bool {
	return !cfg.Enabled || blocks <= 1 || cfg.NumWorkers <= 1
}

// Grid runs block(b) for every b in [0, blocks), at most cfg.NumWorkers at a
// time. Blocks are independent and may run in any order.
//
// A panicking block is recovered and reported as an error. After the first
// error no further blocks are started.
func Grid(ctx context.Context, blocks int, block func(b int) error, cfg Config) error {
	if cfg.sequential(blocks) {
		for b := range blocks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := runBlock(b, block); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.NumWorkers)
	for b := range blocks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return runBlock(b, block)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func runBlock(b int, block func(b int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("block %d: %v", b, r)
		}
	}()
	return block(b)
}
