package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/operators"
	"github.com/born-ml/kernels/tensor"
)

// benchInputs lists the row operators bench can time and their inputs.
var benchInputs = map[string][]string{
	"SquaredL2Distance": {"X", "Y"},
	"L1Distance":        {"X", "Y"},
	"DotProduct":        {"X", "Y"},
	"CosineSimilarity":  {"X", "Y"},
	"Sin":               {"X"},
}

func randomRows(rng *rand.Rand, rows, cols int) (*tensor.RawTensor, error) {
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	return tensor.FromSlice(data, tensor.Shape{rows, cols}, tensor.CPU)
}

// bench times iters runs of op on (rows, cols) inputs, synchronizing after
// each run, and reports latency and input throughput.
func bench(w io.Writer, backend tensor.Backend, op string, rows, cols, iters int) error {
	inputs, ok := benchInputs[op]
	if !ok {
		return errors.Wrapf(tensor.ErrUnknownOperator, "bench %q", op)
	}
	if rows <= 0 || cols <= 0 || iters <= 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "bench: rows=%d cols=%d iters=%d", rows, cols, iters)
	}

	rng := rand.New(rand.NewSource(1))
	ws := operators.NewWorkspace()
	var inputBytes int
	for _, name := range inputs {
		t, err := randomRows(rng, rows, cols)
		if err != nil {
			return err
		}
		ws.Feed(name, t)
		inputBytes += t.ByteSize()
	}

	reg := operators.NewRegistry()
	ctx := operators.NewContext(backend)
	net := []*operators.Node{{Name: "bench", OpType: op, Inputs: inputs, Outputs: []string{"out"}}}

	// Warm up: grows scratch buffers and compiles shaders.
	if err := reg.RunNet(context.Background(), ctx, ws, net); err != nil {
		return err
	}
	start := time.Now()
	for range iters {
		if err := reg.RunNet(context.Background(), ctx, ws, net); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)
	perIter := elapsed / time.Duration(iters)

	_, _ = fmt.Fprintf(w, "%s on %s\n", op, backend.Name())
	_, _ = fmt.Fprintf(w, "  shape        %d x %d (%s elements)\n", rows, cols, humanize.Comma(int64(rows*cols)))
	_, _ = fmt.Fprintf(w, "  input        %s\n", humanize.Bytes(uint64(inputBytes))) //nolint:gosec // G115: size is non-negative
	_, _ = fmt.Fprintf(w, "  iterations   %s\n", humanize.Comma(int64(iters)))
	_, _ = fmt.Fprintf(w, "  per run      %s\n", perIter)
	_, _ = fmt.Fprintf(w, "  throughput   %s/s\n", humanize.Bytes(bytesPerSecond(inputBytes, perIter)))
	return nil
}

// bytesPerSecond rates n bytes processed in d. A run below the clock
// resolution counts as one nanosecond.
func bytesPerSecond(n int, d time.Duration) uint64 {
	d = max(d, time.Nanosecond)
	return uint64(float64(n) / d.Seconds()) //nolint:gosec // G115: n is non-negative and d positive
}
