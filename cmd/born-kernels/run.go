package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/born-ml/kernels/operators"
	"github.com/born-ml/kernels/internal/serialization"
	"github.com/born-ml/kernels/tensor"
)

// runNet runs the net at netPath on the blobs of inputsPath and writes every
// blob the net produced to outputsPath.
func runNet(w io.Writer, backend tensor.Backend, netPath, inputsPath, outputsPath string, grad bool) error {
	net, err := operators.LoadNet(netPath)
	if err != nil {
		return err
	}
	inputs, _, err := serialization.ReadFile(inputsPath)
	if err != nil {
		return err
	}

	reg := operators.NewRegistry()
	nodes := net.Nodes
	if grad {
		grads, err := reg.GradientNet(net.Nodes)
		if err != nil {
			return err
		}
		nodes = append(append([]*operators.Node(nil), nodes...), grads...)
	}

	ws := operators.NewWorkspace()
	for name, t := range inputs {
		ws.Feed(name, t)
	}
	if err := reg.RunNet(context.Background(), operators.NewContext(backend), ws, nodes); err != nil {
		return err
	}

	outputs := make(map[string]*tensor.RawTensor)
	var size int
	for _, name := range ws.Blobs() {
		if _, fed := inputs[name]; fed {
			continue
		}
		t, _ := ws.Fetch(name)
		outputs[name] = t
		size += t.ByteSize()
	}
	metadata := map[string]string{"net": net.Name, "device": backend.Name()}
	if err := serialization.WriteFile(outputsPath, outputs, metadata); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "%s: ran %d nodes on %s, wrote %d blobs (%s) to %s\n",
		net.Name, len(nodes), backend.Name(), len(outputs), humanize.Bytes(uint64(size)), outputsPath) //nolint:gosec // G115: size is non-negative
	return nil
}
