package operators

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/tensor"
)

// Workspace holds named blobs shared by the nodes of a net.
type Workspace struct {
	mu    sync.RWMutex
	blobs map[string]*tensor.RawTensor
}

// NewWorkspace returns an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{blobs: make(map[string]*tensor.RawTensor)}
}

// Feed stores a blob, replacing any previous one of the same name.
func (w *Workspace) Feed(name string, t *tensor.RawTensor) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blobs[name] = t
}

// Fetch returns a blob. Results of asynchronous kernels are only valid after
// the backend has been synchronized.
func (w *Workspace) Fetch(name string) (*tensor.RawTensor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.blobs[name]
	return t, ok
}

// Blobs returns the sorted blob names.
func (w *Workspace) Blobs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.blobs))
	for name := range w.blobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run gathers a node's inputs from the workspace, executes it and stores
// its outputs.
func (r *Registry) Run(ctx *Context, ws *Workspace, node *Node) error {
	inputs := make([]*tensor.RawTensor, len(node.Inputs))
	for i, name := range node.Inputs {
		if name == "" {
			continue // optional input not provided
		}
		t, ok := ws.Fetch(name)
		if !ok {
			return errorf(tensor.ErrInvalidArgument, node, "missing input %s", name)
		}
		inputs[i] = t
	}

	outputs, err := r.Execute(ctx, node, inputs)
	if err != nil {
		return err
	}
	if len(outputs) < len(node.Outputs) {
		return errorf(tensor.ErrInvalidArgument, node, "declares %d outputs, operator produces %d",
			len(node.Outputs), len(outputs))
	}
	for i, name := range node.Outputs {
		ws.Feed(name, outputs[i])
	}
	return nil
}

// RunNet runs nodes in order and waits for the backend to drain, so every
// output blob is readable on return.
func (r *Registry) RunNet(c context.Context, ctx *Context, ws *Workspace, nodes []*Node) error {
	for _, node := range nodes {
		if err := r.Run(ctx, ws, node); err != nil {
			return err
		}
	}
	return errors.WithMessage(ctx.Backend.Synchronize(c), "run net")
}

// GradientNet returns the gradient nodes of a forward net in reverse order.
// Nodes without a gradient maker are skipped. When several gradient outputs
// target the same blob, as for a blob read by two nodes or passed twice to
// one node, each write goes to its own split blob and a Sum node after the
// last writer accumulates them into the gradient blob.
func (r *Registry) GradientNet(nodes []*Node) ([]*Node, error) {
	var grads []*Node
	writers := make(map[string]int)
	for i := len(nodes) - 1; i >= 0; i-- {
		node := nodes[i]
		if !r.Differentiable(node.OpType) {
			continue
		}
		g, err := r.Gradient(node)
		if err != nil {
			return nil, err
		}
		for _, out := range g.Outputs {
			writers[out]++
		}
		grads = append(grads, g)
	}

	last := make(map[string]int) // gradient node index of the last writer
	for i, g := range grads {
		for _, out := range g.Outputs {
			if writers[out] > 1 {
				last[out] = i
			}
		}
	}
	splits := make(map[string][]string)
	net := make([]*Node, 0, len(grads)+len(last))
	for i, g := range grads {
		for j, out := range g.Outputs {
			if writers[out] > 1 {
				split := out + "_autosplit_" + strconv.Itoa(len(splits[out]))
				splits[out] = append(splits[out], split)
				g.Outputs[j] = split
			}
		}
		net = append(net, g)
		for _, out := range slices.Sorted(maps.Keys(last)) {
			if last[out] == i {
				net = append(net, &Node{Name: out + "_sum", OpType: "Sum", Inputs: splits[out], Outputs: []string{out}})
			}
		}
	}
	return net, nil
}
