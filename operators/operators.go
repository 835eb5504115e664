// Package operators runs the kernel library's operators by name.
//
// An operator graph is a list of [Node] values that read and write named
// blobs in a [Workspace]. The [Registry] maps each (operator, device) pair
// to a handler and knows how to build the gradient node of every
// differentiable operator.
//
// # Example Usage
//
//	import (
//	    "github.com/born-ml/kernels/backend/cpu"
//	    "github.com/born-ml/kernels/operators"
//	)
//
//	backend := cpu.New()
//	defer backend.Close()
//
//	reg := operators.NewRegistry()
//	ctx := operators.NewContext(backend)
//	ws := operators.NewWorkspace()
//	ws.Feed("X", x)
//
//	net := []*operators.Node{{
//	    Name:       "pad",
//	    OpType:     "PadImage",
//	    Inputs:     []string{"X"},
//	    Outputs:    []string{"Y"},
//	    Attributes: []operators.Attribute{operators.Int("pad", 2), operators.String("mode", "reflect")},
//	}}
//	if err := reg.RunNet(context.Background(), ctx, ws, net); err != nil {
//	    log.Fatal(err)
//	}
//	y, _ := ws.Fetch("Y")
//
// # Supported Operators
//
//   - Distances: SquaredL2Distance, L1Distance, DotProduct, CosineSimilarity
//   - Spatial: MaxPoolWithIndex, PadImage
//   - Utility: OneHot, Sin, PrependDim, MergeDim
//
// Every differentiable operator also registers its <Name>Gradient. Use
// [ListSupportedOps] to get the complete list for a device.
package operators

import (
	"io"

	internal "github.com/born-ml/kernels/internal/operators"
	"github.com/born-ml/kernels/tensor"
)

// Node is one operator invocation in a graph.
type Node = internal.Node

// Attribute is a named operator parameter.
type Attribute = internal.Attribute

// Registry maps (operator name, device) to handlers and gradient makers.
type Registry = internal.Registry

// Context provides the backend and per-node operator state to handlers.
type Context = internal.Context

// Workspace holds the named blobs a graph reads and writes.
type Workspace = internal.Workspace

// NetDef is a named list of nodes read from a YAML net definition.
type NetDef = internal.NetDef

// OpHandler runs a node and returns its outputs.
type OpHandler = internal.OpHandler

// GradientMaker builds the gradient node of a forward node.
type GradientMaker = internal.GradientMaker

// NewRegistry creates a registry with every operator registered on every
// device built into this binary.
func NewRegistry() *Registry {
	return internal.NewRegistry()
}

// NewContext returns a context that dispatches to b.
func NewContext(b tensor.Backend) *Context {
	return internal.NewContext(b)
}

// NewWorkspace returns an empty workspace.
func NewWorkspace() *Workspace {
	return internal.NewWorkspace()
}

// Devices returns the devices built into this binary.
func Devices() []tensor.Device {
	return internal.Devices()
}

// GradientName returns the blob name holding the gradient of blob.
func GradientName(blob string) string {
	return internal.GradientName(blob)
}

// Attribute constructors.

// Float returns a float attribute.
func Float(name string, v float32) Attribute { return internal.Float(name, v) }

// Int returns an int attribute.
func Int(name string, v int64) Attribute { return internal.Int(name, v) }

// String returns a string attribute.
func String(name, v string) Attribute { return internal.String(name, v) }

// Ints returns an int list attribute.
func Ints(name string, v ...int64) Attribute { return internal.Ints(name, v...) }

// ListSupportedOps returns the operators registered on device, sorted.
//
// Example:
//
//	for _, op := range operators.ListSupportedOps(tensor.CPU) {
//	    fmt.Println(op)
//	}
func ListSupportedOps(device tensor.Device) []string {
	return internal.NewRegistry().SupportedOps(device)
}

// ParseNet decodes a YAML net definition.
//
// Example:
//
//	name: pad_then_pool
//	nodes:
//	  - op: PadImage
//	    inputs: [X]
//	    outputs: [P]
//	    attrs: {pad: 1, mode: reflect}
//	  - op: MaxPoolWithIndex
//	    inputs: [P]
//	    outputs: [Y, mask]
//	    attrs: {kernel: 2, stride: 2}
func ParseNet(r io.Reader) (*NetDef, error) {
	return internal.ParseNet(r)
}

// LoadNet reads a YAML net definition from path.
func LoadNet(path string) (*NetDef, error) {
	return internal.LoadNet(path)
}
