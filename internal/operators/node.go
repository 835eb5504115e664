// Package operators binds operator names to the drivers in internal/ops.
//
// A Node names an operator, its input and output blobs and its attributes.
// The Registry resolves (operator name, device) to a handler, and gradient
// makers derive the gradient node of a forward node.
package operators

import (
	"github.com/born-ml/kernels/internal/tensor"
)

// Attribute types.
const (
	AttrUndefined int32 = iota
	AttrFloat
	AttrInt
	AttrString
	AttrFloats
	AttrInts
)

// Node is one operator invocation.
type Node struct {
	Name       string      // Node name (optional, keys per-node operator state)
	OpType     string      // Operator name (e.g., "PadImage", "CosineSimilarity")
	Inputs     []string    // Input blob names
	Outputs    []string    // Output blob names
	Attributes []Attribute // Operator attributes
}

// Attribute is a named operator argument.
type Attribute struct {
	Name   string
	Type   int32
	F      float32
	I      int64
	S      string
	Floats []float32
	Ints   []int64
}

// Float returns a FLOAT attribute.
func Float(name string, v float32) Attribute {
	return Attribute{Name: name, Type: AttrFloat, F: v}
}

// Int returns an INT attribute.
func Int(name string, v int64) Attribute {
	return Attribute{Name: name, Type: AttrInt, I: v}
}

// String returns a STRING attribute.
func String(name, v string) Attribute {
	return Attribute{Name: name, Type: AttrString, S: v}
}

// Ints returns an INTS attribute.
func Ints(name string, v ...int64) Attribute {
	return Attribute{Name: name, Type: AttrInts, Ints: v}
}

// Attr looks up an attribute by name.
func (n *Node) Attr(name string) (*Attribute, bool) {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i], true
		}
	}
	return nil, false
}

// HasAttr reports whether the attribute is present.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// GetAttrInt returns an integer attribute or default value.
func GetAttrInt(node *Node, name string, defaultVal int64) int64 {
	if a, ok := node.Attr(name); ok {
		return a.I
	}
	return defaultVal
}

// GetAttrInts returns an integer array attribute.
func GetAttrInts(node *Node, name string) []int64 {
	if a, ok := node.Attr(name); ok {
		return a.Ints
	}
	return nil
}

// GetAttrFloat returns a float attribute or default value.
func GetAttrFloat(node *Node, name string, defaultVal float32) float32 {
	if a, ok := node.Attr(name); ok {
		return a.F
	}
	return defaultVal
}

// GetAttrString returns a string attribute or default value.
func GetAttrString(node *Node, name, defaultVal string) string {
	if a, ok := node.Attr(name); ok {
		return a.S
	}
	return defaultVal
}

// clone copies the node with fresh slices, so gradient nodes can share the
// attributes of their forward node without aliasing.
func (n *Node) clone() *Node {
	out := &Node{
		Name:       n.Name,
		OpType:     n.OpType,
		Inputs:     append([]string(nil), n.Inputs...),
		Outputs:    append([]string(nil), n.Outputs...),
		Attributes: make([]Attribute, len(n.Attributes)),
	}
	for i, a := range n.Attributes {
		a.Floats = append([]float32(nil), a.Floats...)
		a.Ints = append([]int64(nil), a.Ints...)
		out.Attributes[i] = a
	}
	return out
}

// requireInputs checks that the first n inputs are present.
func requireInputs(node *Node, inputs []*tensor.RawTensor, n int) error {
	if len(inputs) < n {
		return errorf(tensor.ErrInvalidArgument, node, "expected %d inputs, got %d", n, len(inputs))
	}
	for i := 0; i < n; i++ {
		if inputs[i] == nil {
			return errorf(tensor.ErrInvalidArgument, node, "input %d is missing", i)
		}
	}
	return nil
}
