package operators

import (
	"github.com/born-ml/kernels/internal/tensor"
)

// GradientMaker derives the gradient node of a forward node. The gradient
// node reads forward blobs and output gradients by name and writes input
// gradients, named with GradientName.
type GradientMaker func(node *Node) (*Node, error)

// GradientName is the blob holding the gradient of blob.
func GradientName(blob string) string {
	return blob + "_grad"
}

func (r *Registry) registerGradients() {
	for _, op := range []string{"SquaredL2Distance", "L1Distance", "DotProduct", "CosineSimilarity"} {
		r.RegisterGradient(op, pairGradient(op+"Gradient"))
	}
	r.RegisterGradient("MaxPoolWithIndex", maxPoolGradient)
	r.RegisterGradient("PadImage", padGradient)
	r.RegisterGradient("Sin", sinGradient)
	r.RegisterGradient("PrependDim", prependDimGradient)
}

// RegisterGradient sets the gradient maker of a forward operator.
func (r *Registry) RegisterGradient(opType string, maker GradientMaker) {
	r.gradients[opType] = maker
}

// Gradient returns the gradient node of node. Operators without a maker,
// such as OneHot, are not differentiable.
func (r *Registry) Gradient(node *Node) (*Node, error) {
	maker, ok := r.gradients[node.OpType]
	if !ok {
		return nil, errorf(tensor.ErrUnknownOperator, node, "no gradient registered")
	}
	return maker(node)
}

// Differentiable reports whether a gradient maker is registered for opType.
func (r *Registry) Differentiable(opType string) bool {
	_, ok := r.gradients[opType]
	return ok
}

// slots binds the I, O, GI and GO blob names of a forward node.
type slots struct{ node *Node }

func (s slots) I(i int) string  { return s.node.Inputs[i] }
func (s slots) O(i int) string  { return s.node.Outputs[i] }
func (s slots) GI(i int) string { return GradientName(s.node.Inputs[i]) }
func (s slots) GO(i int) string { return GradientName(s.node.Outputs[i]) }

func arity(node *Node, inputs, outputs int) error {
	if len(node.Inputs) < inputs || len(node.Outputs) < outputs {
		return errorf(tensor.ErrInvalidArgument, node, "gradient needs %d inputs and %d outputs, node has %d and %d",
			inputs, outputs, len(node.Inputs), len(node.Outputs))
	}
	return nil
}

// gradientNode copies the forward attributes into a node of opType.
func gradientNode(node *Node, opType string, inputs, outputs []string) *Node {
	g := node.clone()
	g.OpType = opType
	g.Inputs, g.Outputs = inputs, outputs
	if g.Name != "" {
		g.Name = GradientName(g.Name)
	}
	return g
}

// pairGradient maps {X, Y} -> Out to {X, Y, dOut} -> {dX, dY}.
func pairGradient(opType string) GradientMaker {
	return func(node *Node) (*Node, error) {
		if err := arity(node, 2, 1); err != nil {
			return nil, err
		}
		s := slots{node}
		return gradientNode(node, opType,
			[]string{s.I(0), s.I(1), s.GO(0)},
			[]string{s.GI(0), s.GI(1)}), nil
	}
}

// maxPoolGradient feeds the forward mask (second output) to the gradient.
func maxPoolGradient(node *Node) (*Node, error) {
	if err := arity(node, 1, 2); err != nil {
		return nil, err
	}
	s := slots{node}
	return gradientNode(node, "MaxPoolWithIndexGradient",
		[]string{s.I(0), s.GO(0), s.O(1)},
		[]string{s.GI(0)}), nil
}

func padGradient(node *Node) (*Node, error) {
	if err := arity(node, 1, 1); err != nil {
		return nil, err
	}
	s := slots{node}
	return gradientNode(node, "PadImageGradient", []string{s.GO(0)}, []string{s.GI(0)}), nil
}

func sinGradient(node *Node) (*Node, error) {
	if err := arity(node, 1, 1); err != nil {
		return nil, err
	}
	s := slots{node}
	return gradientNode(node, "SinGradient", []string{s.I(0), s.GO(0)}, []string{s.GI(0)}), nil
}

func prependDimGradient(node *Node) (*Node, error) {
	if err := arity(node, 1, 1); err != nil {
		return nil, err
	}
	s := slots{node}
	return gradientNode(node, "MergeDim", []string{s.GO(0)}, []string{s.GI(0)}), nil
}
