package operators

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/ops"
	"github.com/born-ml/kernels/internal/tensor"
)

func (r *Registry) registerPoolOps() {
	r.registerAll("MaxPoolWithIndex", opMaxPoolWithIndex)
	r.registerAll("MaxPoolWithIndexGradient", opMaxPoolWithIndexGradient)
}

func (r *Registry) registerPadOps() {
	r.registerAll("PadImage", opPadImage)
	r.registerAll("PadImageGradient", opPadImageGradient)
}

// opMaxPoolWithIndex produces Y and the argmax mask.
func opMaxPoolWithIndex(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := requireInputs(node, inputs, 1); err != nil {
		return nil, err
	}
	g, err := geometry(node, 0)
	if err != nil {
		return nil, err
	}
	y, mask, err := ops.MaxPoolWithIndex(ctx.Backend, g, inputs[0])
	if err != nil {
		return nil, errors.WithMessage(err, describe(node))
	}
	return []*tensor.RawTensor{y, mask}, nil
}

// opMaxPoolWithIndexGradient takes X, dY and the forward mask.
func opMaxPoolWithIndexGradient(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := requireInputs(node, inputs, 3); err != nil {
		return nil, err
	}
	g, err := geometry(node, 0)
	if err != nil {
		return nil, err
	}
	dx, err := ops.MaxPoolWithIndexGradient(ctx.Backend, g, inputs[0], inputs[1], inputs[2])
	if err != nil {
		return nil, errors.WithMessage(err, describe(node))
	}
	return []*tensor.RawTensor{dx}, nil
}

func opPadImage(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := requireInputs(node, inputs, 1); err != nil {
		return nil, err
	}
	cfg, err := padConfig(node)
	if err != nil {
		return nil, err
	}
	y, err := ops.PadImage(ctx.Backend, cfg, inputs[0])
	if err != nil {
		return nil, errors.WithMessage(err, describe(node))
	}
	return []*tensor.RawTensor{y}, nil
}

// opPadImageGradient only needs dY: the input shape is dY minus the pads.
func opPadImageGradient(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := requireInputs(node, inputs, 1); err != nil {
		return nil, err
	}
	cfg, err := padConfig(node)
	if err != nil {
		return nil, err
	}
	dx, err := ops.PadImageGradient(ctx.Backend, cfg, inputs[0])
	if err != nil {
		return nil, errors.WithMessage(err, describe(node))
	}
	return []*tensor.RawTensor{dx}, nil
}
