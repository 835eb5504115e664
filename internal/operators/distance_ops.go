package operators

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/ops"
	"github.com/born-ml/kernels/internal/tensor"
)

type pairFunc func(b tensor.Backend, x, y *tensor.RawTensor) (*tensor.RawTensor, error)

type pairGradFunc func(b tensor.Backend, x, y, dOut *tensor.RawTensor) (dx, dy *tensor.RawTensor, err error)

func (r *Registry) registerDistanceOps() {
	r.registerAll("SquaredL2Distance", pairOp(ops.SquaredL2Distance))
	r.registerAll("SquaredL2DistanceGradient", pairGradOp(ops.SquaredL2DistanceGradient))
	r.registerAll("L1Distance", pairOp(ops.L1Distance))
	r.registerAll("L1DistanceGradient", pairGradOp(ops.L1DistanceGradient))
	r.registerAll("DotProduct", pairOp(ops.DotProduct))
	r.registerAll("DotProductGradient", pairGradOp(ops.DotProductGradient))
	r.registerAll("CosineSimilarity", opCosineSimilarity)
	r.registerAll("CosineSimilarityGradient", opCosineSimilarityGradient)
}

// pairOp adapts a row-wise X, Y -> distance driver.
func pairOp(f pairFunc) OpHandler {
	return func(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
		if err := requireInputs(node, inputs, 2); err != nil {
			return nil, err
		}
		out, err := f(ctx.Backend, inputs[0], inputs[1])
		if err != nil {
			return nil, errors.WithMessage(err, describe(node))
		}
		return []*tensor.RawTensor{out}, nil
	}
}

// pairGradOp adapts a X, Y, dOut -> dX, dY driver.
func pairGradOp(f pairGradFunc) OpHandler {
	return func(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
		if err := requireInputs(node, inputs, 3); err != nil {
			return nil, err
		}
		dx, dy, err := f(ctx.Backend, inputs[0], inputs[1], inputs[2])
		if err != nil {
			return nil, errors.WithMessage(err, describe(node))
		}
		return []*tensor.RawTensor{dx, dy}, nil
	}
}

func opCosineSimilarity(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return pairOp(ctx.cosineFor(node).Forward)(ctx, node, inputs)
}

func opCosineSimilarityGradient(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return pairGradOp(ctx.cosineFor(node).Gradient)(ctx, node, inputs)
}
