package operators

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/ops"
	"github.com/born-ml/kernels/internal/tensor"
)

func (r *Registry) registerUtilityOps() {
	r.registerAll("OneHot", opOneHot)
	r.registerAll("Sin", opSin)
	r.registerAll("SinGradient", opSinGradient)
	r.registerAll("PrependDim", opPrependDim)
	r.registerAll("MergeDim", opMergeDim)
	r.registerAll("Sum", opSum)
}

// opOneHot encodes 1-D indices; index_size comes from the attribute or a
// second input tensor.
func opOneHot(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := requireInputs(node, inputs, 1); err != nil {
		return nil, err
	}
	size, err := indexSize(node, inputs)
	if err != nil {
		return nil, err
	}
	out, err := ops.OneHot(ctx.Backend, inputs[0], size)
	if err != nil {
		return nil, errors.WithMessage(err, describe(node))
	}
	return []*tensor.RawTensor{out}, nil
}

func opSin(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := requireInputs(node, inputs, 1); err != nil {
		return nil, err
	}
	y, err := ops.Sin(ctx.Backend, inputs[0])
	if err != nil {
		return nil, errors.WithMessage(err, describe(node))
	}
	return []*tensor.RawTensor{y}, nil
}

func opSinGradient(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := requireInputs(node, inputs, 2); err != nil {
		return nil, err
	}
	dx, err := ops.SinGradient(ctx.Backend, inputs[0], inputs[1])
	if err != nil {
		return nil, errors.WithMessage(err, describe(node))
	}
	return []*tensor.RawTensor{dx}, nil
}

// opPrependDim splits the leading dimension; the result shares storage.
func opPrependDim(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := requireInputs(node, inputs, 1); err != nil {
		return nil, err
	}
	if !node.HasAttr("dim_size") {
		return nil, errorf(tensor.ErrInvalidArgument, node, "dim_size is required")
	}
	out, err := ops.PrependDim(inputs[0], int(GetAttrInt(node, "dim_size", 0)))
	if err != nil {
		return nil, errors.WithMessage(err, describe(node))
	}
	return []*tensor.RawTensor{out}, nil
}

func opMergeDim(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := requireInputs(node, inputs, 1); err != nil {
		return nil, err
	}
	out, err := ops.MergeDim(inputs[0])
	if err != nil {
		return nil, errors.WithMessage(err, describe(node))
	}
	return []*tensor.RawTensor{out}, nil
}

func opSum(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := requireInputs(node, inputs, max(len(node.Inputs), 1)); err != nil {
		return nil, err
	}
	out, err := ops.Sum(ctx.Backend, inputs...)
	if err != nil {
		return nil, errors.WithMessage(err, describe(node))
	}
	return []*tensor.RawTensor{out}, nil
}
