package operators

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/kernels/internal/ops"
	"github.com/born-ml/kernels/internal/tensor"
)

// errorf wraps a sentinel with the node it was raised for.
func errorf(sentinel error, node *Node, format string, args ...any) error {
	return errors.Wrapf(sentinel, "%s: %s", describe(node), fmt.Sprintf(format, args...))
}

func describe(node *Node) string {
	if node.Name == "" {
		return node.OpType
	}
	return node.OpType + " " + node.Name
}

// pair reads a 2D attribute given either as name, or as name_h and name_w.
func pair(node *Node, name string, def int64) (h, w int, err error) {
	v := GetAttrInt(node, name, def)
	hv, wv := GetAttrInt(node, name+"_h", v), GetAttrInt(node, name+"_w", v)
	if node.HasAttr(name) && (node.HasAttr(name+"_h") || node.HasAttr(name+"_w")) {
		return 0, 0, errorf(tensor.ErrInvalidArgument, node, "%s and %s_h/%s_w are mutually exclusive", name, name, name)
	}
	return int(hv), int(wv), nil
}

// geometry builds the window geometry from kernel, stride, pad and order
// attributes. defaultKernel is used when no kernel attribute is present; a
// zero default makes the kernel mandatory.
func geometry(node *Node, defaultKernel int64) (ops.ConvPoolBase, error) {
	var g ops.ConvPoolBase
	var err error

	if !node.HasAttr("kernel") && !node.HasAttr("kernel_h") && !node.HasAttr("kernel_w") && defaultKernel == 0 {
		return g, errorf(tensor.ErrInvalidArgument, node, "kernel is required")
	}
	if g.KernelH, g.KernelW, err = pair(node, "kernel", defaultKernel); err != nil {
		return g, err
	}
	if g.StrideH, g.StrideW, err = pair(node, "stride", 1); err != nil {
		return g, err
	}

	pad := int(GetAttrInt(node, "pad", 0))
	g.PadT, g.PadL, g.PadB, g.PadR = pad, pad, pad, pad
	if pads := GetAttrInts(node, "pads"); pads != nil {
		if node.HasAttr("pad") {
			return g, errorf(tensor.ErrInvalidArgument, node, "pad and pads are mutually exclusive")
		}
		if len(pads) != 4 {
			return g, errorf(tensor.ErrInvalidArgument, node, "pads needs 4 values (t, l, b, r), got %d", len(pads))
		}
		g.PadT, g.PadL, g.PadB, g.PadR = int(pads[0]), int(pads[1]), int(pads[2]), int(pads[3])
	}
	for _, side := range []struct {
		name string
		dst  *int
	}{{"pad_t", &g.PadT}, {"pad_l", &g.PadL}, {"pad_b", &g.PadB}, {"pad_r", &g.PadR}} {
		if node.HasAttr(side.name) {
			*side.dst = int(GetAttrInt(node, side.name, 0))
		}
	}

	if g.LegacyPad, err = ops.ParseLegacyPad(GetAttrString(node, "legacy_pad", "")); err != nil {
		return g, errors.WithMessage(err, describe(node))
	}
	if g.Order, err = tensor.ParseStorageOrder(GetAttrString(node, "order", "NCHW")); err != nil {
		return g, errors.WithMessage(err, describe(node))
	}
	if err := g.Validate(); err != nil {
		return g, errors.WithMessage(err, describe(node))
	}
	return g, nil
}

// padConfig reads the PadImage attributes: geometry plus mode and value.
func padConfig(node *Node) (ops.PadImageConfig, error) {
	g, err := geometry(node, 1)
	if err != nil {
		return ops.PadImageConfig{}, err
	}
	mode, err := tensor.ParsePadMode(GetAttrString(node, "mode", "constant"))
	if err != nil {
		return ops.PadImageConfig{}, errors.WithMessage(err, describe(node))
	}
	return ops.PadImageConfig{
		ConvPoolBase: g,
		Mode:         mode,
		Value:        GetAttrFloat(node, "value", 0),
	}, nil
}

// indexSize reads OneHot's index_size from the attribute or, when the
// attribute is absent, from a second input tensor.
func indexSize(node *Node, inputs []*tensor.RawTensor) (int, error) {
	if node.HasAttr("index_size") {
		return int(GetAttrInt(node, "index_size", 0)), nil
	}
	if len(inputs) > 1 && inputs[1] != nil {
		n, err := ops.IndexSizeFromTensor(inputs[1])
		return n, errors.WithMessage(err, describe(node))
	}
	return 0, errorf(tensor.ErrInvalidArgument, node, "index_size is required")
}
