package operators

import (
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/kernels/internal/tensor"
)

// NetDef is a named list of nodes, as read from a YAML net definition:
//
//	name: pad_then_pool
//	nodes:
//	  - name: pad
//	    op: PadImage
//	    inputs: [X]
//	    outputs: [P]
//	    attrs:
//	      pad: 1
//	      mode: reflect
//	  - op: MaxPoolWithIndex
//	    inputs: [P]
//	    outputs: [Y, mask]
//	    attrs: {kernel: 2, stride: 2}
type NetDef struct {
	Name  string
	Nodes []*Node
}

type yamlNet struct {
	Name  string     `yaml:"name"`
	Nodes []yamlNode `yaml:"nodes"`
}

type yamlNode struct {
	Name    string               `yaml:"name"`
	Op      string               `yaml:"op"`
	Inputs  []string             `yaml:"inputs"`
	Outputs []string             `yaml:"outputs"`
	Attrs   map[string]yaml.Node `yaml:"attrs"`
}

// ParseNet decodes a YAML net definition. Nodes without a name are named
// after their operator and position.
func ParseNet(r io.Reader) (*NetDef, error) {
	var def yamlNet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, errors.Wrap(tensor.ErrInvalidArgument, "parse net: "+err.Error())
	}

	net := &NetDef{Name: def.Name, Nodes: make([]*Node, 0, len(def.Nodes))}
	for i, n := range def.Nodes {
		if n.Op == "" {
			return nil, errors.Wrapf(tensor.ErrInvalidArgument, "net %q: node %d has no op", def.Name, i)
		}
		node := &Node{Name: n.Name, OpType: n.Op, Inputs: n.Inputs, Outputs: n.Outputs}
		if node.Name == "" {
			node.Name = n.Op + "_" + strconv.Itoa(i)
		}
		names := make([]string, 0, len(n.Attrs))
		for name := range n.Attrs {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			value := n.Attrs[name]
			attr, err := yamlAttribute(name, &value)
			if err != nil {
				return nil, errorf(tensor.ErrInvalidArgument, node, "%v", err)
			}
			node.Attributes = append(node.Attributes, attr)
		}
		net.Nodes = append(net.Nodes, node)
	}
	return net, nil
}

// LoadNet reads a YAML net definition from path.
func LoadNet(path string) (*NetDef, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for net definitions
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open net")
	}
	defer func() {
		_ = file.Close() // Best effort close
	}()
	net, err := ParseNet(file)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return net, nil
}

// yamlAttribute converts a scalar or a flat sequence. Integers also fill F,
// so "value: 0" reads as a float attribute too.
func yamlAttribute(name string, value *yaml.Node) (Attribute, error) {
	switch value.Kind {
	case yaml.ScalarNode:
		switch value.Tag {
		case "!!int":
			var v int64
			if err := value.Decode(&v); err != nil {
				return Attribute{}, errors.Wrapf(err, "attribute %s", name)
			}
			return Attribute{Name: name, Type: AttrInt, I: v, F: float32(v)}, nil
		case "!!float":
			var v float32
			if err := value.Decode(&v); err != nil {
				return Attribute{}, errors.Wrapf(err, "attribute %s", name)
			}
			return Float(name, v), nil
		default:
			return String(name, value.Value), nil
		}
	case yaml.SequenceNode:
		allInts := true
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || (item.Tag != "!!int" && item.Tag != "!!float") {
				return Attribute{}, errors.Errorf("attribute %s: lists must hold numbers", name)
			}
			allInts = allInts && item.Tag == "!!int"
		}
		if allInts {
			var v []int64
			if err := value.Decode(&v); err != nil {
				return Attribute{}, errors.Wrapf(err, "attribute %s", name)
			}
			return Ints(name, v...), nil
		}
		var v []float32
		if err := value.Decode(&v); err != nil {
			return Attribute{}, errors.Wrapf(err, "attribute %s", name)
		}
		return Attribute{Name: name, Type: AttrFloats, Floats: v}, nil
	default:
		return Attribute{}, errors.Errorf("attribute %s: unsupported YAML kind", name)
	}
}
