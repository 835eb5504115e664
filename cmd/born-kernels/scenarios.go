package main

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/kernels/operators"
	"github.com/born-ml/kernels/tensor"
)

// scenario is a small graph with known outputs. With gradients set, the
// gradient net of the forward nodes runs after them.
type scenario struct {
	name      string
	feeds     map[string]*tensor.RawTensor
	nodes     []*operators.Node
	gradients bool
	want      map[string][]float32
	tolerance float64
}

func must(t *tensor.RawTensor, err error) *tensor.RawTensor {
	if err != nil {
		panic(err)
	}
	return t
}

func f32(shape tensor.Shape, values ...float32) *tensor.RawTensor {
	return must(tensor.FromSlice(values, shape, tensor.CPU))
}

func node(opType string, inputs, outputs []string, attrs ...operators.Attribute) *operators.Node {
	return &operators.Node{Name: opType, OpType: opType, Inputs: inputs, Outputs: outputs, Attributes: attrs}
}

func rangeF32(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func scenarios() []scenario {
	xy := []string{"X", "Y"}
	return []scenario{
		{
			name: "squared_l2",
			feeds: map[string]*tensor.RawTensor{
				"X": f32(tensor.Shape{1, 3}, 1, 2, 3), "Y": f32(tensor.Shape{1, 3}, 0, 0, 0),
				"D_grad": f32(tensor.Shape{1}, 1),
			},
			nodes:     []*operators.Node{node("SquaredL2Distance", xy, []string{"D"})},
			gradients: true,
			want: map[string][]float32{
				"D": {7}, "X_grad": {1, 2, 3}, "Y_grad": {-1, -2, -3},
			},
		},
		{
			name: "l1_dead_band",
			feeds: map[string]*tensor.RawTensor{
				"X": f32(tensor.Shape{1, 2}, 1, 2), "Y": f32(tensor.Shape{1, 2}, 1+1e-15, 2-1e-15),
				"D_grad": f32(tensor.Shape{1}, 1),
			},
			nodes:     []*operators.Node{node("L1Distance", xy, []string{"D"})},
			gradients: true,
			want:      map[string][]float32{"D": {0}, "X_grad": {0, 0}, "Y_grad": {0, 0}},
			tolerance: 1e-6,
		},
		{
			name: "cosine_and_dot",
			feeds: map[string]*tensor.RawTensor{
				"X": f32(tensor.Shape{1, 2}, 3, 4), "Y": f32(tensor.Shape{1, 2}, 3, 4),
			},
			nodes: []*operators.Node{
				node("CosineSimilarity", xy, []string{"C"}),
				node("DotProduct", xy, []string{"P"}),
			},
			want:      map[string][]float32{"C": {1}, "P": {25}},
			tolerance: 1e-6,
		},
		{
			name: "cosine_zero_row",
			feeds: map[string]*tensor.RawTensor{
				"X": f32(tensor.Shape{1, 2}, 0, 0), "Y": f32(tensor.Shape{1, 2}, 1, 0),
			},
			nodes: []*operators.Node{node("CosineSimilarity", xy, []string{"C"})},
			want:  map[string][]float32{"C": {0}},
		},
		{
			name: "max_pool_with_index",
			feeds: map[string]*tensor.RawTensor{
				"X":      f32(tensor.Shape{1, 1, 4, 4}, rangeF32(16)...),
				"Y_grad": must(tensor.Full(tensor.Shape{1, 1, 2, 2}, tensor.Float32, 1, tensor.CPU)),
			},
			nodes: []*operators.Node{node("MaxPoolWithIndex", []string{"X"}, []string{"Y", "mask"},
				operators.Int("kernel", 2), operators.Int("stride", 2))},
			gradients: true,
			want: map[string][]float32{
				"Y":      {5, 7, 13, 15},
				"mask":   {5, 7, 13, 15},
				"X_grad": {0, 0, 0, 0, 0, 1, 0, 1, 0, 0, 0, 0, 0, 1, 0, 1},
			},
		},
		{
			name: "pad_reflect",
			feeds: map[string]*tensor.RawTensor{
				"X": f32(tensor.Shape{1, 1, 3, 3}, 1, 2, 3, 4, 5, 6, 7, 8, 9),
			},
			nodes: []*operators.Node{node("PadImage", []string{"X"}, []string{"Y"},
				operators.Int("pad", 1), operators.String("mode", "reflect"))},
			want: map[string][]float32{"Y": {
				5, 4, 5, 6, 5,
				2, 1, 2, 3, 2,
				5, 4, 5, 6, 5,
				8, 7, 8, 9, 8,
				5, 4, 5, 6, 5,
			}},
		},
		{
			name: "one_hot",
			feeds: map[string]*tensor.RawTensor{
				"indices": must(tensor.FromSlice([]int64{2, 0, 1}, tensor.Shape{3}, tensor.CPU)),
			},
			nodes: []*operators.Node{node("OneHot", []string{"indices"}, []string{"Y"}, operators.Int("index_size", 3))},
			want:  map[string][]float32{"Y": {0, 0, 1, 1, 0, 0, 0, 1, 0}},
		},
	}
}

// values returns the elements of a float or int32 tensor as float32.
func values(t *tensor.RawTensor) ([]float32, error) {
	if t.DType() != tensor.Int32 {
		return tensor.Float32Values(t)
	}
	ints := t.AsInt32()
	out := make([]float32, len(ints))
	for i, v := range ints {
		out[i] = float32(v)
	}
	return out, nil
}

func (s scenario) run(reg *operators.Registry, backend tensor.Backend) error {
	ws := operators.NewWorkspace()
	for name, t := range s.feeds {
		ws.Feed(name, t)
	}
	net := s.nodes
	if s.gradients {
		grads, err := reg.GradientNet(s.nodes)
		if err != nil {
			return err
		}
		net = append(append([]*operators.Node(nil), s.nodes...), grads...)
	}
	if err := reg.RunNet(context.Background(), operators.NewContext(backend), ws, net); err != nil {
		return err
	}
	for blob, want := range s.want {
		t, ok := ws.Fetch(blob)
		if !ok {
			return errors.Errorf("blob %q was not produced", blob)
		}
		got, err := values(t)
		if err != nil {
			return err
		}
		if len(got) != len(want) {
			return errors.Errorf("%s: got %d values, want %d", blob, len(got), len(want))
		}
		for i := range want {
			if math.Abs(float64(got[i]-want[i])) > s.tolerance {
				return errors.Errorf("%s[%d] = %g, want %g", blob, i, got[i], want[i])
			}
		}
	}
	return nil
}

// runScenarios runs every scenario and reports each one. It fails if any
// scenario fails.
func runScenarios(w io.Writer, backend tensor.Backend) error {
	reg := operators.NewRegistry()
	failed := 0
	for _, s := range scenarios() {
		if err := s.run(reg, backend); err != nil {
			failed++
			_, _ = fmt.Fprintf(w, "FAIL  %-20s %v\n", s.name, err)
			continue
		}
		_, _ = fmt.Fprintf(w, "ok    %-20s\n", s.name)
	}
	if failed > 0 {
		return errors.Errorf("%d of %d scenarios failed on %s", failed, len(scenarios()), backend.Name())
	}
	return nil
}
