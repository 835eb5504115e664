package operators

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernels/internal/backend/cpu"
	"github.com/born-ml/kernels/internal/tensor"
)

func newContext(t *testing.T) *Context {
	t.Helper()
	b := cpu.New(cpu.WithBlockSize(8), cpu.WithMaxBlocks(4))
	t.Cleanup(func() {
		assert.NoError(t, b.Close())
	})
	return NewContext(b)
}

func f32(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromSlice(data, tensor.Shape(shape), tensor.CPU)
	require.NoError(t, err)
	return raw
}

func rangeF32(t *testing.T, shape ...int) *tensor.RawTensor {
	t.Helper()
	data := make([]float32, tensor.Shape(shape).NumElements())
	for i := range data {
		data[i] = float32(i)
	}
	return f32(t, data, shape...)
}

func fetch(t *testing.T, ws *Workspace, name string) *tensor.RawTensor {
	t.Helper()
	blob, ok := ws.Fetch(name)
	require.True(t, ok, "blob %s", name)
	return blob
}

func TestRegistry_SupportedOps(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{
		"CosineSimilarity", "CosineSimilarityGradient",
		"DotProduct", "DotProductGradient",
		"L1Distance", "L1DistanceGradient",
		"MaxPoolWithIndex", "MaxPoolWithIndexGradient",
		"MergeDim", "OneHot",
		"PadImage", "PadImageGradient",
		"PrependDim", "Sin", "SinGradient",
		"SquaredL2Distance", "SquaredL2DistanceGradient",
		"Sum",
	}, r.SupportedOps(tensor.CPU))
	assert.Contains(t, Devices(), tensor.CPU)

	for _, d := range Devices() {
		assert.Len(t, r.SupportedOps(d), 18, "device %s", d)
	}
}

func TestRegistry_UnknownOperator(t *testing.T) {
	r := NewRegistry()
	ctx := newContext(t)

	_, err := r.Execute(ctx, &Node{OpType: "Conv"}, nil)
	assert.True(t, errors.Is(err, tensor.ErrUnknownOperator))

	_, ok := r.Get("Sin", tensor.CPU)
	assert.True(t, ok)

	_, err = r.Gradient(&Node{OpType: "OneHot", Inputs: []string{"i"}, Outputs: []string{"o"}})
	assert.True(t, errors.Is(err, tensor.ErrUnknownOperator))
}

func TestRegistry_CustomHandler(t *testing.T) {
	r := NewRegistry()
	ctx := newContext(t)

	called := false
	r.Register("Identity", tensor.CPU, func(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
		called = true
		return inputs, nil
	})
	x := f32(t, []float32{1})
	out, err := r.Execute(ctx, &Node{OpType: "Identity"}, []*tensor.RawTensor{x})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Same(t, x, out[0])
}

func TestRegistry_MissingInput(t *testing.T) {
	r := NewRegistry()
	ctx := newContext(t)

	_, err := r.Execute(ctx, &Node{OpType: "SquaredL2Distance"}, []*tensor.RawTensor{f32(t, []float32{1}, 1)})
	assert.True(t, errors.Is(err, tensor.ErrInvalidArgument))

	_, err = r.Execute(ctx, &Node{OpType: "Sin"}, []*tensor.RawTensor{nil})
	assert.True(t, errors.Is(err, tensor.ErrInvalidArgument))
}

func TestRegistry_PadImageReflect(t *testing.T) {
	r := NewRegistry()
	ctx := newContext(t)
	ws := NewWorkspace()
	ws.Feed("X", rangeF32(t, 1, 1, 3, 3))

	pad := &Node{
		OpType:     "PadImage",
		Inputs:     []string{"X"},
		Outputs:    []string{"Y"},
		Attributes: []Attribute{String("mode", "reflect"), Int("pad", 1)},
	}
	require.NoError(t, r.RunNet(context.Background(), ctx, ws, []*Node{pad}))

	y := fetch(t, ws, "Y")
	assert.Equal(t, tensor.Shape{1, 1, 5, 5}, y.Shape())
	assert.Equal(t, []float32{
		4, 3, 4, 5, 4,
		1, 0, 1, 2, 1,
		4, 3, 4, 5, 4,
		7, 6, 7, 8, 7,
		4, 3, 4, 5, 4,
	}, y.AsFloat32())
}

func TestRegistry_PadImageConstantNHWC(t *testing.T) {
	r := NewRegistry()
	ctx := newContext(t)
	ws := NewWorkspace()
	ws.Feed("X", f32(t, []float32{1, 2}, 1, 1, 1, 2))

	pad := &Node{
		OpType:  "PadImage",
		Inputs:  []string{"X"},
		Outputs: []string{"Y"},
		Attributes: []Attribute{
			String("order", "NHWC"), Float("value", 9),
			Ints("pads", 0, 1, 0, 0),
		},
	}
	require.NoError(t, r.RunNet(context.Background(), ctx, ws, []*Node{pad}))

	y := fetch(t, ws, "Y")
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, y.Shape())
	assert.Equal(t, []float32{9, 9, 1, 2}, y.AsFloat32())
}

func TestRegistry_OneHotIndexSizeInput(t *testing.T) {
	r := NewRegistry()
	ctx := newContext(t)
	ws := NewWorkspace()

	indices, err := tensor.FromSlice([]int64{2, 0, 1}, tensor.Shape{3}, tensor.CPU)
	require.NoError(t, err)
	size, err := tensor.FromSlice([]int64{3}, tensor.Shape{1}, tensor.CPU)
	require.NoError(t, err)
	ws.Feed("indices", indices)
	ws.Feed("index_size", size)

	fromInput := &Node{OpType: "OneHot", Inputs: []string{"indices", "index_size"}, Outputs: []string{"a"}}
	fromAttr := &Node{OpType: "OneHot", Inputs: []string{"indices"}, Outputs: []string{"b"},
		Attributes: []Attribute{Int("index_size", 3)}}
	require.NoError(t, r.RunNet(context.Background(), ctx, ws, []*Node{fromInput, fromAttr}))

	want := []float32{0, 0, 1, 1, 0, 0, 0, 1, 0}
	assert.Equal(t, want, fetch(t, ws, "a").AsFloat32())
	assert.Equal(t, want, fetch(t, ws, "b").AsFloat32())

	missing := &Node{OpType: "OneHot", Inputs: []string{"indices"}, Outputs: []string{"c"}}
	err = r.Run(ctx, ws, missing)
	assert.True(t, errors.Is(err, tensor.ErrInvalidArgument))
}

func TestRegistry_CosineInstancePerNode(t *testing.T) {
	ctx := newContext(t)

	a := &Node{Name: "a", OpType: "CosineSimilarity"}
	b := &Node{Name: "b", OpType: "CosineSimilarity"}
	assert.Same(t, ctx.cosineFor(a), ctx.cosineFor(a))
	assert.NotSame(t, ctx.cosineFor(a), ctx.cosineFor(b))

	r := NewRegistry()
	x := f32(t, []float32{3, 4, 1, 0}, 2, 2)
	y := f32(t, []float32{3, 4, 0, 1}, 2, 2)
	out, err := r.Execute(ctx, a, []*tensor.RawTensor{x, y})
	require.NoError(t, err)
	require.NoError(t, ctx.Backend.Synchronize(context.Background()))
	assert.InDeltaSlice(t, []float32{1, 0}, out[0].AsFloat32(), 1e-5)
	assert.Equal(t, 4, ctx.cosineFor(a).ScratchSize())
	assert.Equal(t, 0, ctx.cosineFor(b).ScratchSize())
}
