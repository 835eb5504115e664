//go:build windows

package webgpu

import (
	"context"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernels/internal/backend/cpu"
	"github.com/born-ml/kernels/internal/ops"
	"github.com/born-ml/kernels/internal/tensor"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := New()
	if err != nil {
		t.Logf("WebGPU not available: %v", err)
		t.Skip("WebGPU not available on this system")
	}
	t.Cleanup(func() {
		assert.NoError(t, backend.Close())
	})
	return backend
}

func newReference(t *testing.T) *cpu.CPUBackend {
	t.Helper()
	b := cpu.New()
	t.Cleanup(func() {
		assert.NoError(t, b.Close())
	})
	return b
}

func random(t *testing.T, rng *rand.Rand, shape ...int) *tensor.RawTensor {
	t.Helper()
	data := make([]float32, tensor.Shape(shape).NumElements())
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	raw, err := tensor.FromSlice(data, tensor.Shape(shape), tensor.CPU)
	require.NoError(t, err)
	return raw
}

func synchronize(t *testing.T, b tensor.Backend) {
	t.Helper()
	require.NoError(t, b.Synchronize(context.Background()))
}

func TestNew(t *testing.T) {
	backend := newTestBackend(t)

	assert.NotEmpty(t, backend.Name())
	assert.Equal(t, tensor.WebGPU, backend.Device())
	t.Logf("Backend name: %s", backend.Name())
}

func TestSizeClass(t *testing.T) {
	assert.Equal(t, uint64(256), sizeClass(4))
	assert.Equal(t, uint64(256), sizeClass(256))
	assert.Equal(t, uint64(512), sizeClass(257))
	assert.Equal(t, uint64(1<<20), sizeClass(1<<20))
}

func TestBufferPool_Reuse(t *testing.T) {
	backend := newTestBackend(t)
	pool := backend.pool

	buffer, capacity := pool.Acquire(1000, storageUsage)
	assert.Equal(t, uint64(1024), capacity)
	pool.Release(buffer, capacity, storageUsage)

	again, _ := pool.Acquire(900, storageUsage)
	assert.Same(t, buffer, again)
	pool.Release(again, capacity, storageUsage)

	stats := pool.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Idle)
}

// TestKernels_MatchCPU runs every driver on both backends and compares.
func TestKernels_MatchCPU(t *testing.T) {
	gpu := newTestBackend(t)
	ref := newReference(t)
	rng := rand.New(rand.NewSource(1))

	x := random(t, rng, 37, 300)
	y := random(t, rng, 37, 300)
	w := random(t, rng, 37)

	type result func(b tensor.Backend) []*tensor.RawTensor
	tests := map[string]result{
		"squared_l2": func(b tensor.Backend) []*tensor.RawTensor {
			d, err := ops.SquaredL2Distance(b, x, y)
			require.NoError(t, err)
			dx, dy, err := ops.SquaredL2DistanceGradient(b, x, y, w)
			require.NoError(t, err)
			return []*tensor.RawTensor{d, dx, dy}
		},
		"l1": func(b tensor.Backend) []*tensor.RawTensor {
			d, err := ops.L1Distance(b, x, y)
			require.NoError(t, err)
			dx, dy, err := ops.L1DistanceGradient(b, x, y, w)
			require.NoError(t, err)
			return []*tensor.RawTensor{d, dx, dy}
		},
		"dot": func(b tensor.Backend) []*tensor.RawTensor {
			d, err := ops.DotProduct(b, x, y)
			require.NoError(t, err)
			dx, dy, err := ops.DotProductGradient(b, x, y, w)
			require.NoError(t, err)
			return []*tensor.RawTensor{d, dx, dy}
		},
		"cosine": func(b tensor.Backend) []*tensor.RawTensor {
			op := ops.NewCosineSimilarity()
			c, err := op.Forward(b, x, y)
			require.NoError(t, err)
			dx, dy, err := op.Gradient(b, x, y, w)
			require.NoError(t, err)
			return []*tensor.RawTensor{c, dx, dy}
		},
		"sin": func(b tensor.Backend) []*tensor.RawTensor {
			s, err := ops.Sin(b, x)
			require.NoError(t, err)
			dx, err := ops.SinGradient(b, x, y)
			require.NoError(t, err)
			return []*tensor.RawTensor{s, dx}
		},
	}
	for name, run := range tests {
		t.Run(name, func(t *testing.T) {
			want := run(ref)
			synchronize(t, ref)
			got := run(gpu)
			synchronize(t, gpu)
			for i := range want {
				assert.InDeltaSlice(t, want[i].AsFloat32(), got[i].AsFloat32(), 1e-4, "output %d", i)
			}
		})
	}
}

func TestSpatialKernels_MatchCPU(t *testing.T) {
	gpu := newTestBackend(t)
	ref := newReference(t)
	rng := rand.New(rand.NewSource(2))

	x := random(t, rng, 2, 3, 9, 7)
	pool := ops.NewConvPoolBase(3, 2, 1)
	pooled := make([][]*tensor.RawTensor, 2)
	for i, b := range []tensor.Backend{ref, gpu} {
		y, mask, err := ops.MaxPoolWithIndex(b, pool, x)
		require.NoError(t, err)
		dx, err := ops.MaxPoolWithIndexGradient(b, pool, x, y, mask)
		require.NoError(t, err)
		synchronize(t, b)
		pooled[i] = []*tensor.RawTensor{y, mask, dx}
	}
	assert.Equal(t, pooled[0][0].AsFloat32(), pooled[1][0].AsFloat32())
	assert.Equal(t, pooled[0][1].AsInt32(), pooled[1][1].AsInt32())
	assert.InDeltaSlice(t, pooled[0][2].AsFloat32(), pooled[1][2].AsFloat32(), 1e-5)

	for _, mode := range []tensor.PadMode{tensor.PadConstant, tensor.PadReflect, tensor.PadEdge} {
		for _, order := range []tensor.StorageOrder{tensor.NCHW, tensor.NHWC} {
			t.Run("pad/"+mode.String()+"/"+order.String(), func(t *testing.T) {
				cfg := ops.NewPadImageConfig(mode, order, 2)
				cfg.Value = 3
				outs := make([][]*tensor.RawTensor, 2)
				for i, b := range []tensor.Backend{ref, gpu} {
					padded, err := ops.PadImage(b, cfg, x)
					require.NoError(t, err)
					grad, err := ops.PadImageGradient(b, cfg, padded)
					require.NoError(t, err)
					synchronize(t, b)
					outs[i] = []*tensor.RawTensor{padded, grad}
				}
				assert.Equal(t, outs[0][0].AsFloat32(), outs[1][0].AsFloat32())
				assert.InDeltaSlice(t, outs[0][1].AsFloat32(), outs[1][1].AsFloat32(), 1e-4)
			})
		}
	}
}

func TestOneHot(t *testing.T) {
	gpu := newTestBackend(t)

	indices, err := tensor.FromSlice([]int64{2, 0, 1}, tensor.Shape{3}, tensor.CPU)
	require.NoError(t, err)
	out, err := ops.OneHot(gpu, indices, 3)
	require.NoError(t, err)
	synchronize(t, gpu)
	assert.Equal(t, []float32{0, 0, 1, 1, 0, 0, 0, 1, 0}, out.AsFloat32())

	bad, err := tensor.FromSlice([]int64{5}, tensor.Shape{1}, tensor.CPU)
	require.NoError(t, err)
	_, err = ops.OneHot(gpu, bad, 3)
	require.NoError(t, err)
	err = gpu.Synchronize(context.Background())
	assert.True(t, errors.Is(err, tensor.ErrLaunchFailed))
	synchronize(t, gpu)
}

func TestSet_Float16(t *testing.T) {
	gpu := newTestBackend(t)

	half, err := tensor.Zeros(tensor.Shape{5}, tensor.Float16, tensor.CPU)
	require.NoError(t, err)
	require.NoError(t, gpu.Set(half, 1.5))
	synchronize(t, gpu)

	values, err := tensor.Float32Values(half)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, 1.5, 1.5, 1.5, 1.5}, values)
}
