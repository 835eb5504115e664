package ops

import (
	"sync"

	"k8s.io/klog/v2"

	"github.com/born-ml/kernels/internal/tensor"
)

// CosineSimilarity computes the row-wise cosine similarity and its gradient.
//
// An instance owns a float32 scratch buffer that is partitioned into
// per-row regions on every call. The buffer only grows. Calls on one
// instance are serialized; use one instance per backend stream, since the
// buffer is reused as soon as the next call is enqueued.
type CosineSimilarity struct {
	mu      sync.Mutex
	owner   tensor.Backend
	scratch *tensor.RawTensor
}

// NewCosineSimilarity returns an operator instance with no scratch yet.
func NewCosineSimilarity() *CosineSimilarity {
	return &CosineSimilarity{}
}

// regions returns k consecutive views of n elements each, carved from the
// scratch buffer.
func (c *CosineSimilarity) regions(b tensor.Backend, k, n int) ([]*tensor.RawTensor, error) {
	size := k * n
	if c.owner != b || c.scratch == nil || c.scratch.NumElements() < size {
		klog.V(2).Infof("cosine similarity: growing scratch to %d elements on %s", size, b.Name())
		scratch, err := newLike(b, tensor.Shape{size}, tensor.Float32)
		if err != nil {
			return nil, err
		}
		c.owner, c.scratch = b, scratch
	}
	views := make([]*tensor.RawTensor, k)
	for i := range views {
		view, err := c.scratch.View(i*n, tensor.Shape{n})
		if err != nil {
			return nil, err
		}
		views[i] = view
	}
	return views, nil
}

// ScratchSize returns the number of scratch elements currently held.
func (c *CosineSimilarity) ScratchSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scratch == nil {
		return 0
	}
	return c.scratch.NumElements()
}

// Forward returns cos[i] = <x_i, y_i> / sqrt(max(|x_i|^2, eps) * max(|y_i|^2, eps))
// with eps = 1e-12, so a zero row gives 0 rather than NaN.
//
// Uses 2N scratch: x2 and y2. The scale 1/sqrt(x2*y2) is written over x2
// once y2 has been produced.
func (c *CosineSimilarity) Forward(b tensor.Backend, x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	n, d, err := pairwise("CosineSimilarity", x, y)
	if err != nil {
		return nil, err
	}
	out, err := newLike(b, tensor.Shape{n}, tensor.Float32)
	if err != nil || n*d == 0 {
		return out, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	aux, err := c.regions(b, 2, n)
	if err != nil {
		return nil, err
	}
	x2, y2 := aux[0], aux[1]
	scale := x2

	err = firstErr(
		func() error { return b.RowReduce(tensor.ReduceDot, n, d, x, x, x2) },
		func() error { return b.RowReduce(tensor.ReduceDot, n, d, y, y, y2) },
		func() error { return b.RowReduce(tensor.ReduceDot, n, d, x, y, out) },
		func() error { return b.Maximum(kEps, x2, x2) },
		func() error { return b.Maximum(kEps, y2, y2) },
		func() error { return b.Mul(x2, y2, scale) },
		func() error { return b.InvSqrt(scale, scale) },
		func() error { return b.Mul(out, scale, out) },
	)
	return out, err
}

// Gradient returns the gradients of cos with respect to x and y:
//
//	dx = y*scale + (-scale*xy/xn^2) * x
//	dy = x*scale + (-scale*xy/yn^2) * y
//
// where xn = sqrt(max(<x,x>, eps)), yn likewise, xy = <x,y> and
// scale = dCos / (xn*yn). Uses 6N scratch.
func (c *CosineSimilarity) Gradient(b tensor.Backend, x, y, dCos *tensor.RawTensor) (dx, dy *tensor.RawTensor, err error) {
	n, d, dx, dy, err := gradientOperands(b, "CosineSimilarityGradient", x, y, dCos)
	if err != nil || n*d == 0 {
		return dx, dy, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	aux, err := c.regions(b, 6, n)
	if err != nil {
		return nil, nil, err
	}
	xn, yn, xy, xyn, scale, axpy := aux[0], aux[1], aux[2], aux[3], aux[4], aux[5]

	err = firstErr(
		func() error { return b.RowReduce(tensor.ReduceDot, n, d, x, x, xn) },
		func() error { return b.Maximum(kEps, xn, xn) },
		func() error { return b.Sqrt(xn, xn) },
		func() error { return b.RowReduce(tensor.ReduceDot, n, d, y, y, yn) },
		func() error { return b.Maximum(kEps, yn, yn) },
		func() error { return b.Sqrt(yn, yn) },
		func() error { return b.Mul(xn, yn, xyn) },
		func() error { return b.RowReduce(tensor.ReduceDot, n, d, x, y, xy) },
		func() error { return b.Div(dCos, xyn, scale) },

		func() error { return b.StripedScale(n, d, scale, y, dx) },
		func() error { return b.AxpyScale(n, scale, xy, xn, axpy) },
		func() error { return b.BatchedAxpy(n, d, axpy, x, dx) },

		func() error { return b.StripedScale(n, d, scale, x, dy) },
		func() error { return b.AxpyScale(n, scale, xy, yn, axpy) },
		func() error { return b.BatchedAxpy(n, d, axpy, y, dy) },
	)
	return dx, dy, err
}
