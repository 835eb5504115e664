//go:build windows

package webgpu

import (
	"math/bits"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

const (
	minPooledSize = 256 // bytes; smaller requests share this class
	maxPerClass   = 16  // idle buffers kept per (size, usage) class
)

// poolKey is a size class together with the usage flags, since a buffer's
// usage is fixed at creation.
type poolKey struct {
	size  uint64
	usage wgpu.BufferUsage
}

// PoolStats counts buffer pool activity.
type PoolStats struct {
	Allocated uint64
	Released  uint64
	Hits      uint64
	Misses    uint64
	Idle      int
}

// BufferPool reuses device buffers between launches. Sizes are rounded up
// to a power of two so nearby requests share a class.
type BufferPool struct {
	device *wgpu.Device

	mu    sync.Mutex
	idle  map[poolKey][]*wgpu.Buffer
	stats PoolStats
}

// NewBufferPool creates a new buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		idle:   make(map[poolKey][]*wgpu.Buffer),
	}
}

// sizeClass rounds size up to the pooled capacity.
func sizeClass(size uint64) uint64 {
	if size <= minPooledSize {
		return minPooledSize
	}
	return 1 << bits.Len64(size-1)
}

// Acquire returns a buffer of at least size bytes and its capacity. The
// capacity must be passed back to Release.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, uint64) {
	key := poolKey{sizeClass(size), usage}

	p.mu.Lock()
	defer p.mu.Unlock()

	if free := p.idle[key]; len(free) > 0 {
		buffer := free[len(free)-1]
		p.idle[key] = free[:len(free)-1]
		p.stats.Hits++
		p.stats.Idle--
		return buffer, key.size
	}

	p.stats.Misses++
	p.stats.Allocated++
	buffer := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  key.size,
	})
	return buffer, key.size
}

// Release returns a buffer to its class, or frees it when the class is full.
func (p *BufferPool) Release(buffer *wgpu.Buffer, capacity uint64, usage wgpu.BufferUsage) {
	key := poolKey{capacity, usage}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Released++
	if len(p.idle[key]) >= maxPerClass {
		buffer.Release()
		return
	}
	p.idle[key] = append(p.idle[key], buffer)
	p.stats.Idle++
}

// Clear frees every idle buffer.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, free := range p.idle {
		for _, buffer := range free {
			buffer.Release()
		}
		delete(p.idle, key)
	}
	p.stats.Idle = 0
}

// Stats returns a snapshot of the pool counters.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
