//go:build windows

package webgpu

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/kernels/internal/tensor"
)

// maxWorkgroups bounds the grid along x. Shaders stride over the rest.
const maxWorkgroups = 65535

const (
	storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	stagingUsage = wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
)

// operand is one storage binding of a launch, in binding order.
type operand struct {
	data   []byte
	upload bool // the shader reads the current contents
	write  bool // copied back to data after the launch
}

func input(t *tensor.RawTensor) operand  { return operand{data: t.Data(), upload: true} }
func output(t *tensor.RawTensor) operand { return operand{data: t.Data(), write: true} }
func inout(t *tensor.RawTensor) operand  { return operand{data: t.Data(), upload: true, write: true} }

// kernel describes one dispatch. The uniform params follow the storage
// bindings.
type kernel struct {
	name     string
	code     string
	groups   int // workgroups along x before clamping
	params   []uint32
	operands []operand
}

// elementwise returns enough groups for one invocation per element.
func elementwise(n int) int {
	return (n + workgroupSize - 1) / workgroupSize
}

func f32bits(v float32) uint32 {
	return math.Float32bits(v)
}

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()
	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	// Auto layout (nil layout)
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()
	return pipeline
}

// align4 rounds a byte size up for storage bindings, which may not be empty.
func align4(size int) uint64 {
	if size < 4 {
		return 4
	}
	//nolint:gosec // G115: size is non-negative
	return uint64((size + 3) &^ 3)
}

// createBuffer creates a buffer of size bytes holding data.
func (b *Backend) createBuffer(data []byte, size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mapped, data)
	buffer.Unmap()
	return buffer
}

// createUniformBuffer packs the params as consecutive 32-bit words.
// Uniform buffers require 16-byte alignment.
func (b *Backend) createUniformBuffer(params []uint32) (*wgpu.Buffer, uint64) {
	size := uint64(len(params)*4+15) &^ 15
	if size == 0 {
		size = 16
	}
	data := make([]byte, size)
	for i, p := range params {
		binary.LittleEndian.PutUint32(data[i*4:], p)
	}
	return b.createBuffer(data, size, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst), size
}

// launch runs a kernel to completion and copies written operands back.
// Device failures are recorded and reported by Synchronize.
func (b *Backend) launch(k kernel) error {
	b.launchMu.Lock()
	defer b.launchMu.Unlock()

	if b.device == nil {
		return errors.Wrapf(tensor.ErrLaunchFailed, "%s: backend released", k.name)
	}
	if b.failed() {
		klog.V(2).Infof("webgpu: skipping %s after an earlier failure", k.name)
		return nil
	}
	groups := min(max(k.groups, 1), maxWorkgroups)
	klog.V(2).Infof("webgpu: launch %s groups=%d operands=%d", k.name, groups, len(k.operands))

	defer func() {
		if r := recover(); r != nil {
			b.fail(k.name, r)
		}
	}()
	if err := b.dispatch(k, groups); err != nil {
		b.fail(k.name, err)
	}
	return nil
}

func (b *Backend) dispatch(k kernel, groups int) error {
	shader := b.compileShader(k.name, k.code)
	pipeline := b.getOrCreatePipeline(k.name, shader)

	type bound struct {
		buffer   *wgpu.Buffer
		size     uint64
		capacity uint64 // non-zero for pooled buffers
	}
	buffers := make([]bound, len(k.operands))
	defer func() {
		for _, bb := range buffers {
			switch {
			case bb.buffer == nil:
			case bb.capacity > 0:
				b.pool.Release(bb.buffer, bb.capacity, storageUsage)
			default:
				bb.buffer.Release()
			}
		}
	}()

	entries := make([]wgpu.BindGroupEntry, 0, len(k.operands)+1)
	for i, op := range k.operands {
		size := align4(len(op.data))
		if op.upload {
			buffers[i] = bound{buffer: b.createBuffer(op.data, size, storageUsage), size: size}
		} else {
			buffer, capacity := b.pool.Acquire(size, storageUsage)
			buffers[i] = bound{buffer: buffer, size: size, capacity: capacity}
		}
		//nolint:gosec // G115: binding index is small
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buffers[i].buffer, 0, size))
	}
	params, paramsSize := b.createUniformBuffer(k.params)
	defer params.Release()
	//nolint:gosec // G115: binding index is small
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(k.operands)), params, 0, paramsSize))

	bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	//nolint:gosec // G115: groups is clamped to maxWorkgroups
	computePass.DispatchWorkgroups(uint32(groups), 1, 1)
	computePass.End()

	// Copy every written operand to a staging buffer in the same submission.
	type readback struct {
		staging  *wgpu.Buffer
		capacity uint64
		size     uint64
		dst      []byte
	}
	var reads []readback
	defer func() {
		for _, r := range reads {
			b.pool.Release(r.staging, r.capacity, stagingUsage)
		}
	}()
	for i, op := range k.operands {
		if !op.write || len(op.data) == 0 {
			continue
		}
		staging, capacity := b.pool.Acquire(buffers[i].size, stagingUsage)
		encoder.CopyBufferToBuffer(buffers[i].buffer, 0, staging, 0, buffers[i].size)
		reads = append(reads, readback{staging: staging, capacity: capacity, size: buffers[i].size, dst: op.data})
	}
	b.queue.Submit(encoder.Finish(nil))

	for _, r := range reads {
		if err := r.staging.MapAsync(b.device, wgpu.MapModeRead, 0, r.size); err != nil {
			return errors.Wrap(err, "map staging buffer")
		}
		mappedPtr := r.staging.GetMappedRange(0, r.size)
		//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
		copy(r.dst, unsafe.Slice((*byte)(mappedPtr), r.size))
		r.staging.Unmap()
	}
	return nil
}
