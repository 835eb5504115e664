package operators

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/kernels/internal/ops"
	"github.com/born-ml/kernels/internal/tensor"
)

// OpHandler runs a node on the context's backend and returns its outputs.
type OpHandler func(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error)

// Context provides the backend and per-node operator state.
// The zero value with Backend set is ready to use.
type Context struct {
	Backend tensor.Backend

	mu     sync.Mutex
	cosine map[string]*ops.CosineSimilarity
}

// NewContext returns a context that dispatches to b.
func NewContext(b tensor.Backend) *Context {
	return &Context{Backend: b}
}

// cosineFor returns the operator instance owned by the node, so its scratch
// buffer survives across runs of the same node.
func (c *Context) cosineFor(node *Node) *ops.CosineSimilarity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cosine == nil {
		c.cosine = make(map[string]*ops.CosineSimilarity)
	}
	key := node.OpType + "/" + node.Name
	op, ok := c.cosine[key]
	if !ok {
		op = ops.NewCosineSimilarity()
		c.cosine[key] = op
	}
	return op
}

type registryKey struct {
	op     string
	device tensor.Device
}

// Registry maps (operator name, device) to handler functions.
type Registry struct {
	handlers  map[registryKey]OpHandler
	gradients map[string]GradientMaker
}

// NewRegistry creates a registry with every operator registered on every
// device built into this binary.
func NewRegistry() *Registry {
	r := &Registry{
		handlers:  make(map[registryKey]OpHandler),
		gradients: make(map[string]GradientMaker),
	}

	r.registerDistanceOps()
	r.registerPoolOps()
	r.registerPadOps()
	r.registerUtilityOps()
	r.registerGradients()

	return r
}

// Devices lists the devices operators are registered on by NewRegistry.
func Devices() []tensor.Device {
	return slices.Clone(builtDevices)
}

// Register adds a handler for one device.
func (r *Registry) Register(opType string, device tensor.Device, handler OpHandler) {
	r.handlers[registryKey{opType, device}] = handler
}

// registerAll adds a handler on every built device. Handlers only talk to
// the Backend interface, so the same function serves each device.
func (r *Registry) registerAll(opType string, handler OpHandler) {
	for _, d := range builtDevices {
		r.Register(opType, d, handler)
	}
}

// Get returns the handler for an operator on a device.
func (r *Registry) Get(opType string, device tensor.Device) (OpHandler, bool) {
	h, ok := r.handlers[registryKey{opType, device}]
	return h, ok
}

// Execute runs an operator with the given inputs on the context's backend.
func (r *Registry) Execute(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	device := ctx.Backend.Device()
	handler, ok := r.Get(node.OpType, device)
	if !ok {
		return nil, errors.Wrapf(tensor.ErrUnknownOperator, "%s on %s", node.OpType, device)
	}
	klog.V(1).Infof("dispatch %s on %s (%d inputs)", describe(node), ctx.Backend.Name(), len(inputs))
	return handler(ctx, node, inputs)
}

// SupportedOps returns the sorted operator names registered on a device.
func (r *Registry) SupportedOps(device tensor.Device) []string {
	names := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		if k.device == device {
			names = append(names, k.op)
		}
	}
	slices.Sort(names)
	return names
}
