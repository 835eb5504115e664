package cpu

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// atomicAddFloat32 adds delta to *addr with a compare-and-swap loop on the
// bit pattern.
func atomicAddFloat32(addr *float32, delta float32) {
	bits := (*uint32)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint32(bits)
		updated := math.Float32bits(math.Float32frombits(old) + delta)
		if atomic.CompareAndSwapUint32(bits, old, updated) {
			return
		}
	}
}
