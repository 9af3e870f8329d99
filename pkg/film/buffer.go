package film

import (
	"math"
	"sync/atomic"
)

// pixelBuffer is a raster of fixed-stride float64 cells updated with atomic adds.
// Each value is stored as its IEEE-754 bit pattern so readers never see a torn float.
type pixelBuffer struct {
	width, height int
	stride        int
	data          []atomic.Uint64
}

func newPixelBuffer(width, height, stride int) *pixelBuffer {
	return &pixelBuffer{
		width:  width,
		height: height,
		stride: stride,
		data:   make([]atomic.Uint64, width*height*stride),
	}
}

// add atomically adds delta to component c of pixel (x, y)
func (b *pixelBuffer) add(x, y, c int, delta float64) {
	if delta == 0 {
		return
	}
	atomicAddFloat64(&b.data[(y*b.width+x)*b.stride+c], delta)
}

// get atomically loads component c of pixel (x, y)
func (b *pixelBuffer) get(x, y, c int) float64 {
	return math.Float64frombits(b.data[(y*b.width+x)*b.stride+c].Load())
}

// addBuffer accumulates every cell of other into b
func (b *pixelBuffer) addBuffer(other *pixelBuffer) {
	for i := range other.data {
		v := math.Float64frombits(other.data[i].Load())
		if v != 0 {
			atomicAddFloat64(&b.data[i], v)
		}
	}
}

func (b *pixelBuffer) clear() {
	for i := range b.data {
		b.data[i].Store(0)
	}
}

func atomicAddFloat64(addr *atomic.Uint64, delta float64) {
	for {
		old := addr.Load()
		updated := math.Float64bits(math.Float64frombits(old) + delta)
		if addr.CompareAndSwap(old, updated) {
			return
		}
	}
}

// atomicFloat64 is a single float64 counter with atomic add
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Add(delta float64) {
	atomicAddFloat64(&a.bits, delta)
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *atomicFloat64) Store(v float64) {
	a.bits.Store(math.Float64bits(v))
}
