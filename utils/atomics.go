package utils

import (
	"runtime"
	"sync/atomic"
)

// Returns the value held before the OR.
//
//go:nosplit
func AtomicOrUint32(targetVal *uint32, mask uint32) (old uint32) {
	for {
		old = atomic.LoadUint32(targetVal)
		if old|mask == old || atomic.CompareAndSwapUint32(targetVal, old, old|mask) {
			return old
		}
	}
}

// Returns the value held before the AND.
//
//go:nosplit
func AtomicAndUint32(targetVal *uint32, mask uint32) (old uint32) {
	for {
		old = atomic.LoadUint32(targetVal)
		if old&mask == old || atomic.CompareAndSwapUint32(targetVal, old, old&mask) {
			return old
		}
	}
}

// One-shot flag. Set reports whether the flag was already set (test-and-set).
type Flag struct {
	v atomic.Uint32
}

func (f *Flag) Set() (wasSet bool) { return f.v.Swap(1) == 1 }
func (f *Flag) IsSet() bool        { return f.v.Load() == 1 }
func (f *Flag) Clear()             { f.v.Store(0) }

// Number of busy iterations before a spinner starts yielding its processor.
const SPIN_YIELD = 64

// Called on each failed poll of a spin-wait loop. Busy spins first, then yields so that
// spinners cannot starve the goroutine they are waiting on when threads exceed GOMAXPROCS.
func Spin(count int) {
	if count >= SPIN_YIELD {
		runtime.Gosched()
	}
}

// Test-and-set spin lock for tiny critical sections.
type SpinLock struct {
	state atomic.Uint32
}

func (l *SpinLock) Lock() {
	for i := 0; !l.state.CompareAndSwap(0, 1); i++ {
		Spin(i)
	}
}

func (l *SpinLock) Unlock() {
	l.state.Store(0)
}
