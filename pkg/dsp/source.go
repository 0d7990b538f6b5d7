package dsp

import "errors"

// ErrNilSource is the panic value used when a unit is wired to a nil upstream.
var ErrNilSource = errors.New("upstream source cannot be nil")

// Source is the pull contract every unit implements. Fill writes every slot
// of buf and returns len(buf). Units that wrap an upstream call its Fill
// first and then transform the buffer in place.
type Source interface {
	Fill(buf []int16) int
}

// SourceFunc allows using a function as a Source.
type SourceFunc func(buf []int16) int

func (f SourceFunc) Fill(buf []int16) int {
	return f(buf)
}

// Silence is a Source that produces zeros.
var Silence Source = SourceFunc(func(buf []int16) int {
	Clear(buf)
	return len(buf)
})

// MustSource panics with ErrNilSource if src is nil. Unit constructors call
// it so miswiring fails when the chain is assembled, not while rendering.
func MustSource(src Source) Source {
	if src == nil {
		panic(ErrNilSource)
	}
	return src
}

// Clear zeroes a buffer - no allocations
func Clear(buf []int16) {
	for i := range buf {
		buf[i] = 0
	}
}
