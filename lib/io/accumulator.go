package iolib

import (
	"bytes"
	"fmt"
)

// Accumulator is a byte buffer that is appended at the tail and consumed
// from the head. A byte handed out by [Accumulator.Take] is never seen again.
//
// Consumed bytes are tracked by a head index and reclaimed lazily,
// so neither Append nor Take copies the whole buffer.
type Accumulator struct {
	buf  []byte
	head int // index of the first unconsumed byte in buf.
}

func NewAccumulator(initialCap int) *Accumulator {
	return &Accumulator{buf: make([]byte, 0, initialCap)}
}

// Len returns the number of unconsumed bytes.
func (a *Accumulator) Len() int { return len(a.buf) - a.head }

// Append adds p to the tail.
func (a *Accumulator) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	a.reclaim(len(p))
	a.buf = append(a.buf, p...)
}

// Index returns the index of the first occurrence of delim in the unconsumed
// bytes, or -1 if it is not present.
//
// The whole buffer is scanned on every call.
func (a *Accumulator) Index(delim []byte) int {
	return bytes.Index(a.buf[a.head:], delim)
}

// Take removes and returns the first n unconsumed bytes.
// Returned slice is owned by the caller.
// It panics if less than n bytes are buffered.
func (a *Accumulator) Take(n int) []byte {
	if n < 0 || n > a.Len() {
		panic(fmt.Sprintf("accumulator: take %d bytes out of %d", n, a.Len()))
	}

	out := make([]byte, n)
	copy(out, a.buf[a.head:a.head+n])
	a.head += n

	if a.head == len(a.buf) {
		// Everything is consumed. Rewind and keep the capacity.
		a.buf = a.buf[:0]
		a.head = 0
	}

	return out
}

// reclaim shifts unconsumed bytes to the front of the backing array
// when appending incoming bytes would otherwise grow it,
// and the consumed prefix is at least as long as the live part.
// Each live byte is moved at most once per consumed byte, so copying stays linear.
func (a *Accumulator) reclaim(incoming int) {
	if a.head == 0 || len(a.buf)+incoming <= cap(a.buf) {
		return
	}

	live := a.Len()
	if a.head < live {
		return
	}

	copy(a.buf, a.buf[a.head:])
	a.buf = a.buf[:live]
	a.head = 0
}
