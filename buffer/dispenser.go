/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package buffer

import (
	"encoding/binary"

	liberr "github.com/nabbar/coap-engine/errors"
)

// Dispenser is a one-way read cursor over a caller-owned byte slice. It
// never mutates the backing array; Extract fails once the remaining bytes
// are insufficient instead of returning a short read.
type Dispenser struct {
	buf []byte
	pos int
}

// NewDispenser wraps buf for reading, starting at offset 0.
func NewDispenser(buf []byte) *Dispenser {
	return &Dispenser{buf: buf}
}

// Pos returns the current read offset.
func (d *Dispenser) Pos() int {
	return d.pos
}

// Len returns the total length of the backing slice.
func (d *Dispenser) Len() int {
	return len(d.buf)
}

// Left returns the number of bytes not yet consumed.
func (d *Dispenser) Left() int {
	return len(d.buf) - d.pos
}

// Rest returns the unread remainder of the buffer (not a copy).
func (d *Dispenser) Rest() []byte {
	return d.buf[d.pos:]
}

// PeekByte returns the next byte without advancing the cursor. ok is false
// if no bytes remain.
func (d *Dispenser) PeekByte() (b byte, ok bool) {
	if d.Left() < 1 {
		return 0, false
	}

	return d.buf[d.pos], true
}

// Extract copies n bytes into out (which must have length >= n) and
// advances the cursor. It fails with ErrorBufferUnderflow if fewer than n
// bytes remain.
func (d *Dispenser) Extract(out []byte, n int) liberr.Error {
	if n > d.Left() {
		return ErrorBufferUnderflow.Error(nil)
	}

	copy(out, d.buf[d.pos:d.pos+n])
	d.pos += n
	return nil
}

// ExtractSlice returns a borrowed slice of the next n bytes and advances the
// cursor. The returned slice aliases the Dispenser's backing array.
func (d *Dispenser) ExtractSlice(n int) ([]byte, liberr.Error) {
	if n > d.Left() {
		return nil, ErrorBufferUnderflow.Error(nil)
	}

	s := d.buf[d.pos : d.pos+n]
	d.pos += n
	return s, nil
}

// ExtractByte reads and returns a single byte.
func (d *Dispenser) ExtractByte() (byte, liberr.Error) {
	if d.Left() < 1 {
		return 0, ErrorBufferUnderflow.Error(nil)
	}

	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ExtractUint16 reads two big-endian bytes as a uint16.
func (d *Dispenser) ExtractUint16() (uint16, liberr.Error) {
	if d.Left() < 2 {
		return 0, ErrorBufferUnderflow.Error(nil)
	}

	v := binary.BigEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

// ExtractUint32 reads four big-endian bytes as a uint32.
func (d *Dispenser) ExtractUint32() (uint32, liberr.Error) {
	if d.Left() < 4 {
		return 0, ErrorBufferUnderflow.Error(nil)
	}

	v := binary.BigEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// ExtractUintN reads n big-endian bytes (0 <= n <= 8) zero-extended into a
// uint64. Used for typed option accessors where the wire value may be
// shorter than the accessor's declared width.
func (d *Dispenser) ExtractUintN(n int) (uint64, liberr.Error) {
	if n < 0 || n > 8 {
		return 0, ErrorBufferUnderflow.Error(nil)
	}

	if n > d.Left() {
		return 0, ErrorBufferUnderflow.Error(nil)
	}

	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(d.buf[d.pos+i])
	}

	d.pos += n
	return v, nil
}

// Skip advances the cursor by n bytes without copying, failing if fewer
// than n bytes remain.
func (d *Dispenser) Skip(n int) liberr.Error {
	if n > d.Left() {
		return ErrorBufferUnderflow.Error(nil)
	}

	d.pos += n
	return nil
}
