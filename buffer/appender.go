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

// Appender is a one-way write cursor over a caller-owned, fixed-capacity
// byte slice. It never grows or reallocates its backing array: Append fails
// once the slice is full instead of silently extending it.
type Appender struct {
	buf []byte
	pos int
}

// NewAppender wraps buf for appending, starting at offset 0. buf is not
// copied; every Append writes directly into it.
func NewAppender(buf []byte) *Appender {
	return &Appender{buf: buf}
}

// Len returns the number of bytes written so far.
func (a *Appender) Len() int {
	return a.pos
}

// Cap returns the total capacity of the backing slice.
func (a *Appender) Cap() int {
	return len(a.buf)
}

// Left returns the number of bytes that can still be appended.
func (a *Appender) Left() int {
	return len(a.buf) - a.pos
}

// Bytes returns the slice of bytes written so far (not a copy).
func (a *Appender) Bytes() []byte {
	return a.buf[:a.pos]
}

// Append writes data to the buffer and advances the cursor. It fails with
// ErrorBufferOverflow if len(data) exceeds the remaining capacity; on
// failure no bytes are written.
func (a *Appender) Append(data []byte) liberr.Error {
	if len(data) > a.Left() {
		return ErrorBufferOverflow.Error(nil)
	}

	a.pos += copy(a.buf[a.pos:], data)
	return nil
}

// AppendByte writes a single byte to the buffer.
func (a *Appender) AppendByte(b byte) liberr.Error {
	return a.Append([]byte{b})
}

// AppendUint16 writes v as two big-endian bytes.
func (a *Appender) AppendUint16(v uint16) liberr.Error {
	if a.Left() < 2 {
		return ErrorBufferOverflow.Error(nil)
	}

	binary.BigEndian.PutUint16(a.buf[a.pos:], v)
	a.pos += 2
	return nil
}

// AppendUint32 writes v as four big-endian bytes.
func (a *Appender) AppendUint32(v uint32) liberr.Error {
	if a.Left() < 4 {
		return ErrorBufferOverflow.Error(nil)
	}

	binary.BigEndian.PutUint32(a.buf[a.pos:], v)
	a.pos += 4
	return nil
}

// AppendUint64 writes v as eight big-endian bytes.
func (a *Appender) AppendUint64(v uint64) liberr.Error {
	if a.Left() < 8 {
		return ErrorBufferOverflow.Error(nil)
	}

	binary.BigEndian.PutUint64(a.buf[a.pos:], v)
	a.pos += 8
	return nil
}

// AppendUintN writes the low n bytes of v, big-endian, with 0 <= n <= 8.
// Used for the block-option NUM field and other variable-width integers.
func (a *Appender) AppendUintN(v uint64, n int) liberr.Error {
	if n < 0 || n > 8 {
		return ErrorBufferOverflow.Error(nil)
	}

	if a.Left() < n {
		return ErrorBufferOverflow.Error(nil)
	}

	for i := n - 1; i >= 0; i-- {
		a.buf[a.pos+i] = byte(v)
		v >>= 8
	}

	a.pos += n
	return nil
}

// Reset rewinds the cursor to the start of the buffer without clearing it.
func (a *Appender) Reset() {
	a.pos = 0
}
