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

package option

import (
	"sort"

	"github.com/nabbar/coap-engine/buffer"
	liberr "github.com/nabbar/coap-engine/errors"
)

// payloadMarker is the reserved byte that terminates the option list and
// introduces the message payload.
const payloadMarker = 0xFF

// Option is a single (number, value) pair. Value may be a borrowed slice
// aliasing a Dispenser's backing array (after Decode) or caller-owned bytes
// (after Set/Insert); the list never mutates it in place.
type Option struct {
	Number uint16
	Value  []byte
}

// List is an ordered sequence of Options, always kept sorted by Number
// (stable among equal numbers). It is built and edited as a plain slice;
// the delta/length wire form is computed once at Encode time.
type List struct {
	opts []Option
}

// NewList returns an empty option list.
func NewList() *List {
	return &List{}
}

// Len returns the number of options in the list.
func (l *List) Len() int {
	return len(l.opts)
}

// All returns the options in wire order (not a copy; callers must not
// mutate the returned slice's Option.Value).
func (l *List) All() []Option {
	return l.opts
}

// Get returns the occurrence-th (0-based) value for number, in list order.
func (l *List) Get(number uint16, occurrence int) ([]byte, bool) {
	i := 0
	for _, o := range l.opts {
		if o.Number == number {
			if i == occurrence {
				return o.Value, true
			}
			i++
		}
	}
	return nil, false
}

// Count returns how many options carry the given number.
func (l *List) Count(number uint16) int {
	n := 0
	for _, o := range l.opts {
		if o.Number == number {
			n++
		}
	}
	return n
}

// Insert adds (number, value) into the list, preserving ascending-number
// order and relative order among equal numbers (the new option is placed
// after any existing occurrences of the same number).
func (l *List) Insert(number uint16, value []byte) {
	i := sort.Search(len(l.opts), func(i int) bool { return l.opts[i].Number > number })
	l.opts = append(l.opts, Option{})
	copy(l.opts[i+1:], l.opts[i:])
	l.opts[i] = Option{Number: number, Value: value}
}

// RemoveAll drops every option with the given number.
func (l *List) RemoveAll(number uint16) {
	out := l.opts[:0]
	for _, o := range l.opts {
		if o.Number != number {
			out = append(out, o)
		}
	}
	l.opts = out
}

// GetUint decodes the occurrence-th value for number as a big-endian
// integer, zero-left-extended if the wire value is shorter than 8 bytes.
func (l *List) GetUint(number uint16, occurrence int) (uint64, bool) {
	v, ok := l.Get(number, occurrence)
	if !ok {
		return 0, false
	}

	var out uint64
	for _, b := range v {
		out = out<<8 | uint64(b)
	}
	return out, true
}

// SetUint replaces every occurrence of number with a single option encoding
// v in the minimum number of big-endian bytes (0 bytes if v == 0).
func (l *List) SetUint(number uint16, v uint64) {
	l.RemoveAll(number)
	l.Insert(number, encodeMinimalUint(v))
}

// GetString returns the occurrence-th value for number decoded as a string.
func (l *List) GetString(number uint16, occurrence int) (string, bool) {
	v, ok := l.Get(number, occurrence)
	if !ok {
		return "", false
	}
	return string(v), true
}

// SetString replaces every occurrence of number with a single option
// carrying s's bytes.
func (l *List) SetString(number uint16, s string) {
	l.RemoveAll(number)
	l.Insert(number, []byte(s))
}

func encodeMinimalUint(v uint64) []byte {
	if v == 0 {
		return nil
	}

	var tmp [8]byte
	n := 0
	for v > 0 {
		tmp[n] = byte(v)
		v >>= 8
		n++
	}

	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = tmp[n-1-i]
	}
	return out
}

// Encode serializes the list's delta/length wire form into a. It does NOT
// write the trailing payload marker; callers append 0xFF themselves before
// the payload when a payload is present.
func (l *List) Encode(a *buffer.Appender) liberr.Error {
	var prev uint16

	for _, o := range l.opts {
		delta := int(o.Number) - int(prev)
		length := len(o.Value)

		deltaNibble, deltaExt, deltaExtLen := splitNibble(delta)
		lengthNibble, lengthExt, lengthExtLen := splitNibble(length)

		if err := a.AppendByte(byte(deltaNibble<<4 | lengthNibble)); err != nil {
			return ErrorEncodeOverflow.Error(err)
		}
		if deltaExtLen > 0 {
			if err := a.AppendUintN(uint64(deltaExt), deltaExtLen); err != nil {
				return ErrorEncodeOverflow.Error(err)
			}
		}
		if lengthExtLen > 0 {
			if err := a.AppendUintN(uint64(lengthExt), lengthExtLen); err != nil {
				return ErrorEncodeOverflow.Error(err)
			}
		}
		if err := a.Append(o.Value); err != nil {
			return ErrorEncodeOverflow.Error(err)
		}

		prev = o.Number
	}

	return nil
}

// splitNibble returns the wire nibble for v (delta or length) together with
// any extension value/width per the 13/+13, 14/+269 encoding.
func splitNibble(v int) (nibble int, ext int, extLen int) {
	switch {
	case v < 13:
		return v, 0, 0
	case v < 269:
		return 13, v - 13, 1
	default:
		return 14, v - 269, 2
	}
}

// Decode parses an option list from d, stopping at the 0xFF payload marker
// or when d is exhausted. consumedMarker reports whether a 0xFF byte was
// consumed (i.e. a payload follows).
func Decode(d *buffer.Dispenser) (list *List, consumedMarker bool, err liberr.Error) {
	l := NewList()
	var prev uint16

	for {
		b, ok := d.PeekByte()
		if !ok {
			return l, false, nil
		}

		if b == payloadMarker {
			_, _ = d.ExtractByte()
			return l, true, nil
		}

		_, _ = d.ExtractByte()
		deltaNibble := int(b >> 4)
		lengthNibble := int(b & 0x0F)

		if deltaNibble == 15 || lengthNibble == 15 {
			return l, false, ErrorMalformed.Error(nil)
		}

		delta, e := resolveNibble(d, deltaNibble)
		if e != nil {
			return l, false, e
		}

		length, e := resolveNibble(d, lengthNibble)
		if e != nil {
			return l, false, e
		}

		value, e := d.ExtractSlice(length)
		if e != nil {
			return l, false, ErrorMoreDataRequired.Error(e)
		}

		number := prev + uint16(delta)
		l.opts = append(l.opts, Option{Number: number, Value: value})
		prev = number
	}
}

// resolveNibble reads any extension bytes implied by nibble and returns the
// resolved delta or length value.
func resolveNibble(d *buffer.Dispenser, nibble int) (int, liberr.Error) {
	switch nibble {
	case 13:
		v, err := d.ExtractByte()
		if err != nil {
			return 0, ErrorMoreDataRequired.Error(err)
		}
		return int(v) + 13, nil
	case 14:
		v, err := d.ExtractUint16()
		if err != nil {
			return 0, ErrorMoreDataRequired.Error(err)
		}
		return int(v) + 269, nil
	default:
		return nibble, nil
	}
}
