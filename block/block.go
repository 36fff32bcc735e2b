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

package block

import (
	liberr "github.com/nabbar/coap-engine/errors"
)

// maxNum is the largest representable block number (20 bits).
const maxNum = 1<<20 - 1

// Value is a decoded BLOCK1/BLOCK2 option payload.
type Value struct {
	// Num is the zero-based index of this block.
	Num uint32
	// More is true if additional blocks follow this one.
	More bool
	// SZX is the size exponent; actual block size is 1 << (SZX + 4), except
	// SZX == 7 which is the BERT "unbounded" marker (TCP only).
	SZX uint8
}

// Size returns the block size in bytes for non-BERT values (SZX 0..6).
func (v Value) Size() int {
	return 1 << (uint(v.SZX) + 4)
}

// IsBERT reports whether v uses the BERT (SZX == 7) encoding.
func (v Value) IsBERT() bool {
	return v.SZX == 7
}

// SZXForSize returns the SZX exponent for a power-of-two block size in
// [16, 1024], or ok == false if size is not representable.
func SZXForSize(size int) (szx uint8, ok bool) {
	for s := 0; s <= 6; s++ {
		if size == 1<<(s+4) {
			return uint8(s), true
		}
	}
	return 0, false
}

// Encode serializes v into its 1-3 byte wire payload. allowBERT must be true
// for the TCP transport when both peers advertised block-wise-transfer
// support in CSM; the UDP transport always passes false.
func Encode(v Value, allowBERT bool) ([]byte, liberr.Error) {
	if v.Num > maxNum {
		return nil, ErrorNumTooLarge.Error(nil)
	}
	if v.SZX == 7 && !allowBERT {
		return nil, ErrorSizeUnsupported.Error(nil)
	}
	if v.SZX > 7 {
		return nil, ErrorSizeUnsupported.Error(nil)
	}

	low := byte(v.Num&0x0F) << 4
	if v.More {
		low |= 0x08
	}
	low |= v.SZX & 0x07

	switch {
	case v.Num < 1<<4:
		return []byte{low}, nil
	case v.Num < 1<<12:
		return []byte{byte(v.Num >> 4), low}, nil
	default:
		return []byte{byte(v.Num >> 12), byte(v.Num >> 4), low}, nil
	}
}

// Decode parses a 1-3 byte BLOCK1/BLOCK2 option payload. allowBERT mirrors
// Encode's parameter: when false, SZX == 7 is rejected as malformed.
func Decode(payload []byte, allowBERT bool) (Value, liberr.Error) {
	if len(payload) < 1 || len(payload) > 3 {
		return Value{}, ErrorMalformed.Error(nil)
	}

	low := payload[len(payload)-1]
	szx := low & 0x07
	more := low&0x08 != 0

	if szx == 7 && !allowBERT {
		return Value{}, ErrorMalformed.Error(nil)
	}

	var num uint32
	for i := 0; i < len(payload)-1; i++ {
		num = num<<8 | uint32(payload[i])
	}
	num = num<<4 | uint32(low>>4)

	return Value{Num: num, More: more, SZX: szx}, nil
}
