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

package tcp

import (
	"github.com/nabbar/coap-engine/buffer"
	liberr "github.com/nabbar/coap-engine/errors"
	"github.com/nabbar/coap-engine/message"
)

// extLen13/14/15 bias the three extended-length encodings (RFC 8323
// section 3.2).
const (
	lenNibbleMax  = 12
	extLen13Bias  = 13
	extLen14Bias  = 269
	extLen15Bias  = 65805
)

// Header is the decoded form of a variable-length TCP framing header: the
// combined options-and-payload length, the token length, and the code.
type Header struct {
	Len   uint32
	TKL   uint8
	Code  message.Code
}

// sizeOf returns the total on-wire size of h's header (1 length/TKL byte +
// 0/1/2/4 extension bytes + 1 code byte), not counting the token.
func (h Header) sizeOf() int {
	switch {
	case h.Len < extLen13Bias:
		return 2
	case h.Len < extLen14Bias:
		return 3
	case h.Len < extLen15Bias:
		return 4
	default:
		return 6
	}
}

// EncodeHeader writes h's variable-length header to a.
func EncodeHeader(a *buffer.Appender, h Header) liberr.Error {
	if h.TKL > 8 {
		return ErrorMalformedHeader.Error(nil)
	}

	var lenNibble byte
	switch {
	case h.Len < extLen13Bias:
		lenNibble = byte(h.Len)
	case h.Len < extLen14Bias:
		lenNibble = 13
	case h.Len < extLen15Bias:
		lenNibble = 14
	default:
		lenNibble = 15
	}

	if err := a.AppendByte(lenNibble<<4 | h.TKL); err != nil {
		return ErrorFrameTooBig.Error(err)
	}

	switch lenNibble {
	case 13:
		if err := a.AppendByte(byte(h.Len - extLen13Bias)); err != nil {
			return ErrorFrameTooBig.Error(err)
		}
	case 14:
		if err := a.AppendUint16(uint16(h.Len - extLen14Bias)); err != nil {
			return ErrorFrameTooBig.Error(err)
		}
	case 15:
		if err := a.AppendUint32(h.Len - extLen15Bias); err != nil {
			return ErrorFrameTooBig.Error(err)
		}
	}

	if err := a.AppendByte(byte(h.Code)); err != nil {
		return ErrorFrameTooBig.Error(err)
	}
	return nil
}

// DecodeHeader parses a variable-length TCP framing header from d.
func DecodeHeader(d *buffer.Dispenser) (Header, liberr.Error) {
	b0, err := d.ExtractByte()
	if err != nil {
		return Header{}, ErrorMoreDataRequired.Error(err)
	}

	lenNibble := b0 >> 4
	tkl := b0 & 0x0F
	if tkl > 8 {
		return Header{}, ErrorMalformedHeader.Error(nil)
	}

	var length uint32
	switch {
	case lenNibble <= lenNibbleMax:
		length = uint32(lenNibble)
	case lenNibble == 13:
		b, e := d.ExtractByte()
		if e != nil {
			return Header{}, ErrorMoreDataRequired.Error(e)
		}
		length = uint32(b) + extLen13Bias
	case lenNibble == 14:
		v, e := d.ExtractUint16()
		if e != nil {
			return Header{}, ErrorMoreDataRequired.Error(e)
		}
		length = uint32(v) + extLen14Bias
	case lenNibble == 15:
		v, e := d.ExtractUint32()
		if e != nil {
			return Header{}, ErrorMoreDataRequired.Error(e)
		}
		length = v + extLen15Bias
	}

	codeByte, err := d.ExtractByte()
	if err != nil {
		return Header{}, ErrorMoreDataRequired.Error(err)
	}

	return Header{Len: length, TKL: tkl, Code: message.Code(codeByte)}, nil
}
