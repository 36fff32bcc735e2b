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

package udp

import (
	"github.com/nabbar/coap-engine/buffer"
	liberr "github.com/nabbar/coap-engine/errors"
	"github.com/nabbar/coap-engine/message"
)

// HeaderLen is the fixed size of the UDP CoAP header (RFC 7252 section 3).
const HeaderLen = 4

// protocolVersion is the only version value RFC 7252 defines.
const protocolVersion = 1

// Header is the decoded form of the fixed 4-byte UDP header.
type Header struct {
	Type  message.Type
	TKL   uint8
	Code  message.Code
	MsgID uint16
}

// EncodeHeader writes the 4-byte header to a.
func EncodeHeader(a *buffer.Appender, h Header) liberr.Error {
	if h.TKL > 8 {
		return ErrorMalformedMessage.Error(nil)
	}

	b0 := byte(protocolVersion<<6) | byte(h.Type)<<4 | h.TKL
	if err := a.AppendByte(b0); err != nil {
		return ErrorMalformedMessage.Error(err)
	}
	if err := a.AppendByte(byte(h.Code)); err != nil {
		return ErrorMalformedMessage.Error(err)
	}
	if err := a.AppendUint16(h.MsgID); err != nil {
		return ErrorMalformedMessage.Error(err)
	}

	return nil
}

// DecodeHeader parses and validates the fixed 4-byte header from d.
func DecodeHeader(d *buffer.Dispenser) (Header, liberr.Error) {
	b0, err := d.ExtractByte()
	if err != nil {
		return Header{}, ErrorMalformedMessage.Error(err)
	}

	version := b0 >> 6
	typ := message.Type((b0 >> 4) & 0x03)
	tkl := b0 & 0x0F

	if version != protocolVersion {
		return Header{}, ErrorMalformedMessage.Error(nil)
	}
	if tkl > 8 {
		return Header{}, ErrorMalformedMessage.Error(nil)
	}

	codeByte, err := d.ExtractByte()
	if err != nil {
		return Header{}, ErrorMalformedMessage.Error(err)
	}
	code := message.Code(codeByte)

	msgID, err := d.ExtractUint16()
	if err != nil {
		return Header{}, ErrorMalformedMessage.Error(err)
	}

	h := Header{Type: typ, TKL: tkl, Code: code, MsgID: msgID}
	if e := h.validate(); e != nil {
		return Header{}, e
	}

	return h, nil
}

func (h Header) validate() liberr.Error {
	if h.Type == message.TypeAcknowledgement && h.Code.IsRequest() {
		return ErrorMalformedMessage.Error(nil)
	}
	if h.Type == message.TypeReset && h.Code != message.CodeEmpty {
		return ErrorMalformedMessage.Error(nil)
	}
	return nil
}
