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
	"github.com/nabbar/coap-engine/option"
	"github.com/nabbar/coap-engine/token"
)

const payloadMarker = 0xFF

// Serialize writes a complete frame (header, token, options, optional
// payload marker + payload) for a message whose entire payload is already
// available. Streamed (chunked) sends are built incrementally by the
// engine instead.
func Serialize(a *buffer.Appender, m message.Message) liberr.Error {
	optBuf := make([]byte, a.Left())
	oa := buffer.NewAppender(optBuf)
	if m.Options != nil {
		if err := m.Options.Encode(oa); err != nil {
			return ErrorFrameTooBig.Error(err)
		}
	}

	bodyLen := oa.Len()
	if len(m.Payload) > 0 {
		bodyLen += 1 + len(m.Payload)
	}

	h := Header{Len: uint32(bodyLen), TKL: uint8(m.Token.Len()), Code: m.Code}
	if err := EncodeHeader(a, h); err != nil {
		return err
	}
	if err := a.Append(m.Token.Bytes()); err != nil {
		return ErrorFrameTooBig.Error(err)
	}
	if err := a.Append(oa.Bytes()); err != nil {
		return ErrorFrameTooBig.Error(err)
	}
	if len(m.Payload) > 0 {
		if err := a.AppendByte(payloadMarker); err != nil {
			return ErrorFrameTooBig.Error(err)
		}
		if err := a.Append(m.Payload); err != nil {
			return ErrorFrameTooBig.Error(err)
		}
	}
	return nil
}

// Parse decodes one complete, already fully-buffered frame from d. The
// returned Message's Token, Options, and Payload alias d's backing array.
func Parse(d *buffer.Dispenser) (message.Message, liberr.Error) {
	h, err := DecodeHeader(d)
	if err != nil {
		return message.Message{}, err
	}

	tokBytes, err := d.ExtractSlice(int(h.TKL))
	if err != nil {
		return message.Message{}, ErrorMoreDataRequired.Error(err)
	}
	tok := token.New(tokBytes)

	body, err := d.ExtractSlice(int(h.Len))
	if err != nil {
		return message.Message{}, ErrorMoreDataRequired.Error(err)
	}

	bd := buffer.NewDispenser(body)
	opts, hasMarker, err := option.Decode(bd)
	if err != nil {
		return message.Message{}, ErrorMalformedOptions.Error(err)
	}

	var payload []byte
	if hasMarker {
		payload = bd.Rest()
	}

	return message.Message{
		Code:             h.Code,
		Token:            tok,
		Options:          opts,
		Payload:          payload,
		TotalPayloadSize: len(payload),
	}, nil
}
