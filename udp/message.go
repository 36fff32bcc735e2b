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
	"github.com/nabbar/coap-engine/option"
	"github.com/nabbar/coap-engine/token"
)

const payloadMarker = 0xFF

// Serialize writes a complete datagram (header, token, options, optional
// payload marker + payload) into a.
func Serialize(a *buffer.Appender, m message.Message) liberr.Error {
	h := Header{Type: m.Type, TKL: uint8(m.Token.Len()), Code: m.Code, MsgID: m.MsgID}
	if err := EncodeHeader(a, h); err != nil {
		return err
	}

	if err := a.Append(m.Token.Bytes()); err != nil {
		return ErrorMessageTooBig.Error(err)
	}

	if m.Options != nil {
		if err := m.Options.Encode(a); err != nil {
			return ErrorMessageTooBig.Error(err)
		}
	}

	if len(m.Payload) > 0 {
		if err := a.AppendByte(payloadMarker); err != nil {
			return ErrorMessageTooBig.Error(err)
		}
		if err := a.Append(m.Payload); err != nil {
			return ErrorMessageTooBig.Error(err)
		}
	}

	return nil
}

// Parse decodes a complete datagram from d. The returned Message's Token,
// Options, and Payload alias d's backing array.
func Parse(d *buffer.Dispenser) (message.Message, liberr.Error) {
	h, err := DecodeHeader(d)
	if err != nil {
		return message.Message{}, err
	}

	if h.Code == message.CodeEmpty {
		if d.Left() != 0 {
			return message.Message{}, ErrorMalformedMessage.Error(nil)
		}
		return message.Message{
			Type:  h.Type,
			Code:  h.Code,
			MsgID: h.MsgID,
		}, nil
	}

	tokBytes, err := d.ExtractSlice(int(h.TKL))
	if err != nil {
		return message.Message{}, ErrorMalformedMessage.Error(err)
	}
	tok := token.New(tokBytes)

	opts, hasMarker, err := option.Decode(d)
	if err != nil {
		return message.Message{}, ErrorMalformedOptions.Error(err)
	}

	var payload []byte
	if hasMarker {
		payload = d.Rest()
		_ = d.Skip(d.Left())
	}

	return message.Message{
		Type:             h.Type,
		Code:             h.Code,
		MsgID:            h.MsgID,
		Token:            tok,
		Options:          opts,
		Payload:          payload,
		TotalPayloadSize: len(payload),
	}, nil
}

// Truncated is the partial decode result of ParseTruncated: whichever of
// (header, token, options) survived a short read reported as EMSGSIZE by
// the socket.
type Truncated struct {
	Header     Header
	HasToken   bool
	Token      token.Token
	HasOptions bool
	Options    *option.List
}

// ParseTruncated decodes as much of a short-read datagram as possible
// instead of failing outright, so the caller can still reply 4.13 (for a
// truncated request) or fail the matching exchange with
// ErrorTruncatedMessage (for a truncated response).
func ParseTruncated(d *buffer.Dispenser) Truncated {
	var out Truncated

	h, err := DecodeHeader(d)
	if err != nil {
		return out
	}
	out.Header = h

	if h.Code == message.CodeEmpty {
		return out
	}

	tokBytes, err := d.ExtractSlice(int(h.TKL))
	if err != nil {
		return out
	}
	out.Token = token.New(tokBytes)
	out.HasToken = true

	opts, _, err := option.Decode(d)
	if err != nil {
		return out
	}
	out.Options = opts
	out.HasOptions = true

	return out
}
