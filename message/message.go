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

package message

import (
	"github.com/nabbar/coap-engine/option"
	"github.com/nabbar/coap-engine/token"
)

// Well-known option numbers consumed directly by the core (RFC 7252/7641/
// 7959/8613); everything else passes through the OptionList opaquely.
const (
	OptionObserve      uint16 = 6
	OptionUriPath      uint16 = 11
	OptionContentFormat uint16 = 12
	OptionUriQuery     uint16 = 15
	OptionBlock2       uint16 = 23
	OptionBlock1       uint16 = 27
	OptionSize2        uint16 = 28
	OptionSize1        uint16 = 60
	OptionLocationPath uint16 = 8
)

// Message is a borrowed view over a single logical CoAP message: code,
// token, options, and payload all alias the buffer the message was decoded
// from (or will be encoded into). PayloadOffset and TotalPayloadSize let a
// single logical message be streamed across multiple TCP recv chunks; for
// UDP, PayloadOffset is always 0 and TotalPayloadSize equals len(Payload).
type Message struct {
	Type    Type // meaningful for UDP only
	Code    Code
	MsgID   uint16 // meaningful for UDP only
	Token   token.Token
	Options *option.List
	Payload []byte

	PayloadOffset    int
	TotalPayloadSize int
}

// IsComplete reports whether the Message carries its entire payload (true
// for every UDP message, and for a TCP message once PAYLOAD state has
// consumed TotalPayloadSize bytes).
func (m Message) IsComplete() bool {
	return m.PayloadOffset+len(m.Payload) >= m.TotalPayloadSize
}
