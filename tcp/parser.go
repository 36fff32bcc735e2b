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

// DefaultOptionsCacheSize bounds how many TOKEN+OPTIONS bytes Feed will
// accumulate for one frame before its payload marker (or declared body
// end) has been seen. RFC 8323 puts no ceiling of its own on a frame's
// declared length, so without this bound a peer advertising a huge Len
// and trickling bytes in slowly could grow Parser.buf without limit.
const DefaultOptionsCacheSize = 4096

// parserState is one state of the incremental receive state machine
// (RFC 8323 framing arrives in arbitrary TCP fragments).
type parserState int

const (
	stateHeader parserState = iota
	stateBody               // accumulating TKL+options bytes, looking for the payload marker or the declared body end
	statePayload            // streaming payload bytes chunk by chunk
	stateIgnoring
)

// Parser incrementally decodes a stream of RFC 8323 frames out of
// arbitrarily-fragmented TCP reads. Feed may be called any number of
// times with however many bytes a single recv happened to return; it
// invokes onChunk once per payload chunk that becomes available,
// including a final zero-length chunk for a message with no payload.
// Bytes belonging to a second, pipelined frame present in the same Feed
// call are retained and processed in the same call once the first frame
// completes.
type Parser struct {
	state parserState
	buf   []byte

	hdr Header
	msg message.Message

	totalPayload     int
	payloadDelivered int

	ignoreRemaining int

	optionsCacheCap int
	truncCode       message.Code
	truncToken      token.Token
}

// NewParser returns a Parser ready to decode the first frame on a fresh
// connection, bounding TOKEN+OPTIONS accumulation at DefaultOptionsCacheSize.
func NewParser() *Parser {
	return NewParserWithCapacity(DefaultOptionsCacheSize)
}

// NewParserWithCapacity is NewParser with an explicit TOKEN+OPTIONS
// accumulation bound (see Feed).
func NewParserWithCapacity(optionsCacheCap int) *Parser {
	if optionsCacheCap < 1 {
		optionsCacheCap = DefaultOptionsCacheSize
	}
	return &Parser{state: stateHeader, optionsCacheCap: optionsCacheCap}
}

// TruncatedInfo returns the code and token of the message most recently
// abandoned for exceeding the options-cache capacity. It is only
// meaningful immediately after Feed returns ErrorTruncatedMessage.
func (p *Parser) TruncatedInfo() (message.Code, token.Token) {
	return p.truncCode, p.truncToken
}

// Feed processes data, invoking onChunk for each payload chunk that
// becomes available. It returns the first parse error encountered (after
// which the parser has entered IGNORING and will drain and discard the
// rest of the malformed frame on subsequent Feed calls).
func (p *Parser) Feed(data []byte, onChunk func(message.Message)) liberr.Error {
	p.buf = append(p.buf, data...)

	var firstErr liberr.Error

	for {
		switch p.state {
		case stateHeader:
			h, err := DecodeHeader(buffer.NewDispenser(p.buf))
			if err != nil {
				if liberr.IsCode(err, ErrorMoreDataRequired) {
					return firstErr
				}
				if firstErr == nil {
					firstErr = err
				}
				p.buf = nil
				return firstErr
			}
			p.hdr = h
			p.buf = p.buf[h.sizeOf():]
			p.state = stateBody

		case stateBody:
			if len(p.buf) < int(p.hdr.TKL) {
				return firstErr
			}

			tokBytes := p.buf[:p.hdr.TKL]
			bodyBuf := p.buf[p.hdr.TKL:]
			declared := int(p.hdr.Len)

			capBody := bodyBuf
			if len(capBody) > declared {
				capBody = capBody[:declared]
			}

			bd := buffer.NewDispenser(capBody)
			opts, hasMarker, err := option.Decode(bd)
			if err != nil {
				if liberr.IsCode(err, option.ErrorMoreDataRequired) && len(capBody) < declared {
					// an option header or value is cut by the end of the bytes
					// received so far: keep buffering.
					if int(p.hdr.TKL)+len(capBody) > p.optionsCacheCap {
						return p.overflow(tokBytes, declared, len(capBody))
					}
					return firstErr
				}
				if firstErr == nil {
					firstErr = ErrorMalformedOptions.Error(err)
				}
				p.buf = nil
				p.enterIgnoring(declared - len(capBody))
				continue
			}

			consumed := bd.Pos()
			if !hasMarker && consumed < declared {
				if int(p.hdr.TKL)+consumed > p.optionsCacheCap {
					return p.overflow(tokBytes, declared, consumed)
				}
				// ran out of buffered bytes before the payload marker or the
				// declared body end: keep buffering.
				return firstErr
			}

			p.msg = message.Message{Code: p.hdr.Code, Token: token.New(tokBytes), Options: opts}
			p.totalPayload = declared - consumed
			p.payloadDelivered = 0

			available := len(bodyBuf) - consumed
			if available > p.totalPayload {
				available = p.totalPayload
			}
			leftover := bodyBuf[consumed : consumed+available]
			p.buf = bodyBuf[consumed+available:] // bytes, if any, belonging to a pipelined next frame
			p.state = statePayload
			p.deliverChunk(leftover, onChunk)

		case statePayload:
			remaining := p.totalPayload - p.payloadDelivered
			if remaining == 0 {
				p.state = stateHeader
				continue
			}
			if len(p.buf) == 0 {
				return firstErr
			}
			n := len(p.buf)
			if n > remaining {
				n = remaining
			}
			chunk := p.buf[:n]
			p.buf = p.buf[n:]
			p.deliverChunk(chunk, onChunk)

		case stateIgnoring:
			if p.ignoreRemaining == 0 {
				p.state = stateHeader
				continue
			}
			if len(p.buf) == 0 {
				return firstErr
			}
			n := len(p.buf)
			if n > p.ignoreRemaining {
				n = p.ignoreRemaining
			}
			p.buf = p.buf[n:]
			p.ignoreRemaining -= n
		}
	}
}

// overflow abandons the message whose TOKEN+OPTIONS bytes just exceeded
// optionsCacheCap: it records the code/token for the caller to act on,
// discards whatever of this frame's body has not yet arrived, and resumes
// parsing at the next frame.
func (p *Parser) overflow(tokBytes []byte, declared, consumed int) liberr.Error {
	p.truncCode = p.hdr.Code
	p.truncToken = token.New(tokBytes)
	p.buf = nil
	p.enterIgnoring(declared - consumed)
	return ErrorTruncatedMessage.Error(nil)
}

func (p *Parser) deliverChunk(chunk []byte, onChunk func(message.Message)) {
	m := p.msg
	m.Payload = chunk
	m.PayloadOffset = p.payloadDelivered
	m.TotalPayloadSize = p.totalPayload
	p.payloadDelivered += len(chunk)

	if onChunk != nil {
		onChunk(m)
	}
	if p.payloadDelivered >= p.totalPayload {
		p.state = stateHeader
	}
}

func (p *Parser) enterIgnoring(remaining int) {
	if remaining < 0 {
		remaining = 0
	}
	p.state = stateIgnoring
	p.ignoreRemaining = remaining
}
