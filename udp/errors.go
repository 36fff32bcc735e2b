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
	liberr "github.com/nabbar/coap-engine/errors"
)

const (
	// ErrorMalformedMessage is returned when the fixed header violates an
	// RFC 7252 invariant (bad version, TKL > 8, ACK carrying a request
	// code, RST with a non-empty code, or Empty code with trailing bytes).
	ErrorMalformedMessage liberr.CodeError = iota + liberr.MinPkgUDP
	// ErrorMalformedOptions is returned when the option list fails to
	// decode; causes a 4.02 Bad Option reply for requests.
	ErrorMalformedOptions
	// ErrorTruncatedMessage is returned by ParseTruncated's caller when a
	// truncated response cannot be matched to a cached request.
	ErrorTruncatedMessage
	// ErrorTimeout is returned when an exchange's retransmissions are
	// exhausted (retry_count >= MAX_RETRANSMIT).
	ErrorTimeout
	// ErrorResetReceived is returned when the peer RST's a confirmable
	// exchange.
	ErrorResetReceived
	// ErrorMessageTooBig is returned when an outbound message does not fit
	// the shared buffer.
	ErrorMessageTooBig
	// ErrorCancelled is returned to a pending exchange's callback when the
	// application voluntarily ends it via Engine.AbortDelivery instead of
	// it completing, timing out, or being reset by the peer.
	ErrorCancelled
)

func init() {
	liberr.RegisterIdFctMessage(ErrorMalformedMessage, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorMalformedMessage:
		return "malformed UDP message header"
	case ErrorMalformedOptions:
		return "malformed option list"
	case ErrorTruncatedMessage:
		return "truncated message received"
	case ErrorTimeout:
		return "all retransmissions exhausted"
	case ErrorResetReceived:
		return "peer reset the exchange"
	case ErrorMessageTooBig:
		return "message too big for buffer"
	case ErrorCancelled:
		return "exchange cancelled by application"
	}

	return liberr.NullMessage
}
