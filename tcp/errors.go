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
	liberr "github.com/nabbar/coap-engine/errors"
)

const (
	// ErrorMalformedHeader is returned when the framing header's token
	// length (TKL) is greater than 8. Missing Len-nibble extension bytes
	// give ErrorMoreDataRequired instead.
	ErrorMalformedHeader liberr.CodeError = iota + liberr.MinPkgTCP
	// ErrorMalformedOptions mirrors udp.ErrorMalformedOptions for the
	// stream framing's option list.
	ErrorMalformedOptions
	// ErrorMoreDataRequired is the internal "need another recv" signal of
	// the incremental parser; never surfaced to the peer.
	ErrorMoreDataRequired
	// ErrorFrameTooBig is returned when an outbound frame does not fit the
	// connection's shared buffer or the peer's advertised max-message-size.
	ErrorFrameTooBig
	// ErrorTimeout is returned when a pending request's expire_time elapses
	// before a matching response arrives.
	ErrorTimeout
	// ErrorCSMNotReceived is returned when the peer's CSM does not arrive
	// before the handshake deadline.
	ErrorCSMNotReceived
	// ErrorUnknownCriticalCSMOption is returned when the peer's CSM frame
	// carries a critical (odd-numbered) option this engine doesn't
	// recognize, per RFC 7252 section 5.4.1.
	ErrorUnknownCriticalCSMOption
	// ErrorReleaseReceived is returned to the caller when the peer sends
	// RELEASE: the connection should be torn down.
	ErrorReleaseReceived
	// ErrorAbortReceived is returned to the caller when the peer sends
	// ABORT.
	ErrorAbortReceived
	// ErrorAbortSent is returned by Send/Recv once this engine has sent its
	// own ABORT; the connection is poisoned.
	ErrorAbortSent
	// ErrorConnectionClosed is returned once the underlying socket has
	// been closed.
	ErrorConnectionClosed
	// ErrorTooManyPending is returned by SendRequest when
	// Config.MaxConcurrentRequests outstanding requests are already
	// awaiting a response on this connection.
	ErrorTooManyPending
	// ErrorTruncatedMessage is returned by Parser.Feed when a frame's
	// TOKEN+OPTIONS bytes exceed Config.MaxOptionsCacheSize before the
	// payload marker or declared body end is seen; the message is
	// discarded but the connection is not aborted.
	ErrorTruncatedMessage
)

func init() {
	liberr.RegisterIdFctMessage(ErrorMalformedHeader, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorMalformedHeader:
		return "malformed TCP framing header"
	case ErrorMalformedOptions:
		return "malformed option list"
	case ErrorMoreDataRequired:
		return "more data required"
	case ErrorFrameTooBig:
		return "frame too big for buffer or peer max-message-size"
	case ErrorTimeout:
		return "pending request expired"
	case ErrorCSMNotReceived:
		return "peer CSM not received before deadline"
	case ErrorUnknownCriticalCSMOption:
		return "unknown critical CSM option"
	case ErrorReleaseReceived:
		return "peer released the connection"
	case ErrorAbortReceived:
		return "peer aborted the connection"
	case ErrorAbortSent:
		return "connection aborted locally"
	case ErrorConnectionClosed:
		return "connection closed"
	case ErrorTooManyPending:
		return "too many concurrent pending requests"
	case ErrorTruncatedMessage:
		return "truncated message received"
	}

	return liberr.NullMessage
}
