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

package transport

import (
	liberr "github.com/nabbar/coap-engine/errors"
)

const (
	// ErrorTruncated is returned by Socket.Recv when the peer's datagram was
	// larger than buf; buf holds as many leading bytes as fit.
	ErrorTruncated liberr.CodeError = iota + liberr.MinPkgTransport
	// ErrorRecvTimeout is returned by Socket.Recv when no data arrived
	// before the configured receive timeout elapsed.
	ErrorRecvTimeout
	// ErrorSocketClosed is returned by Send/Recv once Close has been called.
	ErrorSocketClosed
)

func init() {
	liberr.RegisterIdFctMessage(ErrorTruncated, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorTruncated:
		return "datagram truncated: peer payload exceeded receive buffer"
	case ErrorRecvTimeout:
		return "receive timed out"
	case ErrorSocketClosed:
		return "socket is closed"
	}

	return liberr.NullMessage
}
