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

package option

import (
	liberr "github.com/nabbar/coap-engine/errors"
)

const (
	// ErrorMalformed is returned by Decode when a delta or length nibble is
	// 15 outside of the single-byte 0xFF payload marker. Extension bytes or
	// a value running past the input give ErrorMoreDataRequired instead.
	ErrorMalformed liberr.CodeError = iota + liberr.MinPkgOption
	// ErrorMoreDataRequired signals that an option header was cut short by
	// the end of the buffer; meaningful only to the TCP incremental parser,
	// which accumulates more bytes and retries. Never surfaced to the peer.
	ErrorMoreDataRequired
	// ErrorListFull reports an option list capacity overflow. List grows
	// as needed, so Insert never returns it.
	ErrorListFull
	// ErrorEncodeOverflow is returned by Encode when the serialized list
	// would not fit in the destination buffer.
	ErrorEncodeOverflow
)

func init() {
	liberr.RegisterIdFctMessage(ErrorMalformed, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorMalformed:
		return "malformed option: invalid delta/length nibble"
	case ErrorMoreDataRequired:
		return "option header incomplete: more bytes required"
	case ErrorListFull:
		return "option list capacity exceeded"
	case ErrorEncodeOverflow:
		return "encoded option list exceeds destination buffer"
	}

	return liberr.NullMessage
}
