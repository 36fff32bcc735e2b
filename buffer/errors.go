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

package buffer

import (
	liberr "github.com/nabbar/coap-engine/errors"
)

const (
	// ErrorBufferOverflow is returned by Appender.Append when n exceeds the
	// remaining capacity of the buffer.
	ErrorBufferOverflow liberr.CodeError = iota + liberr.MinPkgBuffer
	// ErrorBufferUnderflow is returned by Dispenser.Extract when n exceeds
	// the remaining unread bytes.
	ErrorBufferUnderflow
)

func init() {
	liberr.RegisterIdFctMessage(ErrorBufferOverflow, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorBufferOverflow:
		return "buffer capacity exceeded while appending"
	case ErrorBufferUnderflow:
		return "not enough bytes remaining while extracting"
	}

	return liberr.NullMessage
}
