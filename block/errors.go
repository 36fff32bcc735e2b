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

package block

import (
	liberr "github.com/nabbar/coap-engine/errors"
)

const (
	// ErrorMalformed is returned when the block option payload is not 1-3
	// bytes, or decodes to a NUM/SZX combination this transport rejects
	// (BERT over UDP, SZX outside 0..6 when BERT is unsupported).
	ErrorMalformed liberr.CodeError = iota + liberr.MinPkgBlock
	// ErrorNumTooLarge is returned by Encode when NUM does not fit in 20
	// bits (>= 2^20).
	ErrorNumTooLarge
	// ErrorSizeUnsupported is returned by Encode when the requested block
	// size is not a power of two in [16, 1024] (and BERT is disallowed).
	ErrorSizeUnsupported
)

func init() {
	liberr.RegisterIdFctMessage(ErrorMalformed, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorMalformed:
		return "malformed block option payload"
	case ErrorNumTooLarge:
		return "block number exceeds 20 bits"
	case ErrorSizeUnsupported:
		return "unsupported block size"
	}

	return liberr.NullMessage
}
