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

import "fmt"

// Code is the 8-bit (class, detail) pair carried by every CoAP message.
type Code uint8

// NewCode packs a class (0-7) and detail (0-31) into a Code.
func NewCode(class, detail uint8) Code {
	return Code(class<<5 | (detail & 0x1F))
}

// Class returns the code's class (top 3 bits).
func (c Code) Class() uint8 {
	return uint8(c) >> 5
}

// Detail returns the code's detail (bottom 5 bits).
func (c Code) Detail() uint8 {
	return uint8(c) & 0x1F
}

// String renders the code in the conventional "C.DD" form, e.g. "2.05".
func (c Code) String() string {
	return fmt.Sprintf("%d.%02d", c.Class(), c.Detail())
}

// IsRequest reports whether c is a method code (class 0, detail != 0).
func (c Code) IsRequest() bool {
	return c.Class() == 0 && c != CodeEmpty
}

// IsResponse reports whether c is a response code (class 2, 4, or 5).
func (c Code) IsResponse() bool {
	switch c.Class() {
	case 2, 4, 5:
		return true
	default:
		return false
	}
}

// IsSignaling reports whether c is a TCP-only signaling code (class 7).
func (c Code) IsSignaling() bool {
	return c.Class() == 7
}

// Empty message and method (request) codes.
var (
	CodeEmpty = NewCode(0, 0)

	CodeGet    = NewCode(0, 1)
	CodePost   = NewCode(0, 2)
	CodePut    = NewCode(0, 3)
	CodeDelete = NewCode(0, 4)
	CodeFetch  = NewCode(0, 5)
	CodePatch  = NewCode(0, 6)
	CodeIPatch = NewCode(0, 7)
)

// Success response codes (class 2).
var (
	CodeCreated  = NewCode(2, 1)
	CodeDeleted  = NewCode(2, 2)
	CodeValid    = NewCode(2, 3)
	CodeChanged  = NewCode(2, 4)
	CodeContent  = NewCode(2, 5)
	CodeContinue = NewCode(2, 31)
)

// Client error response codes (class 4).
var (
	CodeBadRequest       = NewCode(4, 0)
	CodeUnauthorized     = NewCode(4, 1)
	CodeBadOption        = NewCode(4, 2)
	CodeForbidden        = NewCode(4, 3)
	CodeNotFound         = NewCode(4, 4)
	CodeMethodNotAllowed = NewCode(4, 5)
	CodeNotAcceptable    = NewCode(4, 6)
	CodeRequestEntityTooLarge = NewCode(4, 13)
	CodeUnsupportedContentFormat = NewCode(4, 15)
)

// Server error response codes (class 5).
var (
	CodeInternalServerError  = NewCode(5, 0)
	CodeNotImplemented       = NewCode(5, 1)
	CodeBadGateway           = NewCode(5, 2)
	CodeServiceUnavailable   = NewCode(5, 3)
	CodeGatewayTimeout       = NewCode(5, 4)
	CodeProxyingNotSupported = NewCode(5, 5)
)

// Signaling codes (class 7, TCP only: RFC 8323 section 5).
var (
	CodeCSM     = NewCode(7, 1)
	CodePing    = NewCode(7, 2)
	CodePong    = NewCode(7, 3)
	CodeRelease = NewCode(7, 4)
	CodeAbort   = NewCode(7, 5)
)
