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

// Package token implements the CoAP token: a 0-8 byte opaque correlator
// chosen by the sender of a request and echoed verbatim by the peer.
package token

import (
	"encoding/hex"

	"github.com/nabbar/coap-engine/transport"
)

// MaxLen is the maximum token length allowed by RFC 7252 and RFC 8323 (the
// TKL nibble caps out at 8; values 9-15 are reserved).
const MaxLen = 8

// Token is an opaque request/response correlator. The zero value is the
// empty token (length 0), which is itself a valid token.
type Token struct {
	b [MaxLen]byte
	n uint8
}

// New builds a Token from the given bytes. If len(b) > MaxLen it is
// truncated to MaxLen -- callers that size tokens from a PRNG should ask
// for at most MaxLen bytes in the first place.
func New(b []byte) Token {
	if len(b) > MaxLen {
		b = b[:MaxLen]
	}

	var t Token
	t.n = uint8(copy(t.b[:], b))
	return t
}

// Generate draws a new token of length n (0 <= n <= MaxLen) from r.
func Generate(r transport.PRNG, n int) Token {
	if n > MaxLen {
		n = MaxLen
	}
	if n < 0 {
		n = 0
	}

	buf := make([]byte, n)
	if n > 0 {
		r.Bytes(buf)
	}

	return New(buf)
}

// Len returns the token length in bytes.
func (t Token) Len() int {
	return int(t.n)
}

// Bytes returns a copy of the token's bytes.
func (t Token) Bytes() []byte {
	out := make([]byte, t.n)
	copy(out, t.b[:t.n])
	return out
}

// Equal reports whether two tokens have the same length and bytes.
func (t Token) Equal(o Token) bool {
	return t.n == o.n && t.b == o.b
}

// String returns the hex encoding of the token, suitable as a map key or
// for log output.
func (t Token) String() string {
	return hex.EncodeToString(t.b[:t.n])
}

// IsEmpty reports whether the token has zero length.
func (t Token) IsEmpty() bool {
	return t.n == 0
}
