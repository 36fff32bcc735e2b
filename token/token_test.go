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

package token_test

import (
	. "github.com/nabbar/coap-engine/token"
	"github.com/nabbar/coap-engine/transport"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Token", func() {
	It("is equal only when same length and bytes", func() {
		a := New([]byte{0x01, 0x02})
		b := New([]byte{0x01, 0x02})
		c := New([]byte{0x01, 0x02, 0x03})

		Expect(a.Equal(b)).To(BeTrue())
		Expect(a.Equal(c)).To(BeFalse())
	})

	It("truncates tokens longer than MaxLen", func() {
		tok := New(make([]byte, 20))
		Expect(tok.Len()).To(Equal(MaxLen))
	})

	It("treats the zero value as the empty token", func() {
		var tok Token
		Expect(tok.IsEmpty()).To(BeTrue())
		Expect(tok.Len()).To(Equal(0))
	})

	It("generates tokens of the requested length from a PRNG", func() {
		p := transport.NewFakePRNG(7)
		tok := Generate(p, 4)
		Expect(tok.Len()).To(Equal(4))
	})

	It("round-trips through Bytes", func() {
		tok := New([]byte{0xDE, 0xAD, 0xBE, 0xEF})
		Expect(tok.Bytes()).To(Equal([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	})
})
