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

package udp_test

import (
	"github.com/nabbar/coap-engine/buffer"
	"github.com/nabbar/coap-engine/message"
	"github.com/nabbar/coap-engine/option"
	"github.com/nabbar/coap-engine/token"
	. "github.com/nabbar/coap-engine/udp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Message codec", func() {
	It("round-trips a request with options and payload", func() {
		opts := option.NewList()
		opts.SetString(11, "rd")

		m := message.Message{
			Type:    message.TypeConfirmable,
			Code:    message.CodePost,
			MsgID:   0xABCD,
			Token:   token.New([]byte{1, 2, 3}),
			Options: opts,
			Payload: []byte("hello"),
		}

		a := buffer.NewAppender(make([]byte, 256))
		Expect(Serialize(a, m)).To(BeNil())

		got, err := Parse(buffer.NewDispenser(a.Bytes()))
		Expect(err).To(BeNil())
		Expect(got.Type).To(Equal(m.Type))
		Expect(got.Code).To(Equal(m.Code))
		Expect(got.MsgID).To(Equal(m.MsgID))
		Expect(got.Token.Equal(m.Token)).To(BeTrue())
		Expect(got.Payload).To(Equal(m.Payload))

		s, ok := got.Options.GetString(11, 0)
		Expect(ok).To(BeTrue())
		Expect(s).To(Equal("rd"))
	})

	It("round-trips an Empty message with no trailing bytes", func() {
		m := message.Message{Type: message.TypeConfirmable, Code: message.CodeEmpty, MsgID: 7}

		a := buffer.NewAppender(make([]byte, HeaderLen))
		Expect(Serialize(a, m)).To(BeNil())

		got, err := Parse(buffer.NewDispenser(a.Bytes()))
		Expect(err).To(BeNil())
		Expect(got.Code).To(Equal(message.CodeEmpty))
		Expect(got.Token.IsEmpty()).To(BeTrue())
	})

	It("rejects an Empty message with trailing bytes", func() {
		raw := []byte{byte(1 << 6), byte(message.CodeEmpty), 0x00, 0x01, 0xAA}
		_, err := Parse(buffer.NewDispenser(raw))
		Expect(err).ToNot(BeNil())
	})

	It("recovers a partial header/token/options from a truncated datagram", func() {
		opts := option.NewList()
		opts.SetString(11, "rd")
		m := message.Message{
			Type:    message.TypeConfirmable,
			Code:    message.CodePost,
			MsgID:   1,
			Token:   token.New([]byte{9, 9}),
			Options: opts,
			Payload: []byte("this payload got cut"),
		}

		a := buffer.NewAppender(make([]byte, 256))
		Expect(Serialize(a, m)).To(BeNil())

		cut := a.Bytes()[:len(a.Bytes())-5]
		tr := ParseTruncated(buffer.NewDispenser(cut))

		Expect(tr.HasToken).To(BeTrue())
		Expect(tr.Token.Equal(m.Token)).To(BeTrue())
		Expect(tr.HasOptions).To(BeTrue())
	})
})
