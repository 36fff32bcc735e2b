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

package tcp_test

import (
	"time"

	"github.com/nabbar/coap-engine/message"
	"github.com/nabbar/coap-engine/token"
	"github.com/nabbar/coap-engine/transport"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// pendingList itself is unexported; its PARTIAL/OK/"not accepted" and
// expiry-ordering behavior is exercised end-to-end through Engine in
// engine_test.go's "Engine" specs. These cover the smaller
// building blocks it's built from.
var _ = Describe("transport.Instant ordering used by the pending registry", func() {
	It("sorts earlier expiry before later expiry", func() {
		clk := transport.NewFakeClock(0)
		now := clk.Now()
		later := now.Add(time.Second)
		Expect(now.Before(later)).To(BeTrue())
		Expect(later.After(now)).To(BeTrue())
	})
})

var _ = Describe("token-keyed correlation", func() {
	It("treats equal token bytes as equal regardless of allocation", func() {
		a := token.New([]byte{1, 2, 3})
		b := token.New([]byte{1, 2, 3})
		Expect(a.Equal(b)).To(BeTrue())
	})
})

var _ = Describe("message.Message.IsComplete", func() {
	It("is false until payload_offset+len reaches total_payload_size", func() {
		m := message.Message{Payload: []byte("ab"), PayloadOffset: 0, TotalPayloadSize: 5}
		Expect(m.IsComplete()).To(BeFalse())

		m = message.Message{Payload: []byte("cde"), PayloadOffset: 2, TotalPayloadSize: 5}
		Expect(m.IsComplete()).To(BeTrue())
	})
})
