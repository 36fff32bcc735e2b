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

package config_test

import (
	. "github.com/nabbar/coap-engine/config"

	spfvpr "github.com/spf13/viper"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	It("validates the default model", func() {
		c := New()
		Expect(c.Validate()).To(BeNil())
	})

	It("overlays a viper source on top of the defaults", func() {
		v := spfvpr.New()
		v.Set("nstart", 4)
		v.Set("tcp_max_message_size", 2048)

		c := New()
		Expect(c.Load(v)).To(BeNil())
		Expect(c.Validate()).To(BeNil())

		m := c.Model()
		Expect(m.NStart).To(Equal(4))
		Expect(m.TCPMaxMessageSize).To(Equal(uint32(2048)))
		// fields not present in the viper source keep DefaultModel's values.
		Expect(m.MaxRetransmit).To(Equal(DefaultModel().MaxRetransmit))
	})

	It("rejects NSTART below 1", func() {
		v := spfvpr.New()
		v.Set("nstart", 0)

		c := New()
		Expect(c.Load(v)).To(BeNil())
		err := c.Validate()
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(ErrorValidate)).To(BeTrue())
	})

	It("rejects an ACK_RANDOM_FACTOR below 1", func() {
		v := spfvpr.New()
		v.Set("ack_random_factor", 0.5)

		c := New()
		Expect(c.Load(v)).To(BeNil())
		err := c.Validate()
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(ErrorValidate)).To(BeTrue())
	})

	It("rejects a TCP buffer smaller than the advertised max message size", func() {
		v := spfvpr.New()
		v.Set("tcp_buffer_size", 10)
		v.Set("tcp_max_message_size", 2048)

		c := New()
		Expect(c.Load(v)).To(BeNil())
		err := c.Validate()
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(ErrorValidate)).To(BeTrue())
	})

	It("converts the loaded model into udp.Config and tcp.Config", func() {
		c := New()
		m := c.Model()

		u := m.UDP()
		Expect(u.NStart).To(Equal(m.NStart))
		Expect(u.AckTimeout).To(Equal(m.AckTimeout.Time()))

		t := m.TCP()
		Expect(t.MaxMessageSize).To(Equal(m.TCPMaxMessageSize))
	})

	It("rejects a nil viper instance", func() {
		c := New()
		err := c.Load(nil)
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(ErrorLoad)).To(BeTrue())
	})
})
