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

package option_test

import (
	"bytes"

	"github.com/nabbar/coap-engine/buffer"
	. "github.com/nabbar/coap-engine/option"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func encode(l *List) []byte {
	a := buffer.NewAppender(make([]byte, 4096))
	Expect(l.Encode(a)).To(BeNil())
	out := make([]byte, a.Len())
	copy(out, a.Bytes())
	return out
}

func decode(b []byte) (*List, bool) {
	d := buffer.NewDispenser(b)
	l, marker, err := Decode(d)
	Expect(err).To(BeNil())
	return l, marker
}

var _ = Describe("List", func() {
	It("round-trips an empty list", func() {
		l := NewList()
		got, marker := decode(encode(l))
		Expect(marker).To(BeFalse())
		Expect(got.Len()).To(Equal(0))
	})

	It("round-trips options requiring 1-byte delta/length extensions", func() {
		l := NewList()
		l.Insert(1, []byte("a"))
		l.Insert(20, bytes.Repeat([]byte{0x5A}, 20))

		got, _ := decode(encode(l))
		Expect(got.Len()).To(Equal(2))

		v0, ok0 := got.Get(1, 0)
		Expect(ok0).To(BeTrue())
		Expect(v0).To(Equal([]byte("a")))

		v1, ok1 := got.Get(20, 0)
		Expect(ok1).To(BeTrue())
		Expect(v1).To(Equal(bytes.Repeat([]byte{0x5A}, 20)))
	})

	It("round-trips options requiring 2-byte delta/length extensions", func() {
		l := NewList()
		l.Insert(300, bytes.Repeat([]byte{0x01}, 300))

		got, _ := decode(encode(l))
		v, ok := got.Get(300, 0)
		Expect(ok).To(BeTrue())
		Expect(v).To(HaveLen(300))
	})

	It("preserves relative order of repeated option numbers", func() {
		l := NewList()
		l.Insert(11, []byte("a"))
		l.Insert(11, []byte("b"))
		l.Insert(11, []byte("c"))

		got, _ := decode(encode(l))
		Expect(got.Count(11)).To(Equal(3))

		v0, _ := got.Get(11, 0)
		v1, _ := got.Get(11, 1)
		v2, _ := got.Get(11, 2)
		Expect([]string{string(v0), string(v1), string(v2)}).To(Equal([]string{"a", "b", "c"}))
	})

	It("keeps the list ordered by ascending number regardless of insert order", func() {
		l := NewList()
		l.Insert(50, nil)
		l.Insert(10, nil)
		l.Insert(30, nil)

		var numbers []uint16
		for _, o := range l.All() {
			numbers = append(numbers, o.Number)
		}
		Expect(numbers).To(Equal([]uint16{10, 30, 50}))
	})

	It("reports the payload marker was consumed when present", func() {
		a := buffer.NewAppender(make([]byte, 16))
		l := NewList()
		l.Insert(1, []byte("x"))
		Expect(l.Encode(a)).To(BeNil())
		Expect(a.AppendByte(0xFF)).To(BeNil())
		Expect(a.Append([]byte("payload"))).To(BeNil())

		d := buffer.NewDispenser(a.Bytes())
		_, marker, err := Decode(d)
		Expect(err).To(BeNil())
		Expect(marker).To(BeTrue())
		Expect(string(d.Rest())).To(Equal("payload"))
	})

	It("rejects a delta or length nibble of 15 outside the payload marker", func() {
		d := buffer.NewDispenser([]byte{0x1F})
		_, _, err := Decode(d)
		Expect(err).ToNot(BeNil())
	})
})

var _ = Describe("Typed accessors", func() {
	It("zero-extends short uint values", func() {
		l := NewList()
		l.SetUint(12, 0x0102)

		v, ok := l.GetUint(12, 0)
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(0x0102)))
	})

	It("encodes zero as a zero-length option", func() {
		l := NewList()
		l.SetUint(12, 0)

		v, ok := l.Get(12, 0)
		Expect(ok).To(BeTrue())
		Expect(v).To(BeEmpty())
	})

	It("round-trips strings", func() {
		l := NewList()
		l.SetString(11, "rd")

		s, ok := l.GetString(11, 0)
		Expect(ok).To(BeTrue())
		Expect(s).To(Equal("rd"))
	})
})
