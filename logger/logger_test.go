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

package logger_test

import (
	"errors"

	. "github.com/nabbar/coap-engine/logger"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	It("attaches remote/token/msg_id fields to the emitted entry", func() {
		base, hook := test.NewNullLogger()
		base.SetLevel(logrus.DebugLevel)

		l := New(base).WithRemote("10.0.0.1:5683").WithToken("ab").WithMsgID(42)
		l.Debug("retransmitting")

		Expect(hook.LastEntry()).ToNot(BeNil())
		Expect(hook.LastEntry().Message).To(Equal("retransmitting"))
		Expect(hook.LastEntry().Data[FieldRemote]).To(Equal("10.0.0.1:5683"))
		Expect(hook.LastEntry().Data[FieldToken]).To(Equal("ab"))
		Expect(hook.LastEntry().Data[FieldMsgID]).To(Equal("42"))
	})

	It("does not mutate the parent Logger's fields when deriving a child", func() {
		base, hook := test.NewNullLogger()
		parent := New(base).WithRemote("host-a")
		child := parent.WithToken("tok")

		child.Info("child event")
		Expect(hook.LastEntry().Data[FieldRemote]).To(Equal("host-a"))
		Expect(hook.LastEntry().Data[FieldToken]).To(Equal("tok"))

		parent.Warn("parent event")
		Expect(hook.LastEntry().Data).ToNot(HaveKey(FieldToken))
	})

	It("attaches the error message via WithError and ignores a nil error", func() {
		base, hook := test.NewNullLogger()
		l := New(base).WithError(errors.New("boom"))
		l.Error("failed")
		Expect(hook.LastEntry().Data[FieldError]).To(Equal("boom"))

		l2 := New(base).WithError(nil)
		l2.Error("still failed")
		Expect(hook.LastEntry().Data).ToNot(HaveKey(FieldError))
	})

	It("SetLevel suppresses entries below the configured level", func() {
		base, hook := test.NewNullLogger()
		l := New(base)
		l.SetLevel(logrus.WarnLevel)

		l.Debug("should not appear")
		Expect(hook.Entries).To(BeEmpty())

		l.Warn("should appear")
		Expect(hook.LastEntry().Message).To(Equal("should appear"))
	})
})
