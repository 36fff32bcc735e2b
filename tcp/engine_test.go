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
	"sync"
	"time"

	"github.com/nabbar/coap-engine/buffer"
	liberr "github.com/nabbar/coap-engine/errors"
	"github.com/nabbar/coap-engine/logger"
	"github.com/nabbar/coap-engine/message"
	"github.com/nabbar/coap-engine/metrics"
	"github.com/nabbar/coap-engine/option"
	. "github.com/nabbar/coap-engine/tcp"
	"github.com/nabbar/coap-engine/transport"

	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeStreamSocket is an in-memory transport.Socket double for the
// connection-oriented (no peer-address) TCP engine.
type fakeStreamSocket struct {
	mu      sync.Mutex
	sent    [][]byte
	inbox   [][]byte
	timeout time.Duration
}

func (s *fakeStreamSocket) Send(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	s.sent = append(s.sent, cp)
	return nil
}

func (s *fakeStreamSocket) Recv(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inbox) == 0 {
		return 0, transport.ErrorRecvTimeout.Error(nil)
	}
	b := s.inbox[0]
	s.inbox = s.inbox[1:]
	n := copy(buf, b)
	return n, nil
}

func (s *fakeStreamSocket) SetRecvTimeout(d time.Duration) { s.timeout = d }
func (s *fakeStreamSocket) RecvTimeout() time.Duration     { return s.timeout }
func (s *fakeStreamSocket) Close() error                   { return nil }

func (s *fakeStreamSocket) push(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox = append(s.inbox, b)
}

func (s *fakeStreamSocket) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *fakeStreamSocket) lastSent() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

func (s *fakeStreamSocket) allSent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

func parseFrame(b []byte) message.Message {
	m, err := Parse(buffer.NewDispenser(b))
	Expect(err).To(BeNil())
	return m
}

func mustOptsWithCustody(v []byte) *option.List {
	l := option.NewList()
	if v != nil {
		l.Insert(2, v)
	}
	return l
}

// newHandshakenEngine builds an Engine, drives the CSM handshake against a
// peer CSM queued ahead of time, and returns it ready for test traffic.
func newHandshakenEngine(sock *fakeStreamSocket, clock *transport.FakeClock, sched *transport.FakeScheduler, prng *transport.FakePRNG, onClose func(liberr.Error)) (*Engine, Config) {
	cfg := DefaultConfig()
	cfg.HandshakeTimeout = time.Second

	peerCSM := message.Message{Code: message.CodeCSM, Options: option.NewList()}
	sock.push(frameBytes(peerCSM))

	e := NewEngine(sock, clock, sched, prng, cfg, nil)
	e.OnClose = onClose
	ExpectWithOffset(1, e.Handshake()).To(BeNil())
	return e, cfg
}

var _ = Describe("Engine", func() {
	var (
		sock  *fakeStreamSocket
		clock *transport.FakeClock
		sched *transport.FakeScheduler
		prng  *transport.FakePRNG
	)

	BeforeEach(func() {
		sock = &fakeStreamSocket{}
		clock = transport.NewFakeClock(0)
		sched = transport.NewFakeScheduler()
		prng = transport.NewFakePRNG(1)
	})

	It("sends its own CSM and completes once the peer's CSM arrives", func() {
		e, cfg := newHandshakenEngine(sock, clock, sched, prng, nil)
		_ = e

		first := parseFrame(sock.sent[0])
		Expect(first.Code).To(Equal(message.CodeCSM))
		v, ok := first.Options.GetUint(OptionMaxMessageSize, 0)
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(cfg.MaxMessageSize)))
	})

	It("fails the handshake with ErrorCSMNotReceived if the peer never sends one", func() {
		cfg := DefaultConfig()
		cfg.HandshakeTimeout = time.Second
		e := NewEngine(sock, clock, sched, prng, cfg, nil)

		err := e.Handshake()
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(ErrorCSMNotReceived)).To(BeTrue())
	})

	It("delivers a complete response to SendRequest's callback", func() {
		e, _ := newHandshakenEngine(sock, clock, sched, prng, nil)

		var got message.Message
		var gotStatus ResponseStatus
		tok, err := e.SendRequest(message.Message{Code: message.CodeGet}, func(resp message.Message, status ResponseStatus) bool {
			got, gotStatus = resp, status
			return true
		})
		Expect(err).To(BeNil())

		resp := message.Message{Code: message.CodeContent, Token: tok, Payload: []byte("ok")}
		sock.push(frameBytes(resp))
		Expect(e.ReadOnce()).To(BeNil())

		Expect(gotStatus).To(Equal(StatusOK))
		Expect(got.Payload).To(Equal([]byte("ok")))
	})

	It("invokes the inbound request handler and sends its immediate response", func() {
		var gotReq message.Message
		cfg := DefaultConfig()
		cfg.HandshakeTimeout = time.Second
		peerCSM := message.Message{Code: message.CodeCSM, Options: option.NewList()}
		sock.push(frameBytes(peerCSM))
		e := NewEngine(sock, clock, sched, prng, cfg, func(req message.Message) (message.Message, bool) {
			gotReq = req
			return message.Message{Code: message.CodeContent, Payload: []byte("world")}, true
		})
		Expect(e.Handshake()).To(BeNil())

		req := message.Message{Code: message.CodeGet, Payload: []byte("hello")}
		sock.push(frameBytes(req))
		Expect(e.ReadOnce()).To(BeNil())

		Expect(gotReq.Payload).To(Equal([]byte("hello")))
		sent := parseFrame(sock.lastSent())
		Expect(sent.Code).To(Equal(message.CodeContent))
		Expect(sent.Payload).To(Equal([]byte("world")))
	})

	It("delivers StatusPartial for each non-final chunk and StatusOK for the last", func() {
		e, _ := newHandshakenEngine(sock, clock, sched, prng, nil)

		var statuses []ResponseStatus
		tok, err := e.SendRequest(message.Message{Code: message.CodeGet}, func(resp message.Message, status ResponseStatus) bool {
			statuses = append(statuses, status)
			return true
		})
		Expect(err).To(BeNil())

		payload := make([]byte, 5000)
		resp := message.Message{Code: message.CodeContent, Token: tok, Payload: payload}
		full := frameBytes(resp)

		sock.push(full[:20])
		sock.push(full[20:2500])
		sock.push(full[2500:])
		Expect(e.ReadOnce()).To(BeNil())
		Expect(e.ReadOnce()).To(BeNil())
		Expect(e.ReadOnce()).To(BeNil())

		Expect(len(statuses)).To(BeNumerically(">=", 2))
		for _, s := range statuses[:len(statuses)-1] {
			Expect(s).To(Equal(StatusPartial))
		}
		Expect(statuses[len(statuses)-1]).To(Equal(StatusOK))
	})

	It("keeps a token's registration alive when the callback returns not-accepted (Observe-style)", func() {
		e, _ := newHandshakenEngine(sock, clock, sched, prng, nil)

		deliveries := 0
		tok, err := e.SendRequest(message.Message{Code: message.CodeGet}, func(resp message.Message, status ResponseStatus) bool {
			if status == StatusOK {
				deliveries++
			}
			return false
		})
		Expect(err).To(BeNil())

		resp1 := message.Message{Code: message.CodeContent, Token: tok, Payload: []byte("v1")}
		sock.push(frameBytes(resp1))
		Expect(e.ReadOnce()).To(BeNil())

		resp2 := message.Message{Code: message.CodeContent, Token: tok, Payload: []byte("v2")}
		sock.push(frameBytes(resp2))
		Expect(e.ReadOnce()).To(BeNil())

		Expect(deliveries).To(Equal(2), "both notifications must reach the callback on the same token")
	})

	It("fails a pending request with StatusTimeout once its expiry elapses", func() {
		e, _ := newHandshakenEngine(sock, clock, sched, prng, nil)
		cfg := DefaultConfig()

		m := metrics.New()
		e.SetMetrics(m)
		e.SetLogger(logger.New(nil))

		var gotStatus ResponseStatus
		done := false
		_, err := e.SendRequest(message.Message{Code: message.CodeGet}, func(resp message.Message, status ResponseStatus) bool {
			gotStatus = status
			done = true
			return true
		})
		Expect(err).To(BeNil())

		clock.Advance(cfg.RequestTimeout + time.Second)
		sched.FireDue(clock.Now())

		Expect(done).To(BeTrue())
		Expect(gotStatus).To(Equal(StatusTimeout))
		Expect(testutil.ToFloat64(m.Timeouts.WithLabelValues("tcp"))).To(Equal(1.0))
	})

	It("refuses a new request with ErrorTooManyPending once MaxConcurrentRequests is saturated", func() {
		cfg := DefaultConfig()
		cfg.HandshakeTimeout = time.Second
		cfg.MaxConcurrentRequests = 1
		peerCSM := message.Message{Code: message.CodeCSM, Options: option.NewList()}
		sock.push(frameBytes(peerCSM))
		e := NewEngine(sock, clock, sched, prng, cfg, nil)
		Expect(e.Handshake()).To(BeNil())

		_, err1 := e.SendRequest(message.Message{Code: message.CodeGet}, func(message.Message, ResponseStatus) bool { return true })
		Expect(err1).To(BeNil())

		_, err2 := e.SendRequest(message.Message{Code: message.CodeGet}, func(message.Message, ResponseStatus) bool { return true })
		Expect(err2).ToNot(BeNil())
		Expect(err2.IsCode(ErrorTooManyPending)).To(BeTrue())

		// a fire-and-forget send (nil callback) never consumes a slot.
		_, err3 := e.SendRequest(message.Message{Code: message.CodeGet}, nil)
		Expect(err3).To(BeNil())
	})

	It("delivers StatusCancel once and stops tracking the exchange when AbortDelivery is called", func() {
		e, _ := newHandshakenEngine(sock, clock, sched, prng, nil)

		var gotStatus ResponseStatus
		calls := 0
		tok, err := e.SendRequest(message.Message{Code: message.CodeGet}, func(resp message.Message, status ResponseStatus) bool {
			gotStatus = status
			calls++
			return true
		})
		Expect(err).To(BeNil())

		Expect(e.AbortDelivery(tok)).To(BeTrue())
		Expect(calls).To(Equal(1))
		Expect(gotStatus).To(Equal(StatusCancel))

		// a later response for the same token finds nothing registered.
		resp := message.Message{Code: message.CodeContent, Token: tok, Payload: []byte("late")}
		sock.push(frameBytes(resp))
		Expect(e.ReadOnce()).To(BeNil())
		Expect(calls).To(Equal(1))

		Expect(e.AbortDelivery(tok)).To(BeFalse())
	})

	It("replies 5.00 Internal Server Error and recovers when a request's options exceed MaxOptionsCacheSize", func() {
		cfg := DefaultConfig()
		cfg.HandshakeTimeout = time.Second
		cfg.MaxOptionsCacheSize = 2
		peerCSM := message.Message{Code: message.CodeCSM, Options: option.NewList()}
		sock.push(frameBytes(peerCSM))
		e := NewEngine(sock, clock, sched, prng, cfg, func(req message.Message) (message.Message, bool) {
			return message.Message{Code: message.CodeContent}, true
		})
		Expect(e.Handshake()).To(BeNil())

		// header declares a 12-byte body of complete one-byte options, but
		// only the first three ever arrive in this recv: the declared body
		// is not yet complete, so the cap is checked before the marker (or
		// the declared end) is reached.
		header := []byte{0xC0, byte(message.CodeGet)}
		opts := []byte{0x10, 0x10, 0x10, 0x10, 0x10, 0x10, 0x10, 0x10, 0x10, 0x10, 0x10, 0x10}
		sock.push(append(header, opts[:3]...))
		Expect(e.ReadOnce()).To(BeNil())

		last := parseFrame(sock.lastSent())
		Expect(last.Code).To(Equal(message.CodeInternalServerError))

		good := message.Message{Code: message.CodeGet}
		sock.push(append(opts[3:], frameBytes(good)...))
		Expect(e.ReadOnce()).To(BeNil())
		last = parseFrame(sock.lastSent())
		Expect(last.Code).To(Equal(message.CodeContent))
	})

	It("sends ABORT and refuses further sends once the connection is poisoned", func() {
		e, _ := newHandshakenEngine(sock, clock, sched, prng, nil)

		m := metrics.New()
		e.SetMetrics(m)

		// a malformed frame forces the engine to ABORT.
		bad := []byte{0x10, 0x01, 0xE0}
		sock.push(bad)
		Expect(e.ReadOnce()).ToNot(BeNil())

		last := parseFrame(sock.lastSent())
		Expect(last.Code).To(Equal(message.CodeAbort))

		_, err := e.SendRequest(message.Message{Code: message.CodeGet}, nil)
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(ErrorAbortSent)).To(BeTrue())
		Expect(testutil.ToFloat64(m.ConnectionsClosed.WithLabelValues("abort_sent"))).To(Equal(1.0))
	})
})
