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

package udp

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	liberr "github.com/nabbar/coap-engine/errors"
	"github.com/nabbar/coap-engine/message"
	"github.com/nabbar/coap-engine/token"
	"github.com/nabbar/coap-engine/transport"
	"golang.org/x/sync/semaphore"
)

// RetryState tracks the retransmission budget of one confirmable exchange.
type RetryState struct {
	Count   int
	Timeout time.Duration
}

// backoff doubles Timeout for the next retransmission (RFC 7252 section 4.2).
func (r RetryState) backoff() RetryState {
	return RetryState{Count: r.Count + 1, Timeout: r.Timeout * 2}
}

// ResponseHandler reports the outcome of a confirmable exchange: the
// matching response (piggybacked or separate) with a nil error, or a zero
// Message with ErrorTimeout, ErrorResetReceived, or ErrorTruncatedMessage.
// It returns accepted=false to keep the exchange's token registered past
// this delivery, which is how a single token keeps matching further
// confirmable Observe notifications (mirroring tcp.ResponseCallback). The
// return value is only meaningful for an actual response (err == nil); a
// terminal failure discards the exchange regardless of what it returns.
type ResponseHandler func(resp message.Message, err liberr.Error) (accepted bool)

// UnconfirmedMessage is one outstanding confirmable exchange: the bytes
// already handed to the socket once, the retransmission state, and its
// place in the NSTART admission queue.
type UnconfirmedMessage struct {
	Endpoint Endpoint
	Token    token.Token
	MsgID    uint16
	Bytes    []byte
	Retry    RetryState

	// Hold is true while NSTART admission control is withholding the first
	// transmission; false once the message has actually gone on the wire.
	Hold           bool
	NextRetransmit transport.Instant

	// Observe is true when this confirmable message also carries an
	// Observe notification, so an RST reply should drive notify-cache
	// cancellation instead of only failing this one exchange.
	Observe bool

	Callback ResponseHandler

	timer   transport.TimerHandle
	retired int32
}

// retire claims exclusive ownership of u's terminal transition exactly
// once, so a retransmit timer firing concurrently with the matching reply
// arriving can't both finish the same exchange.
func (u *UnconfirmedMessage) retire() bool {
	return atomic.CompareAndSwapInt32(&u.retired, 0, 1)
}

// unconfirmedList is the NSTART-bounded queue of outstanding confirmable
// exchanges for one engine, kept sorted by (Hold, NextRetransmit): active
// exchanges due soonest first, held ones after. Admission itself is a
// counting semaphore (RFC 7252's NSTART budget) rather than a hand-rolled
// counter, so it composes with context-based acquisition if a future
// caller needs to wait for a slot instead of being held.
type unconfirmedList struct {
	mu    sync.Mutex
	items []*UnconfirmedMessage
	sem   *semaphore.Weighted
}

func newUnconfirmedList(nstart int) *unconfirmedList {
	if nstart < 1 {
		nstart = 1
	}
	return &unconfirmedList{sem: semaphore.NewWeighted(int64(nstart))}
}

// admit inserts u into the queue. It returns true if u may be transmitted
// immediately (the NSTART budget allows it), false if u must be held until
// an admitted exchange completes.
func (l *unconfirmedList) admit(u *UnconfirmedMessage) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	send := l.sem.TryAcquire(1)
	u.Hold = !send
	l.insertLocked(u)
	return send
}

func (l *unconfirmedList) insertLocked(u *UnconfirmedMessage) {
	l.items = append(l.items, u)
	sort.SliceStable(l.items, func(i, j int) bool {
		a, b := l.items[i], l.items[j]
		if a.Hold != b.Hold {
			return !a.Hold
		}
		return a.NextRetransmit.Before(b.NextRetransmit)
	})
}

// findByToken returns the outstanding exchange matching tok, if any.
func (l *unconfirmedList) findByToken(tok token.Token) *UnconfirmedMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, u := range l.items {
		if u.Token.Equal(tok) {
			return u
		}
	}
	return nil
}

// findByMsgID returns the outstanding exchange matching msgID, if any
// (used to match an ACK or RST, which carry no token guarantee).
func (l *unconfirmedList) findByMsgID(msgID uint16) *UnconfirmedMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, u := range l.items {
		if u.MsgID == msgID {
			return u
		}
	}
	return nil
}

// remove drops u from the queue and, if u had been admitted (not held),
// promotes the next held entry (resume_next_unconfirmed) so it can be sent.
// The promoted entry (or nil) is returned for the caller to transmit.
func (l *unconfirmedList) remove(u *UnconfirmedMessage) *UnconfirmedMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	wasHeld := u.Hold
	for i, e := range l.items {
		if e == u {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	if wasHeld {
		return nil
	}

	l.sem.Release(1)
	return l.resumeNextUnconfirmedLocked()
}

func (l *unconfirmedList) resumeNextUnconfirmedLocked() *UnconfirmedMessage {
	for _, e := range l.items {
		if e.Hold {
			if !l.sem.TryAcquire(1) {
				return nil
			}
			e.Hold = false
			return e
		}
	}
	return nil
}

// all returns a snapshot of every outstanding exchange, ordered as kept.
func (l *unconfirmedList) all() []*UnconfirmedMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*UnconfirmedMessage, len(l.items))
	copy(out, l.items)
	return out
}

// resort re-establishes the (Hold, NextRetransmit) ordering after u's
// NextRetransmit has been mutated in place (e.g. after a backoff).
func (l *unconfirmedList) resort() {
	l.mu.Lock()
	defer l.mu.Unlock()

	sort.SliceStable(l.items, func(i, j int) bool {
		a, b := l.items[i], l.items[j]
		if a.Hold != b.Hold {
			return !a.Hold
		}
		return a.NextRetransmit.Before(b.NextRetransmit)
	})
}
