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

package tcp

import (
	"sort"
	"sync"

	"github.com/nabbar/coap-engine/message"
	"github.com/nabbar/coap-engine/token"
	"github.com/nabbar/coap-engine/transport"
	"golang.org/x/sync/semaphore"
)

// ResponseStatus classifies one delivery to a PendingRequest's Callback.
type ResponseStatus int

const (
	// StatusPartial is a non-final chunk of a streamed response: the
	// registration stays alive and its expiry is refreshed.
	StatusPartial ResponseStatus = iota
	// StatusOK is the final chunk of a response. The callback may still
	// return false (not accepted) to keep the registration alive, which is
	// how a single token keeps matching repeated Observe-style responses.
	StatusOK
	// StatusTimeout is delivered once ExpireTime elapses with no response.
	StatusTimeout
	// StatusCancel is delivered once to a registration that
	// Engine.AbortDelivery terminated voluntarily, before ExpireTime and
	// without a response.
	StatusCancel
)

// ResponseCallback is invoked as chunks of a matching response arrive. It
// returns accepted=false to keep the registration alive past a StatusOK
// delivery (used for subsequent responses on an observed token).
type ResponseCallback func(resp message.Message, status ResponseStatus) (accepted bool)

// PendingRequest is one outstanding request awaiting a response, keyed by
// token rather than by any TCP-connection message ID (RFC 8323 streams
// carry no message IDs).
type PendingRequest struct {
	Token      token.Token
	ExpireTime transport.Instant
	Callback   ResponseCallback
}

// pendingList is the expiry-ordered registry of outstanding requests on one
// connection, admission-bounded by a counting semaphore so a connection
// cannot accumulate an unlimited number of awaited responses.
type pendingList struct {
	mu    sync.Mutex
	items []*PendingRequest
	sem   *semaphore.Weighted
}

func newPendingList(maxConcurrent int) *pendingList {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &pendingList{sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// tryAdmit reserves one concurrency slot for a new pending request. It
// returns false once MaxConcurrentRequests outstanding requests are already
// awaiting a response on this connection.
func (l *pendingList) tryAdmit() bool {
	return l.sem.TryAcquire(1)
}

// release gives back a concurrency slot reserved by tryAdmit without ever
// having added a PendingRequest for it (used when sending the request frame
// itself fails).
func (l *pendingList) release() {
	l.sem.Release(1)
}

// add inserts p, keeping the list sorted by ExpireTime ascending so head()
// always names the next request due to time out.
func (l *pendingList) add(p *PendingRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, p)
	l.sortLocked()
}

func (l *pendingList) sortLocked() {
	sort.SliceStable(l.items, func(i, j int) bool {
		return l.items[i].ExpireTime.Before(l.items[j].ExpireTime)
	})
}

// findByToken returns the pending request matching tok, if any.
func (l *pendingList) findByToken(tok token.Token) *PendingRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.items {
		if p.Token.Equal(tok) {
			return p
		}
	}
	return nil
}

// refresh pushes p's ExpireTime forward (a StatusPartial chunk arrived) and
// re-sorts the list.
func (l *pendingList) refresh(p *PendingRequest, newExpire transport.Instant) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p.ExpireTime = newExpire
	l.sortLocked()
}

// remove drops p from the registry and releases its concurrency slot.
func (l *pendingList) remove(p *PendingRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.items {
		if e == p {
			l.items = append(l.items[:i], l.items[i+1:]...)
			l.sem.Release(1)
			return
		}
	}
}

// head returns the request due to expire soonest, for scheduling the single
// connection-wide expiry timer.
func (l *pendingList) head() *PendingRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.items) == 0 {
		return nil
	}
	return l.items[0]
}

// takeExpired removes and returns every request whose ExpireTime is not
// after now, in expiry order, for the timeout job to fail in turn.
func (l *pendingList) takeExpired(now transport.Instant) []*PendingRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	var expired []*PendingRequest
	i := 0
	for i < len(l.items) && !l.items[i].ExpireTime.After(now) {
		expired = append(expired, l.items[i])
		i++
	}
	l.items = l.items[i:]
	for range expired {
		l.sem.Release(1)
	}
	return expired
}

// all returns a snapshot of every pending request, ordered by expiry.
func (l *pendingList) all() []*PendingRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*PendingRequest, len(l.items))
	copy(out, l.items)
	return out
}
