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

package transport

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// FakeClock is a manually-advanced Clock for deterministic tests of
// retransmission and expiry logic.
type FakeClock struct {
	mu  sync.Mutex
	now Instant
}

// NewFakeClock returns a FakeClock starting at the given nanosecond offset.
func NewFakeClock(startNs int64) *FakeClock {
	return &FakeClock{now: FromUnixNano(startNs)}
}

// Now implements Clock.
func (c *FakeClock) Now() Instant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. It fires no callbacks: tests call
// FakeScheduler.FireDue with the new time to run the timers now due.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeTimer is one pending callback registered with a FakeScheduler.
type fakeTimer struct {
	handle    TimerHandle
	at        Instant
	cb        func(arg any)
	arg       any
	cancelled bool
}

// FakeScheduler is an in-process Scheduler driven by an explicit Fire call,
// used so tests can deterministically trigger retransmission/expiry
// callbacks instead of racing real time.
type FakeScheduler struct {
	mu     sync.Mutex
	next   TimerHandle
	timers []*fakeTimer
}

// NewFakeScheduler returns an empty FakeScheduler.
func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

// Schedule implements Scheduler.
func (s *FakeScheduler) Schedule(at Instant, cb func(arg any), arg any) TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	t := &fakeTimer{handle: s.next, at: at, cb: cb, arg: arg}
	s.timers = append(s.timers, t)
	return t.handle
}

// Cancel implements Scheduler.
func (s *FakeScheduler) Cancel(h TimerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.timers {
		if t.handle == h {
			t.cancelled = true
		}
	}
}

// FireDue runs (and removes) every non-cancelled timer whose deadline is at
// or before now, earliest first.
func (s *FakeScheduler) FireDue(now Instant) {
	s.mu.Lock()
	var due []*fakeTimer
	var rest []*fakeTimer

	for _, t := range s.timers {
		if !t.cancelled && !t.at.After(now) {
			due = append(due, t)
		} else if !t.cancelled {
			rest = append(rest, t)
		}
	}

	s.timers = rest
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	s.mu.Unlock()

	for _, t := range due {
		t.cb(t.arg)
	}
}

// FakePRNG is a seedable PRNG for reproducible tests.
type FakePRNG struct {
	r *rand.Rand
}

// NewFakePRNG returns a FakePRNG seeded with seed.
func NewFakePRNG(seed int64) *FakePRNG {
	return &FakePRNG{r: rand.New(rand.NewSource(seed))}
}

// Bytes implements PRNG.
func (p *FakePRNG) Bytes(out []byte) {
	p.r.Read(out)
}

// Uint16 implements PRNG.
func (p *FakePRNG) Uint16() uint16 {
	return uint16(p.r.Intn(1 << 16))
}
