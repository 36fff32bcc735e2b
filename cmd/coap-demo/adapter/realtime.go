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

// Package adapter wires the udp/tcp exchange engines to real sockets and
// wall-clock time: net.UDPConn/net.TCPConn as transport.Socket, a
// time.AfterFunc scheduler, and a crypto/rand PRNG. The engines themselves
// only ever see the transport package's interfaces.
package adapter

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/nabbar/coap-engine/transport"
)

// SystemClock reports wall-clock time via time.Now.
type SystemClock struct{}

// NewSystemClock returns a SystemClock.
func NewSystemClock() SystemClock {
	return SystemClock{}
}

// Now implements transport.Clock.
func (SystemClock) Now() transport.Instant {
	return transport.FromUnixNano(time.Now().UnixNano())
}

// TimerScheduler implements transport.Scheduler on top of time.AfterFunc,
// tracking live timers so Cancel can Stop them.
type TimerScheduler struct {
	mu     sync.Mutex
	next   transport.TimerHandle
	timers map[transport.TimerHandle]*time.Timer
}

// NewTimerScheduler returns an empty TimerScheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[transport.TimerHandle]*time.Timer)}
}

// Schedule implements transport.Scheduler.
func (s *TimerScheduler) Schedule(at transport.Instant, cb func(arg any), arg any) transport.TimerHandle {
	delay := at.Sub(transport.FromUnixNano(time.Now().UnixNano()))
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	s.next++
	h := s.next
	s.mu.Unlock()

	t := time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, h)
		s.mu.Unlock()
		cb(arg)
	})

	s.mu.Lock()
	s.timers[h] = t
	s.mu.Unlock()

	return h
}

// Cancel implements transport.Scheduler.
func (s *TimerScheduler) Cancel(h transport.TimerHandle) {
	s.mu.Lock()
	t, ok := s.timers[h]
	delete(s.timers, h)
	s.mu.Unlock()

	if ok {
		t.Stop()
	}
}

// CryptoPRNG implements transport.PRNG on top of crypto/rand.
type CryptoPRNG struct{}

// NewCryptoPRNG returns a CryptoPRNG.
func NewCryptoPRNG() CryptoPRNG {
	return CryptoPRNG{}
}

// Bytes implements transport.PRNG.
func (CryptoPRNG) Bytes(out []byte) {
	_, _ = rand.Read(out)
}

// Uint16 implements transport.PRNG.
func (CryptoPRNG) Uint16() uint16 {
	var b [2]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint16(b[:])
}
