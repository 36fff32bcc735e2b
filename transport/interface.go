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

// Package transport declares the boundary the UDP and TCP exchange engines
// are built against: a socket abstraction, a clock/scheduler pair, and a
// PRNG source. Both engines are written only in terms of these interfaces;
// net.UDPConn/net.TCPConn-backed implementations live under cmd/.
package transport

import "time"

// Socket abstracts the single blocking byte-pipe an exchange engine drives.
// UDP and TCP implementations both satisfy it; UDP additionally satisfies
// EndpointSocket for response-cache keying.
type Socket interface {
	// Send writes bytes as a single datagram (UDP) or stream write (TCP).
	Send(b []byte) error

	// Recv reads into buf, returning the number of bytes read. On a
	// truncated UDP datagram it returns ErrorTruncated with n set to the
	// number of bytes that fit.
	Recv(buf []byte) (n int, err error)

	// SetRecvTimeout / RecvTimeout configure the blocking read deadline.
	SetRecvTimeout(d time.Duration)
	RecvTimeout() time.Duration

	// Close releases the underlying transport resource.
	Close() error
}

// EndpointSocket is implemented by connectionless (UDP) sockets that can
// report the remote peer, used to key the response cache by (addr, port).
type EndpointSocket interface {
	Socket

	RemoteHost() string
	RemotePort() int
}

// Clock reports the current Instant. A single implementation backed by
// time.Now() is used in production; tests supply a fake advancing clock.
type Clock interface {
	Now() Instant
}

// TimerHandle identifies a scheduled callback so it can be cancelled.
type TimerHandle uint64

// Scheduler arranges for a callback to run at (or after) a given Instant.
// Implementations MUST be safe for concurrent use.
type Scheduler interface {
	// Schedule arranges cb(arg) to run at Instant at, returning a handle
	// usable with Cancel. A zero handle is never returned for a successful
	// schedule.
	Schedule(at Instant, cb func(arg any), arg any) TimerHandle

	// Cancel prevents a previously scheduled callback from firing. Canceling
	// an already-fired or unknown handle is a no-op.
	Cancel(h TimerHandle)
}

// PRNG is the source of randomness for token generation and initial
// message-id seeding. It need not be cryptographically strong.
type PRNG interface {
	// Bytes fills out with random bytes.
	Bytes(out []byte)

	// Uint16 returns a random 16-bit value, used to seed the message-id
	// counter.
	Uint16() uint16
}
