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

import "time"

// Instant is a monotonic point in time with saturating arithmetic, used
// throughout the exchange engines for retransmission deadlines and cache
// expiry so that overflow never wraps a far-future deadline into the past.
type Instant struct {
	ns int64
}

// Invalid is the zero-value sentinel Instant, used for "never scheduled".
var Invalid = Instant{ns: 0}

const saturatingMax = int64(^uint64(0) >> 1)

// Now returns the current Instant as reported by clk.
func Now(clk Clock) Instant {
	return clk.Now()
}

// FromUnixNano builds an Instant from a raw monotonic nanosecond value. Used
// by Clock implementations; not meant for general call sites.
func FromUnixNano(ns int64) Instant {
	return Instant{ns: ns}
}

// IsValid reports whether i is something other than the Invalid sentinel.
func (i Instant) IsValid() bool {
	return i.ns != 0
}

// Add returns i+d, saturating at the maximum representable Instant instead
// of overflowing.
func (i Instant) Add(d time.Duration) Instant {
	if d <= 0 {
		return Instant{ns: i.ns + int64(d)}
	}

	if i.ns > saturatingMax-int64(d) {
		return Instant{ns: saturatingMax}
	}

	return Instant{ns: i.ns + int64(d)}
}

// Sub returns the signed duration between i and o (i - o).
func (i Instant) Sub(o Instant) time.Duration {
	return time.Duration(i.ns - o.ns)
}

// Before reports whether i occurs strictly before o.
func (i Instant) Before(o Instant) bool {
	return i.ns < o.ns
}

// After reports whether i occurs strictly after o.
func (i Instant) After(o Instant) bool {
	return i.ns > o.ns
}

// Equal reports whether i and o are the same point in time.
func (i Instant) Equal(o Instant) bool {
	return i.ns == o.ns
}
