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

// Package message holds the types shared by the UDP and TCP transports:
// the (class, detail) Code, the UDP-only message Type, the borrowed-view
// Message itself, and the protocol timing defaults from RFC 7252 section
// 4.8.
package message

import "time"

// Protocol timing defaults (RFC 7252 section 4.8). A Config (see the
// config package) may override all of these per deployment.
const (
	// DefaultAckTimeout is the initial retransmission timeout lower bound.
	DefaultAckTimeout = 2 * time.Second
	// DefaultAckRandomFactor scales DefaultAckTimeout to obtain the upper
	// bound of the randomized initial retransmission timeout.
	DefaultAckRandomFactor = 1.5
	// DefaultMaxRetransmit is the per-exchange retransmission budget before
	// the exchange fails with TIMEOUT.
	DefaultMaxRetransmit = 4
	// DefaultNStart is the maximum number of concurrent non-held unconfirmed
	// exchanges per endpoint.
	DefaultNStart = 1
	// DefaultMaxLatency is RFC 7252's assumed maximum round-trip network
	// latency, used to derive EXCHANGE_LIFETIME.
	DefaultMaxLatency = 100 * time.Second
	// DefaultProcessingDelay is RFC 7252's assumed time a server may take to
	// generate a response, also folded into EXCHANGE_LIFETIME.
	DefaultProcessingDelay = 2 * time.Second
)

// MaxTransmitSpan is the worst-case time CON retransmissions may span,
// derived from AckTimeout, AckRandomFactor and MaxRetransmit.
func MaxTransmitSpan(ackTimeout time.Duration, ackRandomFactor float64, maxRetransmit int) time.Duration {
	span := float64(ackTimeout) * ackRandomFactor
	total := 0.0
	cur := span
	for i := 0; i < maxRetransmit; i++ {
		total += cur
		cur *= 2
	}
	return time.Duration(total)
}

// ExchangeLifetime derives EXCHANGE_LIFETIME per RFC 7252 section 4.8.2:
// MAX_TRANSMIT_SPAN + 2*MAX_LATENCY + PROCESSING_DELAY.
func ExchangeLifetime(ackTimeout time.Duration, ackRandomFactor float64, maxRetransmit int, maxLatency, processingDelay time.Duration) time.Duration {
	return MaxTransmitSpan(ackTimeout, ackRandomFactor, maxRetransmit) + 2*maxLatency + processingDelay
}
