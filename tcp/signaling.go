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
	"github.com/nabbar/coap-engine/message"
	"github.com/nabbar/coap-engine/option"
)

// Signaling option numbers (RFC 8323 section 5).
const (
	// OptionCustody is carried on Pong, echoing the Ping's Custody option
	// value so a Ping originator can correlate replies.
	OptionCustody uint16 = 2
	// OptionAlternativeAddress and OptionHoldOff decorate Release; this
	// engine does not act on them beyond passing them to the caller.
	OptionAlternativeAddress uint16 = 2
	OptionHoldOff            uint16 = 4
	// OptionBadCSMOption appears on Abort to name the offending option.
	OptionBadCSMOption uint16 = 2
)

// buildPing constructs a Ping signaling message carrying custody as its
// Custody option value, to be echoed back by the peer's Pong.
func buildPing(custody []byte) message.Message {
	opts := option.NewList()
	if len(custody) > 0 {
		opts.Insert(OptionCustody, custody)
	}
	return message.Message{Code: message.CodePing, Options: opts}
}

// buildPong answers a received Ping, echoing its Custody option verbatim.
func buildPong(ping message.Message) message.Message {
	opts := option.NewList()
	if ping.Options != nil {
		if v, ok := ping.Options.Get(OptionCustody, 0); ok {
			opts.Insert(OptionCustody, v)
		}
	}
	return message.Message{Code: message.CodePong, Options: opts}
}

// buildRelease constructs a graceful-shutdown Release message.
func buildRelease() message.Message {
	return message.Message{Code: message.CodeRelease}
}

// buildAbort constructs an Abort message carrying a human-readable
// diagnostic payload.
func buildAbort(diagnostic string) message.Message {
	return message.Message{Code: message.CodeAbort, Payload: []byte(diagnostic)}
}
