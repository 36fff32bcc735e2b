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
	liberr "github.com/nabbar/coap-engine/errors"
	"github.com/nabbar/coap-engine/message"
)

// CSM option numbers (RFC 8323 section 5.3).
const (
	OptionMaxMessageSize         uint16 = 2
	OptionBlockWiseTransfer      uint16 = 4
)

// DefaultMaxMessageSize is CSM's own default before any peer advertisement
// arrives (RFC 8323 section 5.3.1).
const DefaultMaxMessageSize = 1152

// PeerCapabilities records what the remote end advertised in its CSM
// frame: the largest message it is willing to receive, and whether it
// supports block-wise transfer (gating BERT acceptance, see block.Value).
type PeerCapabilities struct {
	Received                 bool
	MaxMessageSize            uint32
	BlockWiseTransferCapable bool
}

// DefaultPeerCapabilities is the assumed state before any CSM has arrived.
func DefaultPeerCapabilities() PeerCapabilities {
	return PeerCapabilities{MaxMessageSize: DefaultMaxMessageSize}
}

// isCriticalOption reports whether an option number is critical per RFC
// 7252 section 5.4.1 (odd option numbers).
func isCriticalOption(number uint16) bool {
	return number%2 == 1
}

// applyCSM merges a peer's CSM options into p. It returns
// ErrorUnknownCriticalCSMOption if the frame carries a critical option
// this engine does not recognize.
func applyCSM(p PeerCapabilities, opts *message.Message) (PeerCapabilities, liberr.Error) {
	p.Received = true

	if opts.Options == nil {
		return p, nil
	}

	for _, o := range opts.Options.All() {
		switch o.Number {
		case OptionMaxMessageSize:
			if v, ok := opts.Options.GetUint(OptionMaxMessageSize, 0); ok {
				p.MaxMessageSize = uint32(v)
			}
		case OptionBlockWiseTransfer:
			p.BlockWiseTransferCapable = true
		default:
			if isCriticalOption(o.Number) {
				return p, ErrorUnknownCriticalCSMOption.Error(nil)
			}
		}
	}

	return p, nil
}
