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
	"github.com/nabbar/coap-engine/block"
	liberr "github.com/nabbar/coap-engine/errors"
)

// AllowBERT reports whether this connection may use the BERT (SZX == 7)
// block encoding: RFC 8323 section 4 makes that conditional on both ends
// having advertised block-wise-transfer support in their CSM.
func (e *Engine) AllowBERT() bool {
	return e.local.BlockWiseTransferCapable && e.peer.BlockWiseTransferCapable
}

// EncodeBlockOption serializes v as a BLOCK1/BLOCK2 option payload, gating
// BERT on AllowBERT.
func (e *Engine) EncodeBlockOption(v block.Value) ([]byte, liberr.Error) {
	return block.Encode(v, e.AllowBERT())
}

// DecodeBlockOption parses a BLOCK1/BLOCK2 option payload, gating BERT on
// AllowBERT.
func (e *Engine) DecodeBlockOption(payload []byte) (block.Value, liberr.Error) {
	return block.Decode(payload, e.AllowBERT())
}
