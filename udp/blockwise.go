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
	"sync"

	"github.com/nabbar/coap-engine/block"
)

// blockKey identifies one in-progress BLOCK1 request reassembly by remote
// endpoint and token.
type blockKey struct {
	ep  string
	tok string
}

// blockAssembly accumulates payload bytes across a sequence of BLOCK1
// blocks sharing the same (endpoint, token).
type blockAssembly struct {
	payload []byte
}

// blockwiseState holds the server-side BLOCK1 request-reassembly
// bookkeeping for one engine. UDP never negotiates BERT (RFC 7959 section
// 4), so every block Decode/Encode call here passes allowBERT=false.
type blockwiseState struct {
	mu    sync.Mutex
	items map[blockKey]*blockAssembly
}

func newBlockwiseState() *blockwiseState {
	return &blockwiseState{items: make(map[blockKey]*blockAssembly)}
}

// append adds payload to the assembly keyed by k, starting a fresh one
// when v is the first block (NUM == 0) or no assembly is already open.
func (s *blockwiseState) append(k blockKey, v block.Value, payload []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[k]
	if !ok || v.Num == 0 {
		a = &blockAssembly{}
		s.items[k] = a
	}
	a.payload = append(a.payload, payload...)
	return a.payload
}

// take removes the in-progress assembly for k, if any; called once the
// final block (M == 0) completes it.
func (s *blockwiseState) take(k blockKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, k)
}
