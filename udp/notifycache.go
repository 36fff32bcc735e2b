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

	"github.com/nabbar/coap-engine/token"
)

type notifyEntry struct {
	msgID uint16
	tok   token.Token
}

// NotifyCache is a fixed-capacity FIFO of (msg-id -> observe token),
// populated whenever a CON/NON response carrying an Observe option is sent.
// Receiving an RST for a cached msg-id tells the caller which observation
// to cancel.
type NotifyCache struct {
	mu       sync.Mutex
	entries  []notifyEntry
	capacity int
}

// NewNotifyCache returns an empty NotifyCache holding at most capacity
// entries, oldest evicted first once full.
func NewNotifyCache(capacity int) *NotifyCache {
	if capacity < 1 {
		capacity = 1
	}
	return &NotifyCache{capacity: capacity}
}

// Put records that msgID carries an Observe notification for tok, evicting
// the oldest entry if the cache is already at capacity.
func (c *NotifyCache) Put(msgID uint16, tok token.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.capacity {
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, notifyEntry{msgID: msgID, tok: tok})
}

// TakeByMsgID removes and returns the observe token recorded for msgID, if
// any. Called when an RST arrives for that msg-id so the matching
// observation can be cancelled.
func (c *NotifyCache) TakeByMsgID(msgID uint16) (token.Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.msgID == msgID {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return e.tok, true
		}
	}
	return token.Token{}, false
}

// Len returns the number of entries currently cached.
func (c *NotifyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
