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
	"context"
	"fmt"
	"sync"
	"time"

	libcch "github.com/nabbar/coap-engine/cache"
)

// Endpoint identifies the remote peer a response cache entry or pending
// request is scoped to.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// responseCacheKey is the (endpoint, msg-id) lookup key for ResponseCache.
type responseCacheKey struct {
	ep    string
	msgID uint16
}

// ResponseCache stores the serialized bytes of responses sent to CON/NON
// requests, keyed by (remote endpoint, msg-id), so a duplicate request
// within EXCHANGE_LIFETIME gets the byte-identical cached reply instead of
// re-invoking the upper layer. Built on the generic TTL cache package,
// which already gives FIFO-by-insertion/TTL eviction semantics.
type ResponseCache struct {
	mu    sync.Mutex
	cache libcch.Cache[responseCacheKey, []byte]
}

// NewResponseCache returns a ResponseCache whose entries expire after
// lifetime (EXCHANGE_LIFETIME).
func NewResponseCache(lifetime time.Duration) *ResponseCache {
	return &ResponseCache{cache: libcch.New[responseCacheKey, []byte](context.Background(), lifetime)}
}

// Put stores the serialized response bytes for (ep, msgID). A copy of b is
// retained so later mutation of the caller's buffer cannot corrupt it.
func (c *ResponseCache) Put(ep Endpoint, msgID uint16, b []byte) {
	cp := make([]byte, len(b))
	copy(cp, b)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Store(responseCacheKey{ep: ep.String(), msgID: msgID}, cp)
}

// Get returns the cached response bytes for (ep, msgID), if present and not
// yet expired.
func (c *ResponseCache) Get(ep Endpoint, msgID uint16) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, _, ok := c.cache.Load(responseCacheKey{ep: ep.String(), msgID: msgID})
	return v, ok
}

// Close releases the cache's background expiry goroutine.
func (c *ResponseCache) Close() {
	_ = c.cache.Close()
}
