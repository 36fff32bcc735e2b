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

// Package ticker runs a function on a fixed interval as a managed
// background task. cmd/coap-demo uses it to drive periodic TCP keepalive
// Pings and periodic Observe-cache housekeeping.
package ticker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTickInterval is substituted for a duration too small to be a
// sane ticking interval (zero, negative, or sub-millisecond).
const DefaultTickInterval = time.Second

// maxErrors bounds the retained error history; older entries are dropped
// once it is exceeded.
const maxErrors = 32

// TickFunc is invoked on every tick. t is the underlying *time.Ticker in
// case the function wants to Reset it; ctx is cancelled once Stop is
// called.
type TickFunc func(ctx context.Context, t *time.Ticker) error

// Ticker runs a TickFunc on a fixed interval until stopped.
type Ticker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
	ErrorsLast() error
	ErrorsList() []error
}

// New builds a Ticker that fires fn every d. A d too small to be a sane
// interval is replaced by DefaultTickInterval; fn may be nil, in which case
// every tick records an "invalid tick function" error instead of panicking.
func New(d time.Duration, fn TickFunc) Ticker {
	if d < time.Millisecond {
		d = DefaultTickInterval
	}
	return &ticker{interval: d, fn: fn}
}

type ticker struct {
	interval time.Duration
	fn       TickFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	running   atomic.Bool
	startedAt atomic.Int64

	errMu sync.Mutex
	errs  []error
}

// Start is a no-op (returning nil) if already running. A nil ctx returns
// an error immediately rather than panicking inside context.WithCancel.
func (t *ticker) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("ticker: nil context")
	}
	if !t.running.CompareAndSwap(false, true) {
		return nil
	}

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	t.mu.Lock()
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()

	t.errMu.Lock()
	t.errs = nil
	t.errMu.Unlock()

	t.startedAt.Store(time.Now().UnixNano())

	go t.run(cctx, done)

	return nil
}

func (t *ticker) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer t.startedAt.Store(0)
	defer t.running.Store(false)

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			t.fire(ctx, tk)
		}
	}
}

// fire invokes fn for a single tick, recovering a panic into a recorded
// error so one bad tick never stops the ticker.
func (t *ticker) fire(ctx context.Context, tk *time.Ticker) {
	defer func() {
		if rec := recover(); rec != nil {
			t.pushError(fmt.Errorf("tick function panicked: %v", rec))
		}
	}()

	if t.fn == nil {
		t.pushError(errors.New("invalid function: tick function is nil"))
		return
	}
	if err := t.fn(ctx, tk); err != nil {
		t.pushError(err)
	}
}

// Stop is a no-op if not currently running. Otherwise it cancels the
// running loop's context and waits for it to return, or for ctx to expire
// first.
func (t *ticker) Stop(ctx context.Context) error {
	if !t.running.CompareAndSwap(true, false) {
		return nil
	}

	t.mu.Lock()
	cancel := t.cancel
	done := t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil && ctx != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	} else if done != nil {
		<-done
	}
	t.startedAt.Store(0)
	return nil
}

// Restart stops the ticker (if running) and starts it again, resetting
// Uptime to zero.
func (t *ticker) Restart(ctx context.Context) error {
	_ = t.Stop(ctx)
	return t.Start(ctx)
}

func (t *ticker) IsRunning() bool {
	return t.running.Load()
}

// Uptime returns zero when not running.
func (t *ticker) Uptime() time.Duration {
	started := t.startedAt.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}

func (t *ticker) pushError(err error) {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	t.errs = append(t.errs, err)
	if len(t.errs) > maxErrors {
		t.errs = t.errs[len(t.errs)-maxErrors:]
	}
}

// ErrorsLast returns the most recently recorded error, or nil if none.
func (t *ticker) ErrorsLast() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	if len(t.errs) == 0 {
		return nil
	}
	return t.errs[len(t.errs)-1]
}

// ErrorsList returns every retained error, oldest first.
func (t *ticker) ErrorsList() []error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	out := make([]error, len(t.errs))
	copy(out, t.errs)
	return out
}
