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

// Package startStop wraps a pair of start/stop functions into a managed
// background lifecycle, used by cmd/coap-demo to run a transport engine's
// ReadOnce loop as a cancellable goroutine with uptime and error tracking.
package startStop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// maxErrors bounds the retained error history; older entries are dropped
// once it is exceeded.
const maxErrors = 32

// StartFunc runs until ctx is cancelled or it decides to return on its own.
type StartFunc func(ctx context.Context) error

// StopFunc performs any cleanup once the running StartFunc has returned.
type StopFunc func(ctx context.Context) error

// StartStop manages one StartFunc/StopFunc pair as a single background
// task: Start launches it, Stop cancels it and waits for it to unwind.
type StartStop interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
	ErrorsLast() error
	ErrorsList() []error
}

// New builds a StartStop around start/stop. Either may be nil: calling
// Start or Stop without the matching function records an error instead of
// panicking.
func New(start StartFunc, stop StopFunc) StartStop {
	return &runner{start: start, stop: stop}
}

type runner struct {
	start StartFunc
	stop  StopFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	running   atomic.Bool
	startedAt atomic.Int64

	errMu sync.Mutex
	errs  []error
}

// Start is a no-op (returning nil) if the runner is already running.
// Otherwise it returns immediately after launching start in its own
// goroutine; failures, including a nil start function, surface through
// ErrorsLast/ErrorsList rather than Start's own return value.
func (r *runner) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return nil
	}

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	r.errMu.Lock()
	r.errs = nil
	r.errMu.Unlock()

	r.startedAt.Store(time.Now().UnixNano())

	go func() {
		defer close(done)
		defer func() {
			if rec := recover(); rec != nil {
				r.pushError(fmt.Errorf("start function panicked: %v", rec))
			}
			r.startedAt.Store(0)
			r.running.Store(false)
		}()

		if r.start == nil {
			r.pushError(errors.New("invalid start function"))
			return
		}
		if err := r.start(cctx); err != nil {
			r.pushError(err)
		}
	}()

	return nil
}

// Stop is a no-op if the runner is not currently running (including a
// second concurrent call racing the first). Otherwise it cancels the
// running start function's context, waits for it to return (or for ctx to
// expire first), and then invokes stop. Stop always returns nil itself;
// a nil stop function or a non-nil return from stop is recorded instead.
func (r *runner) Stop(ctx context.Context) error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}

	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	r.startedAt.Store(0)

	if r.stop == nil {
		r.pushError(errors.New("invalid stop function"))
		return nil
	}
	if err := r.stop(ctx); err != nil {
		r.pushError(err)
	}
	return nil
}

// Restart stops the runner (if running) and starts it again.
func (r *runner) Restart(ctx context.Context) error {
	_ = r.Stop(ctx)
	return r.Start(ctx)
}

func (r *runner) IsRunning() bool {
	return r.running.Load()
}

// Uptime returns zero when not running.
func (r *runner) Uptime() time.Duration {
	started := r.startedAt.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}

func (r *runner) pushError(err error) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	r.errs = append(r.errs, err)
	if len(r.errs) > maxErrors {
		r.errs = r.errs[len(r.errs)-maxErrors:]
	}
}

// ErrorsLast returns the most recently recorded error, or nil if none.
func (r *runner) ErrorsLast() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[len(r.errs)-1]
}

// ErrorsList returns every retained error, oldest first.
func (r *runner) ErrorsList() []error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}
