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

package logger

import (
	"github.com/sirupsen/logrus"
)

// Logger is the structured logging surface the udp/tcp exchange engines log
// connection lifecycle, retransmission, and cache-eviction events through.
// With returns a derived Logger carrying additional Fields; the base Logger
// itself carries none, so call sites build up context incrementally
// (e.g. WithRemote(...).WithToken(...).Debug("retransmitting")).
type Logger interface {
	With(fields Fields) Logger
	WithRemote(remote string) Logger
	WithToken(token string) Logger
	WithMsgID(id uint16) Logger
	WithError(err error) Logger

	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)

	// SetLevel changes the minimum level the underlying logrus.Logger
	// emits; it affects every Logger derived from the same root.
	SetLevel(lvl logrus.Level)
}

// New wraps an existing logrus.Logger (nil creates logrus.New()'s own
// default) with the engine's Fields-based context helpers.
func New(base *logrus.Logger) Logger {
	if base == nil {
		base = logrus.New()
	}
	return &logger{root: base}
}
