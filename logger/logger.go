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
	"strconv"

	"github.com/sirupsen/logrus"
)

type logger struct {
	root   *logrus.Logger
	fields Fields
}

func (l *logger) With(fields Fields) Logger {
	return &logger{root: l.root, fields: l.fields.Merge(fields)}
}

func (l *logger) WithRemote(remote string) Logger {
	return l.With(NewFields().Add(FieldRemote, remote))
}

func (l *logger) WithToken(token string) Logger {
	return l.With(NewFields().Add(FieldToken, token))
}

func (l *logger) WithMsgID(id uint16) Logger {
	return l.With(NewFields().Add(FieldMsgID, strconv.FormatUint(uint64(id), 10)))
}

func (l *logger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.With(NewFields().Add(FieldError, err.Error()))
}

func (l *logger) entry() *logrus.Entry {
	return l.root.WithFields(logrus.Fields(l.fields))
}

func (l *logger) Debug(msg string) { l.entry().Debug(msg) }
func (l *logger) Info(msg string)  { l.entry().Info(msg) }
func (l *logger) Warn(msg string)  { l.entry().Warn(msg) }
func (l *logger) Error(msg string) { l.entry().Error(msg) }

func (l *logger) SetLevel(lvl logrus.Level) {
	l.root.SetLevel(lvl)
}
