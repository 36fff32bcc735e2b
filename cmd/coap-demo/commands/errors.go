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

package commands

import (
	liberr "github.com/nabbar/coap-engine/errors"
)

const (
	// ErrorConfig is returned when the configuration file cannot be loaded
	// or fails validation.
	ErrorConfig liberr.CodeError = iota + liberr.MinPkgCmd
	// ErrorDial is returned when the requested transport/address cannot be
	// resolved or connected to.
	ErrorDial
	// ErrorListen is returned when the requested transport/address cannot
	// be bound for serving.
	ErrorListen
	// ErrorRequest is returned when a request could not be sent or timed
	// out waiting for a response.
	ErrorRequest
)

func init() {
	liberr.RegisterIdFctMessage(ErrorConfig, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorConfig:
		return "invalid or unreadable configuration"
	case ErrorDial:
		return "failed to connect to peer"
	case ErrorListen:
		return "failed to bind listening socket"
	case ErrorRequest:
		return "request failed"
	}

	return liberr.NullMessage
}
