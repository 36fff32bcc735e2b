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

package config

import (
	liberr "github.com/nabbar/coap-engine/errors"
)

const (
	// ErrorLoad is returned by Load when it is given a nil viper instance.
	ErrorLoad liberr.CodeError = iota + liberr.MinPkgConfig
	// ErrorUnmarshal is returned when viper's decoded tree cannot be
	// unmarshalled into Model.
	ErrorUnmarshal
	// ErrorValidate is returned by Validate when a loaded value violates an
	// RFC 7252/8323 constraint (e.g. NSTART < 1, ACK_RANDOM_FACTOR < 1).
	ErrorValidate
)

func init() {
	liberr.RegisterIdFctMessage(ErrorLoad, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorLoad:
		return "failed loading configuration"
	case ErrorUnmarshal:
		return "failed unmarshalling configuration"
	case ErrorValidate:
		return "invalid configuration value"
	}

	return liberr.NullMessage
}
