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
	libctx "github.com/nabbar/coap-engine/context"
	liberr "github.com/nabbar/coap-engine/errors"

	spfvpr "github.com/spf13/viper"
)

// Config is a mutex-free, single-owner configuration model: Load overlays a
// viper source onto RFC 7252/8323 defaults, Validate checks the result
// against this engine's own constraints, and UDP/TCP (on the loaded Model)
// hand each exchange engine its own Config shape.
type Config interface {
	// Context returns the shared concurrent key/value context backing the
	// common context base (spec's "Common context base" component).
	Context() libctx.Config[string]

	// Load unmarshals v into a fresh Model seeded with DefaultModel,
	// replacing whatever was previously loaded.
	Load(v *spfvpr.Viper) liberr.Error

	// Model returns the most recently loaded (or default) Model.
	Model() Model

	// Validate checks the currently loaded Model against this engine's
	// constraints (NSTART >= 1, ACK_RANDOM_FACTOR >= 1, buffer sizes
	// consistent with the CSM-advertised max message size, ...).
	Validate() liberr.Error
}
