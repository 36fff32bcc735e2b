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
	"fmt"

	libctx "github.com/nabbar/coap-engine/context"
	libdur "github.com/nabbar/coap-engine/duration"
	liberr "github.com/nabbar/coap-engine/errors"
	"github.com/nabbar/coap-engine/message"
	"github.com/nabbar/coap-engine/tcp"
	"github.com/nabbar/coap-engine/udp"

	"github.com/mitchellh/mapstructure"
	spfvpr "github.com/spf13/viper"
)

// Model is the wire/file shape of engine configuration, unmarshalled
// directly out of viper. Every field carries the same name a deployment's
// YAML/env/flag source would use.
type Model struct {
	AckTimeout      libdur.Duration `mapstructure:"ack_timeout"`
	AckRandomFactor float64         `mapstructure:"ack_random_factor"`
	MaxRetransmit   int             `mapstructure:"max_retransmit"`
	NStart          int             `mapstructure:"nstart"`
	MaxLatency      libdur.Duration `mapstructure:"max_latency"`
	ProcessingDelay libdur.Duration `mapstructure:"processing_delay"`

	UDPBufferSize       int `mapstructure:"udp_buffer_size"`
	NotifyCacheCapacity int `mapstructure:"notify_cache_capacity"`

	TCPBufferSize        int             `mapstructure:"tcp_buffer_size"`
	TCPMaxMessageSize    uint32          `mapstructure:"tcp_max_message_size"`
	TCPBlockWiseTransfer bool            `mapstructure:"tcp_block_wise_transfer"`
	TCPHandshakeTimeout  libdur.Duration `mapstructure:"tcp_handshake_timeout"`
	TCPRequestTimeout    libdur.Duration `mapstructure:"tcp_request_timeout"`
}

// DefaultModel mirrors the RFC 7252/8323 defaults each engine already falls
// back to on its own (udp.DefaultConfig/tcp.DefaultConfig), expressed as a
// Model so a partially-supplied file only needs to override what differs.
func DefaultModel() Model {
	u := udp.DefaultConfig()
	t := tcp.DefaultConfig()

	return Model{
		AckTimeout:      libdur.ParseDuration(u.AckTimeout),
		AckRandomFactor: u.AckRandomFactor,
		MaxRetransmit:   u.MaxRetransmit,
		NStart:          u.NStart,
		MaxLatency:      libdur.ParseDuration(u.MaxLatency),
		ProcessingDelay: libdur.ParseDuration(u.ProcessingDelay),

		UDPBufferSize:       u.BufferSize,
		NotifyCacheCapacity: u.NotifyCacheCapacity,

		TCPBufferSize:        t.BufferSize,
		TCPMaxMessageSize:    t.MaxMessageSize,
		TCPBlockWiseTransfer: t.BlockWiseTransfer,
		TCPHandshakeTimeout:  libdur.ParseDuration(t.HandshakeTimeout),
		TCPRequestTimeout:    libdur.ParseDuration(t.RequestTimeout),
	}
}

// UDP converts the loaded Model into the udp package's own Config shape.
func (m Model) UDP() udp.Config {
	return udp.Config{
		AckTimeout:          m.AckTimeout.Time(),
		AckRandomFactor:     m.AckRandomFactor,
		MaxRetransmit:       m.MaxRetransmit,
		NStart:              m.NStart,
		MaxLatency:          m.MaxLatency.Time(),
		ProcessingDelay:     m.ProcessingDelay.Time(),
		BufferSize:          m.UDPBufferSize,
		NotifyCacheCapacity: m.NotifyCacheCapacity,
	}
}

// TCP converts the loaded Model into the tcp package's own Config shape.
func (m Model) TCP() tcp.Config {
	return tcp.Config{
		BufferSize:        m.TCPBufferSize,
		MaxMessageSize:    m.TCPMaxMessageSize,
		BlockWiseTransfer: m.TCPBlockWiseTransfer,
		HandshakeTimeout:  m.TCPHandshakeTimeout.Time(),
		RequestTimeout:    m.TCPRequestTimeout.Time(),
	}
}

// ExchangeLifetime derives RFC 7252 section 4.8.2's EXCHANGE_LIFETIME from
// this Model's UDP timing parameters, the same formula message.ExchangeLifetime
// implements, so Validate can check a loaded MaxRetransmit/AckTimeout pair
// is sane before it reaches the UDP engine.
func (m Model) ExchangeLifetime() libdur.Duration {
	return libdur.ParseDuration(message.ExchangeLifetime(
		m.AckTimeout.Time(), m.AckRandomFactor, m.MaxRetransmit,
		m.MaxLatency.Time(), m.ProcessingDelay.Time(),
	))
}

type configModel struct {
	ctx libctx.Config[string]
	mdl Model
}

// New returns a Config seeded with DefaultModel, ready for Load to
// overlay a viper source on top.
func New() Config {
	return &configModel{
		ctx: libctx.New[string](nil),
		mdl: DefaultModel(),
	}
}

func (c *configModel) Context() libctx.Config[string] {
	return c.ctx
}

func (c *configModel) Load(v *spfvpr.Viper) liberr.Error {
	if v == nil {
		return ErrorLoad.Error(fmt.Errorf("nil viper instance"))
	}

	mdl := DefaultModel()
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	if err := v.Unmarshal(&mdl, spfvpr.DecodeHook(hook)); err != nil {
		return ErrorUnmarshal.Error(err)
	}

	c.mdl = mdl
	return nil
}

func (c *configModel) Model() Model {
	return c.mdl
}

func (c *configModel) Validate() liberr.Error {
	m := c.mdl

	if m.NStart < 1 {
		return ErrorValidate.Error(fmt.Errorf("nstart must be >= 1, got %d", m.NStart))
	}
	if m.MaxRetransmit < 0 {
		return ErrorValidate.Error(fmt.Errorf("max_retransmit must be >= 0, got %d", m.MaxRetransmit))
	}
	if m.AckRandomFactor < 1 {
		return ErrorValidate.Error(fmt.Errorf("ack_random_factor must be >= 1, got %f", m.AckRandomFactor))
	}
	if m.AckTimeout <= 0 {
		return ErrorValidate.Error(fmt.Errorf("ack_timeout must be > 0, got %s", m.AckTimeout.String()))
	}
	if m.UDPBufferSize <= 0 {
		return ErrorValidate.Error(fmt.Errorf("udp_buffer_size must be > 0, got %d", m.UDPBufferSize))
	}
	if m.TCPMaxMessageSize == 0 {
		return ErrorValidate.Error(fmt.Errorf("tcp_max_message_size must be > 0, got %d", m.TCPMaxMessageSize))
	}
	if m.TCPBufferSize < int(m.TCPMaxMessageSize) {
		return ErrorValidate.Error(fmt.Errorf(
			"tcp_buffer_size (%d) must be >= tcp_max_message_size (%d)", m.TCPBufferSize, m.TCPMaxMessageSize,
		))
	}

	return nil
}
