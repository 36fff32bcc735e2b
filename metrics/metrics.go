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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transport labels the `transport` dimension of the retransmit, timeout and
// exchange-duration metrics.
type Transport string

const (
	TransportUDP Transport = "udp"
	TransportTCP Transport = "tcp"
)

// CacheName labels the `cache` dimension for cache hit/miss counters.
type CacheName string

const (
	CacheResponse CacheName = "response"
	CacheNotify   CacheName = "notify"
)

// Metrics holds every collector this engine reports and must be registered
// with exactly one prometheus.Registerer before use (see Register).
type Metrics struct {
	Retransmits       *prometheus.CounterVec
	Timeouts          *prometheus.CounterVec
	CacheHits         *prometheus.CounterVec
	CacheMisses       *prometheus.CounterVec
	ExchangeDuration  *prometheus.HistogramVec
	ConnectionsClosed *prometheus.CounterVec
}

// New constructs the collector set without registering it. Callers that
// need an isolated registry for tests should pass it straight to Register.
func New() *Metrics {
	return &Metrics{
		Retransmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coap",
			Name:      "retransmits_total",
			Help:      "Total number of confirmable message retransmissions sent.",
		}, []string{"transport"}),
		Timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coap",
			Name:      "exchange_timeouts_total",
			Help:      "Total number of exchanges that failed after exhausting retransmissions or a pending-request expiry.",
		}, []string{"transport"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coap",
			Name:      "cache_hits_total",
			Help:      "Total number of cache lookups that found a matching entry.",
		}, []string{"cache"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coap",
			Name:      "cache_misses_total",
			Help:      "Total number of cache lookups that found no matching entry.",
		}, []string{"cache"}),
		ExchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coap",
			Name:      "exchange_duration_seconds",
			Help:      "Time from a request being sent to its final response or failure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
		ConnectionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coap",
			Name:      "tcp_connections_closed_total",
			Help:      "Total number of TCP connections torn down, labeled by the reason.",
		}, []string{"reason"}),
	}
}

// Register registers every collector with r. It returns the first
// registration error encountered (e.g. a duplicate collector already
// registered on r), leaving any remaining collectors unregistered.
func (m *Metrics) Register(r prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.Retransmits, m.Timeouts, m.CacheHits, m.CacheMisses,
		m.ExchangeDuration, m.ConnectionsClosed,
	}
	for _, c := range collectors {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveRetransmit(t Transport) {
	m.Retransmits.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) ObserveTimeout(t Transport) {
	m.Timeouts.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) ObserveCacheHit(c CacheName) {
	m.CacheHits.WithLabelValues(string(c)).Inc()
}

func (m *Metrics) ObserveCacheMiss(c CacheName) {
	m.CacheMisses.WithLabelValues(string(c)).Inc()
}

func (m *Metrics) ObserveExchangeDuration(t Transport, d time.Duration) {
	m.ExchangeDuration.WithLabelValues(string(t)).Observe(d.Seconds())
}

func (m *Metrics) ObserveConnectionClosed(reason string) {
	m.ConnectionsClosed.WithLabelValues(reason).Inc()
}
