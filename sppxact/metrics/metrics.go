/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package metrics exposes pairing and session activity as Prometheus
// metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/stats"
)

const namespace = "sppd"

type Metrics struct {
	reg *prometheus.Registry

	pairReplies *prometheus.CounterVec
	authCmpls   *prometheus.CounterVec
	sesnsOpened prometheus.Counter
	sesnsOpen   prometheus.Gauge
	bytesEchoed prometheus.Counter
	chunkSize   prometheus.Histogram
}

var _ stats.Collector = &Metrics{}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),

		pairReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pair_replies_total",
			Help:      "Pairing requests answered, by request kind and decision.",
		}, []string{"kind", "accept"}),

		authCmpls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_completions_total",
			Help:      "Finished pairing attempts, by outcome.",
		}, []string{"result"}),

		sesnsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "SPP connections accepted.",
		}),

		sesnsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "SPP connections currently open.",
		}),

		bytesEchoed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_echoed_total",
			Help:      "Bytes received and written back to peers.",
		}),

		chunkSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_size_bytes",
			Help:      "Size of received data chunks.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}

	m.reg.MustRegister(
		m.pairReplies,
		m.authCmpls,
		m.sesnsOpened,
		m.sesnsOpen,
		m.bytesEchoed,
		m.chunkSize,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) PairReply(kind string, accept bool) {
	m.pairReplies.WithLabelValues(kind, strconv.FormatBool(accept)).Inc()
}

func (m *Metrics) AuthCompleted(peer BtAddr, success bool) {
	result := "failed"
	if success {
		result = "success"
	}
	m.authCmpls.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionOpened(h SessionHandle, peer BtAddr) {
	m.sesnsOpened.Inc()
	m.sesnsOpen.Inc()
}

func (m *Metrics) SessionClosed(h SessionHandle) {
	m.sesnsOpen.Dec()
}

func (m *Metrics) DataEchoed(h SessionHandle, n int) {
	m.bytesEchoed.Add(float64(n))
	m.chunkSize.Observe(float64(n))
}
