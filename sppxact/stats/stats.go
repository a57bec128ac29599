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

// Package stats defines the hooks through which the pairing controller and
// the session manager report activity to counters.
package stats

import (
	. "mynewt.apache.org/sppd/sppxact/btdefs"
)

type Collector interface {
	// A pairing request was answered.
	PairReply(kind string, accept bool)

	// A pairing attempt finished.
	AuthCompleted(peer BtAddr, success bool)

	SessionOpened(h SessionHandle, peer BtAddr)
	SessionClosed(h SessionHandle)

	// A chunk was received and echoed back.
	DataEchoed(h SessionHandle, n int)
}

// Discards everything.
type NopCollector struct{}

func (NopCollector) PairReply(kind string, accept bool) {}
func (NopCollector) AuthCompleted(peer BtAddr, success bool) {}
func (NopCollector) SessionOpened(h SessionHandle, peer BtAddr) {}
func (NopCollector) SessionClosed(h SessionHandle) {}
func (NopCollector) DataEchoed(h SessionHandle, n int) {}

// Reports to every collector in order.
type MultiCollector []Collector

func (m MultiCollector) PairReply(kind string, accept bool) {
	for _, c := range m {
		c.PairReply(kind, accept)
	}
}

func (m MultiCollector) AuthCompleted(peer BtAddr, success bool) {
	for _, c := range m {
		c.AuthCompleted(peer, success)
	}
}

func (m MultiCollector) SessionOpened(h SessionHandle, peer BtAddr) {
	for _, c := range m {
		c.SessionOpened(h, peer)
	}
}

func (m MultiCollector) SessionClosed(h SessionHandle) {
	for _, c := range m {
		c.SessionClosed(h)
	}
}

func (m MultiCollector) DataEchoed(h SessionHandle, n int) {
	for _, c := range m {
		c.DataEchoed(h, n)
	}
}
