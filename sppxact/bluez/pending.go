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

package bluez

import (
	"sync"
	"time"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
)

type reqKind int

const (
	reqKindPin reqKind = iota
	reqKindCfm
)

var reqKindNames = map[reqKind]string{
	reqKindPin: "pin",
	reqKindCfm: "confirmation",
}

// The controller's answer to an agent request.
type reply struct {
	accept bool
	pin    PinCode

	// Set if BlueZ cancelled the request before it was answered.
	cancelled bool
}

type pendingReq struct {
	kind reqKind
	ch   chan reply
}

// Tracks agent requests that are waiting for the pairing controller.  BlueZ
// calls the agent synchronously, so each request blocks its D-Bus call
// until the controller replies through the Stack interface.
type pendingTable struct {
	reqs map[BtAddr]*pendingReq
	mtx  sync.Mutex
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		reqs: map[BtAddr]*pendingReq{},
	}
}

// Registers a request.  A peer has at most one outstanding request; a new
// request for the same peer cancels the old one.
func (pt *pendingTable) add(peer BtAddr, kind reqKind) *pendingReq {
	pt.mtx.Lock()
	defer pt.mtx.Unlock()

	if old := pt.reqs[peer]; old != nil {
		old.ch <- reply{cancelled: true}
	}

	req := &pendingReq{
		kind: kind,
		ch:   make(chan reply, 1),
	}
	pt.reqs[peer] = req
	return req
}

// Delivers the controller's reply to the waiting agent call.
func (pt *pendingTable) fulfil(peer BtAddr, kind reqKind, r reply) error {
	pt.mtx.Lock()
	defer pt.mtx.Unlock()

	req := pt.reqs[peer]
	if req == nil || req.kind != kind {
		return sppxutil.NewNoPendingReqError(peer, reqKindNames[kind])
	}

	delete(pt.reqs, peer)
	req.ch <- r
	return nil
}

// Removes a request without answering it.
func (pt *pendingTable) remove(peer BtAddr, req *pendingReq) {
	pt.mtx.Lock()
	defer pt.mtx.Unlock()

	if pt.reqs[peer] == req {
		delete(pt.reqs, peer)
	}
}

// Answers every outstanding request with a cancellation.
func (pt *pendingTable) cancelAll() {
	pt.mtx.Lock()
	defer pt.mtx.Unlock()

	for peer, req := range pt.reqs {
		req.ch <- reply{cancelled: true}
		delete(pt.reqs, peer)
	}
}

func (pt *pendingTable) count() int {
	pt.mtx.Lock()
	defer pt.mtx.Unlock()

	return len(pt.reqs)
}

// Waits for the controller's reply.  The second return value is false if
// the wait timed out; the request is then withdrawn.
func (pt *pendingTable) wait(peer BtAddr, req *pendingReq,
	tmo time.Duration) (reply, bool) {

	timer := time.NewTimer(tmo)
	defer timer.Stop()

	select {
	case r := <-req.ch:
		return r, true
	case <-timer.C:
		pt.remove(peer, req)
		return reply{}, false
	}
}
