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

// Package sim implements an in-memory Bluetooth platform.  It records every
// request made of it and lets the caller inject the events a real stack
// would report.
package sim

import (
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/btevt"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
	"mynewt.apache.org/sppd/sppxact/xport"
)

type CallOp string

const (
	CALL_OP_START_SRV   CallOp = "start_srv"
	CALL_OP_WRITE       CallOp = "write"
	CALL_OP_PIN_REPLY   CallOp = "pin_reply"
	CALL_OP_SSP_REPLY   CallOp = "ssp_confirm_reply"
	CALL_OP_SCAN_MODE   CallOp = "set_scan_mode"
	CALL_OP_DEVICE_NAME CallOp = "set_device_name"
)

// A request the platform received.  Only the fields relevant to Op are set.
type Call struct {
	Op       CallOp
	Handle   SessionHandle
	Peer     BtAddr
	Accept   bool
	Pin      PinCode
	Data     []byte
	Sec      SppSecMask
	Role     SppRole
	Name     string
	ConnMode ConnMode
	DiscMode DiscMode
}

func (c Call) String() string {
	switch c.Op {
	case CALL_OP_START_SRV:
		return fmt.Sprintf("%s sec=%s role=%s name=%s", c.Op,
			SppSecMaskToString(c.Sec), SppRoleToString(c.Role), c.Name)
	case CALL_OP_WRITE:
		return fmt.Sprintf("%s handle=%d len=%d data=%q", c.Op, c.Handle,
			len(c.Data), c.Data)
	case CALL_OP_PIN_REPLY:
		return fmt.Sprintf("%s peer=%s accept=%t pin_len=%d pin=%s", c.Op,
			c.Peer, c.Accept, len(c.Pin), c.Pin)
	case CALL_OP_SSP_REPLY:
		return fmt.Sprintf("%s peer=%s accept=%t", c.Op, c.Peer, c.Accept)
	case CALL_OP_SCAN_MODE:
		return fmt.Sprintf("%s conn=%s disc=%s", c.Op,
			ConnModeToString(c.ConnMode), DiscModeToString(c.DiscMode))
	case CALL_OP_DEVICE_NAME:
		return fmt.Sprintf("%s name=%s", c.Op, c.Name)
	default:
		return string(c.Op)
	}
}

// Delivers events to a plain function.  Lets a test connect the platform
// straight to a handler without a dispatcher.
type SinkFunc func(evt btevt.Evt)

func (f SinkFunc) Dispatch(evt btevt.Evt) {
	f(evt)
}

// Implemented by sinks that can deliver an event and wait for it to be
// handled.
type syncSink interface {
	DispatchSync(evt btevt.Evt) error
}

type pendingKind int

const (
	pendingPin pendingKind = iota
	pendingCfm
)

type SimXport struct {
	sink    xport.EvtSink
	started bool

	calls   []Call
	open    map[SessionHandle]BtAddr
	pending map[BtAddr]pendingKind
	errs    map[CallOp]error

	name     string
	connMode ConnMode
	discMode DiscMode
	srvUp    bool

	mtx sync.Mutex
}

var _ xport.Xport = &SimXport{}

func NewSimXport() *SimXport {
	return &SimXport{
		open:    map[SessionHandle]BtAddr{},
		pending: map[BtAddr]pendingKind{},
		errs:    map[CallOp]error{},
	}
}

func (x *SimXport) Start(sink xport.EvtSink) error {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	if x.started {
		return sppxutil.NewAlreadyError("sim transport already started")
	}

	x.sink = sink
	x.started = true
	log.Debugf("sim transport started")
	return nil
}

func (x *SimXport) Stop() error {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	if !x.started {
		return sppxutil.NewAlreadyError("sim transport not started")
	}

	x.started = false
	x.sink = nil
	return nil
}

// Makes every subsequent request of the specified kind fail with err.  A nil
// err clears the failure.
func (x *SimXport) SetErr(op CallOp, err error) {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	if err == nil {
		delete(x.errs, op)
	} else {
		x.errs[op] = err
	}
}

// Records a request and returns the error configured for it, if any.
func (x *SimXport) record(c Call) error {
	x.calls = append(x.calls, c)

	if err := x.errs[c.Op]; err != nil {
		return err
	}
	if !x.started {
		return sppxutil.NewXportError("sim transport not started")
	}

	return nil
}

func (x *SimXport) StartSrv(sec SppSecMask, role SppRole, name string) error {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	if err := x.record(Call{
		Op:   CALL_OP_START_SRV,
		Sec:  sec,
		Role: role,
		Name: name,
	}); err != nil {
		return err
	}

	x.srvUp = true
	return nil
}

func (x *SimXport) Write(h SessionHandle, data []byte) error {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	if err := x.record(Call{
		Op:     CALL_OP_WRITE,
		Handle: h,
		Data:   append([]byte(nil), data...),
	}); err != nil {
		return err
	}

	if _, ok := x.open[h]; !ok {
		return sppxutil.NewUnknownSesnError(h)
	}

	return nil
}

func (x *SimXport) consumePending(peer BtAddr, kind pendingKind,
	name string) error {

	k, ok := x.pending[peer]
	if !ok || k != kind {
		return sppxutil.NewNoPendingReqError(peer, name)
	}

	delete(x.pending, peer)
	return nil
}

func (x *SimXport) PinReply(peer BtAddr, accept bool, pin PinCode) error {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	if err := x.record(Call{
		Op:     CALL_OP_PIN_REPLY,
		Peer:   peer,
		Accept: accept,
		Pin:    append(PinCode(nil), pin...),
	}); err != nil {
		return err
	}

	return x.consumePending(peer, pendingPin, "pin")
}

func (x *SimXport) SspConfirmReply(peer BtAddr, accept bool) error {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	if err := x.record(Call{
		Op:     CALL_OP_SSP_REPLY,
		Peer:   peer,
		Accept: accept,
	}); err != nil {
		return err
	}

	return x.consumePending(peer, pendingCfm, "confirmation")
}

func (x *SimXport) SetScanMode(c ConnMode, d DiscMode) error {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	if err := x.record(Call{
		Op:       CALL_OP_SCAN_MODE,
		ConnMode: c,
		DiscMode: d,
	}); err != nil {
		return err
	}

	x.connMode = c
	x.discMode = d
	return nil
}

func (x *SimXport) SetDeviceName(name string) error {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	if err := x.record(Call{
		Op:   CALL_OP_DEVICE_NAME,
		Name: name,
	}); err != nil {
		return err
	}

	x.name = name
	return nil
}

// Returns a copy of every request received so far, oldest first.
func (x *SimXport) Calls() []Call {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	return append([]Call(nil), x.calls...)
}

// Returns every request of the specified kind, oldest first.
func (x *SimXport) CallsOf(op CallOp) []Call {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	var calls []Call
	for _, c := range x.calls {
		if c.Op == op {
			calls = append(calls, c)
		}
	}
	return calls
}

func (x *SimXport) ClearCalls() {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	x.calls = nil
}

func (x *SimXport) DeviceName() string {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	return x.name
}

func (x *SimXport) ScanMode() (ConnMode, DiscMode) {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	return x.connMode, x.discMode
}

func (x *SimXport) SrvStarted() bool {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	return x.srvUp
}

// Lists the handles of connections the platform considers open.
func (x *SimXport) OpenHandles() []SessionHandle {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	handles := make([]SessionHandle, 0, len(x.open))
	for h := range x.open {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}
