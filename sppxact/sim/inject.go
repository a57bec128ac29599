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

package sim

import (
	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/btevt"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
)

// Delivers an event to the sink.  If the sink supports synchronous
// delivery, this waits until the event has been handled.
func (x *SimXport) Inject(evt btevt.Evt) error {
	x.mtx.Lock()
	sink := x.sink
	x.mtx.Unlock()

	if sink == nil {
		return sppxutil.NewXportError("sim transport not started")
	}

	if ss, ok := sink.(syncSink); ok {
		return ss.DispatchSync(evt)
	}

	sink.Dispatch(evt)
	return nil
}

func (x *SimXport) SppInit() error {
	x.mtx.Lock()
	started := x.started
	x.mtx.Unlock()

	if !started {
		return sppxutil.NewXportError("sim transport not started")
	}

	return x.InjectInit()
}

func (x *SimXport) InjectInit() error {
	return x.Inject(&btevt.SppInitEvt{Status: BT_STATUS_SUCCESS})
}

// Simulates a peer connecting to the SPP server.
func (x *SimXport) InjectOpen(h SessionHandle, peer BtAddr) error {
	x.mtx.Lock()
	x.open[h] = peer
	x.mtx.Unlock()

	return x.Inject(&btevt.SppSrvOpenEvt{
		Status: BT_STATUS_SUCCESS,
		Handle: h,
		Peer:   peer,
	})
}

func (x *SimXport) InjectData(h SessionHandle, data []byte) error {
	return x.Inject(&btevt.SppDataIndEvt{
		Handle: h,
		Len:    len(data),
		Data:   append([]byte(nil), data...),
	})
}

func (x *SimXport) InjectClose(h SessionHandle) error {
	x.mtx.Lock()
	delete(x.open, h)
	x.mtx.Unlock()

	return x.Inject(&btevt.SppCloseEvt{
		Status: BT_STATUS_SUCCESS,
		Handle: h,
	})
}

func (x *SimXport) InjectPinReq(peer BtAddr, min16Digit bool) error {
	x.mtx.Lock()
	x.pending[peer] = pendingPin
	x.mtx.Unlock()

	return x.Inject(&btevt.PinReqEvt{
		Peer:       peer,
		Min16Digit: min16Digit,
	})
}

func (x *SimXport) InjectCfmReq(peer BtAddr, numVal uint32) error {
	x.mtx.Lock()
	x.pending[peer] = pendingCfm
	x.mtx.Unlock()

	return x.Inject(&btevt.CfmReqEvt{
		Peer:   peer,
		NumVal: numVal,
	})
}

func (x *SimXport) InjectAuthCmpl(peer BtAddr, status BtStatus,
	name string) error {

	x.mtx.Lock()
	delete(x.pending, peer)
	x.mtx.Unlock()

	return x.Inject(&btevt.AuthCmplEvt{
		Peer:       peer,
		Status:     status,
		DeviceName: name,
	})
}
