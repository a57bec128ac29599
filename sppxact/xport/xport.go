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

package xport

import (
	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/btevt"
)

// The requests a Bluetooth platform stack accepts.  Each call is
// fire-and-forget from the caller's point of view; the stack reports
// outcomes asynchronously as events.
type Stack interface {
	// Registers and starts the SPP server.
	StartSrv(sec SppSecMask, role SppRole, name string) error

	// Sends data on an open SPP connection.
	Write(h SessionHandle, data []byte) error

	// Answers a legacy pairing PIN request.
	PinReply(peer BtAddr, accept bool, pin PinCode) error

	// Answers a Secure Simple Pairing confirmation request.
	SspConfirmReply(peer BtAddr, accept bool) error

	SetScanMode(c ConnMode, d DiscMode) error
	SetDeviceName(name string) error
}

// Receives events from a platform stack.  Dispatch must not block for long;
// platforms call it from their own goroutines.
type EvtSink interface {
	Dispatch(evt btevt.Evt)
}

type Xport interface {
	Stack

	// Brings the platform up.  After Start returns successfully, events flow
	// to the sink.
	Start(sink EvtSink) error
	Stop() error

	// Initializes the SPP layer.  The platform reports completion with an
	// SppInitEvt.
	SppInit() error
}
