//go:build !linux

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
	"runtime"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
	"mynewt.apache.org/sppd/sppxact/xport"
)

// BlueZ only runs on Linux; elsewhere every request fails.
type BluezXport struct {
	cfg XportCfg
}

var _ xport.Xport = &BluezXport{}

func NewBluezXport(cfg XportCfg) *BluezXport {
	return &BluezXport{cfg: cfg}
}

func unsupported() error {
	return sppxutil.FmtXportError("bluez transport not supported on %s",
		runtime.GOOS)
}

func (bx *BluezXport) Start(sink xport.EvtSink) error { return unsupported() }
func (bx *BluezXport) Stop() error { return unsupported() }
func (bx *BluezXport) SppInit() error { return unsupported() }

func (bx *BluezXport) StartSrv(sec SppSecMask, role SppRole, name string) error {
	return unsupported()
}

func (bx *BluezXport) Write(h SessionHandle, data []byte) error {
	return unsupported()
}

func (bx *BluezXport) PinReply(peer BtAddr, accept bool, pin PinCode) error {
	return unsupported()
}

func (bx *BluezXport) SspConfirmReply(peer BtAddr, accept bool) error {
	return unsupported()
}

func (bx *BluezXport) SetScanMode(c ConnMode, d DiscMode) error {
	return unsupported()
}

func (bx *BluezXport) SetDeviceName(name string) error {
	return unsupported()
}
