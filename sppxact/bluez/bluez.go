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

// Package bluez implements the Bluetooth platform on Linux, using the BlueZ
// daemon over D-Bus.  BlueZ's pairing agent and profile callbacks are
// translated into platform events; the Stack requests are translated into
// agent replies, RFCOMM socket writes, and adapter property updates.
package bluez

import (
	"time"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
)

const (
	DFLT_ADAPTER_ID = "hci0"
	DFLT_REPLY_TMO  = 30 * time.Second
)

type XportCfg struct {
	// BlueZ adapter name (e.g., "hci0").
	AdapterId string

	// RFCOMM channel the SPP server listens on.
	Channel uint16

	// Report PIN requests as requiring a 16-digit code.  BlueZ does not
	// say whether the peer needs one.
	Min16Digit bool

	// How long an agent request waits for the pairing controller.
	ReplyTmo time.Duration
}

func NewXportCfg() XportCfg {
	return XportCfg{
		AdapterId: DFLT_ADAPTER_ID,
		Channel:   BT_RFCOMM_CHANNEL_DFLT,
		ReplyTmo:  DFLT_REPLY_TMO,
	}
}
