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

package spp

import (
	"time"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
)

type SesnState int

const (
	SESN_STATE_OPEN SesnState = iota
	SESN_STATE_CLOSED
)

var sesnStateStringMap = map[SesnState]string{
	SESN_STATE_OPEN:   "open",
	SESN_STATE_CLOSED: "closed",
}

func SesnStateToString(s SesnState) string {
	str := sesnStateStringMap[s]
	if str == "" {
		return "???"
	}

	return str
}

func (s SesnState) MarshalText() ([]byte, error) {
	return []byte(SesnStateToString(s)), nil
}

// One open connection to the SPP server.
type Session struct {
	Handle   SessionHandle `json:"handle"`
	Peer     BtAddr        `json:"peer"`
	State    SesnState     `json:"state"`
	OpenedAt time.Time     `json:"opened_at"`
	RxBytes  uint64        `json:"rx_bytes"`
	TxBytes  uint64        `json:"tx_bytes"`
}

type MgrState int

const (
	MGR_STATE_UNINITIALIZED MgrState = iota
	MGR_STATE_LISTENING
)

var mgrStateStringMap = map[MgrState]string{
	MGR_STATE_UNINITIALIZED: "uninitialized",
	MGR_STATE_LISTENING:     "listening",
}

func MgrStateToString(s MgrState) string {
	str := mgrStateStringMap[s]
	if str == "" {
		return "???"
	}

	return str
}
