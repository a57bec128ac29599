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

package btdefs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Serial Port Profile service class UUID.
const SppUuid = "00001101-0000-1000-8000-00805f9b34fb"

const BT_RFCOMM_CHANNEL_DFLT = 22

// Maximum length of a legacy pairing PIN code.
const MaxPinLen = 16

type BtAddr struct {
	Bytes [6]byte
}

func ParseBtAddr(s string) (BtAddr, error) {
	ba := BtAddr{}

	toks := strings.Split(strings.ToLower(s), ":")
	if len(toks) != 6 {
		return ba, fmt.Errorf("invalid BT addr string: %s", s)
	}

	for i, t := range toks {
		u64, err := strconv.ParseUint(t, 16, 8)
		if err != nil {
			return ba, fmt.Errorf("invalid BT addr string: %s", s)
		}
		ba.Bytes[i] = byte(u64)
	}

	return ba, nil
}

func (ba BtAddr) String() string {
	var buf bytes.Buffer
	buf.Grow(len(ba.Bytes) * 3)

	for i, b := range ba.Bytes {
		if i != 0 {
			buf.WriteString(":")
		}
		fmt.Fprintf(&buf, "%02x", b)
	}

	return buf.String()
}

func (ba BtAddr) IsZero() bool {
	return ba == BtAddr{}
}

func (ba BtAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(ba.String())
}

func (ba *BtAddr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	var err error
	*ba, err = ParseBtAddr(s)
	return err
}

// Identifies an open SPP connection.  Handles are assigned by the platform
// stack and may be reused after the connection closes.
type SessionHandle uint32

// A legacy pairing PIN code; 1 to MaxPinLen bytes.
type PinCode []byte

func NewPinCode(s string) (PinCode, error) {
	if len(s) == 0 || len(s) > MaxPinLen {
		return nil, fmt.Errorf("invalid PIN length: %d (must be 1-%d)",
			len(s), MaxPinLen)
	}

	return PinCode(s), nil
}

func (p PinCode) String() string {
	return string(p)
}

// Formats the code the way it is shown to an operator: digits grouped by
// four.
func (p PinCode) Display() string {
	var buf bytes.Buffer
	for i, b := range p {
		if i != 0 && i%4 == 0 {
			buf.WriteString(" ")
		}
		buf.WriteByte(b)
	}

	return buf.String()
}

type BtStatus int

const (
	BT_STATUS_SUCCESS BtStatus = iota
	BT_STATUS_FAIL
	BT_STATUS_NOT_READY
	BT_STATUS_NOMEM
	BT_STATUS_BUSY
	BT_STATUS_DONE
	BT_STATUS_UNSUPPORTED
	BT_STATUS_PARM_INVALID
	BT_STATUS_UNHANDLED
	BT_STATUS_AUTH_FAILURE
	BT_STATUS_RMT_DEV_DOWN
	BT_STATUS_AUTH_REJECTED
	BT_STATUS_INVALID_STATIC_RAND_ADDR
	BT_STATUS_PENDING
	BT_STATUS_UNACCEPT_CONN_INTERVAL
	BT_STATUS_PARAM_OUT_OF_RANGE
	BT_STATUS_TIMEOUT
)

var BtStatusStringMap = map[BtStatus]string{
	BT_STATUS_SUCCESS:                  "success",
	BT_STATUS_FAIL:                     "fail",
	BT_STATUS_NOT_READY:                "not_ready",
	BT_STATUS_NOMEM:                    "nomem",
	BT_STATUS_BUSY:                     "busy",
	BT_STATUS_DONE:                     "done",
	BT_STATUS_UNSUPPORTED:              "unsupported",
	BT_STATUS_PARM_INVALID:             "parm_invalid",
	BT_STATUS_UNHANDLED:                "unhandled",
	BT_STATUS_AUTH_FAILURE:             "auth_failure",
	BT_STATUS_RMT_DEV_DOWN:             "rmt_dev_down",
	BT_STATUS_AUTH_REJECTED:            "auth_rejected",
	BT_STATUS_INVALID_STATIC_RAND_ADDR: "invalid_static_rand_addr",
	BT_STATUS_PENDING:                  "pending",
	BT_STATUS_UNACCEPT_CONN_INTERVAL:   "unaccept_conn_interval",
	BT_STATUS_PARAM_OUT_OF_RANGE:       "param_out_of_range",
	BT_STATUS_TIMEOUT:                  "timeout",
}

func BtStatusToString(status BtStatus) string {
	s := BtStatusStringMap[status]
	if s == "" {
		return "???"
	}

	return s
}

func BtStatusFromString(s string) (BtStatus, error) {
	for status, name := range BtStatusStringMap {
		if s == name {
			return status, nil
		}
	}

	return BtStatus(0), fmt.Errorf("Invalid BtStatus string: %s", s)
}

func (s BtStatus) String() string {
	return BtStatusToString(s)
}

func (s BtStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(BtStatusToString(s))
}

func (s *BtStatus) UnmarshalJSON(data []byte) error {
	var err error

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	*s, err = BtStatusFromString(str)
	return err
}

// Security requirements of an SPP server.  Values may be or'ed together.
type SppSecMask int

const (
	SPP_SEC_NONE         SppSecMask = 0x0000
	SPP_SEC_AUTHORIZE    SppSecMask = 0x0001
	SPP_SEC_AUTHENTICATE SppSecMask = 0x0012
	SPP_SEC_ENCRYPT      SppSecMask = 0x0024
)

var sppSecNames = []struct {
	mask SppSecMask
	name string
}{
	{SPP_SEC_AUTHORIZE, "authorize"},
	{SPP_SEC_AUTHENTICATE, "authenticate"},
	{SPP_SEC_ENCRYPT, "encrypt"},
}

func SppSecMaskToString(m SppSecMask) string {
	if m == SPP_SEC_NONE {
		return "none"
	}

	var toks []string
	for _, sn := range sppSecNames {
		if m&sn.mask == sn.mask {
			toks = append(toks, sn.name)
		}
	}

	if len(toks) == 0 {
		return "???"
	}
	return strings.Join(toks, "+")
}

// Parses a '+'-separated list of security requirements (e.g.,
// "authenticate+encrypt").
func SppSecMaskFromString(s string) (SppSecMask, error) {
	if s == "none" {
		return SPP_SEC_NONE, nil
	}

	var m SppSecMask
	for _, tok := range strings.Split(s, "+") {
		found := false
		for _, sn := range sppSecNames {
			if tok == sn.name {
				m |= sn.mask
				found = true
				break
			}
		}
		if !found {
			return SPP_SEC_NONE, fmt.Errorf("Invalid SppSecMask string: %s", s)
		}
	}

	return m, nil
}

func (m SppSecMask) Has(other SppSecMask) bool {
	return m&other == other
}

func (m SppSecMask) String() string {
	return SppSecMaskToString(m)
}

func (m SppSecMask) MarshalJSON() ([]byte, error) {
	return json.Marshal(SppSecMaskToString(m))
}

func (m *SppSecMask) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*m, err = SppSecMaskFromString(s)
	return err
}

type SppRole int

const (
	SPP_ROLE_MASTER SppRole = iota
	SPP_ROLE_SLAVE
)

var SppRoleStringMap = map[SppRole]string{
	SPP_ROLE_MASTER: "master",
	SPP_ROLE_SLAVE:  "slave",
}

func SppRoleToString(role SppRole) string {
	s := SppRoleStringMap[role]
	if s == "" {
		return "???"
	}

	return s
}

func SppRoleFromString(s string) (SppRole, error) {
	for role, name := range SppRoleStringMap {
		if s == name {
			return role, nil
		}
	}

	return SppRole(0), fmt.Errorf("Invalid SppRole string: %s", s)
}

func (r SppRole) String() string {
	return SppRoleToString(r)
}

func (r SppRole) MarshalJSON() ([]byte, error) {
	return json.Marshal(SppRoleToString(r))
}

func (r *SppRole) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*r, err = SppRoleFromString(s)
	return err
}

type ConnMode int

const (
	CONN_MODE_NON_CONNECTABLE ConnMode = iota
	CONN_MODE_CONNECTABLE
)

var ConnModeStringMap = map[ConnMode]string{
	CONN_MODE_NON_CONNECTABLE: "non_connectable",
	CONN_MODE_CONNECTABLE:     "connectable",
}

func ConnModeToString(mode ConnMode) string {
	s := ConnModeStringMap[mode]
	if s == "" {
		return "???"
	}

	return s
}

func ConnModeFromString(s string) (ConnMode, error) {
	for mode, name := range ConnModeStringMap {
		if s == name {
			return mode, nil
		}
	}

	return ConnMode(0), fmt.Errorf("Invalid ConnMode string: %s", s)
}

func (m ConnMode) String() string {
	return ConnModeToString(m)
}

func (m ConnMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(ConnModeToString(m))
}

func (m *ConnMode) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*m, err = ConnModeFromString(s)
	return err
}

type DiscMode int

const (
	DISC_MODE_NON_DISCOVERABLE DiscMode = iota
	DISC_MODE_LIMITED
	DISC_MODE_GENERAL
)

var DiscModeStringMap = map[DiscMode]string{
	DISC_MODE_NON_DISCOVERABLE: "non_discoverable",
	DISC_MODE_LIMITED:          "limited",
	DISC_MODE_GENERAL:          "general",
}

func DiscModeToString(mode DiscMode) string {
	s := DiscModeStringMap[mode]
	if s == "" {
		return "???"
	}

	return s
}

func DiscModeFromString(s string) (DiscMode, error) {
	for mode, name := range DiscModeStringMap {
		if s == name {
			return mode, nil
		}
	}

	return DiscMode(0), fmt.Errorf("Invalid DiscMode string: %s", s)
}

func (m DiscMode) String() string {
	return DiscModeToString(m)
}

func (m DiscMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(DiscModeToString(m))
}

func (m *DiscMode) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*m, err = DiscModeFromString(s)
	return err
}
