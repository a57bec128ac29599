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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBtAddr(t *testing.T) {
	// when
	ba, err := ParseBtAddr("0A:1b:2C:3d:4E:5f")

	// then
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0x0a, 0x1b, 0x2c, 0x3d, 0x4e, 0x5f}, ba.Bytes)
	assert.Equal(t, "0a:1b:2c:3d:4e:5f", ba.String())
	assert.False(t, ba.IsZero())
}

func TestParseBtAddrInvalid(t *testing.T) {
	for _, s := range []string{"", "00:11:22:33:44", "00:11:22:33:44:zz",
		"00:11:22:33:44:55:66", "100:11:22:33:44:55"} {

		_, err := ParseBtAddr(s)
		assert.Error(t, err, s)
	}
}

func TestBtAddrJSON(t *testing.T) {
	// given
	type wrapper struct {
		Peer BtAddr `json:"peer"`
	}
	w := wrapper{}
	w.Peer.Bytes = [6]byte{1, 2, 3, 4, 5, 6}

	// when
	b, err := json.Marshal(w)
	require.NoError(t, err)

	var decoded wrapper
	decodeErr := json.Unmarshal(b, &decoded)

	// then
	assert.JSONEq(t, `{"peer":"01:02:03:04:05:06"}`, string(b))
	assert.NoError(t, decodeErr)
	assert.Equal(t, w.Peer, decoded.Peer)
}

func TestNewPinCode(t *testing.T) {
	pin, err := NewPinCode("1234")
	assert.NoError(t, err)
	assert.Equal(t, 4, len(pin))

	_, err = NewPinCode("")
	assert.Error(t, err)

	_, err = NewPinCode("01234567890123456")
	assert.Error(t, err)
}

func TestPinCodeDisplay(t *testing.T) {
	assert.Equal(t, "1234", PinCode("1234").Display())
	assert.Equal(t, "0000 0000 0000 0000",
		PinCode("0000000000000000").Display())
	assert.Equal(t, "1234 5", PinCode("12345").Display())
}

func TestSppSecMaskStrings(t *testing.T) {
	assert.Equal(t, "none", SppSecMaskToString(SPP_SEC_NONE))
	assert.Equal(t, "authenticate", SppSecMaskToString(SPP_SEC_AUTHENTICATE))
	assert.Equal(t, "authenticate+encrypt",
		SppSecMaskToString(SPP_SEC_AUTHENTICATE|SPP_SEC_ENCRYPT))

	m, err := SppSecMaskFromString("authorize+authenticate")
	require.NoError(t, err)
	assert.True(t, m.Has(SPP_SEC_AUTHORIZE))
	assert.True(t, m.Has(SPP_SEC_AUTHENTICATE))
	assert.False(t, m.Has(SPP_SEC_ENCRYPT))

	_, err = SppSecMaskFromString("authenticate+bogus")
	assert.Error(t, err)
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "auth_failure", BtStatusToString(BT_STATUS_AUTH_FAILURE))
	assert.Equal(t, "???", BtStatusToString(BtStatus(99)))
	assert.Equal(t, "slave", SppRoleToString(SPP_ROLE_SLAVE))
	assert.Equal(t, "general", DiscModeToString(DISC_MODE_GENERAL))

	mode, err := ConnModeFromString("connectable")
	assert.NoError(t, err)
	assert.Equal(t, CONN_MODE_CONNECTABLE, mode)

	_, err = DiscModeFromString("sometimes")
	assert.Error(t, err)
}
