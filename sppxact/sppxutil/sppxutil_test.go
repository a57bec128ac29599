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

package sppxutil

import (
	"bytes"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mynewt.apache.org/sppd/sppxact/btdefs"
)

func TestErrorPredicates(t *testing.T) {
	peer := btdefs.BtAddr{Bytes: [6]byte{1, 2, 3, 4, 5, 6}}

	assert.True(t, IsXport(FmtXportError("write failed: %d", 5)))
	assert.False(t, IsXport(nil))
	assert.True(t, IsSesnClosed(NewSesnClosedError(3, "closed")))
	assert.True(t, IsUnknownSesn(NewUnknownSesnError(3)))
	assert.True(t, IsNoPendingReq(NewNoPendingReqError(peer, "pin")))
	assert.True(t, IsAlready(NewAlreadyError("already listening")))
	assert.False(t, IsAlready(NewXportError("x")))

	err := NewNoPendingReqError(peer, "pin")
	assert.Equal(t, "no pending pin request for peer 01:02:03:04:05:06",
		err.Error())
}

func TestBtStatusError(t *testing.T) {
	err := FmtBtStatusError(btdefs.BT_STATUS_AUTH_FAILURE, "pairing with %s",
		"a")

	require.NotNil(t, ToBtStatus(err))
	assert.Equal(t, btdefs.BT_STATUS_AUTH_FAILURE, ToBtStatus(err).Status)
	assert.Equal(t, "pairing with a; status=auth_failure (9)", err.Error())
	assert.Nil(t, ToBtStatus(NewXportError("x")))
}

func TestRecDiag(t *testing.T) {
	// given
	d := NewRecDiag()
	fields := log.Fields{"handle": 1}

	// when
	d.Log("session_open", fields)
	d.Log("data_rx", log.Fields{"len": 4})
	fields["handle"] = 2

	// then
	assert.Equal(t, []string{"session_open", "data_rx"}, d.Kinds())
	recs := d.Find("session_open")
	require.Len(t, recs, 1)
	assert.Equal(t, 1, recs[0].Fields["handle"])

	d.Clear()
	assert.Empty(t, d.Records())
}

func TestLogrusDiag(t *testing.T) {
	// given
	var buf bytes.Buffer
	logger := log.New()
	logger.Out = &buf
	logger.Formatter = &log.TextFormatter{DisableTimestamp: true}
	d := NewLogrusDiag(logger)

	// when
	d.Log("pin_reply", log.Fields{"peer": "aa"})

	// then
	out := buf.String()
	assert.Contains(t, out, "pin_reply")
	assert.Contains(t, out, "evt=pin_reply")
	assert.Contains(t, out, "peer=aa")
}
