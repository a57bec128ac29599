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

package gap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/btevt"
	"mynewt.apache.org/sppd/sppxact/sim"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
)

var (
	peerP = BtAddr{Bytes: [6]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x01}}
	peerQ = BtAddr{Bytes: [6]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x02}}
)

type fixture struct {
	x    *sim.SimXport
	pc   *PairingCtlr
	diag *sppxutil.RecDiag
}

func newFixture(t *testing.T, cfg PairingCfg) fixture {
	x := sim.NewSimXport()
	diag := sppxutil.NewRecDiag()

	pc, err := NewPairingCtlr(x, cfg, diag)
	require.NoError(t, err)
	require.NoError(t, x.Start(sim.SinkFunc(pc.HandleEvent)))

	return fixture{x, pc, diag}
}

func TestShortAndLongPin(t *testing.T) {
	// given
	f := newFixture(t, NewPairingCfg())

	// when
	require.NoError(t, f.x.InjectPinReq(peerP, false))
	require.NoError(t, f.x.InjectPinReq(peerQ, true))

	// then
	replies := f.x.CallsOf(sim.CALL_OP_PIN_REPLY)
	require.Len(t, replies, 2)

	assert.Equal(t, peerP, replies[0].Peer)
	assert.True(t, replies[0].Accept)
	assert.Equal(t, 4, len(replies[0].Pin))
	assert.Equal(t, PinCode("1234"), replies[0].Pin)

	assert.Equal(t, peerQ, replies[1].Peer)
	assert.True(t, replies[1].Accept)
	assert.Equal(t, 16, len(replies[1].Pin))
	assert.Equal(t, PinCode("0000000000000000"), replies[1].Pin)

	assert.Equal(t, PAIR_STATE_PIN_SUPPLIED, f.pc.AttemptState(peerP))
	assert.Equal(t, PAIR_STATE_PIN_SUPPLIED, f.pc.AttemptState(peerQ))

	supplied := f.diag.Find("pin_supplied")
	require.Len(t, supplied, 2)
	assert.Equal(t, "1234", supplied[0].Fields["code"])
	assert.Equal(t, "0000 0000 0000 0000", supplied[1].Fields["code"])
}

func TestExactlyOneReplyPerRequest(t *testing.T) {
	// given
	f := newFixture(t, NewPairingCfg())

	// when
	require.NoError(t, f.x.InjectCfmReq(peerP, 123456))
	require.NoError(t, f.x.InjectPinReq(peerQ, false))
	require.NoError(t, f.x.InjectCfmReq(peerQ, 0))

	// then
	calls := f.x.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, sim.CALL_OP_SSP_REPLY, calls[0].Op)
	assert.Equal(t, peerP, calls[0].Peer)
	assert.True(t, calls[0].Accept)
	assert.Equal(t, sim.CALL_OP_PIN_REPLY, calls[1].Op)
	assert.Equal(t, peerQ, calls[1].Peer)
	assert.Equal(t, sim.CALL_OP_SSP_REPLY, calls[2].Op)
	assert.Equal(t, peerQ, calls[2].Peer)

	assert.Equal(t, PAIR_STATE_CONFIRMED, f.pc.AttemptState(peerP))
	assert.Equal(t, PAIR_STATE_CONFIRMED, f.pc.AttemptState(peerQ))

	// Every reply matched an outstanding request.
	assert.Empty(t, f.diag.Find("reply_failed"))
}

func TestAuthComplete(t *testing.T) {
	// given
	f := newFixture(t, NewPairingCfg())
	require.NoError(t, f.x.InjectPinReq(peerP, false))
	f.x.ClearCalls()

	// when
	require.NoError(t, f.x.InjectAuthCmpl(peerP, BT_STATUS_SUCCESS, "Phone"))
	require.NoError(t, f.x.InjectAuthCmpl(peerQ, BtStatus(3), ""))

	// then
	assert.Empty(t, f.x.Calls())

	ok := f.diag.Find("auth_success")
	require.Len(t, ok, 1)
	assert.Equal(t, "Phone", ok[0].Fields["device_name"])

	failed := f.diag.Find("auth_failed")
	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].Fields["status"])

	assert.Equal(t, PAIR_STATE_TERMINAL, f.pc.AttemptState(peerP))
	assert.Equal(t, PAIR_STATE_TERMINAL, f.pc.AttemptState(peerQ))
}

func TestAuthCompleteWithoutName(t *testing.T) {
	f := newFixture(t, NewPairingCfg())

	require.NoError(t, f.x.InjectAuthCmpl(peerP, BT_STATUS_SUCCESS, ""))

	ok := f.diag.Find("auth_success")
	require.Len(t, ok, 1)
	assert.Equal(t, peerP.String(), ok[0].Fields["device_name"])
}

func TestUnknownEventIsInert(t *testing.T) {
	// given
	f := newFixture(t, NewPairingCfg())
	require.NoError(t, f.x.InjectPinReq(peerP, false))
	f.x.ClearCalls()

	// when
	for _, typ := range []btevt.EvtType{btevt.EVT_TYPE_KEY_REQ,
		btevt.EVT_TYPE_MODE_CHG, btevt.EvtType(250)} {

		require.NoError(t, f.x.Inject(&btevt.RawEvt{Typ: typ}))
	}
	require.NoError(t, f.x.Inject(&btevt.KeyNotifEvt{Peer: peerP}))

	// then
	assert.Empty(t, f.x.Calls())
	assert.Len(t, f.diag.Find("unhandled_event"), 4)
	assert.Equal(t, PAIR_STATE_PIN_SUPPLIED, f.pc.AttemptState(peerP))
}

func TestDeniedRequestStillReplied(t *testing.T) {
	// given
	cfg := NewPairingCfg()
	cfg.Policy = NewAllowListPolicy([]BtAddr{peerP})
	f := newFixture(t, cfg)

	// when
	require.NoError(t, f.x.InjectPinReq(peerQ, false))
	require.NoError(t, f.x.InjectCfmReq(peerQ, 42))
	require.NoError(t, f.x.InjectCfmReq(peerP, 42))

	// then
	calls := f.x.Calls()
	require.Len(t, calls, 3)
	assert.False(t, calls[0].Accept)
	assert.False(t, calls[1].Accept)
	assert.True(t, calls[2].Accept)
	assert.Len(t, f.diag.Find("pair_denied"), 2)
	assert.Empty(t, f.diag.Find("pin_supplied"))
}

func TestDenyListPolicy(t *testing.T) {
	p := NewDenyListPolicy([]BtAddr{peerQ})
	assert.True(t, p.Accept(peerP, REQ_KIND_PIN))
	assert.False(t, p.Accept(peerQ, REQ_KIND_CFM))
	assert.True(t, PermissivePolicy{}.Accept(peerQ, REQ_KIND_PIN))
}

func TestReplyFailureIsLogged(t *testing.T) {
	// given
	f := newFixture(t, NewPairingCfg())
	f.x.SetErr(sim.CALL_OP_PIN_REPLY, sppxutil.NewXportError("radio off"))

	// when
	require.NoError(t, f.x.InjectPinReq(peerP, true))

	// then
	assert.Len(t, f.x.CallsOf(sim.CALL_OP_PIN_REPLY), 1)
	failed := f.diag.Find("reply_failed")
	require.Len(t, failed, 1)
	assert.Equal(t, "radio off", failed[0].Fields["err"])
}

func TestStaleAttemptsPruned(t *testing.T) {
	// given
	f := newFixture(t, NewPairingCfg())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.pc.now = func() time.Time { return now }

	require.NoError(t, f.x.InjectPinReq(peerP, false))

	// when
	now = now.Add(DFLT_ATTEMPT_TTL + time.Second)
	require.NoError(t, f.x.InjectCfmReq(peerQ, 1))

	// then
	assert.Equal(t, PAIR_STATE_IDLE, f.pc.AttemptState(peerP))
	assert.Equal(t, PAIR_STATE_CONFIRMED, f.pc.AttemptState(peerQ))
	assert.Len(t, f.pc.Attempts(), 1)
}

func TestInvalidCfg(t *testing.T) {
	cfg := NewPairingCfg()
	cfg.LongPin = PinCode("1234")
	_, err := NewPairingCtlr(sim.NewSimXport(), cfg, nil)
	assert.Error(t, err)

	cfg = NewPairingCfg()
	cfg.Policy = nil
	_, err = NewPairingCtlr(sim.NewSimXport(), cfg, nil)
	assert.Error(t, err)
}
