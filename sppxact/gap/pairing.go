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

// Package gap implements the discovery and pairing controller.  It answers
// every pairing request a peer makes of the local device and reports the
// outcome of each attempt.
package gap

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/btevt"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
	"mynewt.apache.org/sppd/sppxact/stats"
	"mynewt.apache.org/sppd/sppxact/xport"
)

const (
	DFLT_SHORT_PIN   = "1234"
	DFLT_LONG_PIN    = "0000000000000000"
	DFLT_ATTEMPT_TTL = 2 * time.Minute
)

type PairState int

const (
	PAIR_STATE_IDLE PairState = iota
	PAIR_STATE_PIN_SUPPLIED
	PAIR_STATE_CONFIRMED
	PAIR_STATE_TERMINAL
)

var pairStateStringMap = map[PairState]string{
	PAIR_STATE_IDLE:         "idle",
	PAIR_STATE_PIN_SUPPLIED: "pin_supplied",
	PAIR_STATE_CONFIRMED:    "confirmed",
	PAIR_STATE_TERMINAL:     "terminal",
}

func PairStateToString(s PairState) string {
	str := pairStateStringMap[s]
	if str == "" {
		return "???"
	}

	return str
}

type PairingCfg struct {
	// Supplied when the peer accepts a short code.
	ShortPin PinCode

	// Supplied when the peer requires a 16-digit code.
	LongPin PinCode

	Policy AuthPolicy

	// How long an unfinished attempt is remembered.  The platform may abandon
	// an attempt without reporting completion.
	AttemptTtl time.Duration
}

func NewPairingCfg() PairingCfg {
	return PairingCfg{
		ShortPin:   PinCode(DFLT_SHORT_PIN),
		LongPin:    PinCode(DFLT_LONG_PIN),
		Policy:     PermissivePolicy{},
		AttemptTtl: DFLT_ATTEMPT_TTL,
	}
}

func (cfg *PairingCfg) Validate() error {
	if len(cfg.LongPin) != MaxPinLen {
		return fmt.Errorf("long PIN must be %d digits; have %d",
			MaxPinLen, len(cfg.LongPin))
	}
	if len(cfg.ShortPin) == 0 || len(cfg.ShortPin) > MaxPinLen {
		return fmt.Errorf("invalid short PIN length: %d", len(cfg.ShortPin))
	}
	if cfg.Policy == nil {
		return fmt.Errorf("pairing policy not set")
	}

	return nil
}

type attempt struct {
	state   PairState
	updated time.Time
}

// Snapshot of one peer's pairing attempt.
type Attempt struct {
	Peer    BtAddr    `json:"peer"`
	State   string    `json:"state"`
	Updated time.Time `json:"updated"`
}

type PairingCtlr struct {
	cfg   PairingCfg
	stack xport.Stack
	diag  sppxutil.Diag
	stats stats.Collector

	attempts map[BtAddr]*attempt
	now      func() time.Time
	mtx      sync.Mutex
}

func NewPairingCtlr(stack xport.Stack, cfg PairingCfg,
	diag sppxutil.Diag) (*PairingCtlr, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if diag == nil {
		diag = sppxutil.NewLogrusDiag(nil)
	}

	return &PairingCtlr{
		cfg:      cfg,
		stack:    stack,
		diag:     diag,
		stats:    stats.NopCollector{},
		attempts: map[BtAddr]*attempt{},
		now:      time.Now,
	}, nil
}

func (pc *PairingCtlr) SetStats(c stats.Collector) {
	pc.stats = c
}

// Reports the state of the most recent attempt with the specified peer.
// Peers with no remembered attempt are idle.
func (pc *PairingCtlr) AttemptState(peer BtAddr) PairState {
	pc.mtx.Lock()
	defer pc.mtx.Unlock()

	a := pc.attempts[peer]
	if a == nil {
		return PAIR_STATE_IDLE
	}
	return a.state
}

func (pc *PairingCtlr) Attempts() []Attempt {
	pc.mtx.Lock()
	defer pc.mtx.Unlock()

	atts := make([]Attempt, 0, len(pc.attempts))
	for peer, a := range pc.attempts {
		atts = append(atts, Attempt{
			Peer:    peer,
			State:   PairStateToString(a.state),
			Updated: a.updated,
		})
	}
	return atts
}

func (pc *PairingCtlr) setState(peer BtAddr, state PairState) {
	pc.mtx.Lock()
	defer pc.mtx.Unlock()

	now := pc.now()

	// Forget attempts the platform abandoned.
	for p, a := range pc.attempts {
		if p != peer && now.Sub(a.updated) > pc.cfg.AttemptTtl {
			log.Debugf("Pruning stale pairing attempt: peer=%s state=%s",
				p, PairStateToString(a.state))
			delete(pc.attempts, p)
		}
	}

	pc.attempts[peer] = &attempt{
		state:   state,
		updated: now,
	}
}

func (pc *PairingCtlr) accept(peer BtAddr, kind ReqKind) bool {
	ok := pc.cfg.Policy.Accept(peer, kind)
	if !ok {
		pc.diag.Log("pair_denied", log.Fields{
			"peer":   peer.String(),
			"kind":   ReqKindToString(kind),
			"policy": pc.cfg.Policy.Name(),
		})
	}

	return ok
}

func (pc *PairingCtlr) onPinReq(evt *btevt.PinReqEvt) {
	pin := pc.cfg.ShortPin
	if evt.Min16Digit {
		pin = pc.cfg.LongPin
	}

	accept := pc.accept(evt.Peer, REQ_KIND_PIN)

	pc.diag.Log("pin_request", log.Fields{
		"peer":        evt.Peer.String(),
		"min_16digit": evt.Min16Digit,
	})

	if err := pc.stack.PinReply(evt.Peer, accept, pin); err != nil {
		pc.diag.Log("reply_failed", log.Fields{
			"peer": evt.Peer.String(),
			"kind": ReqKindToString(REQ_KIND_PIN),
			"err":  err.Error(),
		})
	} else if accept {
		pc.diag.Log("pin_supplied", log.Fields{
			"peer":    evt.Peer.String(),
			"pin_len": len(pin),
			"code":    pin.Display(),
		})
	}

	pc.stats.PairReply(ReqKindToString(REQ_KIND_PIN), accept)
	pc.setState(evt.Peer, PAIR_STATE_PIN_SUPPLIED)
}

func (pc *PairingCtlr) onCfmReq(evt *btevt.CfmReqEvt) {
	accept := pc.accept(evt.Peer, REQ_KIND_CFM)

	fields := log.Fields{
		"peer":   evt.Peer.String(),
		"accept": accept,
	}
	if evt.JustWorks {
		fields["just_works"] = true
	} else {
		fields["num_val"] = fmt.Sprintf("%06d", evt.NumVal)
	}
	pc.diag.Log("ssp_confirm_request", fields)

	if err := pc.stack.SspConfirmReply(evt.Peer, accept); err != nil {
		pc.diag.Log("reply_failed", log.Fields{
			"peer": evt.Peer.String(),
			"kind": ReqKindToString(REQ_KIND_CFM),
			"err":  err.Error(),
		})
	}

	pc.stats.PairReply(ReqKindToString(REQ_KIND_CFM), accept)
	pc.setState(evt.Peer, PAIR_STATE_CONFIRMED)
}

func (pc *PairingCtlr) onAuthCmpl(evt *btevt.AuthCmplEvt) {
	success := evt.Status == BT_STATUS_SUCCESS

	if success {
		name := evt.DeviceName
		if name == "" {
			name = evt.Peer.String()
		}
		pc.diag.Log("auth_success", log.Fields{
			"peer":        evt.Peer.String(),
			"device_name": name,
		})
	} else {
		pc.diag.Log("auth_failed", log.Fields{
			"peer":        evt.Peer.String(),
			"status":      int(evt.Status),
			"status_name": BtStatusToString(evt.Status),
		})
	}

	pc.stats.AuthCompleted(evt.Peer, success)
	pc.setState(evt.Peer, PAIR_STATE_TERMINAL)
}

// Handles a single GAP event.  Never fails; problems are reported through
// the diagnostic sink.
func (pc *PairingCtlr) HandleEvent(evt btevt.Evt) {
	switch e := evt.(type) {
	case *btevt.PinReqEvt:
		pc.onPinReq(e)

	case *btevt.CfmReqEvt:
		pc.onCfmReq(e)

	case *btevt.AuthCmplEvt:
		pc.onAuthCmpl(e)

	default:
		pc.diag.Log("unhandled_event", log.Fields{
			"class": btevt.EvtClassToString(btevt.EVT_CLASS_GAP),
			"type":  btevt.EvtTypeToString(evt.Type()),
			"num":   int(evt.Type()),
		})
	}
}
