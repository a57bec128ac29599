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

// Package spp implements the serial session manager: it starts the SPP
// server, greets each peer that connects, and echoes every chunk it
// receives back to the sender.
package spp

import (
	"sort"
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
	DFLT_SRV_NAME = "MySerial"
	DFLT_GREETING = "Hello, world!"
)

type SrvCfg struct {
	SrvName  string
	SecMask  SppSecMask
	Role     SppRole
	Greeting []byte
}

func NewSrvCfg() SrvCfg {
	return SrvCfg{
		SrvName:  DFLT_SRV_NAME,
		SecMask:  SPP_SEC_AUTHENTICATE,
		Role:     SPP_ROLE_SLAVE,
		Greeting: []byte(DFLT_GREETING),
	}
}

type SessionMgr struct {
	cfg   SrvCfg
	stack xport.Stack
	diag  sppxutil.Diag
	stats stats.Collector

	state MgrState
	sesns map[SessionHandle]*Session
	now   func() time.Time
	mtx   sync.Mutex
}

func NewSessionMgr(stack xport.Stack, cfg SrvCfg,
	diag sppxutil.Diag) *SessionMgr {

	if diag == nil {
		diag = sppxutil.NewLogrusDiag(nil)
	}

	return &SessionMgr{
		cfg:   cfg,
		stack: stack,
		diag:  diag,
		stats: stats.NopCollector{},
		sesns: map[SessionHandle]*Session{},
		now:   time.Now,
	}
}

func (sm *SessionMgr) SetStats(c stats.Collector) {
	sm.stats = c
}

func (sm *SessionMgr) State() MgrState {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	return sm.state
}

// Returns a snapshot of the open sessions, sorted by handle.
func (sm *SessionMgr) Sessions() []Session {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	sesns := make([]Session, 0, len(sm.sesns))
	for _, s := range sm.sesns {
		sesns = append(sesns, *s)
	}
	sort.Slice(sesns, func(i, j int) bool {
		return sesns[i].Handle < sesns[j].Handle
	})

	return sesns
}

func (sm *SessionMgr) Session(h SessionHandle) (Session, bool) {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	s := sm.sesns[h]
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

func (sm *SessionMgr) onInit(evt *btevt.SppInitEvt) {
	sm.mtx.Lock()
	state := sm.state
	sm.mtx.Unlock()

	if state != MGR_STATE_UNINITIALIZED {
		sm.diag.Log("spp_init_ignored", log.Fields{
			"state": MgrStateToString(state),
		})
		return
	}

	if evt.Status != BT_STATUS_SUCCESS {
		err := sppxutil.NewBtStatusError(evt.Status, "spp init failed")
		sm.diag.Log("spp_init_failed", log.Fields{
			"status": int(evt.Status),
			"err":    err.Error(),
		})
		return
	}

	err := sm.stack.StartSrv(sm.cfg.SecMask, sm.cfg.Role, sm.cfg.SrvName)
	if err != nil {
		sm.diag.Log("start_srv_failed", log.Fields{
			"srv_name": sm.cfg.SrvName,
			"err":      err.Error(),
		})
		return
	}

	sm.mtx.Lock()
	sm.state = MGR_STATE_LISTENING
	sm.mtx.Unlock()

	sm.diag.Log("srv_started", log.Fields{
		"srv_name": sm.cfg.SrvName,
		"sec":      SppSecMaskToString(sm.cfg.SecMask),
		"role":     SppRoleToString(sm.cfg.Role),
	})
}

func (sm *SessionMgr) onSrvOpen(evt *btevt.SppSrvOpenEvt) {
	if evt.Status != BT_STATUS_SUCCESS {
		err := sppxutil.FmtBtStatusError(evt.Status,
			"open of session %d failed", evt.Handle)
		sm.diag.Log("session_open_failed", log.Fields{
			"handle": evt.Handle,
			"status": int(evt.Status),
			"err":    err.Error(),
		})
		return
	}

	s := &Session{
		Handle:   evt.Handle,
		Peer:     evt.Peer,
		State:    SESN_STATE_OPEN,
		OpenedAt: sm.now(),
	}

	sm.mtx.Lock()
	stale := sm.sesns[evt.Handle]
	sm.sesns[evt.Handle] = s
	sm.mtx.Unlock()

	if stale != nil {
		sm.diag.Log("session_replaced", log.Fields{
			"handle":   evt.Handle,
			"old_peer": stale.Peer.String(),
		})
		sm.stats.SessionClosed(evt.Handle)
	}

	sm.diag.Log("session_open", log.Fields{
		"handle": evt.Handle,
		"peer":   evt.Peer.String(),
	})
	sm.stats.SessionOpened(evt.Handle, evt.Peer)

	sm.send(evt.Handle, sm.cfg.Greeting, "greeting")
}

func (sm *SessionMgr) onDataInd(evt *btevt.SppDataIndEvt) {
	if evt.Len != len(evt.Data) {
		sm.diag.Log("data_malformed", log.Fields{
			"handle":   evt.Handle,
			"len":      evt.Len,
			"data_len": len(evt.Data),
		})
		return
	}

	sm.mtx.Lock()
	s := sm.sesns[evt.Handle]
	if s != nil {
		s.RxBytes += uint64(evt.Len)
	}
	sm.mtx.Unlock()

	fields := log.Fields{
		"handle": evt.Handle,
		"len":    evt.Len,
	}
	if s == nil {
		fields["untracked"] = true
	}
	sm.diag.Log("data_rx", fields)
	sppxutil.LogHexDump("spp rx", evt.Data)

	if sm.send(evt.Handle, evt.Data, "echo") {
		sm.stats.DataEchoed(evt.Handle, evt.Len)
	}
}

func (sm *SessionMgr) onClose(evt *btevt.SppCloseEvt) {
	sm.mtx.Lock()
	s := sm.sesns[evt.Handle]
	delete(sm.sesns, evt.Handle)
	sm.mtx.Unlock()

	if s == nil {
		sm.diag.Log("session_close_unknown", log.Fields{
			"handle": evt.Handle,
		})
		return
	}

	s.State = SESN_STATE_CLOSED
	sm.diag.Log("session_closed", log.Fields{
		"handle":   evt.Handle,
		"peer":     s.Peer.String(),
		"rx_bytes": s.RxBytes,
		"tx_bytes": s.TxBytes,
		"duration": sm.now().Sub(s.OpenedAt).String(),
	})
	sm.stats.SessionClosed(evt.Handle)
}

// Writes to a session.  Returns true on success; failures are logged.
func (sm *SessionMgr) send(h SessionHandle, data []byte, what string) bool {
	if err := sm.stack.Write(h, data); err != nil {
		sm.diag.Log("write_failed", log.Fields{
			"handle": h,
			"what":   what,
			"len":    len(data),
			"err":    err.Error(),
		})
		return false
	}

	sm.mtx.Lock()
	if s := sm.sesns[h]; s != nil {
		s.TxBytes += uint64(len(data))
	}
	sm.mtx.Unlock()

	return true
}

// Handles a single SPP event.  Never fails; problems are reported through
// the diagnostic sink.
func (sm *SessionMgr) HandleEvent(evt btevt.Evt) {
	switch e := evt.(type) {
	case *btevt.SppInitEvt:
		sm.onInit(e)

	case *btevt.SppSrvOpenEvt:
		sm.onSrvOpen(e)

	case *btevt.SppDataIndEvt:
		sm.onDataInd(e)

	case *btevt.SppCloseEvt:
		sm.onClose(e)

	default:
		sm.diag.Log("unhandled_event", log.Fields{
			"class": btevt.EvtClassToString(btevt.EVT_CLASS_SPP),
			"type":  btevt.EvtTypeToString(evt.Type()),
			"num":   int(evt.Type()),
		})
	}
}
