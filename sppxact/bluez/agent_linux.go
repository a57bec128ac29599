//go:build linux

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
	"fmt"

	dbus "github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/btevt"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
)

const (
	agentIface        = "org.bluez.Agent1"
	agentManagerIface = "org.bluez.AgentManager1"
	agentPath         = dbus.ObjectPath("/org/mynewt/sppd/agent")

	// Matches a device with a display and yes/no input.
	agentCapability = "DisplayYesNo"

	errRejected = "org.bluez.Error.Rejected"
	errCanceled = "org.bluez.Error.Canceled"
)

func rejected(text string) *dbus.Error {
	return &dbus.Error{Name: errRejected, Body: []interface{}{text}}
}

func canceled(text string) *dbus.Error {
	return &dbus.Error{Name: errCanceled, Body: []interface{}{text}}
}

// Implements org.bluez.Agent1.  BlueZ invokes these methods from the bus
// connection's goroutine; each pairing request is turned into an event and
// the call blocks until the pairing controller replies.
type agent struct {
	bx *BluezXport
}

func (a *agent) peer(dev dbus.ObjectPath) (BtAddr, *dbus.Error) {
	peer, err := addrFromPath(string(dev))
	if err != nil {
		return peer, rejected(err.Error())
	}
	return peer, nil
}

// Emits a pairing request and waits for the controller's reply.
func (a *agent) request(dev dbus.ObjectPath, kind reqKind,
	evt btevt.Evt) (reply, *dbus.Error) {

	peer, derr := a.peer(dev)
	if derr != nil {
		return reply{}, derr
	}

	req := a.bx.pend.add(peer, kind)
	a.bx.watchPairing(dev, peer)
	a.bx.dispatch(evt)

	r, ok := a.bx.pend.wait(peer, req, a.bx.cfg.ReplyTmo)
	switch {
	case !ok:
		a.bx.pairFailed(peer, sppxutil.FmtBtStatusError(BT_STATUS_TIMEOUT,
			"no %s reply within %s", reqKindNames[kind], a.bx.cfg.ReplyTmo))
		return r, canceled("no reply")

	case r.cancelled:
		a.bx.pairFailed(peer, sppxutil.NewBtStatusError(BT_STATUS_FAIL,
			"request cancelled"))
		return r, canceled("request cancelled")

	case !r.accept:
		a.bx.pairFailed(peer, sppxutil.NewBtStatusError(
			BT_STATUS_AUTH_REJECTED, "rejected by policy"))
		return r, rejected("rejected by policy")

	default:
		return r, nil
	}
}

func (a *agent) Release() *dbus.Error {
	log.Debugf("bluez agent released")
	return nil
}

func (a *agent) RequestPinCode(dev dbus.ObjectPath) (string, *dbus.Error) {
	peer, derr := a.peer(dev)
	if derr != nil {
		return "", derr
	}

	r, derr := a.request(dev, reqKindPin, &btevt.PinReqEvt{
		Peer:       peer,
		Min16Digit: a.bx.cfg.Min16Digit,
	})
	if derr != nil {
		return "", derr
	}

	return string(r.pin), nil
}

func (a *agent) DisplayPinCode(dev dbus.ObjectPath, pin string) *dbus.Error {
	log.Infof("Pairing code for %s: %s", dev, PinCode(pin).Display())
	return nil
}

// Passkey entry is not supported; the local device has no keyboard.
func (a *agent) RequestPasskey(dev dbus.ObjectPath) (uint32, *dbus.Error) {
	a.bx.dispatch(&btevt.RawEvt{Typ: btevt.EVT_TYPE_KEY_REQ})
	return 0, rejected("passkey entry not supported")
}

func (a *agent) DisplayPasskey(dev dbus.ObjectPath, passkey uint32,
	entered uint16) *dbus.Error {

	peer, derr := a.peer(dev)
	if derr != nil {
		return derr
	}

	a.bx.dispatch(&btevt.KeyNotifEvt{
		Peer:    peer,
		Passkey: passkey,
	})
	return nil
}

func (a *agent) RequestConfirmation(dev dbus.ObjectPath,
	passkey uint32) *dbus.Error {

	peer, derr := a.peer(dev)
	if derr != nil {
		return derr
	}

	_, derr = a.request(dev, reqKindCfm, &btevt.CfmReqEvt{
		Peer:   peer,
		NumVal: passkey,
	})
	return derr
}

// Called for "just works" pairing, where there is no value to compare.
func (a *agent) RequestAuthorization(dev dbus.ObjectPath) *dbus.Error {
	peer, derr := a.peer(dev)
	if derr != nil {
		return derr
	}

	_, derr = a.request(dev, reqKindCfm, &btevt.CfmReqEvt{
		Peer:      peer,
		JustWorks: true,
	})
	return derr
}

func (a *agent) AuthorizeService(dev dbus.ObjectPath, uuid string) *dbus.Error {
	if uuid != SppUuid {
		log.Debugf("Authorizing non-SPP service: dev=%s uuid=%s", dev, uuid)
	}
	return nil
}

func (a *agent) Cancel() *dbus.Error {
	log.Debugf("bluez cancelled %d pending agent request(s)",
		a.bx.pend.count())
	a.bx.pend.cancelAll()
	return nil
}

func (bx *BluezXport) registerAgent() error {
	a := &agent{bx: bx}
	if err := bx.bus.Export(a, agentPath, agentIface); err != nil {
		return fmt.Errorf("failed to export agent: %s", err.Error())
	}
	bx.addCleanup(func() error {
		return bx.bus.Export(nil, agentPath, agentIface)
	})

	mgr := bx.bus.Object(bluezService, bluezRoot)
	call := mgr.Call(agentManagerIface+".RegisterAgent", 0, agentPath,
		agentCapability)
	if call.Err != nil {
		return fmt.Errorf("RegisterAgent failed: %s", call.Err.Error())
	}
	bx.addCleanup(func() error {
		return mgr.Call(agentManagerIface+".UnregisterAgent", 0, agentPath).Err
	})

	call = mgr.Call(agentManagerIface+".RequestDefaultAgent", 0, agentPath)
	if call.Err != nil {
		return fmt.Errorf("RequestDefaultAgent failed: %s", call.Err.Error())
	}

	return nil
}
