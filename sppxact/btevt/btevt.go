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

// Package btevt defines the events a Bluetooth platform stack delivers to
// the pairing controller and the SPP session manager.
package btevt

import (
	"fmt"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
)

type EvtType int

const (
	EVT_TYPE_NONE EvtType = iota

	// SPP layer.
	EVT_TYPE_SPP_INIT
	EVT_TYPE_SPP_START
	EVT_TYPE_SPP_SRV_OPEN
	EVT_TYPE_SPP_DATA_IND
	EVT_TYPE_SPP_CONG
	EVT_TYPE_SPP_WRITE
	EVT_TYPE_SPP_CLOSE

	// GAP layer.
	EVT_TYPE_PIN_REQ
	EVT_TYPE_CFM_REQ
	EVT_TYPE_AUTH_CMPL
	EVT_TYPE_KEY_NOTIF
	EVT_TYPE_KEY_REQ
	EVT_TYPE_MODE_CHG
)

var evtTypeStringMap = map[EvtType]string{
	EVT_TYPE_SPP_INIT:     "spp_init",
	EVT_TYPE_SPP_START:    "spp_start",
	EVT_TYPE_SPP_SRV_OPEN: "spp_srv_open",
	EVT_TYPE_SPP_DATA_IND: "spp_data_ind",
	EVT_TYPE_SPP_CONG:     "spp_cong",
	EVT_TYPE_SPP_WRITE:    "spp_write",
	EVT_TYPE_SPP_CLOSE:    "spp_close",
	EVT_TYPE_PIN_REQ:      "pin_req",
	EVT_TYPE_CFM_REQ:      "cfm_req",
	EVT_TYPE_AUTH_CMPL:    "auth_cmpl",
	EVT_TYPE_KEY_NOTIF:    "key_notif",
	EVT_TYPE_KEY_REQ:      "key_req",
	EVT_TYPE_MODE_CHG:     "mode_chg",
}

func EvtTypeToString(t EvtType) string {
	s := evtTypeStringMap[t]
	if s == "" {
		return "???"
	}

	return s
}

// Identifies the component an event is routed to.
type EvtClass int

const (
	EVT_CLASS_NONE EvtClass = iota
	EVT_CLASS_GAP
	EVT_CLASS_SPP
)

var evtClassStringMap = map[EvtClass]string{
	EVT_CLASS_NONE: "none",
	EVT_CLASS_GAP:  "gap",
	EVT_CLASS_SPP:  "spp",
}

func EvtClassToString(c EvtClass) string {
	s := evtClassStringMap[c]
	if s == "" {
		return "???"
	}

	return s
}

func EvtTypeClass(t EvtType) EvtClass {
	switch {
	case t >= EVT_TYPE_SPP_INIT && t <= EVT_TYPE_SPP_CLOSE:
		return EVT_CLASS_SPP
	case t >= EVT_TYPE_PIN_REQ && t <= EVT_TYPE_MODE_CHG:
		return EVT_CLASS_GAP
	default:
		return EVT_CLASS_NONE
	}
}

type Evt interface {
	Type() EvtType
}

func EvtClassOf(evt Evt) EvtClass {
	return EvtTypeClass(evt.Type())
}

// Describes an event for log output, e.g., "spp_data_ind (4)".
func EvtString(evt Evt) string {
	return fmt.Sprintf("%s (%d)", EvtTypeToString(evt.Type()), evt.Type())
}

// An event variant that carries no payload of interest.  Platforms use this
// for events that neither component acts on.
type RawEvt struct {
	Typ EvtType
}

func (e *RawEvt) Type() EvtType { return e.Typ }

// The SPP layer is ready; the service can be started.
type SppInitEvt struct {
	Status BtStatus
}

func (e *SppInitEvt) Type() EvtType { return EVT_TYPE_SPP_INIT }

// A peer opened a connection to the SPP server.
type SppSrvOpenEvt struct {
	Status BtStatus
	Handle SessionHandle
	Peer   BtAddr
}

func (e *SppSrvOpenEvt) Type() EvtType { return EVT_TYPE_SPP_SRV_OPEN }

// A chunk of data arrived on an open connection.  Data is only valid for the
// duration of the handler call.
type SppDataIndEvt struct {
	Handle SessionHandle
	Len    int
	Data   []byte
}

func (e *SppDataIndEvt) Type() EvtType { return EVT_TYPE_SPP_DATA_IND }

type SppCloseEvt struct {
	Status BtStatus
	Handle SessionHandle
}

func (e *SppCloseEvt) Type() EvtType { return EVT_TYPE_SPP_CLOSE }

// A peer requests a legacy pairing PIN code.  Min16Digit indicates the peer
// requires a 16-digit code.
type PinReqEvt struct {
	Peer       BtAddr
	Min16Digit bool
}

func (e *PinReqEvt) Type() EvtType { return EVT_TYPE_PIN_REQ }

// A peer requests Secure Simple Pairing confirmation of a numeric value.
// JustWorks is set when there is no value to compare.
type CfmReqEvt struct {
	Peer      BtAddr
	NumVal    uint32
	JustWorks bool
}

func (e *CfmReqEvt) Type() EvtType { return EVT_TYPE_CFM_REQ }

// A pairing attempt finished.  DeviceName is empty if the platform could not
// resolve the peer's name.
type AuthCmplEvt struct {
	Peer       BtAddr
	Status     BtStatus
	DeviceName string
}

func (e *AuthCmplEvt) Type() EvtType { return EVT_TYPE_AUTH_CMPL }

// The platform displays a passkey the peer must type.
type KeyNotifEvt struct {
	Peer    BtAddr
	Passkey uint32
}

func (e *KeyNotifEvt) Type() EvtType { return EVT_TYPE_KEY_NOTIF }
