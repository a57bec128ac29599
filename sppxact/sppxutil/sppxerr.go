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
	"fmt"

	"mynewt.apache.org/sppd/sppxact/btdefs"
)

// Represents a low-level transport error; the platform stack rejected or
// could not carry out a request.
type XportError struct {
	Text string
}

func NewXportError(text string) *XportError {
	return &XportError{text}
}

func FmtXportError(format string, args ...interface{}) *XportError {
	return NewXportError(fmt.Sprintf(format, args...))
}

func (e *XportError) Error() string {
	return e.Text
}

func IsXport(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*XportError)
	return ok
}

// Indicates an attempt to use a session that the platform has closed.
type SesnClosedError struct {
	Text   string
	Handle btdefs.SessionHandle
}

func NewSesnClosedError(handle btdefs.SessionHandle,
	text string) *SesnClosedError {

	return &SesnClosedError{
		Text:   text,
		Handle: handle,
	}
}

func (e *SesnClosedError) Error() string {
	return e.Text
}

func IsSesnClosed(err error) bool {
	_, ok := err.(*SesnClosedError)
	return ok
}

// Indicates a session handle the platform never issued.
type UnknownSesnError struct {
	Handle btdefs.SessionHandle
}

func NewUnknownSesnError(handle btdefs.SessionHandle) *UnknownSesnError {
	return &UnknownSesnError{handle}
}

func (e *UnknownSesnError) Error() string {
	return fmt.Sprintf("unknown SPP session: handle=%d", e.Handle)
}

func IsUnknownSesn(err error) bool {
	_, ok := err.(*UnknownSesnError)
	return ok
}

// Indicates a pairing reply for a peer that has no outstanding request.
type NoPendingReqError struct {
	Peer btdefs.BtAddr
	Kind string
}

func NewNoPendingReqError(peer btdefs.BtAddr, kind string) *NoPendingReqError {
	return &NoPendingReqError{
		Peer: peer,
		Kind: kind,
	}
}

func (e *NoPendingReqError) Error() string {
	return fmt.Sprintf("no pending %s request for peer %s",
		e.Kind, e.Peer.String())
}

func IsNoPendingReq(err error) bool {
	_, ok := err.(*NoPendingReqError)
	return ok
}

// Represents a non-success status reported by the platform stack.
type BtStatusError struct {
	Text   string
	Status btdefs.BtStatus
}

func NewBtStatusError(status btdefs.BtStatus, text string) *BtStatusError {
	return &BtStatusError{
		Text:   text,
		Status: status,
	}
}

func FmtBtStatusError(status btdefs.BtStatus, format string,
	args ...interface{}) *BtStatusError {

	return NewBtStatusError(status, fmt.Sprintf(format, args...))
}

func (e *BtStatusError) Error() string {
	return fmt.Sprintf("%s; status=%s (%d)", e.Text,
		btdefs.BtStatusToString(e.Status), e.Status)
}

func ToBtStatus(err error) *BtStatusError {
	if berr, ok := err.(*BtStatusError); ok {
		return berr
	} else {
		return nil
	}
}

// Indicates an attempt to transition to the already-current state.
type AlreadyError struct {
	Text string
}

func NewAlreadyError(text string) *AlreadyError {
	return &AlreadyError{text}
}

func (err *AlreadyError) Error() string {
	return err.Text
}

func IsAlready(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*AlreadyError)
	return ok
}
