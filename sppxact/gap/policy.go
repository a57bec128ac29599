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
	. "mynewt.apache.org/sppd/sppxact/btdefs"
)

type ReqKind int

const (
	REQ_KIND_PIN ReqKind = iota
	REQ_KIND_CFM
)

var reqKindStringMap = map[ReqKind]string{
	REQ_KIND_PIN: "pin",
	REQ_KIND_CFM: "confirm",
}

func ReqKindToString(k ReqKind) string {
	s := reqKindStringMap[k]
	if s == "" {
		return "???"
	}

	return s
}

// Decides whether a pairing request from a peer is accepted.
type AuthPolicy interface {
	Accept(peer BtAddr, kind ReqKind) bool
	Name() string
}

// Accepts every request.
type PermissivePolicy struct{}

func (PermissivePolicy) Accept(peer BtAddr, kind ReqKind) bool {
	return true
}

func (PermissivePolicy) Name() string {
	return "permissive"
}

type addrSet map[BtAddr]struct{}

func newAddrSet(peers []BtAddr) addrSet {
	s := make(addrSet, len(peers))
	for _, p := range peers {
		s[p] = struct{}{}
	}
	return s
}

func (s addrSet) contains(peer BtAddr) bool {
	_, ok := s[peer]
	return ok
}

// Accepts only the listed peers.
type AllowListPolicy struct {
	peers addrSet
}

func NewAllowListPolicy(peers []BtAddr) *AllowListPolicy {
	return &AllowListPolicy{newAddrSet(peers)}
}

func (p *AllowListPolicy) Accept(peer BtAddr, kind ReqKind) bool {
	return p.peers.contains(peer)
}

func (p *AllowListPolicy) Name() string {
	return "allow"
}

// Accepts every peer except the listed ones.
type DenyListPolicy struct {
	peers addrSet
}

func NewDenyListPolicy(peers []BtAddr) *DenyListPolicy {
	return &DenyListPolicy{newAddrSet(peers)}
}

func (p *DenyListPolicy) Accept(peer BtAddr, kind ReqKind) bool {
	return !p.peers.contains(peer)
}

func (p *DenyListPolicy) Name() string {
	return "deny"
}
