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
	"strings"
	"sync"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
)

// Extracts the peer address from a BlueZ device object path
// (e.g., /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF).
func addrFromPath(path string) (BtAddr, error) {
	idx := strings.LastIndex(path, "/dev_")
	if idx < 0 {
		return BtAddr{}, fmt.Errorf("not a device path: %s", path)
	}

	mac := path[idx+len("/dev_"):]
	if i := strings.IndexByte(mac, '/'); i >= 0 {
		mac = mac[:i]
	}

	return ParseBtAddr(strings.ReplaceAll(mac, "_", ":"))
}

func devicePath(adapterPath string, peer BtAddr) string {
	mac := strings.ToUpper(strings.ReplaceAll(peer.String(), ":", "_"))
	return adapterPath + "/dev_" + mac
}

func adapterPath(adapterId string) string {
	return "/org/bluez/" + adapterId
}

// Hands out connection handles.  Handles start at 1 and are not reused
// until the counter wraps.
type handleAlloc struct {
	next SessionHandle
	mtx  sync.Mutex
}

func (ha *handleAlloc) alloc() SessionHandle {
	ha.mtx.Lock()
	defer ha.mtx.Unlock()

	ha.next++
	if ha.next == 0 {
		ha.next = 1
	}
	return ha.next
}
