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
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	dbus "github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/btevt"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
)

const (
	profileIface        = "org.bluez.Profile1"
	profileManagerIface = "org.bluez.ProfileManager1"
	profilePath         = dbus.ObjectPath("/org/mynewt/sppd/spp")

	// Largest chunk read from an RFCOMM socket at a time.
	rxBufSize = 990

	// Writes run on the dispatcher; a peer that stops reading must not
	// stall it.
	writeTmo = 5 * time.Second
)

// An RFCOMM connection handed over by BlueZ.
type conn struct {
	handle SessionHandle
	peer   BtAddr
	dev    dbus.ObjectPath
	file   *os.File
}

// Implements org.bluez.Profile1 for the SPP server.
type profile struct {
	bx *BluezXport

	conns map[SessionHandle]*conn
	hs    handleAlloc
	mtx   sync.Mutex
}

func newProfile(bx *BluezXport) *profile {
	return &profile{
		bx:    bx,
		conns: map[SessionHandle]*conn{},
	}
}

func (p *profile) Release() *dbus.Error {
	log.Debugf("bluez SPP profile released")
	return nil
}

func (p *profile) Cancel() *dbus.Error {
	return nil
}

// Takes ownership of a socket fd.  A nonblocking fd is registered with the
// runtime poller, so Close unblocks a pending Read and deadlines apply.
func newSockFile(fd int, name string) (*os.File, error) {
	if err := syscall.SetNonblock(fd, true); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	return os.NewFile(uintptr(fd), name), nil
}

func (p *profile) NewConnection(dev dbus.ObjectPath, fd dbus.UnixFD,
	props map[string]dbus.Variant) *dbus.Error {

	file, err := newSockFile(int(fd), "rfcomm")
	if err != nil {
		return rejected("failed to configure socket: " + err.Error())
	}

	peer, err := addrFromPath(string(dev))
	if err != nil {
		file.Close()
		return rejected(err.Error())
	}

	if !p.bx.connectable() {
		file.Close()
		return rejected("not connectable")
	}

	c := &conn{
		handle: p.hs.alloc(),
		peer:   peer,
		dev:    dev,
		file:   file,
	}

	p.mtx.Lock()
	p.conns[c.handle] = c
	p.mtx.Unlock()

	log.Debugf("New RFCOMM connection: handle=%d peer=%s", c.handle, peer)

	// The open event is queued before the reader can queue any data.
	p.bx.dispatch(&btevt.SppSrvOpenEvt{
		Status: BT_STATUS_SUCCESS,
		Handle: c.handle,
		Peer:   peer,
	})

	go p.rxLoop(c)
	return nil
}

func (p *profile) RequestDisconnection(dev dbus.ObjectPath) *dbus.Error {
	p.mtx.Lock()
	var victims []*conn
	for _, c := range p.conns {
		if c.dev == dev {
			victims = append(victims, c)
		}
	}
	p.mtx.Unlock()

	// Closing the file terminates the reader, which reports the close.
	for _, c := range victims {
		c.file.Close()
	}

	return nil
}

func (p *profile) rxLoop(c *conn) {
	buf := make([]byte, rxBufSize)

	for {
		n, err := c.file.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])

			p.bx.dispatch(&btevt.SppDataIndEvt{
				Handle: c.handle,
				Len:    n,
				Data:   data,
			})
		}

		if err != nil {
			status := BT_STATUS_SUCCESS
			if err != io.EOF {
				log.Debugf("RFCOMM read failed: handle=%d err=%s",
					c.handle, err.Error())
				status = BT_STATUS_FAIL
			}

			p.drop(c.handle)
			p.bx.dispatch(&btevt.SppCloseEvt{
				Status: status,
				Handle: c.handle,
			})
			return
		}
	}
}

func (p *profile) drop(h SessionHandle) {
	p.mtx.Lock()
	c := p.conns[h]
	delete(p.conns, h)
	p.mtx.Unlock()

	if c != nil {
		c.file.Close()
	}
}

func (p *profile) write(h SessionHandle, data []byte) error {
	p.mtx.Lock()
	c := p.conns[h]
	p.mtx.Unlock()

	if c == nil {
		return sppxutil.NewUnknownSesnError(h)
	}

	if err := c.file.SetWriteDeadline(time.Now().Add(writeTmo)); err != nil {
		log.Debugf("Failed to set RFCOMM write deadline: handle=%d err=%s",
			h, err.Error())
	}

	if _, err := c.file.Write(data); err != nil {
		if os.IsTimeout(err) {
			// The reader reports the close.
			c.file.Close()
		}
		return sppxutil.NewSesnClosedError(h,
			"RFCOMM write failed: "+err.Error())
	}

	return nil
}

func (p *profile) closeAll() {
	p.mtx.Lock()
	conns := p.conns
	p.conns = map[SessionHandle]*conn{}
	p.mtx.Unlock()

	for _, c := range conns {
		c.file.Close()
	}
}
