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
	"sync"

	dbus "github.com/godbus/dbus/v5"
	"github.com/muka/go-bluetooth/api"
	gobluez "github.com/muka/go-bluetooth/bluez"
	"github.com/muka/go-bluetooth/bluez/profile/adapter"
	"github.com/muka/go-bluetooth/bluez/profile/device"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/btevt"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
	"mynewt.apache.org/sppd/sppxact/xport"
)

const (
	bluezService = "org.bluez"
	bluezRoot    = dbus.ObjectPath("/org/bluez")
)

// A Bluetooth platform backed by the BlueZ daemon over the system bus.
type BluezXport struct {
	cfg XportCfg

	bus     *dbus.Conn
	adapter *adapter.Adapter1
	prof    *profile
	pend    *pendingTable

	sink    xport.EvtSink
	started bool
	conn    ConnMode

	// Devices whose pairing outcome is being watched.
	watches map[dbus.ObjectPath]*pairWatch

	// Undo functions, run in reverse order on stop.
	cleanup []func() error

	mtx sync.Mutex
}

var _ xport.Xport = &BluezXport{}

func NewBluezXport(cfg XportCfg) *BluezXport {
	return &BluezXport{
		cfg:     cfg,
		pend:    newPendingTable(),
		conn:    CONN_MODE_CONNECTABLE,
		watches: map[dbus.ObjectPath]*pairWatch{},
	}
}

func (bx *BluezXport) addCleanup(fn func() error) {
	bx.cleanup = append(bx.cleanup, fn)
}

func (bx *BluezXport) dispatch(evt btevt.Evt) {
	bx.mtx.Lock()
	sink := bx.sink
	bx.mtx.Unlock()

	if sink == nil {
		log.Debugf("Dropping event; transport stopped: %s",
			btevt.EvtString(evt))
		return
	}

	sink.Dispatch(evt)
}

func (bx *BluezXport) connectable() bool {
	bx.mtx.Lock()
	defer bx.mtx.Unlock()

	return bx.conn == CONN_MODE_CONNECTABLE
}

// Connects to BlueZ, powers the adapter on, and registers the pairing
// agent.
func (bx *BluezXport) Start(sink xport.EvtSink) error {
	bx.mtx.Lock()
	defer bx.mtx.Unlock()

	if bx.started {
		return sppxutil.NewAlreadyError("bluez transport already started")
	}

	if err := bx.start(); err != nil {
		bx.runCleanup()
		return err
	}

	bx.sink = sink
	bx.started = true
	return nil
}

func (bx *BluezXport) start() error {
	bus, err := dbus.SystemBus()
	if err != nil {
		return errors.Wrap(err, "failed to connect to system bus")
	}
	bx.bus = bus

	var a *adapter.Adapter1
	if bx.cfg.AdapterId == "" {
		a, err = api.GetDefaultAdapter()
	} else {
		a, err = adapter.GetAdapter(bx.cfg.AdapterId)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to find adapter \"%s\"",
			bx.cfg.AdapterId)
	}
	bx.adapter = a

	if err := a.SetPowered(true); err != nil {
		return errors.Wrap(err, "failed to power adapter on")
	}
	if err := a.SetPairable(true); err != nil {
		return errors.Wrap(err, "failed to make adapter pairable")
	}
	bx.addCleanup(func() error {
		return multierr.Append(a.SetDiscoverable(false), a.SetPairable(false))
	})

	if err := bx.registerAgent(); err != nil {
		return sppxutil.NewXportError(err.Error())
	}

	log.Debugf("bluez transport started: adapter=%s", bx.cfg.AdapterId)
	return nil
}

func (bx *BluezXport) runCleanup() error {
	var err error
	for i := len(bx.cleanup) - 1; i >= 0; i-- {
		err = multierr.Append(err, bx.cleanup[i]())
	}
	bx.cleanup = nil

	return err
}

func (bx *BluezXport) Stop() error {
	bx.mtx.Lock()
	if !bx.started {
		bx.mtx.Unlock()
		return sppxutil.NewAlreadyError("bluez transport not started")
	}
	bx.started = false
	bx.sink = nil
	watches := bx.watches
	bx.watches = map[dbus.ObjectPath]*pairWatch{}
	prof := bx.prof
	bx.prof = nil
	bx.mtx.Unlock()

	bx.pend.cancelAll()
	if prof != nil {
		prof.closeAll()
	}
	for _, w := range watches {
		w.stop()
	}

	bx.mtx.Lock()
	defer bx.mtx.Unlock()

	return bx.runCleanup()
}

func (bx *BluezXport) SppInit() error {
	bx.mtx.Lock()
	started := bx.started
	bx.mtx.Unlock()

	if !started {
		return sppxutil.NewXportError("bluez transport not started")
	}

	// BlueZ's RFCOMM layer is ready as soon as the daemon is.
	bx.dispatch(&btevt.SppInitEvt{Status: BT_STATUS_SUCCESS})
	return nil
}

// Exports the SPP profile and registers it with BlueZ.
func (bx *BluezXport) StartSrv(sec SppSecMask, role SppRole,
	name string) error {

	bx.mtx.Lock()
	defer bx.mtx.Unlock()

	if !bx.started {
		return sppxutil.NewXportError("bluez transport not started")
	}
	if bx.prof != nil {
		return sppxutil.NewAlreadyError("SPP server already started")
	}

	prof := newProfile(bx)
	if err := bx.bus.Export(prof, profilePath, profileIface); err != nil {
		return sppxutil.FmtXportError("failed to export SPP profile: %s",
			err.Error())
	}

	bluezRole := "server"
	if role == SPP_ROLE_MASTER {
		bluezRole = "client"
	}

	opts := map[string]dbus.Variant{
		"Name":                  dbus.MakeVariant(name),
		"Role":                  dbus.MakeVariant(bluezRole),
		"Channel":               dbus.MakeVariant(bx.cfg.Channel),
		"RequireAuthentication": dbus.MakeVariant(sec.Has(SPP_SEC_AUTHENTICATE)),
		"RequireAuthorization":  dbus.MakeVariant(sec.Has(SPP_SEC_AUTHORIZE)),
	}

	pm := bx.bus.Object(bluezService, bluezRoot)
	call := pm.Call(profileManagerIface+".RegisterProfile", 0, profilePath,
		SppUuid, opts)
	if call.Err != nil {
		bx.bus.Export(nil, profilePath, profileIface)
		return sppxutil.FmtXportError("RegisterProfile failed: %s",
			call.Err.Error())
	}

	bx.addCleanup(func() error {
		return multierr.Append(
			pm.Call(profileManagerIface+".UnregisterProfile", 0,
				profilePath).Err,
			bx.bus.Export(nil, profilePath, profileIface))
	})

	bx.prof = prof
	return nil
}

func (bx *BluezXport) Write(h SessionHandle, data []byte) error {
	bx.mtx.Lock()
	prof := bx.prof
	bx.mtx.Unlock()

	if prof == nil {
		return sppxutil.NewUnknownSesnError(h)
	}

	return prof.write(h, data)
}

func (bx *BluezXport) PinReply(peer BtAddr, accept bool, pin PinCode) error {
	return bx.pend.fulfil(peer, reqKindPin, reply{
		accept: accept,
		pin:    pin,
	})
}

func (bx *BluezXport) SspConfirmReply(peer BtAddr, accept bool) error {
	return bx.pend.fulfil(peer, reqKindCfm, reply{
		accept: accept,
	})
}

// Limited discoverability lasts this long, in seconds.
const limitedDiscTmo = 180

func (bx *BluezXport) SetScanMode(c ConnMode, d DiscMode) error {
	bx.mtx.Lock()
	a := bx.adapter
	bx.conn = c
	bx.mtx.Unlock()

	if a == nil {
		return sppxutil.NewXportError("bluez transport not started")
	}

	var tmo uint32
	if d == DISC_MODE_LIMITED {
		tmo = limitedDiscTmo
	}

	if err := a.SetDiscoverableTimeout(tmo); err != nil {
		return sppxutil.FmtXportError("failed to set discoverable timeout: %s",
			err.Error())
	}
	if err := a.SetDiscoverable(d != DISC_MODE_NON_DISCOVERABLE); err != nil {
		return sppxutil.FmtXportError("failed to set discoverable: %s",
			err.Error())
	}

	return nil
}

func (bx *BluezXport) SetDeviceName(name string) error {
	bx.mtx.Lock()
	a := bx.adapter
	bx.mtx.Unlock()

	if a == nil {
		return sppxutil.NewXportError("bluez transport not started")
	}

	if err := a.SetAlias(name); err != nil {
		return sppxutil.FmtXportError("failed to set device name: %s",
			err.Error())
	}

	return nil
}

// Reports a failed pairing.  Errors that do not carry a Bluetooth status
// are reported as BT_STATUS_FAIL.
func (bx *BluezXport) pairFailed(peer BtAddr, err error) {
	status := BT_STATUS_FAIL
	if berr := sppxutil.ToBtStatus(err); berr != nil {
		status = berr.Status
	}
	log.Debugf("Pairing with %s failed: %s", peer, err.Error())

	path := dbus.ObjectPath(devicePath(adapterPath(bx.cfg.AdapterId), peer))

	bx.mtx.Lock()
	w := bx.watches[path]
	delete(bx.watches, path)
	bx.mtx.Unlock()

	if w != nil {
		w.stop()
	}

	bx.dispatch(&btevt.AuthCmplEvt{
		Peer:   peer,
		Status: status,
	})
}

type pairWatch struct {
	path    dbus.ObjectPath
	dev     *device.Device1
	unwatch func() error
	once    sync.Once
}

func newPairWatch(dev *device.Device1,
	ch chan *gobluez.PropertyChanged) *pairWatch {

	return &pairWatch{
		path:    dev.Path(),
		dev:     dev,
		unwatch: func() error { return dev.UnwatchProperties(ch) },
	}
}

// Safe to call more than once; Stop and the watch goroutine may race.
func (w *pairWatch) stop() {
	w.once.Do(func() {
		if err := w.unwatch(); err != nil {
			log.Debugf("Failed to stop watching %s: %s", w.path, err.Error())
		}
	})
}

func (w *pairWatch) deviceName() string {
	if w.dev.Properties.Alias != "" {
		return w.dev.Properties.Alias
	}
	return w.dev.Properties.Name
}

// Reports a successful pairing once BlueZ marks the device paired.
func (bx *BluezXport) watchPairing(path dbus.ObjectPath, peer BtAddr) {
	bx.mtx.Lock()
	defer bx.mtx.Unlock()

	if bx.watches[path] != nil {
		return
	}

	dev, err := device.NewDevice1(path)
	if err != nil {
		log.Debugf("Cannot watch device %s: %s", path, err.Error())
		return
	}

	ch, err := dev.WatchProperties()
	if err != nil {
		log.Debugf("Cannot watch device %s: %s", path, err.Error())
		return
	}

	w := newPairWatch(dev, ch)
	bx.watches[path] = w

	go func() {
		for change := range ch {
			// UnwatchProperties delivers a nil.
			if change == nil {
				return
			}
			if change.Name != "Paired" {
				continue
			}
			if paired, ok := change.Value.(bool); !ok || !paired {
				continue
			}

			bx.mtx.Lock()
			owned := bx.watches[path] == w
			delete(bx.watches, path)
			bx.mtx.Unlock()

			if owned {
				bx.dispatch(&btevt.AuthCmplEvt{
					Peer:       peer,
					Status:     BT_STATUS_SUCCESS,
					DeviceName: w.deviceName(),
				})
				w.stop()
			}
			return
		}
	}()
}
