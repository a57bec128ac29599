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


package cli

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fatih/structs"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"mynewt.apache.org/sppd/sppd/config"
	"mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/btevt"
	"mynewt.apache.org/sppd/sppxact/dispatch"
	"mynewt.apache.org/sppd/sppxact/gap"
	"mynewt.apache.org/sppd/sppxact/metrics"
	"mynewt.apache.org/sppd/sppxact/nvs"
	"mynewt.apache.org/sppd/sppxact/spp"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
	"mynewt.apache.org/sppd/sppxact/stats"
	"mynewt.apache.org/sppd/sppxact/xport"
)

const DFLT_FLUSH_INTERVAL = time.Minute

// Wires the platform, the dispatcher, and the two event handlers together
// and brings them up in order.
type daemon struct {
	sc   *config.SppdConfig
	x    xport.Xport
	disp *dispatch.Dispatcher
	pc   *gap.PairingCtlr
	sm   *spp.SessionMgr

	tracker *nvs.Tracker
	metrics *metrics.Metrics
	admin   *http.Server

	flushInterval time.Duration
	adminAddr     string

	started bool
	done    chan struct{}
	mtx     sync.Mutex
}

func newDaemon(sc *config.SppdConfig, x xport.Xport,
	diag sppxutil.Diag) (*daemon, error) {

	pcfg, err := config.BuildPairingCfg(sc)
	if err != nil {
		return nil, err
	}

	pc, err := gap.NewPairingCtlr(x, pcfg, diag)
	if err != nil {
		return nil, err
	}

	return &daemon{
		sc:            sc,
		x:             x,
		disp:          dispatch.NewDispatcher(),
		pc:            pc,
		sm:            spp.NewSessionMgr(x, config.BuildSrvCfg(sc), diag),
		flushInterval: DFLT_FLUSH_INTERVAL,
		done:          make(chan struct{}),
	}, nil
}

// Serves metrics and status at the specified address once started.
func (d *daemon) enableAdmin(addr string) {
	d.metrics = metrics.NewMetrics()
	d.adminAddr = addr
}

func (d *daemon) openNvs() error {
	path, err := config.NvsPath(d.sc)
	if err != nil {
		return err
	}
	if path == "" {
		log.Debugf("Persistent stats disabled")
		return nil
	}

	st, erased, err := nvs.OpenWithRecovery(path)
	if err != nil {
		return err
	}
	if erased {
		log.Warnf("Stats store %s was unusable; reinitialized", path)
	}

	d.tracker, err = nvs.NewTracker(st)
	if err != nil {
		st.Close()
		return err
	}

	d.tracker.Start(d.flushInterval)
	return nil
}

func (d *daemon) collectors() stats.Collector {
	var mc stats.MultiCollector
	if d.tracker != nil {
		mc = append(mc, d.tracker)
	}
	if d.metrics != nil {
		mc = append(mc, d.metrics)
	}

	if len(mc) == 0 {
		return stats.NopCollector{}
	}
	return mc
}

// Brings the stack up.  The order matters: the pairing handler must be in
// place before the device becomes discoverable, and the session handler
// before the SPP layer reports ready.
func (d *daemon) start() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.started {
		return sppxutil.NewAlreadyError("daemon already started")
	}

	log.WithFields(structs.Map(d.sc)).Debugf("Starting daemon")

	if err := d.openNvs(); err != nil {
		return err
	}

	c := d.collectors()
	d.pc.SetStats(c)
	d.sm.SetStats(c)

	if err := d.disp.Start(dispatch.DFLT_QUEUE_DEPTH); err != nil {
		return d.abort(err)
	}

	if err := d.x.Start(d.disp); err != nil {
		return d.abort(err)
	}

	if err := d.x.SetDeviceName(d.sc.DeviceName); err != nil {
		return d.abort(err)
	}

	if err := d.disp.AddHandler(btevt.EVT_CLASS_GAP, d.pc); err != nil {
		return d.abort(err)
	}

	if err := d.x.SetScanMode(d.sc.ConnMode, d.sc.DiscMode); err != nil {
		return d.abort(err)
	}

	if err := d.disp.AddHandler(btevt.EVT_CLASS_SPP, d.sm); err != nil {
		return d.abort(err)
	}

	if d.adminAddr != "" {
		d.startAdmin()
	}

	if err := d.x.SppInit(); err != nil {
		return d.abort(err)
	}

	d.started = true
	return nil
}

// Undoes a partial bring-up and returns the error that caused it.
func (d *daemon) abort(cause error) error {
	if err := d.teardown(); err != nil {
		log.Debugf("Teardown after failed start: %s", err.Error())
	}
	return cause
}

func (d *daemon) teardown() error {
	var err error

	if d.admin != nil {
		err = multierr.Append(err, d.admin.Close())
		d.admin = nil
	}

	if err2 := d.x.Stop(); err2 != nil && !sppxutil.IsAlready(err2) {
		err = multierr.Append(err, err2)
	}

	d.disp.RemoveHandler(btevt.EVT_CLASS_SPP)
	d.disp.RemoveHandler(btevt.EVT_CLASS_GAP)
	if d.disp.Active() {
		err = multierr.Append(err, d.disp.Stop())
	}

	if d.tracker != nil {
		err = multierr.Append(err, d.tracker.Close())
		d.tracker = nil
	}

	return err
}

func (d *daemon) stop() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if !d.started {
		return sppxutil.NewAlreadyError("daemon not started")
	}

	err := d.teardown()
	d.started = false
	close(d.done)

	return err
}

// Blocks until the daemon is stopped.
func (d *daemon) wait() {
	<-d.done
}

func (d *daemon) router() *mux.Router {
	r := mux.NewRouter()
	if d.metrics != nil {
		r.Handle("/metrics", d.metrics.Handler()).Methods("GET")
	}
	r.HandleFunc("/status", d.statusHandler).Methods("GET")
	r.HandleFunc("/sessions/{handle:[0-9]+}", d.sessionHandler).
		Methods("GET")

	return r
}

func (d *daemon) startAdmin() {
	d.admin = &http.Server{
		Addr:    d.adminAddr,
		Handler: d.router(),
	}

	srv := d.admin
	go func() {
		log.Infof("Serving metrics and status on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {

			log.Errorf("Admin server failed: %s", err.Error())
		}
	}()
}

type statusRsp struct {
	State    string        `json:"state"`
	Sessions []spp.Session `json:"sessions"`
	Attempts []gap.Attempt `json:"attempts"`
	Totals   *nvs.Record   `json:"totals,omitempty"`
}

func (d *daemon) status() statusRsp {
	rsp := statusRsp{
		State:    spp.MgrStateToString(d.sm.State()),
		Sessions: d.sm.Sessions(),
		Attempts: d.pc.Attempts(),
	}

	d.mtx.Lock()
	tracker := d.tracker
	d.mtx.Unlock()

	if tracker != nil {
		rec := tracker.Record()
		rsp.Totals = &rec
	}

	return rsp
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugf("Failed to write response: %s", err.Error())
	}
}

func (d *daemon) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.status())
}

func (d *daemon) sessionHandler(w http.ResponseWriter, r *http.Request) {
	h, err := strconv.ParseUint(mux.Vars(r)["handle"], 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	s, ok := d.sm.Session(btdefs.SessionHandle(h))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no such session",
		})
		return
	}

	writeJSON(w, http.StatusOK, s)
}
