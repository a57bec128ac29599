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
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mynewt.apache.org/sppd/sppd/config"
	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/metrics"
	"mynewt.apache.org/sppd/sppxact/nvs"
	"mynewt.apache.org/sppd/sppxact/sim"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
)

var testPeer = BtAddr{Bytes: [6]byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60}}

func newTestDaemon(t *testing.T, cs string) (*daemon, *sim.SimXport,
	*sppxutil.RecDiag) {

	sc, err := config.ParseConnString(cs)
	require.NoError(t, err)
	if sc.NvsPath == "" {
		sc.NvsPath = config.NVS_OFF
	}

	x := sim.NewSimXport()
	diag := sppxutil.NewRecDiag()
	d, err := newDaemon(sc, x, diag)
	require.NoError(t, err)

	return d, x, diag
}

func callOps(x *sim.SimXport) []sim.CallOp {
	var ops []sim.CallOp
	for _, c := range x.Calls() {
		ops = append(ops, c.Op)
	}
	return ops
}

func TestBringUpOrder(t *testing.T) {
	// given
	d, x, _ := newTestDaemon(t, "device_name=Bench,service_name=Echo")

	// when
	err := d.start()
	defer d.stop()

	// then
	require.NoError(t, err)
	assert.Equal(t, []sim.CallOp{
		sim.CALL_OP_DEVICE_NAME,
		sim.CALL_OP_SCAN_MODE,
		sim.CALL_OP_START_SRV,
	}, callOps(x))
	assert.Equal(t, "Bench", x.DeviceName())
	conn, disc := x.ScanMode()
	assert.Equal(t, CONN_MODE_CONNECTABLE, conn)
	assert.Equal(t, DISC_MODE_GENERAL, disc)
	assert.Equal(t, "Echo", x.CallsOf(sim.CALL_OP_START_SRV)[0].Name)
	assert.Equal(t, "listening", d.status().State)
}

func TestEchoThroughDaemon(t *testing.T) {
	// given
	d, x, _ := newTestDaemon(t, "greeting=hi")
	require.NoError(t, d.start())
	defer d.stop()
	x.ClearCalls()

	// when
	require.NoError(t, x.InjectOpen(7, testPeer))
	require.NoError(t, x.InjectData(7, []byte("ping")))

	// then
	writes := x.CallsOf(sim.CALL_OP_WRITE)
	require.Len(t, writes, 2)
	assert.Equal(t, []byte("hi"), writes[0].Data)
	assert.Equal(t, []byte("ping"), writes[1].Data)
	assert.Equal(t, SessionHandle(7), writes[1].Handle)
}

func TestPairingThroughDaemon(t *testing.T) {
	// given
	d, x, diag := newTestDaemon(t, "short_pin=4321")
	require.NoError(t, d.start())
	defer d.stop()

	// when
	require.NoError(t, x.InjectPinReq(testPeer, false))
	require.NoError(t, x.InjectCfmReq(testPeer, 123456))
	require.NoError(t, x.InjectAuthCmpl(testPeer, BT_STATUS_SUCCESS, "Phone"))

	// then
	pins := x.CallsOf(sim.CALL_OP_PIN_REPLY)
	require.Len(t, pins, 1)
	assert.Equal(t, PinCode("4321"), pins[0].Pin)
	assert.True(t, x.CallsOf(sim.CALL_OP_SSP_REPLY)[0].Accept)
	assert.Len(t, diag.Find("auth_success"), 1)
}

func TestStatsPersistAcrossRestart(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "stats.db")
	d, x, _ := newTestDaemon(t, "nvs="+path)
	require.NoError(t, d.start())

	require.NoError(t, x.InjectOpen(1, testPeer))
	require.NoError(t, x.InjectData(1, []byte("abc")))
	require.NoError(t, x.InjectClose(1))

	// when
	require.NoError(t, d.stop())

	// then
	st, err := nvs.Open(path)
	require.NoError(t, err)
	defer st.Close()

	rec, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.SessionsOpened)
	assert.Equal(t, uint64(1), rec.SessionsClosed)
	assert.Equal(t, uint64(3), rec.BytesEchoed)
	assert.Equal(t, uint64(1), rec.ChunksEchoed)
}

func TestStartFailureUnwinds(t *testing.T) {
	// given
	d, x, _ := newTestDaemon(t, "")
	x.SetErr(sim.CALL_OP_DEVICE_NAME, errors.New("radio off"))

	// when
	err := d.start()

	// then
	assert.EqualError(t, err, "radio off")
	assert.False(t, d.disp.Active())
	assert.Empty(t, x.CallsOf(sim.CALL_OP_START_SRV))
	assert.True(t, sppxutil.IsAlready(d.stop()))
}

func TestStopTwice(t *testing.T) {
	d, _, _ := newTestDaemon(t, "")
	require.NoError(t, d.start())

	assert.NoError(t, d.stop())
	assert.True(t, sppxutil.IsAlready(d.stop()))
}

func gaugeValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	mfs, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range mfs {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}

	require.Failf(t, "metric not found", "name=%s", name)
	return 0
}

func TestReconnectKeepsOpenGauge(t *testing.T) {
	// given
	d, x, _ := newTestDaemon(t, "")
	d.metrics = metrics.NewMetrics()
	require.NoError(t, d.start())
	defer d.stop()

	// when
	require.NoError(t, x.InjectOpen(1, testPeer))
	require.NoError(t, x.InjectOpen(1, testPeer))

	// then
	assert.Equal(t, 1.0, gaugeValue(t, d.metrics, "sppd_sessions_open"))

	// when
	require.NoError(t, x.InjectClose(1))

	// then
	assert.Equal(t, 0.0, gaugeValue(t, d.metrics, "sppd_sessions_open"))
}

func TestAdminRoutes(t *testing.T) {
	// given
	d, x, _ := newTestDaemon(t, "")
	d.metrics = metrics.NewMetrics()
	require.NoError(t, d.start())
	defer d.stop()
	require.NoError(t, x.InjectOpen(7, testPeer))
	require.NoError(t, x.InjectData(7, []byte("xyz")))

	srv := httptest.NewServer(d.router())
	defer srv.Close()

	// when
	statusRsp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer statusRsp.Body.Close()

	var body struct {
		State    string `json:"state"`
		Sessions []struct {
			Handle  int    `json:"handle"`
			Peer    string `json:"peer"`
			RxBytes uint64 `json:"rx_bytes"`
		} `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(statusRsp.Body).Decode(&body))

	sesnRsp, err := http.Get(srv.URL + "/sessions/7")
	require.NoError(t, err)
	sesnRsp.Body.Close()

	missingRsp, err := http.Get(srv.URL + "/sessions/9")
	require.NoError(t, err)
	missingRsp.Body.Close()

	metricsRsp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	metricsRsp.Body.Close()

	// then
	assert.Equal(t, http.StatusOK, statusRsp.StatusCode)
	assert.Equal(t, "listening", body.State)
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, 7, body.Sessions[0].Handle)
	assert.Equal(t, testPeer.String(), body.Sessions[0].Peer)
	assert.Equal(t, uint64(3), body.Sessions[0].RxBytes)
	assert.Equal(t, http.StatusOK, sesnRsp.StatusCode)
	assert.Equal(t, http.StatusNotFound, missingRsp.StatusCode)
	assert.Equal(t, http.StatusOK, metricsRsp.StatusCode)
}
