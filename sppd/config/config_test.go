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


package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/gap"
)

func TestParseConnStringDefaults(t *testing.T) {
	// when
	sc, err := ParseConnString("  ")

	// then
	require.NoError(t, err)
	assert.Equal(t, "hci0", sc.AdapterId)
	assert.Equal(t, "ESP32", sc.DeviceName)
	assert.Equal(t, "MySerial", sc.SrvName)
	assert.Equal(t, "1234", sc.ShortPin)
	assert.Equal(t, "0000000000000000", sc.LongPin)
	assert.Equal(t, "Hello, world!", sc.Greeting)
	assert.Equal(t, CONN_MODE_CONNECTABLE, sc.ConnMode)
	assert.Equal(t, DISC_MODE_GENERAL, sc.DiscMode)
	assert.Equal(t, uint16(BT_RFCOMM_CHANNEL_DFLT), sc.Channel)
	assert.Equal(t, SPP_SEC_AUTHENTICATE, sc.SecMask)
	assert.Equal(t, 30*time.Second, sc.ReplyTmo)
}

func TestParseConnString(t *testing.T) {
	// when
	sc, err := ParseConnString("hci=hci1,device_name=Bench,service_name=Echo," +
		"short_pin=4321,long_pin=1111222233334444,greeting=hi there," +
		"connectable=false,discoverable=limited,min16=true,channel=3," +
		"sec=authenticate+encrypt,allow=00:11:22:33:44:55+66:77:88:99:aa:bb," +
		"nvs=/tmp/x.db,reply_tmo=2.5")

	// then
	require.NoError(t, err)
	assert.Equal(t, "hci1", sc.AdapterId)
	assert.Equal(t, "Bench", sc.DeviceName)
	assert.Equal(t, "Echo", sc.SrvName)
	assert.Equal(t, "4321", sc.ShortPin)
	assert.Equal(t, "1111222233334444", sc.LongPin)
	assert.Equal(t, "hi there", sc.Greeting)
	assert.Equal(t, CONN_MODE_NON_CONNECTABLE, sc.ConnMode)
	assert.Equal(t, DISC_MODE_LIMITED, sc.DiscMode)
	assert.True(t, sc.Min16Digit)
	assert.Equal(t, uint16(3), sc.Channel)
	assert.Equal(t, SPP_SEC_AUTHENTICATE|SPP_SEC_ENCRYPT, sc.SecMask)
	assert.Len(t, sc.Allow, 2)
	assert.Equal(t, "66:77:88:99:aa:bb", sc.Allow[1].String())
	assert.Equal(t, "/tmp/x.db", sc.NvsPath)
	assert.Equal(t, 2500*time.Millisecond, sc.ReplyTmo)
}

func TestParseConnStringDiscoverableBool(t *testing.T) {
	sc, err := ParseConnString("discoverable=false")
	require.NoError(t, err)
	assert.Equal(t, DISC_MODE_NON_DISCOVERABLE, sc.DiscMode)

	sc, err = ParseConnString("discoverable=true")
	require.NoError(t, err)
	assert.Equal(t, DISC_MODE_GENERAL, sc.DiscMode)
}

func TestParseConnStringErrors(t *testing.T) {
	for _, cs := range []string{
		"hci",
		"bogus=1",
		"short_pin=12345",
		"short_pin=12a4",
		"long_pin=123",
		"connectable=maybe",
		"discoverable=sometimes",
		"channel=0",
		"channel=31",
		"sec=everything",
		"allow=00:11",
		"reply_tmo=-1",
		"service_name=",
		"allow=00:11:22:33:44:55,deny=66:77:88:99:aa:bb",
	} {
		_, err := ParseConnString(cs)
		assert.Error(t, err, cs)
	}
}

func TestBuildPairingCfg(t *testing.T) {
	// given
	sc, err := ParseConnString("allow=00:11:22:33:44:55,short_pin=0000")
	require.NoError(t, err)
	allowed, _ := ParseBtAddr("00:11:22:33:44:55")
	other, _ := ParseBtAddr("00:11:22:33:44:56")

	// when
	cfg, err := BuildPairingCfg(sc)

	// then
	require.NoError(t, err)
	assert.Equal(t, PinCode("0000"), cfg.ShortPin)
	assert.Equal(t, PinCode("0000000000000000"), cfg.LongPin)
	assert.True(t, cfg.Policy.Accept(allowed, gap.REQ_KIND_PIN))
	assert.False(t, cfg.Policy.Accept(other, gap.REQ_KIND_PIN))
}

func TestBuildPairingCfgDefaultPolicy(t *testing.T) {
	cfg, err := BuildPairingCfg(NewSppdConfig())
	require.NoError(t, err)
	assert.IsType(t, gap.PermissivePolicy{}, cfg.Policy)
}

func TestBuildXportAndSrvCfg(t *testing.T) {
	// given
	sc, err := ParseConnString("hci=hci2,channel=5,min16=1,service_name=S," +
		"greeting=yo,sec=none")
	require.NoError(t, err)

	// when
	xc := BuildBluezXportCfg(sc)
	srv := BuildSrvCfg(sc)

	// then
	assert.Equal(t, "hci2", xc.AdapterId)
	assert.Equal(t, uint16(5), xc.Channel)
	assert.True(t, xc.Min16Digit)
	assert.Equal(t, "S", srv.SrvName)
	assert.Equal(t, []byte("yo"), srv.Greeting)
	assert.Equal(t, SPP_SEC_NONE, srv.SecMask)
	assert.Equal(t, SPP_ROLE_SLAVE, srv.Role)
}

func TestNvsPath(t *testing.T) {
	sc := NewSppdConfig()
	sc.NvsPath = NVS_OFF
	path, err := NvsPath(sc)
	require.NoError(t, err)
	assert.Empty(t, path)

	sc.NvsPath = "/var/lib/sppd.db"
	path, err = NvsPath(sc)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/sppd.db", path)
}

func TestProfileMgr(t *testing.T) {
	// given
	fs := afero.NewMemMapFs()
	pm, err := NewProfileMgr(fs, "/home/u/.sppd.json")
	require.NoError(t, err)
	assert.Empty(t, pm.GetProfileList())

	// when
	require.NoError(t, pm.AddProfile(&Profile{
		Name:       "zeta",
		Type:       PROFILE_TYPE_SIM,
		ConnString: "greeting=hey",
	}))
	require.NoError(t, pm.AddProfile(&Profile{
		Name: "alpha",
		Type: PROFILE_TYPE_BLUEZ,
	}))

	reloaded, err := NewProfileMgr(fs, "/home/u/.sppd.json")
	require.NoError(t, err)

	// then
	list := reloaded.GetProfileList()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, PROFILE_TYPE_BLUEZ, list[0].Type)
	assert.Equal(t, "zeta", list[1].Name)
	assert.Equal(t, "greeting=hey", list[1].ConnString)

	blob, err := afero.ReadFile(fs, "/home/u/.sppd.json")
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"MyType": "sim"`)
}

func TestProfileMgrDelete(t *testing.T) {
	// given
	fs := afero.NewMemMapFs()
	pm, err := NewProfileMgr(fs, "/p.json")
	require.NoError(t, err)
	require.NoError(t, pm.AddProfile(&Profile{Name: "a", Type: PROFILE_TYPE_SIM}))

	// when
	err = pm.DeleteProfile("a")

	// then
	require.NoError(t, err)
	_, err = pm.GetProfile("a")
	assert.Error(t, err)
	assert.Error(t, pm.DeleteProfile("a"))
}

func TestProfileMgrRejectsBadProfiles(t *testing.T) {
	pm, err := NewProfileMgr(afero.NewMemMapFs(), "/p.json")
	require.NoError(t, err)

	assert.Error(t, pm.AddProfile(&Profile{Name: "", Type: PROFILE_TYPE_SIM}))
	assert.Error(t, pm.AddProfile(&Profile{Name: "x"}))
	assert.Error(t, pm.AddProfile(&Profile{
		Name:       "x",
		Type:       PROFILE_TYPE_SIM,
		ConnString: "short_pin=1",
	}))
}

func TestProfileMgrCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p.json", []byte("{nope"), 0644))

	_, err := NewProfileMgr(fs, "/p.json")
	assert.Error(t, err)
}

func TestProfileTypeStrings(t *testing.T) {
	pt, err := ProfileTypeFromString("bluez")
	require.NoError(t, err)
	assert.Equal(t, PROFILE_TYPE_BLUEZ, pt)

	_, err = ProfileTypeFromString("???")
	assert.Error(t, err)
}
