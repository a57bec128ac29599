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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cast"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/sppd/sppxact/bluez"
	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/gap"
	"mynewt.apache.org/sppd/sppxact/spp"
)

const (
	DFLT_DEVICE_NAME  = "ESP32"
	DFLT_NVS_FILENAME = ".sppd.db"

	// Disables the persistent stats store.
	NVS_OFF = "off"

	shortPinLen = 4
)

type SppdConfig struct {
	AdapterId  string
	DeviceName string
	SrvName    string
	ShortPin   string
	LongPin    string
	Greeting   string
	ConnMode   ConnMode
	DiscMode   DiscMode
	Min16Digit bool
	Channel    uint16
	SecMask    SppSecMask
	Allow      []BtAddr `structs:",omitnested"`
	Deny       []BtAddr `structs:",omitnested"`
	NvsPath    string
	ReplyTmo   time.Duration
}

func NewSppdConfig() *SppdConfig {
	return &SppdConfig{
		AdapterId:  bluez.DFLT_ADAPTER_ID,
		DeviceName: DFLT_DEVICE_NAME,
		SrvName:    spp.DFLT_SRV_NAME,
		ShortPin:   gap.DFLT_SHORT_PIN,
		LongPin:    gap.DFLT_LONG_PIN,
		Greeting:   spp.DFLT_GREETING,
		ConnMode:   CONN_MODE_CONNECTABLE,
		DiscMode:   DISC_MODE_GENERAL,
		Channel:    BT_RFCOMM_CHANNEL_DFLT,
		SecMask:    SPP_SEC_AUTHENTICATE,
		ReplyTmo:   bluez.DFLT_REPLY_TMO,
	}
}

func einvalConnString(f string, args ...interface{}) error {
	suffix := fmt.Sprintf(f, args...)
	return util.FmtNewtError("Invalid sppd connstring; %s", suffix)
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parsePeerList(s string) ([]BtAddr, error) {
	var peers []BtAddr
	for _, tok := range strings.Split(s, "+") {
		if tok == "" {
			continue
		}
		peer, err := ParseBtAddr(tok)
		if err != nil {
			return nil, err
		}
		peers = append(peers, peer)
	}

	return peers, nil
}

func parseDiscoverable(v string) (DiscMode, error) {
	if mode, err := DiscModeFromString(v); err == nil {
		return mode, nil
	}

	b, err := cast.ToBoolE(v)
	if err != nil {
		return DISC_MODE_NON_DISCOVERABLE, err
	}
	if b {
		return DISC_MODE_GENERAL, nil
	} else {
		return DISC_MODE_NON_DISCOVERABLE, nil
	}
}

func ParseConnString(cs string) (*SppdConfig, error) {
	sc := NewSppdConfig()

	if strings.TrimSpace(cs) == "" {
		return sc, nil
	}

	parts := strings.Split(cs, ",")
	for _, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return nil, einvalConnString("expected comma-separated "+
				"key=value pairs; no '=' in: %s", p)
		}

		k := strings.TrimSpace(kv[0])
		v := kv[1]

		switch k {
		case "hci":
			sc.AdapterId = v

		case "device_name":
			sc.DeviceName = v

		case "service_name":
			if v == "" {
				return nil, einvalConnString("empty service_name")
			}
			sc.SrvName = v

		case "short_pin":
			if len(v) != shortPinLen || !allDigits(v) {
				return nil, einvalConnString(
					"short_pin must be %d digits: %s", shortPinLen, v)
			}
			sc.ShortPin = v

		case "long_pin":
			if len(v) != MaxPinLen || !allDigits(v) {
				return nil, einvalConnString(
					"long_pin must be %d digits: %s", MaxPinLen, v)
			}
			sc.LongPin = v

		case "greeting":
			sc.Greeting = v

		case "connectable":
			b, err := cast.ToBoolE(v)
			if err != nil {
				return nil, einvalConnString("Invalid connectable: %s", v)
			}
			if b {
				sc.ConnMode = CONN_MODE_CONNECTABLE
			} else {
				sc.ConnMode = CONN_MODE_NON_CONNECTABLE
			}

		case "discoverable":
			var err error
			sc.DiscMode, err = parseDiscoverable(v)
			if err != nil {
				return nil, einvalConnString("Invalid discoverable: %s", v)
			}

		case "min16":
			var err error
			sc.Min16Digit, err = cast.ToBoolE(v)
			if err != nil {
				return nil, einvalConnString("Invalid min16: %s", v)
			}

		case "channel":
			ch, err := cast.ToUint16E(v)
			if err != nil || ch < 1 || ch > 30 {
				return nil, einvalConnString("Invalid channel: %s", v)
			}
			sc.Channel = ch

		case "sec":
			var err error
			sc.SecMask, err = SppSecMaskFromString(v)
			if err != nil {
				return nil, einvalConnString("Invalid sec: %s", v)
			}

		case "allow":
			var err error
			sc.Allow, err = parsePeerList(v)
			if err != nil {
				return nil, einvalConnString("Invalid allow list: %s", v)
			}

		case "deny":
			var err error
			sc.Deny, err = parsePeerList(v)
			if err != nil {
				return nil, einvalConnString("Invalid deny list: %s", v)
			}

		case "nvs":
			sc.NvsPath = v

		case "reply_tmo":
			secs, err := cast.ToFloat64E(v)
			if err != nil || secs <= 0 {
				return nil, einvalConnString("Invalid reply_tmo: %s", v)
			}
			sc.ReplyTmo = time.Duration(secs * float64(time.Second))

		default:
			return nil, einvalConnString("Unrecognized key: %s", k)
		}
	}

	if len(sc.Allow) > 0 && len(sc.Deny) > 0 {
		return nil, einvalConnString("allow and deny are mutually exclusive")
	}

	return sc, nil
}

func BuildPairingCfg(sc *SppdConfig) (gap.PairingCfg, error) {
	cfg := gap.NewPairingCfg()
	cfg.ShortPin = PinCode(sc.ShortPin)
	cfg.LongPin = PinCode(sc.LongPin)

	switch {
	case len(sc.Allow) > 0:
		cfg.Policy = gap.NewAllowListPolicy(sc.Allow)
	case len(sc.Deny) > 0:
		cfg.Policy = gap.NewDenyListPolicy(sc.Deny)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, util.ChildNewtError(err)
	}

	return cfg, nil
}

func BuildSrvCfg(sc *SppdConfig) spp.SrvCfg {
	cfg := spp.NewSrvCfg()
	cfg.SrvName = sc.SrvName
	cfg.SecMask = sc.SecMask
	cfg.Greeting = []byte(sc.Greeting)

	return cfg
}

func BuildBluezXportCfg(sc *SppdConfig) bluez.XportCfg {
	cfg := bluez.NewXportCfg()
	cfg.AdapterId = sc.AdapterId
	cfg.Channel = sc.Channel
	cfg.Min16Digit = sc.Min16Digit
	cfg.ReplyTmo = sc.ReplyTmo

	return cfg
}

// Resolves the stats store location.  An empty string indicates persistence
// is disabled.
func NvsPath(sc *SppdConfig) (string, error) {
	switch sc.NvsPath {
	case NVS_OFF:
		return "", nil

	case "":
		dir, err := homedir.Dir()
		if err != nil {
			return "", util.NewNewtError(err.Error())
		}
		return filepath.Join(dir, DFLT_NVS_FILENAME), nil

	default:
		path, err := homedir.Expand(sc.NvsPath)
		if err != nil {
			return "", util.ChildNewtError(err)
		}
		return path, nil
	}
}
