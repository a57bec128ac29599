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
	"fmt"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/sppd/sppd/config"
	"mynewt.apache.org/sppd/sppd/sppdutil"
	"mynewt.apache.org/sppd/sppxact/bluez"
	"mynewt.apache.org/sppd/sppxact/sim"
	"mynewt.apache.org/sppd/sppxact/xport"
)

var globalDaemon *daemon
var globalDaemonMtx sync.Mutex
var onExitFn func()

func SppdSetOnExit(fn func()) {
	onExitFn = fn
}

func sppUsage(cmd *cobra.Command, err error) {
	if err != nil {
		if nerr, ok := err.(*util.NewtError); ok {
			log.Debugf("%s", nerr.StackTrace)
			fmt.Fprintf(os.Stderr, "Error: %s\n", nerr.Text)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		}
	}

	if cmd != nil {
		fmt.Printf("\n")
		fmt.Printf("%s - ", cmd.Name())
		cmd.Help()
	}

	if onExitFn != nil {
		onExitFn()
	}
	os.Exit(1)
}

// Stops the running daemon, if any.
func StopDaemon() error {
	globalDaemonMtx.Lock()
	d := globalDaemon
	globalDaemon = nil
	globalDaemonMtx.Unlock()

	if d == nil {
		return nil
	}
	return d.stop()
}

// Starts the daemon and makes it the one StopDaemon stops.
func startGlobalDaemon(d *daemon) error {
	if err := d.start(); err != nil {
		return err
	}

	globalDaemonMtx.Lock()
	globalDaemon = d
	globalDaemonMtx.Unlock()

	return nil
}

// Retrieves the profile selected on the command line.  Without -c, an
// unnamed bluez profile is used.  --conntype and --connstring override the
// profile's settings; --connextra is appended to the connstring.
func getProfile() (*config.Profile, error) {
	var p config.Profile

	if sppdutil.Profile != "" {
		saved, err :=
			config.GlobalProfileMgr().GetProfile(sppdutil.Profile)
		if err != nil {
			return nil, err
		}
		p = *saved
	} else {
		p.Type = config.PROFILE_TYPE_BLUEZ
	}

	if sppdutil.ConnType != "" {
		var err error
		p.Type, err = config.ProfileTypeFromString(sppdutil.ConnType)
		if err != nil {
			return nil, err
		}
	}

	if sppdutil.ConnString != "" {
		p.ConnString = sppdutil.ConnString
	}

	if sppdutil.ConnExtra != "" {
		if strings.TrimSpace(p.ConnString) == "" {
			p.ConnString = sppdutil.ConnExtra
		} else {
			p.ConnString += "," + sppdutil.ConnExtra
		}
	}

	return &p, nil
}

func getSppdConfig() (*config.Profile, *config.SppdConfig, error) {
	p, err := getProfile()
	if err != nil {
		return nil, nil, err
	}

	sc, err := config.ParseConnString(p.ConnString)
	if err != nil {
		return nil, nil, err
	}

	return p, sc, nil
}

func buildXport(p *config.Profile, sc *config.SppdConfig) (xport.Xport,
	error) {

	switch p.Type {
	case config.PROFILE_TYPE_BLUEZ:
		return bluez.NewBluezXport(config.BuildBluezXportCfg(sc)), nil

	case config.PROFILE_TYPE_SIM:
		return sim.NewSimXport(), nil

	default:
		return nil, util.FmtNewtError("Unknown profile type: %s (%d)",
			config.ProfileTypeToString(p.Type), int(p.Type))
	}
}
