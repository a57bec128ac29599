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
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/sppd/sppd/config"
	"mynewt.apache.org/sppd/sppd/sppdutil"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
	"mynewt.apache.org/sppd/sppxact/xport"
)

// Builds a daemon from the command line settings.
func buildDaemon(sc *config.SppdConfig, x xport.Xport) (*daemon, error) {
	d, err := newDaemon(sc, x, sppxutil.NewLogrusDiag(nil))
	if err != nil {
		return nil, util.ChildNewtError(err)
	}

	if sppdutil.FlushInterval > 0 {
		d.flushInterval = time.Duration(
			sppdutil.FlushInterval * float64(time.Second))
	}
	if sppdutil.MetricsEnabled {
		d.enableAdmin(sppdutil.MetricsAddr)
	}

	return d, nil
}

func serveRunCmd(cmd *cobra.Command, args []string) {
	p, sc, err := getSppdConfig()
	if err != nil {
		sppUsage(cmd, err)
	}

	x, err := buildXport(p, sc)
	if err != nil {
		sppUsage(nil, err)
	}

	d, err := buildDaemon(sc, x)
	if err != nil {
		sppUsage(nil, err)
	}

	if err := startGlobalDaemon(d); err != nil {
		sppUsage(nil, util.ChildNewtError(err))
	}

	log.Infof("%s ready; device_name=%s service_name=%s platform=%s",
		sppdutil.ToolInfo.ShortName, sc.DeviceName, sc.SrvName,
		config.ProfileTypeToString(p.Type))

	d.wait()
}

func serveCmd() *cobra.Command {
	serveHelpText := "Bring up the Bluetooth stack, accept pairing requests, " +
		"and echo\nevery byte received on the serial service back to its " +
		"sender.\nRuns until interrupted."

	return &cobra.Command{
		Use:     "serve",
		Short:   "Run the " + sppdutil.ToolInfo.ShortName + " echo service",
		Long:    serveHelpText,
		Example: "  " + sppdutil.ToolInfo.ExeName + " serve --connstring device_name=Bench,hci=hci1",
		Run:     serveRunCmd,
	}
}
