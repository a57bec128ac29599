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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/sppd/sppd/sppdutil"
	"mynewt.apache.org/sppd/sppxact/sppxutil"
)

var SppdLogLevel log.Level

func Commands() *cobra.Command {
	logLevelStr := ""
	sppdCmd := &cobra.Command{
		Use:   sppdutil.ToolInfo.ExeName,
		Short: sppdutil.ToolInfo.ShortName + " runs a Bluetooth serial echo service",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			SppdLogLevel, err = log.ParseLevel(logLevelStr)
			if err != nil {
				sppUsage(nil, util.ChildNewtError(err))
			}

			err = util.Init(SppdLogLevel, "", util.VERBOSITY_DEFAULT)
			if err != nil {
				sppUsage(nil, err)
			}
			sppxutil.SetLogLevel(SppdLogLevel)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	sppdCmd.PersistentFlags().StringVarP(&sppdutil.Profile, "profile", "c", "",
		"profile to use")

	sppdCmd.PersistentFlags().StringVarP(&logLevelStr, "loglevel", "l", "info",
		"log level to use")

	sppdCmd.PersistentFlags().StringVar(&sppdutil.ConnType, "conntype", "",
		"Platform type to use instead of the profile's type")

	sppdCmd.PersistentFlags().StringVar(&sppdutil.ConnString, "connstring", "",
		"Key-value pairs to use instead of the profile's connstring")

	sppdCmd.PersistentFlags().StringVar(&sppdutil.ConnExtra, "connextra", "",
		"Additional key-value pair to append to the connstring")

	sppdCmd.PersistentFlags().BoolVar(&sppdutil.MetricsEnabled, "metrics",
		false, "Serve Prometheus metrics and status over HTTP")

	sppdCmd.PersistentFlags().StringVar(&sppdutil.MetricsAddr, "metrics-addr",
		":9110", "Listen address of the metrics and status server")

	sppdCmd.PersistentFlags().Float64Var(&sppdutil.FlushInterval,
		"flush-interval", 60.0,
		"Seconds between stats store flushes (partial seconds allowed)")

	versCmd := &cobra.Command{
		Use:     "version",
		Short:   "Display the " + sppdutil.ToolInfo.ShortName + " version number",
		Example: "  " + sppdutil.ToolInfo.ExeName + " version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n",
				sppdutil.ToolInfo.LongName,
				sppdutil.ToolInfo.VersionString)
		},
	}
	sppdCmd.AddCommand(versCmd)

	sppdCmd.AddCommand(serveCmd())
	sppdCmd.AddCommand(simCmd())
	sppdCmd.AddCommand(statsCmd())
	sppdCmd.AddCommand(profileCmd())

	return sppdCmd
}
