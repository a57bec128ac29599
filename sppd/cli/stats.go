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
	"fmt"
	"os"
	"time"

	"github.com/fatih/structs"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/sppd/sppd/config"
	"mynewt.apache.org/sppd/sppd/sppdutil"
	"mynewt.apache.org/sppd/sppxact/nvs"
)

var statsJson bool

func printRecord(rec nvs.Record) {
	for _, f := range structs.Fields(rec) {
		switch v := f.Value().(type) {
		case time.Time:
			if v.IsZero() {
				fmt.Printf("    %-16s never\n", f.Name())
			} else {
				fmt.Printf("    %-16s %s\n", f.Name(), v.Format(time.RFC3339))
			}
		default:
			fmt.Printf("    %-16s %v\n", f.Name(), v)
		}
	}
}

func statsRunCmd(cmd *cobra.Command, args []string) {
	_, sc, err := getSppdConfig()
	if err != nil {
		sppUsage(cmd, err)
	}

	path, err := config.NvsPath(sc)
	if err != nil {
		sppUsage(nil, err)
	}
	if path == "" {
		sppUsage(nil, util.NewNewtError("persistent stats disabled (nvs=off)"))
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("No stats recorded yet (%s)\n", path)
		return
	}

	st, err := nvs.Open(path)
	if err != nil {
		sppUsage(nil, util.ChildNewtError(err))
	}
	defer st.Close()

	rec, err := st.Load()
	if err != nil {
		sppUsage(nil, util.ChildNewtError(err))
	}

	if statsJson {
		b, err := json.MarshalIndent(rec, "", "    ")
		if err != nil {
			sppUsage(nil, util.ChildNewtError(err))
		}
		fmt.Println(string(b))
		return
	}

	fmt.Printf("Stats (%s):\n", path)
	printRecord(rec)
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Display the persistent totals of " + sppdutil.ToolInfo.ShortName,
		Long: "Display the totals stored in the stats store.  These survive " +
			"restarts\nand are flushed periodically while the service runs.",
		Run: statsRunCmd,
	}

	cmd.Flags().BoolVarP(&statsJson, "json", "j", false, "output JSON")

	return cmd
}
