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
	"strings"

	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/sppd/sppd/config"
	"mynewt.apache.org/sppd/sppd/sppdutil"
)

func profileAddCmd(cmd *cobra.Command, args []string) {
	pm := config.GlobalProfileMgr()

	if len(args) == 0 {
		sppUsage(cmd, util.NewNewtError("Need profile name"))
	}

	name := args[0]
	p := config.NewProfile()
	p.Name = name
	p.Type = config.PROFILE_TYPE_NONE

	for _, vdef := range args[1:] {
		s := strings.SplitN(vdef, "=", 2)
		if len(s) != 2 {
			sppUsage(cmd, util.NewNewtError("Expected varname=value: "+vdef))
		}

		switch s[0] {
		case "type":
			var err error
			p.Type, err = config.ProfileTypeFromString(s[1])
			if err != nil {
				sppUsage(cmd, err)
			}
		case "connstring":
			p.ConnString = s[1]
		default:
			sppUsage(cmd, util.NewNewtError("Unknown variable "+s[0]))
		}
	}

	if p.Type == config.PROFILE_TYPE_NONE {
		sppUsage(cmd, util.NewNewtError("Must specify a profile type"))
	}

	if err := pm.AddProfile(p); err != nil {
		sppUsage(cmd, err)
	}

	fmt.Printf("Profile %s successfully added\n", name)
}

func profileShowCmd(cmd *cobra.Command, args []string) {
	pm := config.GlobalProfileMgr()

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	found := false
	for _, p := range pm.GetProfileList() {
		if name != "" && p.Name != name {
			continue
		}

		if !found {
			found = true
			fmt.Printf("Profiles: \n")
		}
		fmt.Printf("  %s: type=%s, connstring='%s'\n",
			p.Name, config.ProfileTypeToString(p.Type), p.ConnString)
	}

	if !found {
		if name == "" {
			fmt.Printf("No profiles found!\n")
		} else {
			fmt.Printf("No profiles found matching %s\n", name)
		}
	}
}

func profileDelCmd(cmd *cobra.Command, args []string) {
	pm := config.GlobalProfileMgr()

	if len(args) == 0 {
		sppUsage(cmd, util.NewNewtError("Need profile name"))
	}

	name := args[0]
	if err := pm.DeleteProfile(name); err != nil {
		sppUsage(cmd, err)
	}

	fmt.Printf("Profile %s successfully deleted.\n", name)
}

func profileCmd() *cobra.Command {
	pCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage " + sppdutil.ToolInfo.ShortName + " profiles",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	addCmd := &cobra.Command{
		Use:     "add <profile> <varname=value ...>",
		Short:   "Add a " + sppdutil.ToolInfo.ShortName + " profile",
		Example: "  " + sppdutil.ToolInfo.ExeName + " profile add bench type=bluez connstring=hci=hci1,device_name=Bench",
		Run:     profileAddCmd,
	}
	pCmd.AddCommand(addCmd)

	delCmd := &cobra.Command{
		Use:   "delete <profile>",
		Short: "Delete a " + sppdutil.ToolInfo.ShortName + " profile",
		Run:   profileDelCmd,
	}
	pCmd.AddCommand(delCmd)

	showHelpText := "Show information for the specified profile or for all\n"
	showHelpText += "profiles if none is specified.\n"

	showCmd := &cobra.Command{
		Use:   "show [profile]",
		Short: "Show " + sppdutil.ToolInfo.ShortName + " profiles",
		Long:  showHelpText,
		Run:   profileShowCmd,
	}
	pCmd.AddCommand(showCmd)

	return pCmd
}
