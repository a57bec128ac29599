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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/abiosoft/ishell.v2"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/sppd/sppd/config"
	"mynewt.apache.org/sppd/sppd/sppdutil"
	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/sim"
)

// Peer used when a shell command omits one.
var simDfltPeer = BtAddr{Bytes: [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}}

type simShell struct {
	d *daemon
	x *sim.SimXport
}

func (ss *simShell) report(c *ishell.Context, err error) {
	if err != nil {
		c.Println("Error:", err.Error())
	}
}

func parseHandle(s string) (SessionHandle, error) {
	u, err := cast.ToUint32E(s)
	if err != nil {
		return 0, fmt.Errorf("invalid session handle: %s", s)
	}
	return SessionHandle(u), nil
}

func parsePeerArg(args []string, idx int) (BtAddr, error) {
	if len(args) <= idx {
		return simDfltPeer, nil
	}
	return ParseBtAddr(args[idx])
}

func (ss *simShell) initCmd(c *ishell.Context) {
	ss.report(c, ss.x.InjectInit())
}

func (ss *simShell) openCmd(c *ishell.Context) {
	if len(c.Args) < 1 {
		c.Println("usage: open <handle> [peer]")
		return
	}

	h, err := parseHandle(c.Args[0])
	if err != nil {
		ss.report(c, err)
		return
	}
	peer, err := parsePeerArg(c.Args, 1)
	if err != nil {
		ss.report(c, err)
		return
	}

	ss.report(c, ss.x.InjectOpen(h, peer))
	ss.printWrites(c)
}

// Payload is hex unless prefixed with "text:".
func parsePayload(args []string) ([]byte, error) {
	joined := strings.Join(args, " ")
	if strings.HasPrefix(joined, "text:") {
		return []byte(strings.TrimPrefix(joined, "text:")), nil
	}

	return hex.DecodeString(strings.Join(args, ""))
}

func (ss *simShell) dataCmd(c *ishell.Context) {
	if len(c.Args) < 2 {
		c.Println("usage: data <handle> <hex bytes | text:...>")
		return
	}

	h, err := parseHandle(c.Args[0])
	if err != nil {
		ss.report(c, err)
		return
	}
	data, err := parsePayload(c.Args[1:])
	if err != nil {
		ss.report(c, err)
		return
	}

	ss.report(c, ss.x.InjectData(h, data))
	ss.printWrites(c)
}

func (ss *simShell) closeCmd(c *ishell.Context) {
	if len(c.Args) < 1 {
		c.Println("usage: close <handle>")
		return
	}

	h, err := parseHandle(c.Args[0])
	if err != nil {
		ss.report(c, err)
		return
	}

	ss.report(c, ss.x.InjectClose(h))
}

func (ss *simShell) pinCmd(c *ishell.Context) {
	peer, err := parsePeerArg(c.Args, 0)
	if err != nil {
		ss.report(c, err)
		return
	}
	long := len(c.Args) > 1 && c.Args[1] == "long"

	ss.report(c, ss.x.InjectPinReq(peer, long))
	ss.printReplies(c)
}

func (ss *simShell) confirmCmd(c *ishell.Context) {
	peer, err := parsePeerArg(c.Args, 0)
	if err != nil {
		ss.report(c, err)
		return
	}

	var numVal uint32
	if len(c.Args) > 1 {
		numVal, err = cast.ToUint32E(c.Args[1])
		if err != nil {
			ss.report(c, err)
			return
		}
	}

	ss.report(c, ss.x.InjectCfmReq(peer, numVal))
	ss.printReplies(c)
}

func (ss *simShell) authCmd(c *ishell.Context) {
	if len(c.Args) < 2 {
		c.Println("usage: auth <peer> <status> [name]")
		return
	}

	peer, err := ParseBtAddr(c.Args[0])
	if err != nil {
		ss.report(c, err)
		return
	}
	status, err := BtStatusFromString(c.Args[1])
	if err != nil {
		ss.report(c, err)
		return
	}
	name := strings.Join(c.Args[2:], " ")

	ss.report(c, ss.x.InjectAuthCmpl(peer, status, name))
}

func (ss *simShell) sessionsCmd(c *ishell.Context) {
	st := ss.d.status()
	c.Printf("state: %s\n", st.State)
	for _, s := range st.Sessions {
		c.Printf("  handle=%d peer=%s rx=%d tx=%d opened=%s\n",
			s.Handle, s.Peer, s.RxBytes, s.TxBytes,
			s.OpenedAt.Format("15:04:05"))
	}
	for _, a := range st.Attempts {
		c.Printf("  pairing peer=%s state=%s\n", a.Peer, a.State)
	}
	c.Printf("transport handles: %v\n", ss.x.OpenHandles())
}

func (ss *simShell) callsCmd(c *ishell.Context) {
	for _, call := range ss.x.Calls() {
		c.Println(" ", call.String())
	}
	if len(c.Args) > 0 && c.Args[0] == "clear" {
		ss.x.ClearCalls()
	}
}

func (ss *simShell) printCalls(c *ishell.Context, ops ...sim.CallOp) {
	for _, op := range ops {
		for _, call := range ss.x.CallsOf(op) {
			c.Println("<-", call.String())
		}
	}
	ss.x.ClearCalls()
}

func (ss *simShell) printWrites(c *ishell.Context) {
	ss.printCalls(c, sim.CALL_OP_WRITE)
}

func (ss *simShell) printReplies(c *ishell.Context) {
	ss.printCalls(c, sim.CALL_OP_PIN_REPLY, sim.CALL_OP_SSP_REPLY)
}

func (ss *simShell) run() {
	shell := ishell.New()
	shell.SetPrompt("sim> ")

	shell.Println()
	shell.Println(" " + sppdutil.ToolInfo.ShortName + " simulator:")
	shell.Println("	Platform requests made during bring-up:")
	for _, call := range ss.x.Calls() {
		shell.Println("	 ", call.String())
	}
	shell.Println()
	ss.x.ClearCalls()

	cmds := []*ishell.Cmd{
		{Name: "init", Help: "Report the SPP layer ready: init",
			Func: ss.initCmd},
		{Name: "open", Help: "Connect a peer: open <handle> [peer]",
			Func: ss.openCmd},
		{Name: "data", Help: "Receive a chunk: data <handle> <hex | text:...>",
			Func: ss.dataCmd},
		{Name: "close", Help: "Disconnect a peer: close <handle>",
			Func: ss.closeCmd},
		{Name: "pin", Help: "Request a PIN: pin [peer] [long]",
			Func: ss.pinCmd},
		{Name: "confirm", Help: "Request SSP confirmation: confirm [peer] [value]",
			Func: ss.confirmCmd},
		{Name: "auth", Help: "Finish pairing: auth <peer> <status> [name]",
			Func: ss.authCmd},
		{Name: "sessions", Help: "List open sessions and pairing attempts",
			Func: ss.sessionsCmd},
		{Name: "calls", Help: "List platform requests: calls [clear]",
			Func: ss.callsCmd},
	}
	for _, cmd := range cmds {
		shell.AddCmd(cmd)
	}

	shell.Run()
	shell.Close()
}

func simRunCmd(cmd *cobra.Command, args []string) {
	_, sc, err := getSppdConfig()
	if err != nil {
		sppUsage(cmd, err)
	}

	// Simulated traffic stays out of the real totals unless a store is
	// named explicitly.
	if sc.NvsPath == "" {
		sc.NvsPath = config.NVS_OFF
	}

	x := sim.NewSimXport()
	d, err := buildDaemon(sc, x)
	if err != nil {
		sppUsage(nil, err)
	}

	if err := startGlobalDaemon(d); err != nil {
		sppUsage(nil, util.ChildNewtError(err))
	}

	ss := &simShell{d: d, x: x}
	ss.run()

	if err := StopDaemon(); err != nil {
		sppUsage(nil, util.ChildNewtError(err))
	}
}

func simCmd() *cobra.Command {
	simHelpText := "Run the pairing controller and the session manager " +
		"against an\nin-memory platform.  Shell commands inject platform " +
		"events; the\nrequests the handlers make in response are printed."

	return &cobra.Command{
		Use:   "sim",
		Short: "Interactive " + sppdutil.ToolInfo.ShortName + " simulator",
		Long:  simHelpText,
		Run:   simRunCmd,
	}
}
