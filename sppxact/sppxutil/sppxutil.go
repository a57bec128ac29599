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

package sppxutil

import (
	"encoding/hex"

	log "github.com/sirupsen/logrus"
)

func SetLogLevel(level log.Level) {
	log.SetLevel(level)
}

// Logs a hex dump of a data buffer at debug level.  The dump is only
// formatted if debug logging is enabled.
func LogHexDump(prefix string, data []byte) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}

	log.Debugf("%s (%d bytes):\n%s", prefix, len(data), hex.Dump(data))
}
