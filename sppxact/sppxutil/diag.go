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
	"sync"

	log "github.com/sirupsen/logrus"
)

// A fire-and-forget diagnostic sink.  Kind names the event being reported
// (e.g., "pin_reply"); fields carry its details.  Implementations must not
// block and must not fail.
type Diag interface {
	Log(kind string, fields log.Fields)
}

// Field key under which a diagnostic's kind is stored.
const DiagKindKey = "evt"

type LogrusDiag struct {
	logger *log.Logger
	level  log.Level
}

// Creates a Diag that writes to the specified logger at info level.  A nil
// logger selects the logrus standard logger.
func NewLogrusDiag(logger *log.Logger) *LogrusDiag {
	if logger == nil {
		logger = log.StandardLogger()
	}

	return &LogrusDiag{
		logger: logger,
		level:  log.InfoLevel,
	}
}

func (d *LogrusDiag) SetLevel(level log.Level) {
	d.level = level
}

func (d *LogrusDiag) Log(kind string, fields log.Fields) {
	d.logger.WithFields(fields).WithField(DiagKindKey, kind).Log(d.level, kind)
}

type DiagRecord struct {
	Kind   string
	Fields log.Fields
}

// A Diag that keeps every record in memory.  Used by tests and by the
// simulator shell.
type RecDiag struct {
	recs []DiagRecord
	mtx  sync.Mutex
}

func NewRecDiag() *RecDiag {
	return &RecDiag{}
}

func (d *RecDiag) Log(kind string, fields log.Fields) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	cp := make(log.Fields, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	d.recs = append(d.recs, DiagRecord{Kind: kind, Fields: cp})
}

func (d *RecDiag) Records() []DiagRecord {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return append([]DiagRecord(nil), d.recs...)
}

// Returns every record of the specified kind, oldest first.
func (d *RecDiag) Find(kind string) []DiagRecord {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	var recs []DiagRecord
	for _, r := range d.recs {
		if r.Kind == kind {
			recs = append(recs, r)
		}
	}

	return recs
}

func (d *RecDiag) Kinds() []string {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	kinds := make([]string, len(d.recs))
	for i, r := range d.recs {
		kinds[i] = r.Kind
	}

	return kinds
}

func (d *RecDiag) Clear() {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.recs = nil
}
