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

package nvs

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
	"mynewt.apache.org/sppd/sppxact/stats"
)

// Accumulates activity totals in memory and writes them to a store.
type Tracker struct {
	st    *Store
	rec   Record
	dirty bool

	stopCh chan struct{}
	wg     sync.WaitGroup
	mtx    sync.Mutex
}

var _ stats.Collector = &Tracker{}

// Creates a tracker that continues from the totals already in the store.
func NewTracker(st *Store) (*Tracker, error) {
	rec, err := st.Load()
	if err != nil {
		return nil, err
	}

	return &Tracker{
		st:  st,
		rec: rec,
	}, nil
}

func (t *Tracker) update(fn func(rec *Record)) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	fn(&t.rec)
	t.dirty = true
}

func (t *Tracker) PairReply(kind string, accept bool) {
	t.update(func(rec *Record) {
		if kind == "pin" {
			rec.PinReplies++
		} else {
			rec.CfmReplies++
		}
		if !accept {
			rec.Rejected++
		}
	})
}

func (t *Tracker) AuthCompleted(peer BtAddr, success bool) {
	t.update(func(rec *Record) {
		if success {
			rec.AuthSuccesses++
		} else {
			rec.AuthFailures++
		}
	})
}

func (t *Tracker) SessionOpened(h SessionHandle, peer BtAddr) {
	t.update(func(rec *Record) { rec.SessionsOpened++ })
}

func (t *Tracker) SessionClosed(h SessionHandle) {
	t.update(func(rec *Record) { rec.SessionsClosed++ })
}

func (t *Tracker) DataEchoed(h SessionHandle, n int) {
	t.update(func(rec *Record) {
		rec.ChunksEchoed++
		rec.BytesEchoed += uint64(n)
	})
}

func (t *Tracker) Record() Record {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	return t.rec
}

// Writes the totals to the store if they changed since the last flush.
func (t *Tracker) Flush() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if !t.dirty {
		return nil
	}

	t.rec.Updated = time.Now().UTC()
	if err := t.st.Save(t.rec); err != nil {
		return err
	}

	t.dirty = false
	return nil
}

// Flushes periodically until Close is called.
func (t *Tracker) Start(interval time.Duration) {
	t.stopCh = make(chan struct{})

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := t.Flush(); err != nil {
					log.Warnf("Failed to flush stats: %s", err.Error())
				}

			case <-t.stopCh:
				return
			}
		}
	}()
}

// Stops periodic flushing, writes the final totals, and closes the store.
func (t *Tracker) Close() error {
	if t.stopCh != nil {
		close(t.stopCh)
		t.wg.Wait()
		t.stopCh = nil
	}

	return multierr.Append(t.Flush(), t.st.Close())
}
