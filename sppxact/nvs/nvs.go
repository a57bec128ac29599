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

// Package nvs is the daemon's small persistent store.  It keeps running
// totals of pairing and session activity across restarts.
package nvs

import (
	"encoding/binary"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
	bolt "go.etcd.io/bbolt"
)

// Version of the on-disk layout.  A store written with a different version
// is discarded.
const FORMAT_VER = 1

const openTmo = time.Second

var (
	bucketMeta  = []byte("meta")
	bucketStats = []byte("stats")
	keyFormat   = []byte("format")
	keyRecord   = []byte("record")
)

// Indicates the store exists but cannot be used as is.  The caller may erase
// it and start over.
type FormatError struct {
	Path string
	Text string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unusable store \"%s\": %s", e.Path, e.Text)
}

func IsFormat(err error) bool {
	_, ok := errors.Cause(err).(*FormatError)
	return ok
}

// Running totals.
type Record struct {
	SessionsOpened uint64    `codec:"sessions_opened" json:"sessions_opened"`
	SessionsClosed uint64    `codec:"sessions_closed" json:"sessions_closed"`
	BytesEchoed    uint64    `codec:"bytes_echoed" json:"bytes_echoed"`
	ChunksEchoed   uint64    `codec:"chunks_echoed" json:"chunks_echoed"`
	PinReplies     uint64    `codec:"pin_replies" json:"pin_replies"`
	CfmReplies     uint64    `codec:"cfm_replies" json:"cfm_replies"`
	Rejected       uint64    `codec:"rejected" json:"rejected"`
	AuthSuccesses  uint64    `codec:"auth_successes" json:"auth_successes"`
	AuthFailures   uint64    `codec:"auth_failures" json:"auth_failures"`
	Updated        time.Time `codec:"updated" json:"updated"`
}

type Store struct {
	path string
	db   *bolt.DB
}

func encodeFormat(ver uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, ver)
	return buf[:n]
}

func decodeRecord(raw []byte) (Record, error) {
	var rec Record
	err := codec.NewDecoderBytes(raw, new(codec.CborHandle)).Decode(&rec)
	return rec, err
}

// Sorts a bolt.Open failure into one the caller can recover from by erasing
// the file, and one it cannot.
func classifyOpenErr(path string, err error) error {
	switch err {
	case bolt.ErrInvalid, bolt.ErrVersionMismatch, bolt.ErrChecksum:
		return &FormatError{Path: path, Text: err.Error()}

	case bolt.ErrTimeout:
		return errors.Wrapf(err, "store \"%s\" is locked", path)
	}

	switch err.(type) {
	case *os.PathError, *os.LinkError, syscall.Errno:
		return errors.Wrapf(err, "failed to open store \"%s\"", path)
	}

	// Everything else comes from the file's contents, e.g., "file size too
	// small" for a file shorter than two pages.
	return &FormatError{Path: path, Text: err.Error()}
}

// Opens the store at the specified path, creating it if necessary.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTmo})
	if err != nil {
		return nil, classifyOpenErr(path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketStats); err != nil {
			return err
		}

		raw := meta.Get(keyFormat)
		if raw == nil {
			return meta.Put(keyFormat, encodeFormat(FORMAT_VER))
		}

		ver, n := binary.Uvarint(raw)
		if n <= 0 {
			return &FormatError{Path: path, Text: "corrupt format version"}
		}
		if ver != FORMAT_VER {
			return &FormatError{
				Path: path,
				Text: fmt.Sprintf("format version %d; want %d", ver, FORMAT_VER),
			}
		}

		// An undecodable record would otherwise fail every later Load.
		if raw := tx.Bucket(bucketStats).Get(keyRecord); raw != nil {
			if _, err := decodeRecord(raw); err != nil {
				return &FormatError{
					Path: path,
					Text: "corrupt stats record: " + err.Error(),
				}
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to initialize store \"%s\"", path)
	}

	return &Store{
		path: path,
		db:   db,
	}, nil
}

// Opens the store.  If the store is unusable, it is erased and
// reinitialized once; a second failure is returned to the caller.
func OpenWithRecovery(path string) (*Store, bool, error) {
	st, err := Open(path)
	if err == nil {
		return st, false, nil
	}

	if !IsFormat(err) {
		return nil, false, err
	}

	log.Warnf("Erasing store: %s", err.Error())
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, false, errors.Wrapf(err, "failed to erase store \"%s\"",
			path)
	}

	st, err = Open(path)
	if err != nil {
		return nil, true, err
	}

	return st, true, nil
}

func (st *Store) Path() string {
	return st.path
}

func (st *Store) Load() (Record, error) {
	var rec Record

	err := st.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketStats).Get(keyRecord)
		if raw == nil {
			return nil
		}

		var err error
		rec, err = decodeRecord(raw)
		return err
	})
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to load stats record")
	}

	return rec, nil
}

func (st *Store) Save(rec Record) error {
	var raw []byte
	enc := codec.NewEncoderBytes(&raw, new(codec.CborHandle))
	if err := enc.Encode(rec); err != nil {
		return errors.Wrap(err, "failed to encode stats record")
	}

	err := st.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStats).Put(keyRecord, raw)
	})
	if err != nil {
		return errors.Wrap(err, "failed to save stats record")
	}

	return nil
}

func (st *Store) Close() error {
	return st.db.Close()
}
