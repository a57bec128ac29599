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
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	. "mynewt.apache.org/sppd/sppxact/btdefs"
)

func TestSaveLoad(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "sppd.db")
	st, err := Open(path)
	require.NoError(t, err)

	empty, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), empty.SessionsOpened)

	// when
	require.NoError(t, st.Save(Record{SessionsOpened: 3, BytesEchoed: 1024}))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()
	rec, err := st.Load()

	// then
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rec.SessionsOpened)
	assert.Equal(t, uint64(1024), rec.BytesEchoed)
}

func TestRecoverFromGarbage(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "sppd.db")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xab}, 8192),
		0600))

	_, err := Open(path)
	require.True(t, IsFormat(err))

	// when
	st, recovered, err := OpenWithRecovery(path)

	// then
	require.NoError(t, err)
	defer st.Close()
	assert.True(t, recovered)

	rec, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
}

func TestRecoverFromShortFile(t *testing.T) {
	for _, size := range []int{1, 4095, 4096, 5000} {
		// given
		path := filepath.Join(t.TempDir(), "sppd.db")
		require.NoError(t, os.WriteFile(path,
			bytes.Repeat([]byte{0xab}, size), 0600))

		_, err := Open(path)
		require.Error(t, err, "size=%d", size)
		require.True(t, IsFormat(err), "size=%d err=%v", size, err)

		// when
		st, recovered, err := OpenWithRecovery(path)

		// then
		require.NoError(t, err, "size=%d", size)
		assert.True(t, recovered)

		rec, err := st.Load()
		require.NoError(t, err)
		assert.Equal(t, Record{}, rec)
		require.NoError(t, st.Close())
	}
}

func TestRecoverFromCorruptRecord(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "sppd.db")
	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.db.Update(func(tx *bolt.Tx) error {
		// Map of one entry whose key is cut short.
		return tx.Bucket(bucketStats).Put(keyRecord, []byte{0xa1, 0x6f, 's'})
	}))
	require.NoError(t, st.Close())

	_, err = Open(path)
	require.True(t, IsFormat(err), "err=%v", err)

	// when
	st, recovered, err := OpenWithRecovery(path)

	// then
	require.NoError(t, err)
	defer st.Close()
	assert.True(t, recovered)

	tr, err := NewTracker(st)
	require.NoError(t, err)
	assert.Equal(t, Record{}, tr.Record())
}

func TestRecoverFromNewVersion(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "sppd.db")
	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Save(Record{AuthFailures: 2}))
	require.NoError(t, st.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyFormat, encodeFormat(FORMAT_VER+1))
	}))
	require.NoError(t, st.Close())

	// when
	st, recovered, err := OpenWithRecovery(path)

	// then
	require.NoError(t, err)
	defer st.Close()
	assert.True(t, recovered)

	rec, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), rec.AuthFailures)
}

func TestNoRecoveryNeeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sppd.db")

	st, recovered, err := OpenWithRecovery(path)
	require.NoError(t, err)
	assert.False(t, recovered)
	assert.Equal(t, path, st.Path())
	require.NoError(t, st.Close())
}

func TestOpenFailureIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "sppd.db")

	_, _, err := OpenWithRecovery(path)
	assert.Error(t, err)
	assert.False(t, IsFormat(err))
}

func TestTracker(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "sppd.db")
	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Save(Record{SessionsOpened: 10}))

	tr, err := NewTracker(st)
	require.NoError(t, err)
	peer := BtAddr{}

	// when
	tr.SessionOpened(1, peer)
	tr.DataEchoed(1, 5)
	tr.DataEchoed(1, 7)
	tr.PairReply("pin", true)
	tr.PairReply("confirm", false)
	tr.AuthCompleted(peer, true)
	tr.AuthCompleted(peer, false)
	tr.SessionClosed(1)
	tr.Start(time.Hour)
	require.NoError(t, tr.Close())

	// then
	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()
	rec, err := st.Load()
	require.NoError(t, err)

	assert.Equal(t, uint64(11), rec.SessionsOpened)
	assert.Equal(t, uint64(1), rec.SessionsClosed)
	assert.Equal(t, uint64(12), rec.BytesEchoed)
	assert.Equal(t, uint64(2), rec.ChunksEchoed)
	assert.Equal(t, uint64(1), rec.PinReplies)
	assert.Equal(t, uint64(1), rec.CfmReplies)
	assert.Equal(t, uint64(1), rec.Rejected)
	assert.Equal(t, uint64(1), rec.AuthSuccesses)
	assert.Equal(t, uint64(1), rec.AuthFailures)
	assert.False(t, rec.Updated.IsZero())
}
