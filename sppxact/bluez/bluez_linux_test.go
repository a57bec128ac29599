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

package bluez

import (
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sockPair(t *testing.T) (*os.File, *os.File) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	require.NoError(t, err)

	a, err := newSockFile(fds[0], "a")
	require.NoError(t, err)
	b, err := newSockFile(fds[1], "b")
	require.NoError(t, err)

	return a, b
}

func TestSockFileCloseUnblocksRead(t *testing.T) {
	// given
	a, b := sockPair(t)
	defer b.Close()

	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, rxBufSize)
		_, err := a.Read(buf)
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)

	// when
	require.NoError(t, a.Close())

	// then
	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, os.ErrClosed), "err=%v", err)
	case <-time.After(time.Second):
		t.Fatal("read still blocked after close")
	}
}

func TestSockFileWriteDeadline(t *testing.T) {
	// given
	a, b := sockPair(t)
	defer a.Close()
	defer b.Close()

	chunk := make([]byte, 64*1024)
	require.NoError(t, a.SetWriteDeadline(time.Now().Add(50*time.Millisecond)))

	// when
	var err error
	for i := 0; i < 1024 && err == nil; i++ {
		_, err = a.Write(chunk)
	}

	// then
	require.Error(t, err)
	assert.True(t, os.IsTimeout(err), "err=%v", err)
}

func TestPairWatchStopsOnce(t *testing.T) {
	// given
	calls := 0
	var mtx sync.Mutex
	w := &pairWatch{
		path: "/org/bluez/hci0/dev_A0_B1_C2_D3_E4_F5",
		unwatch: func() error {
			mtx.Lock()
			defer mtx.Unlock()
			calls++
			return nil
		},
	}

	// when
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.stop()
		}()
	}
	wg.Wait()
	w.stop()

	// then
	assert.Equal(t, 1, calls)
}
