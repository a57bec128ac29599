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

package task

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// A single job that runs in the queue's goroutine.
type job struct {
	fn func() error
	ch chan error
}

// Reported in place of a job's result if the job panics.
type PanicError struct {
	Val   interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Val)
}

func IsPanic(err error) bool {
	_, ok := err.(*PanicError)
	return ok
}

var InactiveError = fmt.Errorf("inactive task queue")

// A queue for running jobs serially, in the order they were enqueued.  At
// most one job runs at a time.
type TaskQueue struct {
	name   string
	jobCh  chan job
	stopCh chan struct{}
	active bool

	// Guards the active flag and the channels.
	mtx sync.Mutex

	// Held for reading by senders; held for writing while the queue drains.
	sendMtx sync.RWMutex

	wg sync.WaitGroup
}

func NewTaskQueue(name string) *TaskQueue {
	return &TaskQueue{
		name: name,
	}
}

func (q *TaskQueue) Name() string {
	return q.name
}

// Pushes the specified function onto the task queue.  When the job
// completes, its result is sent over the returned channel.  If the queue is
// full, this blocks until there is room or the queue stops.
func (q *TaskQueue) Enqueue(fn func() error) <-chan error {
	j := job{
		fn: fn,
		ch: make(chan error, 1),
	}

	q.sendMtx.RLock()
	defer q.sendMtx.RUnlock()

	q.mtx.Lock()
	active := q.active
	jobCh := q.jobCh
	stopCh := q.stopCh
	q.mtx.Unlock()

	if !active {
		j.ch <- InactiveError
		return j.ch
	}

	select {
	case jobCh <- j:
	case <-stopCh:
		j.ch <- InactiveError
	}

	return j.ch
}

// Enqueues the specified function and waits for it to complete.
func (q *TaskQueue) Run(fn func() error) error {
	return <-q.Enqueue(fn)
}

func (q *TaskQueue) exec(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Val:   r,
				Stack: debug.Stack(),
			}
		}
	}()

	return fn()
}

// Starts the task queue.  A task queue must be started before jobs can be
// enqueued to it.
func (q *TaskQueue) Start(depth int) error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.active {
		return fmt.Errorf("Task queue started twice \"%s\"", q.name)
	}
	q.active = true

	jobCh := make(chan job, depth)
	q.jobCh = jobCh

	stopCh := make(chan struct{})
	q.stopCh = stopCh

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		for {
			select {
			case j := <-jobCh:
				j.ch <- q.exec(j.fn)
				close(j.ch)

			case <-stopCh:
				return
			}
		}
	}()

	return nil
}

// Stops the task queue.  Jobs still queued fail with the specified error.
// This blocks until the running job (if any) returns, so calling it from
// within a job deadlocks.
func (q *TaskQueue) Stop(cause error) error {
	q.mtx.Lock()
	if !q.active {
		q.mtx.Unlock()
		return fmt.Errorf("Task queue stopped twice \"%s\"", q.name)
	}
	q.active = false
	close(q.stopCh)
	jobCh := q.jobCh
	q.mtx.Unlock()

	q.wg.Wait()

	// Wait for in-flight senders to notice the stop, then fail whatever
	// they managed to queue.
	q.sendMtx.Lock()
	defer q.sendMtx.Unlock()

	for {
		select {
		case j := <-jobCh:
			j.ch <- cause
			close(j.ch)
		default:
			return nil
		}
	}
}

func (q *TaskQueue) Active() bool {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	return q.active
}

// Reports the number of jobs waiting to run.
func (q *TaskQueue) Pending() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if !q.active {
		return 0
	}
	return len(q.jobCh)
}
