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

// Package dispatch routes platform events to the component that owns their
// class.  Events are delivered one at a time, in arrival order, from a
// single goroutine; handlers never run concurrently with each other.
package dispatch

import (
	"fmt"
	"runtime/debug"
	"sync"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/sppd/sppxact/btevt"
	"mynewt.apache.org/sppd/sppxact/task"
)

const DFLT_QUEUE_DEPTH = 64

type EvtHandler interface {
	HandleEvent(evt btevt.Evt)
}

// Adapts an ordinary function to the EvtHandler interface.
type EvtHandlerFunc func(evt btevt.Evt)

func (f EvtHandlerFunc) HandleEvent(evt btevt.Evt) {
	f(evt)
}

type Dispatcher struct {
	handlers map[btevt.EvtClass]EvtHandler
	tq       *task.TaskQueue
	mtx      sync.Mutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: map[btevt.EvtClass]EvtHandler{},
		tq:       task.NewTaskQueue("dispatch"),
	}
}

// Registers the handler for a class of events.  Each class has at most one
// handler.
func (d *Dispatcher) AddHandler(class btevt.EvtClass, h EvtHandler) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if class == btevt.EVT_CLASS_NONE {
		return fmt.Errorf("cannot register handler for event class \"%s\"",
			btevt.EvtClassToString(class))
	}

	if d.handlers[class] != nil {
		return fmt.Errorf("duplicate event handler; class=%s",
			btevt.EvtClassToString(class))
	}

	d.handlers[class] = h
	return nil
}

func (d *Dispatcher) RemoveHandler(class btevt.EvtClass) EvtHandler {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	h := d.handlers[class]
	delete(d.handlers, class)
	return h
}

func (d *Dispatcher) handler(class btevt.EvtClass) EvtHandler {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return d.handlers[class]
}

// Starts the delivery goroutine.  depth is the number of events that can be
// queued before Dispatch blocks.
func (d *Dispatcher) Start(depth int) error {
	if depth <= 0 {
		depth = DFLT_QUEUE_DEPTH
	}
	return d.tq.Start(depth)
}

// Stops delivery.  Queued events that have not been delivered are dropped.
func (d *Dispatcher) Stop() error {
	return d.tq.Stop(fmt.Errorf("dispatcher stopped"))
}

func (d *Dispatcher) Active() bool {
	return d.tq.Active()
}

func (d *Dispatcher) deliver(evt btevt.Evt) {
	class := btevt.EvtClassOf(evt)

	h := d.handler(class)
	if h == nil {
		log.Debugf("Dropping event with no handler: evt=%s class=%s",
			btevt.EvtString(evt), btevt.EvtClassToString(class))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Event handler panicked: evt=%s class=%s err=%v\n%s",
				btevt.EvtString(evt), btevt.EvtClassToString(class), r,
				debug.Stack())
		}
	}()

	h.HandleEvent(evt)
}

// Queues an event for delivery without waiting for it to be handled.  This
// blocks while the queue is full, so events from one source stay in order.
// If the dispatcher is stopped, the event is logged and dropped.
func (d *Dispatcher) Dispatch(evt btevt.Evt) {
	ch := d.tq.Enqueue(func() error {
		d.deliver(evt)
		return nil
	})

	select {
	case err := <-ch:
		if err != nil {
			log.Debugf("Event not delivered: evt=%s err=%s",
				btevt.EvtString(evt), err.Error())
		}
	default:
	}
}

// Queues an event for delivery and waits until its handler has returned.
// Must not be called from within a handler.
func (d *Dispatcher) DispatchSync(evt btevt.Evt) error {
	return d.tq.Run(func() error {
		d.deliver(evt)
		return nil
	})
}
