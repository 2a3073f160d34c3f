// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package kernel is a cooperative round-robin scheduler. Every registered
// process runs on the caller's goroutine, in registration order, to
// completion. A process is started when its rate says it is due; nothing
// is ever preempted, so a process that runs long delays every process
// after it in the table.
package kernel

import "context"

// Unthrottled is the rate for a process that runs on every pass.
const Unthrottled = 0

// Process is one entry of the task table.
type Process struct {
	Name    string
	Handler func()
	Rate    uint32 // Hz, or Unthrottled

	lastRun uint64 // 0 means never run
}

// Scheduler owns a fixed task table and the clock that gates it.
type Scheduler struct {
	clock Clock
	procs []Process
}

// New registers the task table. The table cannot change afterwards.
func New(clock Clock, procs ...Process) *Scheduler {
	table := make([]Process, len(procs))
	copy(table, procs)
	for i := range table {
		table[i].lastRun = 0
	}
	return &Scheduler{clock: clock, procs: table}
}

// due reports whether p should start at now.
func (s *Scheduler) due(p *Process, now uint64) bool {
	if p.lastRun == 0 || p.Rate == Unthrottled {
		return true
	}
	return now-p.lastRun > s.clock.Rate()/uint64(p.Rate)
}

// Tick makes one pass over the table. The last-run stamp is taken before
// the handler is invoked so a slow handler does not stretch its own period.
func (s *Scheduler) Tick() {
	for i := range s.procs {
		p := &s.procs[i]
		now := s.clock.Now()
		if !s.due(p, now) {
			continue
		}
		p.lastRun = now
		p.Handler()
	}
}

// Run loops over the table until ctx is cancelled. The context is only
// checked between passes; a started process always finishes.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.Tick()
	}
}

// Names returns the registered process names in table order.
func (s *Scheduler) Names() []string {
	names := make([]string, len(s.procs))
	for i, p := range s.procs {
		names[i] = p.Name
	}
	return names
}
