// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package inflight

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned for the result of a request that a newer request
// of the same slot replaced.
var ErrSuperseded = errors.New("superseded by a newer request")

// Slot serializes the results of one logical request slot. The zero value is ready to use.
type Slot struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Ticket identifies one request started with Slot.Begin.
type Ticket struct {
	slot   *Slot
	gen    uint64
	cancel context.CancelFunc
}

// Begin cancels the slot's current request, if any, and starts a new one.
// The returned context is canceled when a newer request begins, when Cancel
// is called, or when the ticket is done.
func (s *Slot) Begin(parent context.Context) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.cancel = cancel
	t := Ticket{slot: s, gen: s.gen, cancel: cancel}
	s.mu.Unlock()

	return ctx, t
}

// Cancel aborts the current request without starting a new one. Its
// ticket can no longer commit.
func (s *Slot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// Busy reports whether a request is running.
func (s *Slot) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Current reports whether t is still the newest request of its slot.
func (t Ticket) Current() bool {
	if t.slot == nil {
		return false
	}
	t.slot.mu.Lock()
	defer t.slot.mu.Unlock()
	return t.slot.gen == t.gen
}

// Commit runs apply if t is still the newest request and reports whether it
// ran. apply runs under the slot lock, so no newer Begin can interleave.
func (t Ticket) Commit(apply func()) bool {
	if t.slot == nil {
		return false
	}
	t.slot.mu.Lock()
	defer t.slot.mu.Unlock()
	if t.slot.gen != t.gen {
		return false
	}
	apply()
	return true
}

// Done releases the ticket's context. The slot becomes idle if t was current.
func (t Ticket) Done() {
	if t.slot == nil {
		return
	}
	t.cancel()
	t.slot.mu.Lock()
	if t.slot.gen == t.gen {
		t.slot.cancel = nil
	}
	t.slot.mu.Unlock()
}

// Slots is a set of named slots. The zero value is ready to use.
type Slots struct {
	mu    sync.Mutex
	slots map[string]*Slot
}

// Get returns the slot for key, creating it on first use.
func (s *Slots) Get(key string) *Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slots == nil {
		s.slots = make(map[string]*Slot)
	}
	slot, ok := s.slots[key]
	if !ok {
		slot = &Slot{}
		s.slots[key] = slot
	}
	return slot
}

// CancelAll cancels the current request of every slot.
func (s *Slots) CancelAll() {
	s.mu.Lock()
	all := make([]*Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		all = append(all, slot)
	}
	s.mu.Unlock()

	for _, slot := range all {
		slot.Cancel()
	}
}

// Busy returns the keys with a running request.
func (s *Slots) Busy() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key, slot := range s.slots {
		if slot.Busy() {
			keys = append(keys, key)
		}
	}
	return keys
}
