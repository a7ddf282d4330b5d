// Copyright 2024 The xrdgo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package xrdcl

import "sync"

// HandlerRef is a counted indirection cell: a wait-task
// scheduled on the PostMaster's timer can outlive the MessageHandler it
// belongs to, so instead of a raw pointer the timer holds a reference to this
// cell. The handler invalidates its own slot at destruction; the cell itself
// is only freed once every holder has dropped its reference.
type HandlerRef struct {
	mu   sync.Mutex
	h    *MessageHandler
	refs int
}

// NewHandlerRef wraps h with one reference held by the handler itself.
func NewHandlerRef(h *MessageHandler) *HandlerRef {
	return &HandlerRef{h: h, refs: 1}
}

// Hold adds a reference for a newly enqueued wait-task and returns the same
// cell.
func (r *HandlerRef) Hold() *HandlerRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs++
	return r
}

// Get returns the live handler pointer, or ok=false if the cell has been
// invalidated (the handler was destroyed before the timer fired).
func (r *HandlerRef) Get() (*MessageHandler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.h == nil {
		return nil, false
	}
	return r.h, true
}

// Invalidate nulls the pointer without freeing the cell; called by the
// handler at destruction so any wait-task that fires afterward observes a
// dead reference instead of touching freed state.
func (r *HandlerRef) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.h = nil
}

// Free drops one reference; the caller is done with the cell once this
// returns. There is nothing further to release in Go (the GC reclaims the
// cell once unreferenced) but the refcount is kept so tests can assert every
// Hold is matched by a Free.
func (r *HandlerRef) Free() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs--
}

// Refs reports the current reference count, for tests only.
func (r *HandlerRef) Refs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs
}
