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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRef_InvalidateStopsAccess(t *testing.T) {
	h := &MessageHandler{}
	ref := NewHandlerRef(h)

	got, ok := ref.Get()
	assert.True(t, ok)
	assert.Same(t, h, got)

	ref.Invalidate()
	_, ok = ref.Get()
	assert.False(t, ok)
}

func TestHandlerRef_HoldFreeBalances(t *testing.T) {
	h := &MessageHandler{}
	ref := NewHandlerRef(h)
	assert.Equal(t, 1, ref.Refs())

	held := ref.Hold()
	assert.Same(t, ref, held)
	assert.Equal(t, 2, ref.Refs())

	ref.Free()
	assert.Equal(t, 1, ref.Refs())
}
