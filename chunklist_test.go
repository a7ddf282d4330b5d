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

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkList_IndexOfMatchesByValue(t *testing.T) {
	chunks := ChunkList{
		{Offset: 0, Length: 4096, Buffer: make([]byte, 4096)},
		{Offset: 8192, Length: 2048, Buffer: make([]byte, 2048)},
	}

	idx, ok := chunks.IndexOf(8192, 2048)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = chunks.IndexOf(8192, 4096)
	assert.False(t, ok, "length mismatch at a known offset must not match")
}

func TestChunkList_IndexOfOffsetIgnoresLength(t *testing.T) {
	chunks := ChunkList{
		{Offset: 0, Length: 4096, Buffer: make([]byte, 4096)},
		{Offset: 8192, Length: 2048, Buffer: make([]byte, 2048)},
	}

	idx, ok := chunks.IndexOfOffset(8192)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = chunks.IndexOfOffset(4096)
	assert.False(t, ok)
}

// bufferIgnoringChunk compares a ChunkList by offset/length only, the way a
// caller asserting on positional-matching results wants to: the buffer
// contents are already asserted on separately, by index, and reflect.DeepEqual
// (which testify's assert.Equal falls back to) can't express "equal except
// this field" the way a cmp.Comparer can.
var bufferIgnoringChunk = cmp.Comparer(func(a, b Chunk) bool {
	return a.Offset == b.Offset && a.Length == b.Length
})

func TestChunkList_DiffIgnoringBufferContents(t *testing.T) {
	want := ChunkList{
		{Offset: 0, Length: 128, Buffer: []byte{1, 2, 3}},
		{Offset: 256, Length: 64, Buffer: []byte{9}},
	}
	got := ChunkList{
		{Offset: 0, Length: 128, Buffer: make([]byte, 128)},
		{Offset: 256, Length: 64, Buffer: make([]byte, 64)},
	}

	if diff := cmp.Diff(want, got, bufferIgnoringChunk); diff != "" {
		t.Fatalf("chunk list offsets/lengths differ (-want +got):\n%s", diff)
	}
}

func TestVectorReadInfo_Partial(t *testing.T) {
	allDone := VectorReadInfo{Statuses: []ChunkStatus{{Done: true}, {Done: true}}}
	assert.False(t, allDone.Partial())

	oneMissing := VectorReadInfo{Statuses: []ChunkStatus{{Done: true}, {Done: false}}}
	assert.True(t, oneMissing.Partial())
}
