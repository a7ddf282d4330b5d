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

// Chunk is one caller-supplied scatter/gather vector entry for a read,
// readv, or write request: (offset, length, buffer).
type Chunk struct {
	Offset int64
	Length int32
	Buffer []byte
}

// ChunkList is the caller-supplied, ordered scatter/gather vector.
type ChunkList []Chunk

// IndexOf returns the index of the chunk whose (offset, length) matches
// exactly, which is how the vector reader matches an arriving
// readahead_list header to a caller slot: matching is by value, not arrival
// order.
func (c ChunkList) IndexOf(offset int64, length int32) (int, bool) {
	for i, chunk := range c {
		if chunk.Offset == offset && chunk.Length == length {
			return i, true
		}
	}
	return -1, false
}

// IndexOfOffset returns the index of the chunk at offset regardless of
// length. A readahead_list header whose rlen matches no requested slot is
// attributed through this lookup to the chunk it was answering, so the
// size mismatch can be reported against that slot instead of vanishing.
func (c ChunkList) IndexOfOffset(offset int64) (int, bool) {
	for i, chunk := range c {
		if chunk.Offset == offset {
			return i, true
		}
	}
	return -1, false
}

// ChunkStatus tracks per-chunk progress for a vector read.
type ChunkStatus struct {
	Done      bool
	SizeError bool
}

// VectorReadInfo is the typed result of a readv operation: total bytes
// filled across all chunks plus the per-chunk status the caller inspects to
// find which slots actually landed.
type VectorReadInfo struct {
	BytesRead int64
	Statuses  []ChunkStatus
}

// Partial reports whether any requested chunk failed to complete, which
// makes the overall XRootDStatus OK-with-partial rather than plain OK.
func (v VectorReadInfo) Partial() bool {
	for _, s := range v.Statuses {
		if !s.Done {
			return true
		}
	}
	return false
}
