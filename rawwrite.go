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

import "errors"

// RawWriter streams a large write request's ChunkList to the socket instead
// of buffering the whole body. It iterates the chunks in order, tracking a
// running write cursor, and never re-enters the socket once a chunk finishes
// writing in the same Step call; the caller is expected to call Step again
// on the next writable event.
type RawWriter struct {
	chunks      ChunkList
	chunkIdx    int
	off         int
	asyncOffset int64
}

// NewRawWriter prepares a writer over chunks.
func NewRawWriter(chunks ChunkList) *RawWriter {
	return &RawWriter{chunks: chunks}
}

// AsyncOffset reports the byte offset within the current chunk written so
// far.
func (w *RawWriter) AsyncOffset() int64 {
	return w.asyncOffset
}

// Step writes as much of the current chunk as the socket accepts in one
// call, then returns without re-entering the socket once a chunk completes.
func (w *RawWriter) Step(sock Socket) (Outcome, int, *Error) {
	if w.chunkIdx >= len(w.chunks) {
		return OutcomeDone, 0, nil
	}
	chunk := w.chunks[w.chunkIdx]
	n, err := sock.Write(chunk.Buffer[w.off:])
	w.off += n
	w.asyncOffset += int64(n)
	if err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return OutcomeRetry, n, nil
		}
		return OutcomeError, n, errorf(StatusError, ErrIOError, err)
	}
	if w.off < len(chunk.Buffer) {
		return OutcomeRetry, n, nil
	}
	w.chunkIdx++
	w.off = 0
	w.asyncOffset = 0
	if w.chunkIdx >= len(w.chunks) {
		return OutcomeDone, n, nil
	}
	return OutcomeRetry, n, nil
}
