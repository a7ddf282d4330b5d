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
	"github.com/stretchr/testify/require"
)

// capSocket accepts at most maxPerWrite bytes per Write call, exercising the
// writer's partial-write handling.
type capSocket struct {
	maxPerWrite int
	written     []byte
}

func (s *capSocket) Read(p []byte) (int, error) { return 0, ErrWouldBlock }

func (s *capSocket) Write(p []byte) (int, error) {
	n := len(p)
	if n > s.maxPerWrite {
		n = s.maxPerWrite
	}
	s.written = append(s.written, p[:n]...)
	return n, nil
}

func TestRawWriter_StreamsAllChunks(t *testing.T) {
	chunks := ChunkList{
		{Buffer: []byte("hello ")},
		{Buffer: []byte("raw ")},
		{Buffer: []byte("write")},
	}
	writer := NewRawWriter(chunks)
	sock := &capSocket{maxPerWrite: 3}

	var outcome Outcome
	for i := 0; i < 10_000; i++ {
		var err *Error
		outcome, _, err = writer.Step(sock)
		require.Nil(t, err)
		if outcome == OutcomeDone {
			break
		}
	}
	require.Equal(t, OutcomeDone, outcome)
	assert.Equal(t, "hello raw write", string(sock.written))
}

func TestRawWriter_DoesNotReenterSocketAfterChunkCompletes(t *testing.T) {
	chunks := ChunkList{
		{Buffer: []byte("abc")},
		{Buffer: []byte("def")},
	}
	writer := NewRawWriter(chunks)
	sock := &capSocket{maxPerWrite: 10}

	outcome, n, err := writer.Step(sock)
	require.Nil(t, err)
	assert.Equal(t, OutcomeRetry, outcome)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(sock.written))
}
