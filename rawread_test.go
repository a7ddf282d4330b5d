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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedSocket delivers its queued byte slices in pieces, returning
// ErrWouldBlock once the queue is drained, so tests can feed a reader its
// bytes at arbitrary boundaries.
type chunkedSocket struct {
	chunks [][]byte
}

func (s *chunkedSocket) Read(p []byte) (int, error) {
	for len(s.chunks) > 0 && len(s.chunks[0]) == 0 {
		s.chunks = s.chunks[1:]
	}
	if len(s.chunks) == 0 {
		return 0, ErrWouldBlock
	}
	n := copy(p, s.chunks[0])
	s.chunks[0] = s.chunks[0][n:]
	return n, nil
}

func (s *chunkedSocket) Write(p []byte) (int, error) {
	return len(p), nil
}

// splitIntoPieces breaks data into pieceLen-sized slices, used to feed a
// raw reader at arbitrary boundaries.
func splitIntoPieces(data []byte, pieceLen int) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		n := pieceLen
		if n > len(data) {
			n = len(data)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

func drivePlainReader(t *testing.T, pieces [][]byte, size int) []byte {
	t.Helper()
	dst := make([]byte, size)
	var status ChunkStatus
	reader := NewPlainReader(dst, &status)
	sock := &chunkedSocket{chunks: pieces}

	for i := 0; i < 10_000; i++ {
		outcome, _, err := reader.Step(sock)
		require.Nil(t, err)
		if outcome == OutcomeDone {
			require.True(t, status.Done)
			return dst
		}
	}
	t.Fatal("plain reader never completed")
	return nil
}

func TestPlainReader_ResumabilityLaw(t *testing.T) {
	data := make([]byte, 97)
	for i := range data {
		data[i] = byte(i)
	}

	whole := drivePlainReader(t, [][]byte{append([]byte(nil), data...)}, len(data))
	split3 := drivePlainReader(t, splitIntoPieces(data, 3), len(data))
	split17 := drivePlainReader(t, splitIntoPieces(data, 17), len(data))

	assert.Equal(t, whole, split3)
	assert.Equal(t, whole, split17)
	assert.Equal(t, data, whole)
}

func readaheadHeader(offset int64, rlen int32) []byte {
	buf := make([]byte, rawReadaheadHeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], 0) // fhandle, unused by the matcher
	binary.BigEndian.PutUint32(buf[4:8], uint32(rlen))
	binary.BigEndian.PutUint64(buf[8:16], uint64(offset))
	return buf
}

func TestVectorReader_PositionalLawAndPartial(t *testing.T) {
	chunks := ChunkList{
		{Offset: 0, Length: 4096, Buffer: make([]byte, 4096)},
		{Offset: 8192, Length: 4096, Buffer: make([]byte, 4096)},
	}
	body1 := make([]byte, 4096)
	for i := range body1 {
		body1[i] = 0xAB
	}

	var wire []byte
	wire = append(wire, readaheadHeader(0, 4096)...)
	wire = append(wire, body1...)
	// Server returns fewer chunks than requested: the second chunk never
	// arrives, so it must be reported not-done.

	statuses := make([]ChunkStatus, len(chunks))
	reader := NewVectorReader(chunks, statuses, len(wire))
	sock := &chunkedSocket{chunks: splitIntoPieces(wire, 7)}

	var outcome Outcome
	var err *Error
	for i := 0; i < 10_000; i++ {
		outcome, _, err = reader.Step(sock)
		require.Nil(t, err)
		if outcome == OutcomeDone {
			break
		}
	}
	require.Equal(t, OutcomeDone, outcome)

	result := reader.Result()
	assert.True(t, result.Statuses[0].Done)
	assert.False(t, result.Statuses[1].Done)
	assert.False(t, result.Statuses[1].SizeError)
	assert.True(t, result.Partial())
	assert.Equal(t, body1, chunks[0].Buffer)
}

func TestVectorReader_SizeErrorDiscardsPayload(t *testing.T) {
	chunks := ChunkList{
		{Offset: 0, Length: 128, Buffer: make([]byte, 128)},
	}
	oversized := make([]byte, 256)
	for i := range oversized {
		oversized[i] = 0xCD
	}

	var wireBuf []byte
	wireBuf = append(wireBuf, readaheadHeader(0, 256)...)
	wireBuf = append(wireBuf, oversized...)

	statuses := make([]ChunkStatus, len(chunks))
	reader := NewVectorReader(chunks, statuses, len(wireBuf))
	sock := &chunkedSocket{chunks: [][]byte{wireBuf}}

	var outcome Outcome
	var err *Error
	for i := 0; i < 10_000; i++ {
		outcome, _, err = reader.Step(sock)
		require.Nil(t, err)
		if outcome == OutcomeDone {
			break
		}
	}
	require.Equal(t, OutcomeDone, outcome)

	result := reader.Result()
	assert.True(t, result.Statuses[0].SizeError)
	assert.False(t, result.Statuses[0].Done)
	// The caller's buffer must not have been overwritten with discarded
	// payload bytes.
	for _, b := range chunks[0].Buffer {
		assert.Equal(t, byte(0), b)
	}
}

func TestOtherRawReader(t *testing.T) {
	data := []byte("arbitrary oversized non-data response body")
	reader := NewOtherRawReader(len(data))
	sock := &chunkedSocket{chunks: splitIntoPieces(data, 5)}

	var outcome Outcome
	for i := 0; i < 10_000; i++ {
		var err *Error
		outcome, _, err = reader.Step(sock)
		require.Nil(t, err)
		if outcome == OutcomeDone {
			break
		}
	}
	require.Equal(t, OutcomeDone, outcome)
	assert.Equal(t, data, reader.Buffer())
}
