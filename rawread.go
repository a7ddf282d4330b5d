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
	"errors"
)

// rawReadaheadHeaderSize is the wire size of one readahead_list entry:
// fhandle[4], rlen[4], offset[8].
const rawReadaheadHeaderSize = 16

// RawReader is a resumable incremental reader driven by socket-readable
// events. Implementations never block; on a short read they return Retry
// with the byte count reflecting progress so far.
type RawReader interface {
	Step(sock Socket) (Outcome, int, *Error)
}

// tryRead performs one best-effort read into dst, classifying a would-block
// result as Retry rather than Error.
func tryRead(sock Socket, dst []byte) (int, Outcome, *Error) {
	n, err := sock.Read(dst)
	if err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return n, OutcomeRetry, nil
		}
		return n, OutcomeError, errorf(StatusError, ErrIOError, err)
	}
	return n, OutcomeDone, nil
}

// PlainReader streams one contiguous reply into the caller's first chunk
// buffer.
type PlainReader struct {
	dst    []byte
	off    int
	status *ChunkStatus
}

// NewPlainReader targets dst, marking status done on completion.
func NewPlainReader(dst []byte, status *ChunkStatus) *PlainReader {
	return &PlainReader{dst: dst, status: status}
}

func (r *PlainReader) Step(sock Socket) (Outcome, int, *Error) {
	total := 0
	for r.off < len(r.dst) {
		n, outcome, err := tryRead(sock, r.dst[r.off:])
		r.off += n
		total += n
		if err != nil {
			return OutcomeError, total, err
		}
		if outcome == OutcomeRetry {
			return OutcomeRetry, total, nil
		}
		if n == 0 {
			// Socket reported success but delivered nothing; avoid spinning.
			return OutcomeRetry, total, nil
		}
	}
	if r.status != nil {
		r.status.Done = true
	}
	return OutcomeDone, total, nil
}

// otherRawSubState enumerates OtherRawReader's sole phase for symmetry with
// VectorReader's explicit sub-states.
type otherRawSubState int

const (
	otherRawBodyPending otherRawSubState = iota
	otherRawComplete
)

// OtherRawReader allocates one contiguous internal buffer of dlen bytes and
// streams an oversized non-data response into it.
type OtherRawReader struct {
	buf   []byte
	off   int
	state otherRawSubState
}

// NewOtherRawReader allocates a dlen-byte internal buffer.
func NewOtherRawReader(dlen int) *OtherRawReader {
	return &OtherRawReader{buf: make([]byte, dlen)}
}

// Buffer returns the internally-owned buffer; valid once Step reports Done.
func (r *OtherRawReader) Buffer() []byte {
	return r.buf
}

func (r *OtherRawReader) Step(sock Socket) (Outcome, int, *Error) {
	if r.state == otherRawComplete {
		return OutcomeDone, 0, nil
	}
	total := 0
	for r.off < len(r.buf) {
		n, outcome, err := tryRead(sock, r.buf[r.off:])
		r.off += n
		total += n
		if err != nil {
			return OutcomeError, total, err
		}
		if outcome == OutcomeRetry {
			return OutcomeRetry, total, nil
		}
		if n == 0 {
			return OutcomeRetry, total, nil
		}
	}
	r.state = otherRawComplete
	return OutcomeDone, total, nil
}

// vectorSubState is the vector reader's explicit sub-state: header-pending,
// body-pending, or discard-pending.
type vectorSubState int

const (
	vectorHeaderPending vectorSubState = iota
	vectorBodyPending
	vectorDiscardPending
	vectorComplete
)

// VectorReader alternates between reading a per-chunk readahead_list header
// and reading rlen bytes into the chunk whose (offset,length) matches
// exactly, regardless of arrival order. A header whose offset matches a
// caller slot but whose rlen does not fit it marks that chunk SizeError; a
// header matching no requested offset touches no status. In both cases the
// payload is discarded rather than delivered, but the reader keeps consuming
// so the stream stays framed.
type VectorReader struct {
	chunks   ChunkList
	statuses []ChunkStatus
	remain   int // bytes left in the overall response body (dlen)

	state      vectorSubState
	headerBuf  [rawReadaheadHeaderSize]byte
	headerOff  int
	curIdx     int
	curOff     int
	curLen     int
	discardBuf [4096]byte
}

// NewVectorReader prepares a reader for chunks, whose ChunkStatus slots the
// caller will inspect once Step reports Done. dlen is the response body
// length announced in the header.
func NewVectorReader(chunks ChunkList, statuses []ChunkStatus, dlen int) *VectorReader {
	return &VectorReader{chunks: chunks, statuses: statuses, remain: dlen}
}

func (r *VectorReader) Step(sock Socket) (Outcome, int, *Error) {
	total := 0
	for r.remain > 0 {
		switch r.state {
		case vectorHeaderPending:
			n, outcome, err := tryRead(sock, r.headerBuf[r.headerOff:])
			r.headerOff += n
			r.remain -= n
			total += n
			if err != nil {
				return OutcomeError, total, err
			}
			if outcome == OutcomeRetry || (n == 0 && r.headerOff < rawReadaheadHeaderSize) {
				return OutcomeRetry, total, nil
			}
			if r.headerOff < rawReadaheadHeaderSize {
				continue
			}
			r.decodeHeader()
			r.headerOff = 0
		case vectorBodyPending:
			chunk := r.chunks[r.curIdx]
			n, outcome, err := tryRead(sock, chunk.Buffer[r.curOff:r.curLen])
			r.curOff += n
			r.remain -= n
			total += n
			if err != nil {
				return OutcomeError, total, err
			}
			if outcome == OutcomeRetry || (n == 0 && r.curOff < r.curLen) {
				return OutcomeRetry, total, nil
			}
			if r.curOff < r.curLen {
				continue
			}
			r.statuses[r.curIdx].Done = true
			r.state = vectorHeaderPending
		case vectorDiscardPending:
			want := r.curLen - r.curOff
			if want > len(r.discardBuf) {
				want = len(r.discardBuf)
			}
			n, outcome, err := tryRead(sock, r.discardBuf[:want])
			r.curOff += n
			r.remain -= n
			total += n
			if err != nil {
				return OutcomeError, total, err
			}
			if outcome == OutcomeRetry || n == 0 {
				return OutcomeRetry, total, nil
			}
			if r.curOff < r.curLen {
				continue
			}
			r.state = vectorHeaderPending
		}
	}
	r.state = vectorComplete
	return OutcomeDone, total, nil
}

// decodeHeader interprets a completed readahead_list entry and transitions
// into either body-pending (matched slot) or discard-pending (unmatched or
// oversized).
func (r *VectorReader) decodeHeader() {
	rlen := int32(binary.BigEndian.Uint32(r.headerBuf[4:8]))
	offset := int64(binary.BigEndian.Uint64(r.headerBuf[8:16]))
	r.curOff = 0
	r.curLen = int(rlen)
	idx, ok := r.chunks.IndexOf(offset, rlen)
	if !ok {
		// No slot asked for this exact (offset,length). If a slot at the
		// same offset exists, the server answered it with the wrong size:
		// mark it SizeError and discard the payload so the stream stays
		// framed. A header matching no offset at all is discarded without
		// touching any status.
		if mi, mok := r.chunks.IndexOfOffset(offset); mok {
			r.statuses[mi].SizeError = true
		}
		r.state = vectorDiscardPending
		return
	}
	if int(rlen) > len(r.chunks[idx].Buffer) {
		r.statuses[idx].SizeError = true
		r.state = vectorDiscardPending
		return
	}
	r.curIdx = idx
	r.state = vectorBodyPending
}

// Result builds the final VectorReadInfo once Step reports Done: missing
// chunks the server never returned a header for are left not-done, which is
// how a short response is reported as a partial vector read.
func (r *VectorReader) Result() *VectorReadInfo {
	var total int64
	for i, st := range r.statuses {
		if st.Done {
			total += int64(r.chunks[i].Length)
		}
	}
	return &VectorReadInfo{BytesRead: total, Statuses: r.statuses}
}
