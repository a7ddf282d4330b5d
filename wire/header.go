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

// Package wire implements the bit-exact framing used on the XRootD client
// connection: the fixed request/response headers and a small cursor-based
// reader for the variable-length bodies that follow them.
package wire

import (
	"encoding/binary"
	"errors"
)

// RequestHeaderSize is the number of bytes in a marshalled request header:
// streamid[2], requestid[2], then a request-specific body, then dlen[4] at
// a fixed offset relative to the body layout used by the caller.
const RequestHeaderSize = 4

// ResponseHeaderSize is streamid[2], status[2], dlen[4].
const ResponseHeaderSize = 8

// ErrShortBuffer is returned by the Reader when a read runs past the end of
// the underlying slice.
var ErrShortBuffer = errors.New("wire: short buffer")

// RequestHeader is the leading fixed portion of every outbound message.
type RequestHeader struct {
	StreamID  uint16
	RequestID uint16
}

// PutRequestHeader writes h into the first RequestHeaderSize bytes of dst.
func PutRequestHeader(dst []byte, h RequestHeader) {
	binary.BigEndian.PutUint16(dst[0:2], h.StreamID)
	binary.BigEndian.PutUint16(dst[2:4], h.RequestID)
}

// ResponseHeader is the leading fixed portion of every inbound message.
type ResponseHeader struct {
	StreamID uint16
	Status   uint16
	Dlen     uint32
}

// ParseResponseHeader reads a ResponseHeader from the first 8 bytes of buf.
func ParseResponseHeader(buf []byte) (ResponseHeader, error) {
	if len(buf) < ResponseHeaderSize {
		return ResponseHeader{}, ErrShortBuffer
	}
	return ResponseHeader{
		StreamID: binary.BigEndian.Uint16(buf[0:2]),
		Status:   binary.BigEndian.Uint16(buf[2:4]),
		Dlen:     binary.BigEndian.Uint32(buf[4:8]),
	}, nil
}

// PutResponseHeader writes h into the first ResponseHeaderSize bytes of dst,
// used by tests that fabricate server frames.
func PutResponseHeader(dst []byte, h ResponseHeader) {
	binary.BigEndian.PutUint16(dst[0:2], h.StreamID)
	binary.BigEndian.PutUint16(dst[2:4], h.Status)
	binary.BigEndian.PutUint32(dst[4:8], h.Dlen)
}

// Reader is a cursor over a byte slice used to decode the small structured
// bodies that follow a response header (redirect targets, readahead_list
// entries, and the like). Apart from the string CString returns, it never
// allocates, and it never panics; each Read* method reports ErrShortBuffer
// instead of reading past the end.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps buf for sequential decoding starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.off
}

// Uint16 reads a big-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	if r.Len() < 2 {
		return 0, ErrShortBuffer
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	if r.Len() < 4 {
		return 0, ErrShortBuffer
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// Int64 reads a big-endian int64, used for chunk offsets.
func (r *Reader) Int64() (int64, error) {
	if r.Len() < 8 {
		return 0, ErrShortBuffer
	}
	v := int64(binary.BigEndian.Uint64(r.buf[r.off:]))
	r.off += 8
	return v, nil
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Rest returns every unread byte without advancing the cursor.
func (r *Reader) Rest() []byte {
	return r.buf[r.off:]
}

// CString reads bytes up to (excluding) the first NUL byte, or to the end of
// the buffer if there is none, and advances past it.
func (r *Reader) CString() string {
	rest := r.buf[r.off:]
	for i, b := range rest {
		if b == 0 {
			r.off += i + 1
			return string(rest[:i])
		}
	}
	r.off = len(r.buf)
	return string(rest)
}
