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

import "github.com/xrdgo/xrdcl/wire"

// RequestID identifies the operation an outbound Request carries. It is the
// dispatch key the response assembler uses to pick a typed result parser.
type RequestID uint16

const (
	ReqOpen RequestID = iota + 1
	ReqStat
	ReqDirList
	ReqRead
	ReqReadV
	ReqWrite
	ReqQuery
	ReqLocate
	ReqProtocol
	ReqXAttrGet
	ReqXAttrSet
	ReqXAttrList
	ReqXAttrDel
	ReqTruncate
	ReqMv
	ReqChmod
	ReqRm
	ReqMkdir
	ReqRmdir
	ReqPrepare
	ReqEndsess
	ReqLogin
	ReqAuth
	ReqSet
	ReqPing
	ReqFattr
)

// Request is an owned, pre-marshalled outbound message: a request header
// followed by its body. The handler may rewrite StreamID and the CGI portion
// of Path in place across retries and redirects.
//
// HasSessionID marks a request whose lifetime is shared with the session
// layer above the handler: such a request must not be freed when the handler
// that sent it is destroyed.
type Request struct {
	ID           RequestID
	StreamID     uint16
	Path         string
	CGI          map[string]string
	Raw          bool // large body streamed from ChunkList instead of buffered
	Chunks       ChunkList
	HasSessionID bool
	Idempotent   bool

	// Body is the already-marshalled request body following the fixed
	// header. Redirect and wait rewrites update Path and CGI only; Body is
	// left unchanged.
	Body []byte
}

// Header renders the fixed leading header for the current StreamID.
func (r *Request) Header() wire.RequestHeader {
	return wire.RequestHeader{StreamID: r.StreamID, RequestID: uint16(r.ID)}
}

// Clone returns a shallow copy suitable for rewriting ahead of a retry; the
// Chunks slice is shared (read-only scatter/gather vector), CGI gets its own
// map so CGI rewrites don't mutate a request still referenced elsewhere.
func (r *Request) Clone() *Request {
	cp := *r
	cp.CGI = make(map[string]string, len(r.CGI))
	for k, v := range r.CGI {
		cp.CGI[k] = v
	}
	return &cp
}

// rewritesPathAndCGI reports whether a redirect should fold the new target's
// path and CGI back into this request. Only chmod, mkdir, mv, open, rm,
// rmdir, stat, and truncate carry a path on the wire; every other request
// addresses its target by a handle already embedded in the body
// (read/readv/write/query/...), so redirecting it never touches path or CGI.
func (id RequestID) rewritesPathAndCGI() bool {
	switch id {
	case ReqChmod, ReqMkdir, ReqMv, ReqOpen, ReqRm, ReqRmdir, ReqStat, ReqTruncate:
		return true
	default:
		return false
	}
}
