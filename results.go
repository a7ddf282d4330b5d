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

// AnyObject is the tagged-variant payload delivered to the caller's
// ResponseHandler.
// Decoding from requestid to shape is total: every RequestID below maps to
// exactly one of these, even when the shape carries nothing but its
// presence (mkdir, rm, chmod, ...).
type AnyObject interface {
	isAnyObject()
}

// OpenInfo is the result of kXR_open.
type OpenInfo struct {
	Handle  [4]byte
	CompatO bool
}

// StatInfo is the result of kXR_stat.
type StatInfo struct {
	Size    int64
	Flags   uint32
	ModTime int64
	ID      string
}

// DirListInfo is the result of kXR_dirlist.
type DirListInfo struct {
	Entries []string
}

// ReadInfo is the result of a flat kXR_read; the bytes themselves land in
// the caller's original Chunk buffer.
type ReadInfo struct {
	BytesRead int64
}

// QueryInfo is the result of kXR_query.
type QueryInfo struct {
	Response []byte
}

// LocateInfo is the result of kXR_locate.
type LocateInfo struct {
	Locations []string
}

// ProtocolInfo is the result of kXR_protocol.
type ProtocolInfo struct {
	Version int32
	Flags   uint32
}

// XAttrResult is the result of the kXR_fattr get and list variants; set and
// del yield EmptyInfo.
type XAttrResult struct {
	Attrs map[string][]byte
	Names []string
}

// EmptyInfo is the result of operations whose only meaningful payload is the
// overall XRootDStatus: write, xattr set/del, mv, chmod, rm, mkdir, rmdir,
// truncate, prepare, endsess, login, auth, set, ping, fattr.
type EmptyInfo struct{}

func (*OpenInfo) isAnyObject()      {}
func (*StatInfo) isAnyObject()      {}
func (*DirListInfo) isAnyObject()   {}
func (*ReadInfo) isAnyObject()      {}
func (*VectorReadInfo) isAnyObject() {}
func (*QueryInfo) isAnyObject()     {}
func (*LocateInfo) isAnyObject()    {}
func (*ProtocolInfo) isAnyObject()  {}
func (*XAttrResult) isAnyObject()   {}
func (*EmptyInfo) isAnyObject()     {}
