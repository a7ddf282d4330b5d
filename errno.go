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

// A ServerErrno is the numeric error code a server attaches to a kXR_error
// response. The mnemonic table below is what gets comma-joined into the
// triedrc= CGI parameter.
type ServerErrno uint32

const (
	ErrNone ServerErrno = iota
	ErrServerError
	ErrIOError
	ErrNoMemory
	ErrNotFound
	ErrNotAuthorized
	ErrInvalidRequest
	ErrFSError
	ErrRedirectLimit
	ErrOperationExpired
	ErrProtocol
)

var errnoMnemonic = map[ServerErrno]string{
	ErrNone:             "",
	ErrServerError:      "srverr",
	ErrIOError:          "ioerr",
	ErrNoMemory:         "srverr",
	ErrNotFound:         "nfsrv",
	ErrNotAuthorized:    "fserr",
	ErrInvalidRequest:   "fserr",
	ErrFSError:          "fserr",
	ErrRedirectLimit:    "srverr",
	ErrOperationExpired: "srverr",
	ErrProtocol:         "srverr",
}

// Mnemonic renders the lowercase code used in triedrc=; unknown codes fall
// back to "srverr" rather than widening the set server-side.
func (e ServerErrno) Mnemonic() string {
	if m, ok := errnoMnemonic[e]; ok {
		return m
	}
	return "srverr"
}

// recoverable classifies whether a kXR_error with this code should drive a
// retry at the load balancer rather than surface straight to the caller.
// hasLoadBalancer and onLoadBalancer let kXR_NotFound differ
// depending on where in the redirect chain we currently are.
func (e ServerErrno) recoverable(hasLoadBalancer, onLoadBalancer bool) bool {
	switch e {
	case ErrServerError, ErrIOError, ErrNoMemory:
		return true
	case ErrNotFound:
		return hasLoadBalancer && !onLoadBalancer
	default:
		return false
	}
}
