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

// sentinel terminal-error kinds, referenced by kind rather than by a
// user-extensible registry.
var (
	ErrRedirectLimitExceeded = errors.New("xrdcl: redirect limit exceeded")
	ErrDeadlineExceeded      = errors.New("xrdcl: operation expired")
	ErrStreamFatal           = errors.New("xrdcl: stream fatal")
	ErrProtocolViolation     = errors.New("xrdcl: protocol violation")
	ErrSIDNotOwned           = errors.New("xrdcl: response SID not owned by this handler")
)

// An Error captures the XRootDStatus alongside the underlying Go error that
// explains it. Handler code should prefer constructing one of these over a
// bare error so callers can recover the status with errors.As.
type Error struct {
	Status  XRootDStatus
	wrapped error
}

// NewError annotates an underlying error with an XRootDStatus.
func NewError(status XRootDStatus, underlying error) *Error {
	return &Error{Status: status, wrapped: underlying}
}

// errorf is the terse constructor used throughout the handler for terminal
// conditions that don't already have a distinguished XRootDStatus.
func errorf(st Status, errno ServerErrno, underlying error) *Error {
	return &Error{
		Status:  XRootDStatus{Status: st, Errno: errno, Message: underlying.Error()},
		wrapped: underlying,
	}
}

func (e *Error) Error() string {
	if e.wrapped == nil {
		return e.Status.String()
	}
	return e.Status.String() + ": " + e.wrapped.Error()
}

// Unwrap implements errors.Wrapper so errors.Is/errors.As see through to the
// underlying sentinel (ErrRedirectLimitExceeded, etc).
func (e *Error) Unwrap() error {
	return e.wrapped
}

// StatusOf returns err's XRootDStatus if it is or wraps an *Error, and a
// generic kXR_error status otherwise.
func StatusOf(err error) XRootDStatus {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Status
	}
	return XRootDStatus{Status: StatusError, Errno: ErrServerError, Message: err.Error()}
}

// isRetryableOp gates retries by operation kind: reads and namespace
// operations are always retryable; writes and session-scoped operations only
// when the session has opted into reconnect semantics. A request explicitly
// marked idempotent is always retryable regardless of kind.
func isRetryableOp(req *Request, stateful bool) bool {
	if req.Idempotent {
		return true
	}
	switch req.ID {
	case ReqRead, ReqReadV, ReqStat, ReqDirList, ReqLocate, ReqQuery,
		ReqXAttrGet, ReqXAttrList, ReqProtocol, ReqPing:
		return true
	case ReqOpen, ReqMkdir, ReqRmdir, ReqRm, ReqMv, ReqChmod, ReqTruncate,
		ReqXAttrSet, ReqXAttrDel, ReqPrepare:
		return true
	case ReqWrite, ReqEndsess, ReqLogin, ReqAuth, ReqSet, ReqFattr:
		return stateful
	default:
		return false
	}
}
