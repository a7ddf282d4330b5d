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

import "fmt"

// A Status is the 2-byte response-status word carried in every response
// header. There are no user-defined statuses, so only the values enumerated
// below are valid.
type Status uint16

const (
	StatusOk       Status = 0
	StatusOkSoFar  Status = 4000
	StatusError    Status = 4003
	StatusRedirect Status = 4004
	StatusWait     Status = 4005
	StatusWaitResp Status = 4006
	StatusAuthMore Status = 4007
	StatusAttn     Status = 4008
	StatusFrame    Status = 4009 // pre-final "status" sub-frame

	minStatus Status = StatusOk
	maxStatus Status = StatusFrame
)

var statusNames = map[Status]string{
	StatusOk:       "ok",
	StatusOkSoFar:  "oksofar",
	StatusError:    "error",
	StatusRedirect: "redirect",
	StatusWait:     "wait",
	StatusWaitResp: "waitresp",
	StatusAuthMore: "authmore",
	StatusAttn:     "attn",
	StatusFrame:    "status",
}

// String renders the status using its protocol mnemonic.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", uint16(s))
}

// IsFinal reports whether this status terminates the handler's frame
// sequence (as opposed to oksofar/attn/status, which keep it armed).
func (s Status) IsFinal() bool {
	switch s {
	case StatusOk, StatusError, StatusRedirect:
		return true
	default:
		return false
	}
}

// XRootDStatus is the final, overall status delivered to the caller's
// ResponseHandler exactly once.
type XRootDStatus struct {
	Status  Status
	Errno   ServerErrno
	Message string
	// Partial is set when the operation produced a usable, but incomplete,
	// result (vector-read partial success) rather than an outright failure.
	Partial bool
}

// OK reports whether the response should be treated as an overall success
// (including a partial vector-read success).
func (s XRootDStatus) OK() bool {
	return s.Status == StatusOk
}

func (s XRootDStatus) String() string {
	if s.Message == "" {
		return s.Status.String()
	}
	return fmt.Sprintf("%s: %s", s.Status, s.Message)
}
