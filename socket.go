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

// ErrWouldBlock is the EAGAIN-equivalent a Socket reports when no more
// bytes are available right now; raw readers/writers treat it as Retry
// rather than Error.
var ErrWouldBlock = errors.New("xrdcl: socket would block")

// Socket is the narrow, non-blocking read/write surface the raw readers and
// writer need from the transport. Real connections report ErrWouldBlock
// instead of blocking; any other error is fatal to the stream.
type Socket interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Outcome is the resumable-reader result vocabulary: call me again when the
// socket is readable (Retry), fully delivered (Done), or a fatal
// transport/protocol condition (Error).
type Outcome int

const (
	OutcomeRetry Outcome = iota
	OutcomeDone
	OutcomeError
)
