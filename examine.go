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
	"errors"
	"hash/crc32"

	"github.com/xrdgo/xrdcl/wire"
)

// Action is Examine's verdict for an arriving frame.
type Action int

const (
	// ActionIgnore means the frame isn't for this handler: SID mismatch or
	// a spurious delivery.
	ActionIgnore Action = iota
	// ActionTakeProcess means the body is fully present in the message
	// buffer and should go straight to the assembler.
	ActionTakeProcess
	// ActionTakeRawRead means the body must be streamed from the socket by
	// one of the raw readers.
	ActionTakeRawRead
)

// ExamineResult is what Examine reports for one frame. Terminal means that
// once Process has consumed this frame, the dispatch table may drop the
// handler's SID entry.
type ExamineResult struct {
	Action   Action
	Terminal bool
}

// AttnKind classifies an asynchronous attention frame.
type AttnKind int

const (
	AttnUnknown AttnKind = iota
	// AttnEmbeddedResponse: the attn frame wraps the real answer.
	AttnEmbeddedResponse
	// AttnRedirect: treat the attn as a redirect.
	AttnRedirect
	// AttnConnError: surface as a connection-level condition.
	AttnConnError
)

const (
	attnCodeResponseReady = 1
	attnCodeRedirect      = 2
	attnCodeConnError     = 3
)

// crcTable is the CRC32C (Castagnoli) table used when the server announces
// CRC coverage on a status sub-frame.
var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Examine inspects an arriving response header for the stream this handler
// owns. raw tells Examine whether the original request expects a raw-body
// (large read/readv/oversized) response for an ok status.
func Examine(ownSID uint16, hdr wire.ResponseHeader, raw bool) (ExamineResult, *Error) {
	if hdr.StreamID != ownSID {
		return ExamineResult{Action: ActionIgnore}, nil
	}
	switch Status(hdr.Status) {
	case StatusOk:
		if raw {
			return ExamineResult{Action: ActionTakeRawRead, Terminal: true}, nil
		}
		return ExamineResult{Action: ActionTakeProcess, Terminal: true}, nil
	case StatusError, StatusRedirect:
		return ExamineResult{Action: ActionTakeProcess, Terminal: true}, nil
	case StatusOkSoFar:
		// Partial success; handler remains armed for more frames.
		return ExamineResult{Action: ActionTakeProcess, Terminal: false}, nil
	case StatusWait, StatusWaitResp:
		return ExamineResult{Action: ActionTakeProcess, Terminal: false}, nil
	case StatusFrame:
		return ExamineResult{Action: ActionTakeProcess, Terminal: false}, nil
	case StatusAuthMore:
		return ExamineResult{Action: ActionTakeProcess, Terminal: false}, nil
	case StatusAttn:
		return ExamineResult{Action: ActionTakeProcess, Terminal: false}, nil
	default:
		return ExamineResult{}, errorf(StatusError, ErrProtocol, errors.New("xrdcl: unknown response status"))
	}
}

// DecodeAttn reads the asynchronous attention sub-code from body and decides
// how the handler should treat it.
func DecodeAttn(body []byte) (AttnKind, []byte, *Error) {
	r := wire.NewReader(body)
	code, err := r.Uint32()
	if err != nil {
		return AttnUnknown, nil, errorf(StatusError, ErrProtocol, err)
	}
	switch code {
	case attnCodeResponseReady:
		return AttnEmbeddedResponse, r.Rest(), nil
	case attnCodeRedirect:
		return AttnRedirect, r.Rest(), nil
	case attnCodeConnError:
		return AttnConnError, r.Rest(), nil
	default:
		return AttnUnknown, r.Rest(), nil
	}
}

// CRC32C computes the CRC32C checksum of body, used to validate a status
// sub-frame's cumulative coverage claim.
func CRC32C(body []byte) uint32 {
	return crc32.Checksum(body, crcTable)
}

// UpdateCRC32C folds body into a running cumulative checksum.
func UpdateCRC32C(cumulative uint32, body []byte) uint32 {
	return crc32.Update(cumulative, crcTable, body)
}

// ValidateStatusFrameCRC checks a status sub-frame's claimed CRC against the
// cumulative checksum of everything received so far for this stream; a
// mismatch is a terminal protocol error with no retry.
func ValidateStatusFrameCRC(cumulative, claimed uint32) *Error {
	if cumulative != claimed {
		return errorf(StatusError, ErrProtocol, errors.New("xrdcl: status sub-frame CRC32C mismatch"))
	}
	return nil
}
