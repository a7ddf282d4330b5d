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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrdgo/xrdcl/wire"
)

func TestExamine_IgnoresOtherSID(t *testing.T) {
	res, err := Examine(5, wire.ResponseHeader{StreamID: 6, Status: uint16(StatusOk)}, false)
	require.Nil(t, err)
	assert.Equal(t, ActionIgnore, res.Action)
}

func TestExamine_OkNonRaw(t *testing.T) {
	res, err := Examine(5, wire.ResponseHeader{StreamID: 5, Status: uint16(StatusOk)}, false)
	require.Nil(t, err)
	assert.Equal(t, ActionTakeProcess, res.Action)
	assert.True(t, res.Terminal)
}

func TestExamine_OkRaw(t *testing.T) {
	res, err := Examine(5, wire.ResponseHeader{StreamID: 5, Status: uint16(StatusOk)}, true)
	require.Nil(t, err)
	assert.Equal(t, ActionTakeRawRead, res.Action)
	assert.True(t, res.Terminal)
}

func TestExamine_OkSoFarStaysArmed(t *testing.T) {
	res, err := Examine(5, wire.ResponseHeader{StreamID: 5, Status: uint16(StatusOkSoFar)}, false)
	require.Nil(t, err)
	assert.Equal(t, ActionTakeProcess, res.Action)
	assert.False(t, res.Terminal)
}

func TestExamine_RedirectAndErrorAreTerminal(t *testing.T) {
	for _, st := range []Status{StatusRedirect, StatusError} {
		res, err := Examine(5, wire.ResponseHeader{StreamID: 5, Status: uint16(st)}, false)
		require.Nil(t, err)
		assert.True(t, res.Terminal, st)
	}
}

func TestExamine_UnknownStatusIsProtocolError(t *testing.T) {
	_, err := Examine(5, wire.ResponseHeader{StreamID: 5, Status: 9999}, false)
	require.NotNil(t, err)
	assert.Equal(t, ErrProtocol, err.Status.Errno)
}

func TestCRC32C_ValidatesCumulative(t *testing.T) {
	sum := UpdateCRC32C(0, []byte("hello "))
	sum = UpdateCRC32C(sum, []byte("world"))
	whole := CRC32C([]byte("hello world"))
	assert.Equal(t, whole, sum)

	assert.Nil(t, ValidateStatusFrameCRC(sum, whole))
	assert.NotNil(t, ValidateStatusFrameCRC(sum, whole+1))
}
