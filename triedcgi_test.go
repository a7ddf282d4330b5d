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
)

func TestTriedCGI_AddAndRender(t *testing.T) {
	tr := NewTriedCGI()
	tr.Add("host1:1094", ErrIOError)
	tr.Add("host2:1094", ErrServerError)

	assert.Equal(t, "host1:1094,host2:1094", tr.Tried())
	assert.Equal(t, "ioerr,srverr", tr.TriedRC())
}

func TestTriedCGI_NeverRevisits(t *testing.T) {
	tr := NewTriedCGI()
	tr.Add("host1:1094", ErrIOError)
	tr.Add("host1:1094", ErrServerError)

	assert.Equal(t, "host1:1094", tr.Tried())
	assert.Equal(t, "ioerr", tr.TriedRC())
	assert.True(t, tr.Contains("host1:1094"))
	assert.False(t, tr.Contains("host2:1094"))
}

func TestTriedCGI_ApplyOmitsWhenEmpty(t *testing.T) {
	tr := NewTriedCGI()
	cgi := map[string]string{}
	tr.Apply(cgi)
	assert.NotContains(t, cgi, "tried")

	tr.Add("host1:1094", ErrIOError)
	tr.Apply(cgi)
	assert.Equal(t, "host1:1094", cgi["tried"])
	assert.Equal(t, "ioerr", cgi["triedrc"])
}
