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
)

func TestParseURL(t *testing.T) {
	u, err := ParseURL("root://host1.example.org:1094/foo/bar?a=1&b=2")
	require.NoError(t, err)
	assert.Equal(t, "root", u.Scheme)
	assert.Equal(t, "host1.example.org", u.Host)
	assert.Equal(t, 1094, u.Port)
	assert.Equal(t, "/foo/bar", u.Path)
	assert.Equal(t, "1", u.CGI["a"])
	assert.Equal(t, "2", u.CGI["b"])
}

func TestParseURL_DefaultPort(t *testing.T) {
	u, err := ParseURL("root://host1.example.org/foo")
	require.NoError(t, err)
	assert.Equal(t, 1094, u.Port)
}

func TestURL_MergeCGIReplaceSemantics(t *testing.T) {
	base := URL{CGI: map[string]string{"tried": "a", "authz": "tok"}}
	merged := base.MergeCGI(map[string]string{"tried": "a,b"})

	assert.Equal(t, "a,b", merged.CGI["tried"])
	assert.Equal(t, "tok", merged.CGI["authz"])
	// original is untouched.
	assert.Equal(t, "a", base.CGI["tried"])
}

// TestURL_MergeCGIModeAccumulate covers the accumulate branch: when replace
// is false, a pre-existing non-empty value is comma-joined with the
// overlay's instead of being overwritten; an absent or empty key is still
// just set outright.
func TestURL_MergeCGIModeAccumulate(t *testing.T) {
	base := URL{CGI: map[string]string{"tried": "host1", "empty": ""}}
	merged := base.MergeCGIMode(map[string]string{"tried": "host2", "empty": "v", "new": "w"}, false)

	assert.Equal(t, "host1,host2", merged.CGI["tried"])
	assert.Equal(t, "v", merged.CGI["empty"])
	assert.Equal(t, "w", merged.CGI["new"])
}

func TestURL_IsLocalFile(t *testing.T) {
	assert.True(t, URL{Scheme: "file"}.IsLocalFile())
	assert.False(t, URL{Scheme: "root"}.IsLocalFile())
}

func TestURL_HostPort(t *testing.T) {
	u := URL{Host: "host1", Port: 1094}
	assert.Equal(t, "host1:1094", u.HostPort())
}
