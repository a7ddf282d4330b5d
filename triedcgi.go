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

import "strings"

// TriedCGI accumulates the ordered set of hosts a request has failed at and
// the error mnemonic for each, serialized into the tried= / triedrc= CGI
// parameters so the server-side load balancer doesn't redirect the client
// back into a loop.
//
// An ordered set of hosts plus a parallel list of mnemonics aligned to
// them; serialization is stable (insertion order) so protocol traces
// reproduce.
type TriedCGI struct {
	hosts []string
	codes []string
	seen  map[string]bool
}

// NewTriedCGI returns an empty accumulator.
func NewTriedCGI() *TriedCGI {
	return &TriedCGI{seen: make(map[string]bool)}
}

// Add records a failed host and its error mnemonic. Re-adding a host already
// present is a no-op, so the set never grows unboundedly across a redirect
// loop against the same host.
func (t *TriedCGI) Add(hostPort string, errno ServerErrno) {
	if t.seen[hostPort] {
		return
	}
	t.seen[hostPort] = true
	t.hosts = append(t.hosts, hostPort)
	t.codes = append(t.codes, errno.Mnemonic())
}

// Contains reports whether hostPort has already been tried.
func (t *TriedCGI) Contains(hostPort string) bool {
	return t.seen[hostPort]
}

// Tried renders the comma-joined tried= value.
func (t *TriedCGI) Tried() string {
	return strings.Join(t.hosts, ",")
}

// TriedRC renders the comma-joined triedrc= value, positionally aligned with
// Tried's hosts.
func (t *TriedCGI) TriedRC() string {
	return strings.Join(t.codes, ",")
}

// Apply folds the accumulator into a CGI overlay map ready for
// URL.MergeCGI, omitting tried=/triedrc= entirely when nothing has failed
// yet.
func (t *TriedCGI) Apply(cgi map[string]string) {
	if len(t.hosts) == 0 {
		return
	}
	cgi["tried"] = t.Tried()
	cgi["triedrc"] = t.TriedRC()
}
