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

// HostList is the ordered sequence of URLs actually contacted for a request:
// the original target, then one entry per redirect or retry at the load
// balancer. It is surfaced to the caller on completion.
type HostList []URL

// Append records a newly contacted target, extended on every redirect.
func (h HostList) Append(u URL) HostList {
	return append(h, u)
}

// Origin returns the first-contacted URL, which becomes the load balancer
// once the first redirect fires.
func (h HostList) Origin() (URL, bool) {
	if len(h) == 0 {
		return URL{}, false
	}
	return h[0], true
}
