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

// Package xrdcl implements the client-side message handler for a single
// outstanding request on a connection-oriented, stream-id-multiplexed
// binary protocol. A MessageHandler owns one request's lifecycle: sending
// it through an injected PostMaster, classifying and assembling the
// response frames that arrive for its stream id, and driving redirects,
// server-requested waits, and retries until it can invoke the caller's
// ResponseHandler exactly once.
//
// This documentation explains each type in isolation; see the scenarios in
// the package's tests for end-to-end walkthroughs of redirects, waits, and
// partial vector reads.
package xrdcl
