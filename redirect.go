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
	"strings"
	"time"

	"github.com/xrdgo/xrdcl/wire"
)

// parseRedirectBody decodes a kXR_redirect body: a port, then the
// host[/path][?cgi] string, then optional opaque CGI. The host portion may
// carry an explicit scheme ("file://localhost/..."), which is how a server
// names a local-file target.
func parseRedirectBody(body []byte) (URL, *Error) {
	r := wire.NewReader(body)
	port, err := r.Uint32()
	if err != nil {
		return URL{}, errorf(StatusError, ErrProtocol, err)
	}
	rest := r.CString()

	scheme := "root"
	if s, tail, ok := strings.Cut(rest, "://"); ok && !strings.ContainsAny(s, "/?") {
		scheme = s
		rest = tail
	}

	hostAndPath, cgiStr, _ := cutFirst(rest, '?')
	host, path, hasPath := cutFirst(hostAndPath, '/')

	u := URL{Scheme: scheme, Host: host, Port: int(port), Path: ""}
	if hasPath {
		u.Path = "/" + path
	}
	u.CGI = parseCGI(cgiStr)
	return u, nil
}

// cutFirst splits s at the first occurrence of sep, the way strings.Cut
// does, but returning whether sep was found at all.
func cutFirst(s string, sep byte) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// handleRedirectLocked reissues the request at the endpoint a kXR_redirect
// names, charging the redirect budget and releasing the old endpoint's SID.
func (h *MessageHandler) handleRedirectLocked(body []byte) *Error {
	if h.redirectsLeft <= 0 {
		return h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrRedirectLimit, Message: "redirect limit exceeded"}, nil)
	}
	h.redirectsLeft--

	reply, e := parseRedirectBody(body)
	if e != nil {
		return h.terminalLocked(e.Status, nil)
	}

	newURL := h.buildNewURLLocked(reply)

	if newURL.IsLocalFile() && h.cfg.localFile != nil {
		return h.localRedirectLocked(newURL)
	}

	if h.followMetalink && h.cfg.redirector != nil {
		if alt, ok := h.cfg.redirector.Next(newURL); ok {
			newURL = alt
		}
	}

	if !h.hasLoadBalancer {
		h.hasLoadBalancer = true
		h.loadBalancer, _ = h.hosts.Origin()
	}

	h.traceback = append(h.traceback, RedirectEntry{From: h.target, To: newURL, Status: XRootDStatus{Status: StatusRedirect}})

	// A plain redirect still records the host it came from, so a later
	// error or wait retry at the load balancer won't bounce straight back
	// to it.
	h.tried.Add(h.target.HostPort(), ErrNone)
	h.tried.Apply(newURL.CGI)

	h.releaseSIDLocked()
	h.target = newURL
	h.rewriteRequestRedirectLocked()
	h.hosts = h.hosts.Append(newURL)

	if h.expired() {
		return h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrOperationExpired}, nil)
	}
	sid, serr := h.sidManager.Allocate()
	if serr != nil {
		return h.terminalLocked(serr.Status, nil)
	}
	h.sid = sid
	h.sidValid = true
	h.req.StreamID = sid
	h.resetAttemptLocked()
	if perr := h.postMaster.Redirect(h.target, h.req, h); perr != nil {
		return h.terminalLocked(perr.Status, nil)
	}
	h.state = StateRedirecting
	h.msgInFly = true
	return nil
}

// buildNewURLLocked builds the post-redirect target: scheme, host, and port
// always come from the server reply; the original path is preserved unless
// the reply supplied one; CGI is merged with replace semantics for keys the
// server sent.
func (h *MessageHandler) buildNewURLLocked(reply URL) URL {
	newURL := reply
	if newURL.Path == "" || newURL.Path == "/" {
		newURL.Path = h.target.Path
	}
	newURL.CGI = h.target.MergeCGI(reply.CGI).CGI
	return newURL
}

// rewriteRequestRedirectLocked folds the new target's path/CGI into the
// request ahead of resending. Only the request kinds
// RequestID.rewritesPathAndCGI names are touched; every other kind addresses
// its target by an opaque handle already in the body and is left alone.
func (h *MessageHandler) rewriteRequestRedirectLocked() {
	if !h.req.ID.rewritesPathAndCGI() {
		return
	}
	h.req.Path = h.target.Path
	h.req.CGI = make(map[string]string, len(h.target.CGI))
	for k, v := range h.target.CGI {
		h.req.CGI[k] = v
	}
}

// localRedirectLocked dispatches synchronously to the local file handler
// instead of continuing over the network.
func (h *MessageHandler) localRedirectLocked(target URL) *Error {
	h.hosts = h.hosts.Append(target)
	obj, err := h.cfg.localFile.Execute(h.req)
	if err != nil {
		return h.terminalLocked(err.Status, nil)
	}
	return h.terminalLocked(XRootDStatus{Status: StatusOk}, obj)
}

// handleWaitLocked schedules the resend a kXR_wait asks for, clamped to the
// remaining deadline.
func (h *MessageHandler) handleWaitLocked(body []byte) *Error {
	r := wire.NewReader(body)
	seconds, err := r.Uint32()
	if err != nil {
		return h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrProtocol}, nil)
	}
	wait := time.Duration(seconds) * time.Second

	remaining := h.remainingLocked()
	if remaining <= 0 {
		return h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrOperationExpired}, nil)
	}
	if wait > remaining {
		wait = remaining
	}
	if wait <= 0 {
		return h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrOperationExpired}, nil)
	}

	h.aggregatedWait += wait
	if h.aggregatedWait > h.cfg.maxAggregatedWait {
		// Aggregated wait threshold exceeded: demote to an immediate retry
		// at the load balancer instead of waiting again.
		h.retryAtLoadBalancerLocked(ErrServerError)
		return nil
	}

	h.state = StateWaiting
	h.postMaster.ScheduleWait(wait, h.ref.Hold())
	return nil
}

// remainingLocked reports how much time is left before the expiration; zero
// deadline means "no deadline" and is treated as unbounded.
func (h *MessageHandler) remainingLocked() time.Duration {
	if h.expiration.IsZero() {
		return time.Hour * 24 * 365
	}
	return h.expiration.Sub(h.now())
}

// rewriteRequestWaitLocked applies per-operation CGI adjustments needed
// before resending after a kXR_wait, notably kXR_open gaining a refresh
// flag so it doesn't loop.
func (h *MessageHandler) rewriteRequestWaitLocked() {
	if h.req.ID == ReqOpen {
		if h.req.CGI == nil {
			h.req.CGI = map[string]string{}
		}
		h.req.CGI["xrdcl.requrefresh"] = "1"
	}
}

// handleErrorLocked classifies a kXR_error by server errno: recoverable
// codes feed the tried-CGI retry loop, the rest surface to the caller.
func (h *MessageHandler) handleErrorLocked(body []byte) *Error {
	r := wire.NewReader(body)
	code, err := r.Uint32()
	if err != nil {
		return h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrProtocol}, nil)
	}
	message := r.CString()
	errno := ServerErrno(code)

	onLB := h.target.HostPort() == h.loadBalancer.HostPort() && h.hasLoadBalancer
	if errno.recoverable(h.hasLoadBalancer, onLB) && isRetryableOp(h.req, h.cfg.stateful) {
		h.retryAtLoadBalancerLocked(errno)
		return nil
	}
	return h.terminalLocked(XRootDStatus{Status: StatusError, Errno: errno, Message: message}, nil)
}

// retryAtLoadBalancerLocked appends the current host to the tried-CGI
// accumulator and reissues the request at the load balancer (or the
// original target, if none has been established yet).
func (h *MessageHandler) retryAtLoadBalancerLocked(errno ServerErrno) {
	h.tried.Add(h.target.HostPort(), errno)

	dest := h.target
	if h.hasLoadBalancer {
		dest = h.loadBalancer
	}
	dest = dest.Clone()
	h.tried.Apply(dest.CGI)
	h.target = dest
	if h.req.ID.rewritesPathAndCGI() {
		h.req.Path = dest.Path
		h.req.CGI = make(map[string]string, len(dest.CGI))
		for k, v := range dest.CGI {
			h.req.CGI[k] = v
		}
	}

	if h.expired() {
		h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrOperationExpired}, nil)
		return
	}
	h.releaseSIDLocked()
	sid, serr := h.sidManager.Allocate()
	if serr != nil {
		h.terminalLocked(serr.Status, nil)
		return
	}
	h.sid = sid
	h.sidValid = true
	h.req.StreamID = sid
	h.resetAttemptLocked()
	h.hosts = h.hosts.Append(dest)
	if perr := h.postMaster.Send(h.target, h.req, h, h.cfg.stateful, h.expiration); perr != nil {
		h.terminalLocked(perr.Status, nil)
		return
	}
	h.state = StateInFlight
	h.msgInFly = true
}
