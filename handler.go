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
	"sync"
	"time"

	"github.com/xrdgo/xrdcl/wire"
)

// State is the lifecycle position of a single in-flight request.
type State int

const (
	StateInit State = iota
	StateInFlight
	StateReadingRaw
	StateWritingRaw
	StateAwaitingMore
	StateRedirecting
	StateWaiting
	StateTerminal
)

// StreamEvent is the stream-level event vocabulary OnStreamEvent reacts to.
type StreamEvent int

const (
	EventReadyToSend StreamEvent = iota
	EventBroken
	EventFatalError
	EventTimeout
)

// StreamAction is the bitmask OnStreamEvent hands back to the PostMaster,
// telling it what to do with this handler's dispatch-table entry.
type StreamAction int

const (
	StreamActionNone StreamAction = 0
	// StreamActionRemoveHandler: the handler has gone terminal and its SID
	// entry may be dropped from the dispatch table.
	StreamActionRemoveHandler StreamAction = 1 << 0
)

// deferredResult is a completed response held back because the PostMaster
// has not yet confirmed the outbound message left the socket.
type deferredResult struct {
	status XRootDStatus
	obj    AnyObject
}

// RedirectEntry is one {from, to, status} record in the trace-back log
// emitted at handler destruction for postmortem diagnosis.
type RedirectEntry struct {
	From   URL
	To     URL
	Status XRootDStatus
}

// handlerConfig bundles constructor options so NewMessageHandler doesn't
// need a long positional parameter list.
type handlerConfig struct {
	redirectLimit     int
	maxAggregatedWait time.Duration
	clock             Clock
	logger            Logger
	localFile         LocalFileHandler
	redirector        RedirectorRegistry
	stateful          bool
	followMetalink    bool
}

func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		redirectLimit:     16,
		maxAggregatedWait: 5 * time.Minute,
		clock:             RealClock,
		logger:            DefaultLogger(),
	}
}

// HandlerOption configures a MessageHandler at construction.
type HandlerOption func(*handlerConfig)

// WithRedirectLimit bounds how many redirects a request may follow before
// it fails with ErrRedirectLimit.
func WithRedirectLimit(n int) HandlerOption {
	return func(c *handlerConfig) { c.redirectLimit = n }
}

// WithMaxAggregatedWait caps total accumulated kXR_wait time before the
// handler stops waiting and retries elsewhere instead.
func WithMaxAggregatedWait(d time.Duration) HandlerOption {
	return func(c *handlerConfig) { c.maxAggregatedWait = d }
}

// WithClock overrides the handler's notion of "now", for deterministic
// deadline tests.
func WithClock(clock Clock) HandlerOption {
	return func(c *handlerConfig) { c.clock = clock }
}

// WithLogger overrides the default logger.
func WithLogger(l Logger) HandlerOption {
	return func(c *handlerConfig) { c.logger = l }
}

// WithLocalFileHandler installs the collaborator used for file:// redirect
// short-circuits.
func WithLocalFileHandler(h LocalFileHandler) HandlerOption {
	return func(c *handlerConfig) { c.localFile = h }
}

// WithRedirectorRegistry installs the metalink-alternative resolver.
func WithRedirectorRegistry(r RedirectorRegistry) HandlerOption {
	return func(c *handlerConfig) { c.redirector = r }
}

// WithStateful marks the request as carrying session state with reconnect
// semantics, loosening the retry policy for otherwise-non-idempotent
// operations such as writes.
func WithStateful() HandlerOption {
	return func(c *handlerConfig) { c.stateful = true }
}

// WithFollowMetalink makes redirect targets pass through the installed
// RedirectorRegistry so a metalink virtual URL is substituted with its next
// concrete alternative.
func WithFollowMetalink() HandlerOption {
	return func(c *handlerConfig) { c.followMetalink = true }
}

// MessageHandler is the single-request state machine. One handler drives one
// Request through Send, zero or more redirects/waits, and exactly one
// terminal ResponseHandler callback.
type MessageHandler struct {
	cfg handlerConfig

	postMaster  PostMaster
	sidManager  SIDManager
	respHandler ResponseHandler

	mu sync.Mutex

	req    *Request
	target URL
	hosts  HostList
	tried  *TriedCGI

	hasLoadBalancer bool
	loadBalancer    URL
	followMetalink  bool

	redirectsLeft  int
	expiration     time.Time
	aggregatedWait time.Duration

	sid      uint16
	sidValid bool
	state    State
	msgInFly bool
	deferred *deferredResult

	asm       *Assembler
	rawReader RawReader
	rawWriter *RawWriter
	crc       uint32
	crcActive bool

	traceback []RedirectEntry

	ref          *HandlerRef
	callbackOnce sync.Once
	terminated   bool
}

// NewMessageHandler constructs a handler for req targeting target. deadline
// is the wall-clock bound on the whole operation; the zero time means
// unbounded.
func NewMessageHandler(
	postMaster PostMaster,
	sidManager SIDManager,
	target URL,
	req *Request,
	rh ResponseHandler,
	deadline time.Time,
	opts ...HandlerOption,
) *MessageHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	h := &MessageHandler{
		cfg:            cfg,
		postMaster:     postMaster,
		sidManager:     sidManager,
		respHandler:    rh,
		req:            req,
		target:         target,
		tried:          NewTriedCGI(),
		redirectsLeft:  cfg.redirectLimit,
		expiration:     deadline,
		followMetalink: cfg.followMetalink,
		state:          StateInit,
	}
	h.ref = NewHandlerRef(h)
	return h
}

func (h *MessageHandler) now() time.Time {
	return h.cfg.clock.Now()
}

// expired reports whether the operation deadline has passed.
func (h *MessageHandler) expired() bool {
	return !h.expiration.IsZero() && h.now().After(h.expiration)
}

// Send allocates a SID and dispatches the request to its current target.
func (h *MessageHandler) Send() *Error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sendLocked()
}

func (h *MessageHandler) sendLocked() *Error {
	if h.expired() {
		return h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrOperationExpired, Message: "operation expired before send"}, nil)
	}
	sid, err := h.sidManager.Allocate()
	if err != nil {
		return h.terminalLocked(err.Status, nil)
	}
	h.sid = sid
	h.sidValid = true
	h.req.StreamID = sid
	h.hosts = h.hosts.Append(h.target)
	if err := h.postMaster.Send(h.target, h.req, h, h.cfg.stateful, h.expiration); err != nil {
		h.releaseSIDLocked()
		return h.terminalLocked(err.Status, nil)
	}
	h.state = StateInFlight
	h.msgInFly = true
	h.asm = NewAssembler(h.req.ID, h.req.Chunks)
	return nil
}

// releaseSIDLocked returns the current SID to the manager at most once per
// allocation, keeping every Allocate paired with exactly one Release.
func (h *MessageHandler) releaseSIDLocked() {
	if h.sidValid {
		h.sidManager.Release(h.sid)
		h.sidValid = false
	}
}

// resetAttemptLocked discards per-attempt response state ahead of a resend,
// so a stale partial chain or a half-driven raw reader from the previous
// endpoint can't leak into the next attempt's assembly.
func (h *MessageHandler) resetAttemptLocked() {
	h.asm = NewAssembler(h.req.ID, h.req.Chunks)
	h.rawReader = nil
	h.rawWriter = nil
	h.crc = 0
}

// GetSid returns the SID this handler currently owns.
func (h *MessageHandler) GetSid() uint16 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sid
}

// IsRaw reports whether the in-flight request expects its body streamed
// directly from the socket rather than buffered (large read/readv/write).
func (h *MessageHandler) IsRaw() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.req.Raw
}

// Examine classifies an arriving frame addressed to this handler's SID.
// The PostMaster calls this before Process/ReadMessageBody.
func (h *MessageHandler) Examine(hdr wire.ResponseHeader) (ExamineResult, *Error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Examine(h.sid, hdr, h.req.Raw)
}

// Process consumes a non-raw response body Examine told the PostMaster to
// hand over.
func (h *MessageHandler) Process(hdr wire.ResponseHeader, body []byte) *Error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminated {
		return nil
	}
	if hdr.StreamID != h.sid {
		return errorf(StatusError, ErrProtocol, ErrSIDNotOwned)
	}
	if h.expired() {
		h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrOperationExpired}, nil)
		return nil
	}
	switch Status(hdr.Status) {
	case StatusOkSoFar:
		if h.crcActive {
			h.crc = UpdateCRC32C(h.crc, body)
		}
		h.asm.AppendPartial(body)
		h.state = StateAwaitingMore
		return nil
	case StatusFrame:
		if h.crcActive && len(body) >= 4 {
			claimed := be32(body[len(body)-4:])
			if e := ValidateStatusFrameCRC(h.crc, claimed); e != nil {
				h.terminalLocked(e.Status, nil)
				return nil
			}
		}
		return nil
	case StatusAuthMore:
		return nil
	case StatusAttn:
		kind, rest, e := DecodeAttn(body)
		if e != nil {
			h.terminalLocked(e.Status, nil)
			return nil
		}
		switch kind {
		case AttnEmbeddedResponse:
			h.asm.AppendPartial(rest)
			return nil
		case AttnRedirect:
			return h.handleRedirectLocked(rest)
		default:
			h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrServerError, Message: "async connection condition"}, nil)
			return nil
		}
	case StatusOk:
		if h.crcActive {
			h.crc = UpdateCRC32C(h.crc, body)
		}
		obj, e := h.asm.Finalize(body, XRootDStatus{Status: StatusOk})
		if e != nil {
			h.terminalLocked(e.Status, nil)
			return nil
		}
		h.terminalLocked(XRootDStatus{Status: StatusOk, Partial: h.partialOf(obj)}, obj)
		return nil
	case StatusError:
		return h.handleErrorLocked(body)
	case StatusRedirect:
		return h.handleRedirectLocked(body)
	case StatusWait:
		return h.handleWaitLocked(body)
	case StatusWaitResp:
		// keep SID registered and send nothing; the server will answer on
		// its own schedule without a resend. No timer is touched here.
		return nil
	}
	return nil
}

func (h *MessageHandler) partialOf(obj AnyObject) bool {
	if v, ok := obj.(*VectorReadInfo); ok {
		return v.Partial()
	}
	return false
}

// ReadMessageBody streams a raw-mode response body from the socket.
// hdr is the already-examined response header; its Dlen bounds the reader,
// which is how a server reply carrying fewer chunks than the request asked
// for still terminates.
func (h *MessageHandler) ReadMessageBody(hdr wire.ResponseHeader, sock Socket) (Outcome, int, *Error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rawReader == nil {
		r, e := h.newRawReaderLocked(int(hdr.Dlen))
		if e != nil {
			h.terminalLocked(e.Status, nil)
			return OutcomeError, 0, e
		}
		h.rawReader = r
	}
	h.state = StateReadingRaw
	outcome, n, err := h.rawReader.Step(sock)
	if err != nil {
		h.terminalLocked(err.Status, nil)
		return OutcomeError, n, err
	}
	if outcome != OutcomeDone {
		return OutcomeRetry, n, nil
	}
	obj, e := h.finalizeRawLocked()
	if e != nil {
		h.terminalLocked(e.Status, nil)
		return OutcomeError, n, e
	}
	h.terminalLocked(XRootDStatus{Status: StatusOk, Partial: h.partialOf(obj)}, obj)
	return OutcomeDone, n, nil
}

func (h *MessageHandler) newRawReaderLocked(dlen int) (RawReader, *Error) {
	switch h.req.ID {
	case ReqReadV:
		statuses := make([]ChunkStatus, len(h.req.Chunks))
		return NewVectorReader(h.req.Chunks, statuses, dlen), nil
	case ReqRead:
		if len(h.req.Chunks) == 0 {
			return nil, errorf(StatusError, ErrProtocol, errors.New("xrdcl: raw read with no destination chunk"))
		}
		dst := h.req.Chunks[0].Buffer
		if dlen > len(dst) {
			// Body larger than the caller's buffer is a framing violation,
			// not a partial success; fail without retry.
			return nil, errorf(StatusError, ErrProtocol, errors.New("xrdcl: response body exceeds caller buffer"))
		}
		var status ChunkStatus
		return NewPlainReader(dst[:dlen], &status), nil
	default:
		return NewOtherRawReader(dlen), nil
	}
}

func (h *MessageHandler) finalizeRawLocked() (AnyObject, *Error) {
	switch r := h.rawReader.(type) {
	case *VectorReader:
		return r.Result(), nil
	case *PlainReader:
		return &ReadInfo{BytesRead: int64(r.off)}, nil
	case *OtherRawReader:
		return h.asm.Finalize(r.Buffer(), XRootDStatus{Status: StatusOk})
	default:
		return &EmptyInfo{}, nil
	}
}

// WriteMessageBody streams a raw write request's chunk list to the socket.
func (h *MessageHandler) WriteMessageBody(sock Socket) (Outcome, int, *Error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rawWriter == nil {
		h.rawWriter = NewRawWriter(h.req.Chunks)
	}
	h.state = StateWritingRaw
	outcome, n, err := h.rawWriter.Step(sock)
	if err != nil {
		h.terminalLocked(err.Status, nil)
		return OutcomeError, n, err
	}
	return outcome, n, nil
}

// OnStatusReady is the PostMaster's confirmation that the outbound message
// is no longer in flight: it either left the socket (ok) or the send failed.
// A success releases any final response that arrived before the
// confirmation did.
func (h *MessageHandler) OnStatusReady(ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgInFly = false
	if !ok {
		h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrIOError, Message: "send failed"}, nil)
		return
	}
	if h.deferred != nil {
		d := h.deferred
		h.deferred = nil
		h.terminalLocked(d.status, d.obj)
	}
}

// OnStreamEvent converts stream-level failures into either a retry or a
// terminal failure. The returned bitmask tells the PostMaster whether this
// handler's dispatch-table entry should be dropped.
func (h *MessageHandler) OnStreamEvent(event StreamEvent, cause *Error) StreamAction {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminated {
		return StreamActionRemoveHandler
	}
	switch event {
	case EventTimeout:
		h.msgInFly = false
		h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrOperationExpired}, nil)
		return StreamActionRemoveHandler
	case EventReadyToSend:
		return StreamActionNone
	}
	// Broken / FatalError: a disconnected stream implicitly invalidates the
	// SID; the peer has forgotten it. The stream going away also stands in
	// for a send confirmation that will never come, so a result deferred on
	// it can be delivered now.
	h.msgInFly = false
	if h.deferred != nil {
		d := h.deferred
		h.deferred = nil
		h.terminalLocked(d.status, d.obj)
		return StreamActionRemoveHandler
	}
	h.releaseSIDLocked()
	if event == EventFatalError || h.expired() || !isRetryableOp(h.req, h.cfg.stateful) {
		status := XRootDStatus{Status: StatusError, Errno: ErrServerError, Message: ErrStreamFatal.Error()}
		if cause != nil {
			status = cause.Status
		}
		h.terminalLocked(status, nil)
		return StreamActionRemoveHandler
	}
	h.retryAtLoadBalancerLocked(ErrIOError)
	if h.terminated {
		return StreamActionRemoveHandler
	}
	return StreamActionNone
}

// WaitDone is invoked by the holder of a HandlerRef once the PostMaster's
// timer fires for a scheduled kXR_wait wake-up.
func (h *MessageHandler) WaitDone(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminated {
		return
	}
	if h.expired() {
		h.terminalLocked(XRootDStatus{Status: StatusError, Errno: ErrOperationExpired}, nil)
		return
	}
	h.rewriteRequestWaitLocked()
	h.resetAttemptLocked()
	if err := h.postMaster.Send(h.target, h.req, h, h.cfg.stateful, h.expiration); err != nil {
		h.terminalLocked(err.Status, nil)
		return
	}
	h.state = StateInFlight
	h.msgInFly = true
}

// terminalLocked invokes the ResponseHandler exactly once, releases the SID
// (unless the request owns a shared session id), and marks the handler
// terminated. Completion is only ever reported once the PostMaster has
// confirmed the outbound message is no longer in flight: a result computed
// while the send is still unconfirmed is parked and delivered from
// OnStatusReady (or from a stream fatal, which makes the confirmation moot).
func (h *MessageHandler) terminalLocked(status XRootDStatus, obj AnyObject) *Error {
	if h.msgInFly && !h.terminated {
		h.deferred = &deferredResult{status: status, obj: obj}
		if status.Status != StatusOk {
			return errorf(status.Status, status.Errno, errWithMessage(status))
		}
		return nil
	}
	h.callbackOnce.Do(func() {
		h.terminated = true
		h.state = StateTerminal
		if !h.req.HasSessionID {
			// A session-scoped request stays alive past handler death, and
			// its SID with it; the session layer owns both.
			h.releaseSIDLocked()
		}
		h.ref.Invalidate()
		for _, e := range h.traceback {
			h.cfg.logger.Printf("xrdcl: redirect %s -> %s (%s)", e.From, e.To, e.Status)
		}
		h.respHandler.HandleResponse(status, obj, h.hosts)
	})
	if status.Status != StatusOk {
		return errorf(status.Status, status.Errno, errWithMessage(status))
	}
	return nil
}

// errWithMessage picks the distinguished sentinel for status's errno, if any,
// so callers can errors.Is against it, falling back to a plain
// message-carrying error for everything else.
func errWithMessage(status XRootDStatus) error {
	switch status.Errno {
	case ErrRedirectLimit:
		return ErrRedirectLimitExceeded
	case ErrOperationExpired:
		return ErrDeadlineExceeded
	case ErrProtocol:
		return ErrProtocolViolation
	}
	msg := status.Message
	if msg == "" {
		msg = "xrdcl: request failed"
	}
	return simpleError(msg)
}

type simpleError string

func (e simpleError) Error() string { return string(e) }
