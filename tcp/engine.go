/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package tcp

import (
	"sync/atomic"
	"time"

	"github.com/nabbar/coap-engine/buffer"
	liberr "github.com/nabbar/coap-engine/errors"
	"github.com/nabbar/coap-engine/logger"
	"github.com/nabbar/coap-engine/message"
	"github.com/nabbar/coap-engine/metrics"
	"github.com/nabbar/coap-engine/option"
	"github.com/nabbar/coap-engine/token"
	"github.com/nabbar/coap-engine/transport"
)

// DefaultHandshakeTimeout bounds how long Handshake waits for the peer's CSM.
const DefaultHandshakeTimeout = 10 * time.Second

// DefaultRequestTimeout is both the default pending-request expiry and the
// interval a StatusPartial chunk refreshes it by.
const DefaultRequestTimeout = 60 * time.Second

// DefaultMaxConcurrentRequests bounds how many requests on one connection
// may simultaneously await a response, since RFC 8323 streams carry no
// message IDs to distinguish an unbounded backlog of awaited tokens.
const DefaultMaxConcurrentRequests = 64

// DefaultMaxOptionsCacheSize is the Parser's default TOKEN+OPTIONS
// accumulation bound (see Parser.Feed).
const DefaultMaxOptionsCacheSize = DefaultOptionsCacheSize

// Config holds one connection's framing and handshake parameters.
type Config struct {
	BufferSize            int
	MaxMessageSize        uint32
	BlockWiseTransfer     bool
	HandshakeTimeout      time.Duration
	RequestTimeout        time.Duration
	MaxConcurrentRequests int
	MaxOptionsCacheSize   int
}

// DefaultConfig returns this engine's own advertised CSM capabilities and
// timing defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:            DefaultMaxMessageSize,
		MaxMessageSize:        DefaultMaxMessageSize,
		BlockWiseTransfer:     false,
		HandshakeTimeout:      DefaultHandshakeTimeout,
		RequestTimeout:        DefaultRequestTimeout,
		MaxConcurrentRequests: DefaultMaxConcurrentRequests,
		MaxOptionsCacheSize:   DefaultMaxOptionsCacheSize,
	}
}

// RequestHandler processes a fully-reassembled inbound request. Returning
// immediate=false tells the engine the caller will answer later via
// SendResponse.
type RequestHandler func(req message.Message) (resp message.Message, immediate bool)

// chunkAssembly buffers a non-response message's payload across Feed calls;
// the stream carries one in-flight message at a time so a single slot
// suffices.
type chunkAssembly struct {
	msg     message.Message
	payload []byte
}

// Engine drives one RFC 8323 TCP connection: the CSM handshake, framing,
// signaling, and a token-keyed pending-request registry with a single
// shared expiry timer.
type Engine struct {
	sock  transport.Socket
	clock transport.Clock
	sched transport.Scheduler
	prng  transport.PRNG
	cfg   Config

	parser  *Parser
	pending *pendingList
	inbound *chunkAssembly

	local PeerCapabilities
	peer  PeerCapabilities

	aborted     int32
	expiryTimer transport.TimerHandle

	OnRequest RequestHandler
	OnClose   func(err liberr.Error)

	metrics *metrics.Metrics
	log     logger.Logger
}

// SetMetrics attaches m so pending-request timeouts and connection closures
// are observed. A nil Engine.metrics (the default) disables all observation.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// SetLogger attaches l so connection teardown and abort events are logged.
// A nil Engine.log (the default) disables all logging.
func (e *Engine) SetLogger(l logger.Logger) {
	e.log = l
}

// NewEngine builds an Engine driving sock. Call Handshake before any other
// method.
func NewEngine(sock transport.Socket, clk transport.Clock, sched transport.Scheduler, prng transport.PRNG, cfg Config, onRequest RequestHandler) *Engine {
	return &Engine{
		sock:  sock,
		clock: clk,
		sched: sched,
		prng:  prng,
		cfg:   cfg,

		parser:  NewParserWithCapacity(cfg.MaxOptionsCacheSize),
		pending: newPendingList(cfg.MaxConcurrentRequests),

		local: PeerCapabilities{MaxMessageSize: cfg.MaxMessageSize, BlockWiseTransferCapable: cfg.BlockWiseTransfer},
		peer:  DefaultPeerCapabilities(),

		OnRequest: onRequest,
	}
}

// Handshake sends this engine's own CSM and blocks (driving ReadOnce) until
// the peer's CSM arrives or cfg.HandshakeTimeout elapses.
func (e *Engine) Handshake() liberr.Error {
	csm := message.Message{Code: message.CodeCSM, Options: option.NewList()}
	csm.Options.SetUint(OptionMaxMessageSize, uint64(e.local.MaxMessageSize))
	if e.local.BlockWiseTransferCapable {
		csm.Options.Insert(OptionBlockWiseTransfer, nil)
	}
	if err := e.sendFrame(csm); err != nil {
		return err
	}

	deadline := e.clock.Now().Add(e.cfg.HandshakeTimeout)
	for !e.peer.Received {
		if e.clock.Now().After(deadline) {
			return ErrorCSMNotReceived.Error(nil)
		}
		if err := e.ReadOnce(); err != nil {
			return err
		}
	}
	return nil
}

// SendRequest writes req as a frame, assigning a token if empty. When
// onResult is non-nil the request is registered in the pending-request
// registry, keyed by token, and onResult is invoked with each response
// chunk (and on timeout). It returns ErrorTooManyPending without sending
// anything once MaxConcurrentRequests outstanding requests are already
// awaiting a response.
func (e *Engine) SendRequest(req message.Message, onResult ResponseCallback) (token.Token, liberr.Error) {
	if req.Token.IsEmpty() {
		req.Token = token.Generate(e.prng, 4)
	}

	if onResult != nil && !e.pending.tryAdmit() {
		return req.Token, ErrorTooManyPending.Error(nil)
	}

	if err := e.sendFrame(req); err != nil {
		if onResult != nil {
			e.pending.release()
		}
		return req.Token, err
	}

	if onResult != nil {
		p := &PendingRequest{
			Token:      req.Token,
			ExpireTime: e.clock.Now().Add(e.cfg.RequestTimeout),
			Callback:   onResult,
		}
		e.pending.add(p)
		e.rescheduleExpiry()
	}
	return req.Token, nil
}

// AbortDelivery cancels an outstanding pending request by token, delivering
// StatusCancel to its callback and freeing its concurrency slot. It
// reports false if no pending request matches tok.
func (e *Engine) AbortDelivery(tok token.Token) bool {
	p := e.pending.findByToken(tok)
	if p == nil {
		return false
	}
	e.pending.remove(p)
	e.rescheduleExpiry()
	if p.Callback != nil {
		p.Callback(message.Message{}, StatusCancel)
	}
	return true
}

// SendResponse answers an asynchronously-handled request (OnRequest
// returned immediate=false).
func (e *Engine) SendResponse(tok token.Token, resp message.Message) liberr.Error {
	resp.Token = tok
	return e.sendFrame(resp)
}

// MaxOutgoingPayloadSize returns the largest payload this engine may place
// in one frame given tokenSize and optionsSize, clamped by both this
// connection's own buffer and the peer's advertised max-message-size (RFC
// 8323 section 5.3.1). code is accepted for symmetry with
// MaxIncomingPayloadSize; framing overhead does not depend on it.
func (e *Engine) MaxOutgoingPayloadSize(tokenSize, optionsSize int, code message.Code) int {
	budget := e.cfg.MaxMessageSize
	if e.peer.Received && e.peer.MaxMessageSize < budget {
		budget = e.peer.MaxMessageSize
	}
	return maxFramePayload(int(budget), e.cfg.BufferSize, tokenSize, optionsSize)
}

// MaxIncomingPayloadSize returns the largest payload this engine will
// accept in one frame, clamped by the peer's advertised max-message-size
// once its CSM has arrived.
func (e *Engine) MaxIncomingPayloadSize() int {
	budget := e.local.MaxMessageSize
	if e.peer.Received && e.peer.MaxMessageSize < budget {
		budget = e.peer.MaxMessageSize
	}
	return maxFramePayload(int(budget), e.cfg.BufferSize, 8, 0)
}

// maxFramePayload subtracts the framing header (up to 6 bytes), token, and
// options bytes from whichever of budget/bufferSize is tighter.
func maxFramePayload(budget, bufferSize, tokenSize, optionsSize int) int {
	if bufferSize < budget {
		budget = bufferSize
	}
	overhead := 6 + tokenSize + optionsSize
	if optionsSize > 0 {
		overhead++ // 0xFF payload marker
	}
	n := budget - overhead
	if n < 0 {
		return 0
	}
	return n
}

// Ping sends a signaling Ping carrying custody as its Custody option.
func (e *Engine) Ping(custody []byte) liberr.Error {
	return e.sendFrame(buildPing(custody))
}

// Release gracefully tears down the connection, notifying the peer first.
func (e *Engine) Release() liberr.Error {
	err := e.sendFrame(buildRelease())
	e.teardown(nil, "released")
	return err
}

func (e *Engine) sendFrame(m message.Message) liberr.Error {
	if atomic.LoadInt32(&e.aborted) != 0 {
		return ErrorAbortSent.Error(nil)
	}
	return e.writeFrame(m)
}

func (e *Engine) writeFrame(m message.Message) liberr.Error {
	buf := make([]byte, e.cfg.BufferSize)
	a := buffer.NewAppender(buf)
	if err := Serialize(a, m); err != nil {
		return err
	}
	if err := e.sock.Send(a.Bytes()); err != nil {
		return ErrorConnectionClosed.Error(err)
	}
	return nil
}

// sendAbort poisons the connection: it sends exactly one ABORT frame
// (bypassing the aborted gate it is itself about to raise) and tears down
// every pending request with StatusTimeout.
func (e *Engine) sendAbort(diagnostic string) {
	if !atomic.CompareAndSwapInt32(&e.aborted, 0, 1) {
		return
	}
	_ = e.writeFrame(buildAbort(diagnostic))
	e.teardown(ErrorAbortSent.Error(nil), "abort_sent")
}

func (e *Engine) teardown(err liberr.Error, reason string) {
	if e.expiryTimer != 0 {
		e.sched.Cancel(e.expiryTimer)
		e.expiryTimer = 0
	}
	for _, p := range e.pending.all() {
		e.pending.remove(p)
		if p.Callback != nil {
			p.Callback(message.Message{}, StatusTimeout)
		}
	}
	if e.metrics != nil {
		e.metrics.ObserveConnectionClosed(reason)
	}
	if e.log != nil {
		e.log.WithError(err).Info("tcp connection closed: " + reason)
	}
	if e.OnClose != nil {
		e.OnClose(err)
	}
}

// ReadOnce blocks for at most sock's configured receive timeout, feeds
// whatever bytes arrived to the incremental parser, and returns. A
// malformed frame or a hard transport failure poisons the connection with
// ABORT; callers drive the engine by calling ReadOnce in a loop.
func (e *Engine) ReadOnce() liberr.Error {
	if atomic.LoadInt32(&e.aborted) != 0 {
		return ErrorAbortSent.Error(nil)
	}

	buf := make([]byte, e.cfg.BufferSize)
	n, rerr := e.sock.Recv(buf)
	if rerr != nil {
		if liberr.IsCode(rerr, transport.ErrorRecvTimeout) {
			return nil
		}
		if liberr.IsCode(rerr, transport.ErrorSocketClosed) {
			e.teardown(ErrorConnectionClosed.Error(rerr), "recv_closed")
			return ErrorConnectionClosed.Error(rerr)
		}
		e.sendAbort("recv failure")
		return ErrorAbortSent.Error(rerr)
	}

	if err := e.parser.Feed(buf[:n], e.onChunk); err != nil {
		if liberr.IsCode(err, ErrorTruncatedMessage) {
			e.handleTruncated()
			return nil
		}
		e.sendAbort("malformed frame")
		return err
	}
	return nil
}

// handleTruncated replies 5.00 Internal Server Error when the message the
// parser just gave up on (its options cache overflowed) carried a request
// code; the connection itself is left intact so parsing can resume at the
// next frame.
func (e *Engine) handleTruncated() {
	code, tok := e.parser.TruncatedInfo()
	if e.log != nil {
		e.log.WithToken(tok.String()).Warn("truncated message received: options cache exceeded")
	}
	if !code.IsRequest() {
		return
	}
	_ = e.sendFrame(message.Message{Code: message.CodeInternalServerError, Token: tok})
}

// onChunk is the Parser callback: response chunks stream straight through
// to the matching pending request's Callback; every other kind is buffered
// until complete before acting on it.
func (e *Engine) onChunk(m message.Message) {
	if m.Code.IsResponse() {
		e.handleResponseChunk(m)
		return
	}

	if e.inbound == nil || m.PayloadOffset == 0 {
		e.inbound = &chunkAssembly{msg: m}
	}
	e.inbound.payload = append(e.inbound.payload, m.Payload...)
	if !m.IsComplete() {
		return
	}

	full := e.inbound.msg
	full.Payload = e.inbound.payload
	full.PayloadOffset = 0
	e.inbound = nil

	switch {
	case full.Code.IsSignaling():
		e.handleSignaling(full)
	case full.Code.IsRequest():
		e.handleRequest(full)
	}
}

func (e *Engine) handleResponseChunk(m message.Message) {
	p := e.pending.findByToken(m.Token)
	if p == nil {
		return
	}

	if !m.IsComplete() {
		e.pending.refresh(p, e.clock.Now().Add(e.cfg.RequestTimeout))
		if p.Callback != nil {
			p.Callback(m, StatusPartial)
		}
		return
	}

	accepted := true
	if p.Callback != nil {
		accepted = p.Callback(m, StatusOK)
	}
	if accepted {
		e.pending.remove(p)
	} else {
		// the observation on this token stays open for further responses.
		e.pending.refresh(p, e.clock.Now().Add(e.cfg.RequestTimeout))
	}
	e.rescheduleExpiry()
}

func (e *Engine) handleSignaling(full message.Message) {
	switch full.Code {
	case message.CodeCSM:
		p, err := applyCSM(e.peer, &full)
		e.peer = p
		if err != nil {
			e.sendAbort("unknown critical CSM option")
		}
	case message.CodePing:
		_ = e.sendFrame(buildPong(full))
	case message.CodePong:
		// no custody tracking kept on this side; nothing to correlate.
	case message.CodeRelease:
		e.teardown(ErrorReleaseReceived.Error(nil), "release_received")
	case message.CodeAbort:
		e.teardown(ErrorAbortReceived.Error(nil), "abort_received")
	}
}

func (e *Engine) handleRequest(full message.Message) {
	if e.OnRequest == nil {
		return
	}
	resp, immediate := e.OnRequest(full)
	if !immediate {
		return
	}
	resp.Token = full.Token
	_ = e.sendFrame(resp)
}

func (e *Engine) rescheduleExpiry() {
	if e.expiryTimer != 0 {
		e.sched.Cancel(e.expiryTimer)
		e.expiryTimer = 0
	}
	h := e.pending.head()
	if h == nil {
		return
	}
	e.expiryTimer = e.sched.Schedule(h.ExpireTime, e.onExpiryTimer, nil)
}

func (e *Engine) onExpiryTimer(arg any) {
	for _, p := range e.pending.takeExpired(e.clock.Now()) {
		if e.metrics != nil {
			e.metrics.ObserveTimeout(metrics.TransportTCP)
		}
		if e.log != nil {
			e.log.WithToken(p.Token.String()).Warn("pending request expired")
		}
		if p.Callback != nil {
			p.Callback(message.Message{}, StatusTimeout)
		}
	}
	e.rescheduleExpiry()
}
