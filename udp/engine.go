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

package udp

import (
	"sync"
	"time"

	"github.com/nabbar/coap-engine/block"
	"github.com/nabbar/coap-engine/buffer"
	liberr "github.com/nabbar/coap-engine/errors"
	"github.com/nabbar/coap-engine/logger"
	"github.com/nabbar/coap-engine/message"
	"github.com/nabbar/coap-engine/metrics"
	"github.com/nabbar/coap-engine/option"
	"github.com/nabbar/coap-engine/token"
	"github.com/nabbar/coap-engine/transport"
)

// DefaultBufferSize is large enough for the common "CoAP over UDP" MTU
// assumption (RFC 7252 section 4.6): 1152 bytes of message, never more
// than 1024 of payload.
const DefaultBufferSize = 1152

// DefaultNotifyCacheCapacity bounds the fixed-size FIFO of outstanding
// confirmable Observe notifications.
const DefaultNotifyCacheCapacity = 32

// DefaultMTU is the path MTU RFC 7252 section 4.6 assumes when nothing
// more specific is known about the link.
const DefaultMTU = 1152

// Config holds the per-engine protocol parameters of RFC 7252 section 4.8,
// plus the sizing knobs for the buffers and caches built from them.
type Config struct {
	AckTimeout      time.Duration
	AckRandomFactor float64
	MaxRetransmit   int
	NStart          int
	MaxLatency      time.Duration
	ProcessingDelay time.Duration

	BufferSize          int
	NotifyCacheCapacity int
	MTU                 int
}

// DefaultConfig returns the RFC 7252 section 4.8 default parameters.
func DefaultConfig() Config {
	return Config{
		AckTimeout:      message.DefaultAckTimeout,
		AckRandomFactor: message.DefaultAckRandomFactor,
		MaxRetransmit:   message.DefaultMaxRetransmit,
		NStart:          message.DefaultNStart,
		MaxLatency:      message.DefaultMaxLatency,
		ProcessingDelay: message.DefaultProcessingDelay,

		BufferSize:          DefaultBufferSize,
		NotifyCacheCapacity: DefaultNotifyCacheCapacity,
		MTU:                 DefaultMTU,
	}
}

func (c Config) exchangeLifetime() time.Duration {
	return message.ExchangeLifetime(c.AckTimeout, c.AckRandomFactor, c.MaxRetransmit, c.MaxLatency, c.ProcessingDelay)
}

// RequestHandler processes an inbound request. Returning immediate=false
// tells the engine the caller will answer later via SendSeparateResponse
// (after the engine has sent an empty ACK on its behalf, for confirmable
// requests).
type RequestHandler func(req message.Message) (resp message.Message, immediate bool)

// NotifyCancelHandler is invoked when the peer RST's a confirmable Observe
// notification the engine still has recorded in its notify cache.
type NotifyCancelHandler func(tok token.Token)

// Engine is one side of a confirmable/non-confirmable UDP CoAP exchange
// with a single remote peer: it owns message-ID assignment, NSTART
// admission, exponential-backoff retransmission, duplicate-request
// suppression via the response cache, and Observe-cancellation via the
// notify cache.
type Engine struct {
	sock  transport.EndpointSocket
	clock transport.Clock
	sched transport.Scheduler
	prng  transport.PRNG
	cfg   Config

	msgIDs      *msgIDCounter
	unconfirmed *unconfirmedList
	responses   *ResponseCache
	notifies    *NotifyCache
	blocks      *blockwiseState

	// waiting holds confirmable requests that received an empty ACK and
	// are now waiting, unbounded in time, for their separate response;
	// keyed by token.String().
	waiting sync.Map

	OnRequest      RequestHandler
	OnNotifyCancel NotifyCancelHandler

	metrics *metrics.Metrics
	log     logger.Logger
}

// SetMetrics attaches m so retransmissions, timeouts, and response-cache
// hits/misses are observed. A nil Engine.metrics (the default) disables
// all observation.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// SetLogger attaches l so retransmission and timeout events are logged.
// A nil Engine.log (the default) disables all logging.
func (e *Engine) SetLogger(l logger.Logger) {
	e.log = l
}

// NewEngine builds an Engine driving sock, using clk/sched/prng for timing
// and randomness. onRequest may be nil for a client-only engine.
func NewEngine(sock transport.EndpointSocket, clk transport.Clock, sched transport.Scheduler, prng transport.PRNG, cfg Config, onRequest RequestHandler) *Engine {
	return &Engine{
		sock:  sock,
		clock: clk,
		sched: sched,
		prng:  prng,
		cfg:   cfg,

		msgIDs:      newMsgIDCounter(prng),
		unconfirmed: newUnconfirmedList(cfg.NStart),
		responses:   NewResponseCache(cfg.exchangeLifetime()),
		notifies:    NewNotifyCache(cfg.NotifyCacheCapacity),
		blocks:      newBlockwiseState(),

		OnRequest: onRequest,
	}
}

// Close releases the engine's background cache goroutine. It does not
// close sock, which the caller owns.
func (e *Engine) Close() {
	e.responses.Close()
}

func (e *Engine) remoteEndpoint() Endpoint {
	return Endpoint{Host: e.sock.RemoteHost(), Port: e.sock.RemotePort()}
}

// initialTimeout draws a value uniformly in [AckTimeout, AckTimeout *
// AckRandomFactor), per RFC 7252 section 4.8.
func initialTimeout(cfg Config, prng transport.PRNG) time.Duration {
	if cfg.AckRandomFactor <= 1 {
		return cfg.AckTimeout
	}
	spread := float64(cfg.AckTimeout) * (cfg.AckRandomFactor - 1)
	r := float64(prng.Uint16()) / float64(1<<16)
	return cfg.AckTimeout + time.Duration(r*spread)
}

// MaxOutgoingPayloadSize returns the largest payload this engine may place
// in one datagram given tokenSize and optionsSize, clamped by
// min(MTU, BufferSize). code is accepted for symmetry with
// MaxIncomingPayloadSize; framing overhead does not depend on it.
func (e *Engine) MaxOutgoingPayloadSize(tokenSize, optionsSize int, code message.Code) int {
	return maxUDPPayload(e.cfg, tokenSize, optionsSize)
}

// MaxIncomingPayloadSize returns the largest payload this engine will
// accept in one datagram, clamped by min(MTU, BufferSize) and the
// largest legal token (8 bytes).
func (e *Engine) MaxIncomingPayloadSize() int {
	return maxUDPPayload(e.cfg, 8, 0)
}

// maxUDPPayload subtracts the fixed 4-byte header, token, and options
// bytes from min(MTU, BufferSize).
func maxUDPPayload(cfg Config, tokenSize, optionsSize int) int {
	budget := cfg.MTU
	if cfg.BufferSize < budget {
		budget = cfg.BufferSize
	}
	overhead := 4 + tokenSize + optionsSize
	if optionsSize > 0 {
		overhead++ // 0xFF payload marker
	}
	n := budget - overhead
	if n < 0 {
		return 0
	}
	return n
}

// SendRequest sends req as CON if onResponse is non-nil, NON otherwise
// (fire-and-forget), assigning a token if req.Token is empty and a fresh
// message ID. It returns the token so the caller can correlate later
// Observe notifications.
func (e *Engine) SendRequest(req message.Message, onResponse ResponseHandler) (token.Token, liberr.Error) {
	if req.Token.IsEmpty() {
		req.Token = token.Generate(e.prng, 4)
	}
	if onResponse != nil {
		req.Type = message.TypeConfirmable
	} else {
		req.Type = message.TypeNonConfirmable
	}
	req.MsgID = e.msgIDs.Next()

	err := e.send(req, onResponse, false)
	return req.Token, err
}

// SendSeparateResponse answers req asynchronously, after the engine has
// already sent an empty ACK on the caller's behalf (RFC 7252 section
// 5.2.2). resp becomes CON if onResult is non-nil, NON otherwise.
func (e *Engine) SendSeparateResponse(req message.Message, resp message.Message, onResult ResponseHandler) liberr.Error {
	resp.Token = req.Token
	resp.MsgID = e.msgIDs.Next()
	if onResult != nil {
		resp.Type = message.TypeConfirmable
	} else {
		resp.Type = message.TypeNonConfirmable
	}
	return e.send(resp, onResult, false)
}

// SendNotify pushes an Observe notification for tok, confirmable or not.
// A confirmable notification is recorded in the notify cache so a later
// RST can be mapped back to tok for cancellation.
func (e *Engine) SendNotify(tok token.Token, notify message.Message, confirmable bool, onResult ResponseHandler) liberr.Error {
	notify.Token = tok
	notify.MsgID = e.msgIDs.Next()
	if confirmable {
		notify.Type = message.TypeConfirmable
	} else {
		notify.Type = message.TypeNonConfirmable
	}

	if err := e.send(notify, onResult, confirmable); err != nil {
		return err
	}
	if confirmable {
		e.notifies.Put(notify.MsgID, tok)
	}
	return nil
}

// send serializes m, caches it if it carries a response code, and either
// fires it immediately (NON/ACK/RST) or hands it to NSTART admission
// control (CON).
func (e *Engine) send(m message.Message, onResult ResponseHandler, observe bool) liberr.Error {
	buf := make([]byte, e.cfg.BufferSize)
	a := buffer.NewAppender(buf)
	if err := Serialize(a, m); err != nil {
		return err
	}

	if m.Code.IsResponse() {
		e.responses.Put(e.remoteEndpoint(), m.MsgID, a.Bytes())
	}

	if m.Type != message.TypeConfirmable {
		if err := e.sock.Send(a.Bytes()); err != nil {
			return ErrorMessageTooBig.Error(err)
		}
		return nil
	}

	u := &UnconfirmedMessage{
		Endpoint: e.remoteEndpoint(),
		Token:    m.Token,
		MsgID:    m.MsgID,
		Bytes:    a.Bytes(),
		Retry:    RetryState{Timeout: initialTimeout(e.cfg, e.prng)},
		Observe:  observe,
		Callback: onResult,
	}

	if e.unconfirmed.admit(u) {
		e.transmit(u)
	}
	return nil
}

// transmit writes u's bytes to the socket and (re)schedules its next
// retransmission.
func (e *Engine) transmit(u *UnconfirmedMessage) {
	u.NextRetransmit = e.clock.Now().Add(u.Retry.Timeout)
	e.unconfirmed.resort()
	_ = e.sock.Send(u.Bytes)
	u.timer = e.sched.Schedule(u.NextRetransmit, e.onRetransmitTimer, u)
}

func (e *Engine) onRetransmitTimer(arg any) {
	u, ok := arg.(*UnconfirmedMessage)
	if !ok || u.Hold {
		return
	}

	if u.Retry.Count >= e.cfg.MaxRetransmit {
		if u.retire() {
			if e.metrics != nil {
				e.metrics.ObserveTimeout(metrics.TransportUDP)
			}
			if e.log != nil {
				e.log.WithToken(u.Token.String()).Warn("exchange timed out after max retransmits")
			}
			e.finish(u, message.Message{}, ErrorTimeout.Error(nil))
		}
		return
	}

	u.Retry = u.Retry.backoff()
	if e.metrics != nil {
		e.metrics.ObserveRetransmit(metrics.TransportUDP)
	}
	if e.log != nil {
		e.log.WithToken(u.Token.String()).Debug("retransmitting unacknowledged message")
	}
	e.transmit(u)
}

// finish removes u from the unconfirmed queue, delivers the outcome, and
// promotes the next held exchange (if any) now that a slot is free. It
// returns the callback's accepted verdict (true if u carried no callback,
// or the delivery was a terminal failure rather than an actual response).
func (e *Engine) finish(u *UnconfirmedMessage, resp message.Message, err liberr.Error) bool {
	e.sched.Cancel(u.timer)
	next := e.unconfirmed.remove(u)
	accepted := true
	if u.Callback != nil {
		accepted = u.Callback(resp, err)
	}
	if next != nil {
		e.transmit(next)
	}
	return accepted
}

// AbortDelivery voluntarily ends the pending confirmable exchange or
// Observe registration matching tok: its retransmission timer (if still
// running) is cancelled, any waiting separate-response registration is
// dropped, and its callback is invoked once with ErrorCancelled. It
// reports whether a matching exchange was found.
func (e *Engine) AbortDelivery(tok token.Token) bool {
	if u := e.unconfirmed.findByToken(tok); u != nil && u.retire() {
		e.finish(u, message.Message{}, ErrorCancelled.Error(nil))
		return true
	}
	if v, ok := e.waiting.LoadAndDelete(tok.String()); ok {
		u := v.(*UnconfirmedMessage)
		if u.Callback != nil {
			u.Callback(message.Message{}, ErrorCancelled.Error(nil))
		}
		return true
	}
	return false
}

// ReadOnce blocks for at most sock's configured receive timeout, processes
// at most one inbound datagram, and returns. Callers drive the engine by
// calling it in a loop (typically from a dedicated goroutine).
func (e *Engine) ReadOnce() liberr.Error {
	buf := make([]byte, e.cfg.BufferSize)
	n, rerr := e.sock.Recv(buf)

	if rerr != nil {
		if liberr.IsCode(rerr, transport.ErrorRecvTimeout) {
			return nil
		}
		if liberr.IsCode(rerr, transport.ErrorTruncated) {
			e.handleTruncated(buf[:n])
			return nil
		}
		return ErrorMalformedMessage.Error(rerr)
	}

	m, err := Parse(buffer.NewDispenser(buf[:n]))
	if err != nil {
		return err
	}

	e.dispatch(m)
	return nil
}

func (e *Engine) handleTruncated(raw []byte) {
	tr := ParseTruncated(buffer.NewDispenser(raw))

	if tr.Header.Code.IsRequest() {
		resp := message.Message{
			Type:  message.TypeAcknowledgement,
			Code:  message.CodeRequestEntityTooLarge,
			MsgID: tr.Header.MsgID,
			Token: tr.Token,
		}
		_ = e.send(resp, nil, false)
		return
	}

	if !tr.HasToken {
		return
	}

	if u := e.unconfirmed.findByToken(tr.Token); u != nil && u.retire() {
		e.finish(u, message.Message{}, ErrorTruncatedMessage.Error(nil))
		return
	}

	if v, ok := e.waiting.LoadAndDelete(tr.Token.String()); ok {
		u := v.(*UnconfirmedMessage)
		if u.Callback != nil {
			u.Callback(message.Message{}, ErrorTruncatedMessage.Error(nil))
		}
	}
}

func (e *Engine) dispatch(m message.Message) {
	switch {
	case m.Type == message.TypeReset:
		e.dispatchReset(m)
	case m.Code == message.CodeEmpty && m.Type == message.TypeAcknowledgement:
		e.dispatchEmptyAck(m)
	case m.Code.IsRequest():
		e.dispatchRequest(m)
	case m.Code.IsResponse():
		e.dispatchResponse(m)
	default:
		// class-7 signaling or a reserved class arriving over UDP: ignore.
	}
}

func (e *Engine) dispatchReset(m message.Message) {
	// A reset msg-id may simultaneously be an outstanding confirmable
	// exchange (fail it) and a cached Observe notification (cancel it);
	// both checks run unconditionally rather than short-circuiting.
	if u := e.unconfirmed.findByMsgID(m.MsgID); u != nil && u.retire() {
		e.finish(u, message.Message{}, ErrorResetReceived.Error(nil))
	}
	if tok, ok := e.notifies.TakeByMsgID(m.MsgID); ok {
		if e.metrics != nil {
			e.metrics.ObserveCacheHit(metrics.CacheNotify)
		}
		if e.OnNotifyCancel != nil {
			e.OnNotifyCancel(tok)
		}
	} else if e.metrics != nil {
		e.metrics.ObserveCacheMiss(metrics.CacheNotify)
	}
}

// dispatchEmptyAck handles the "processing, a separate response follows"
// acknowledgement: retransmission stops, but the exchange stays alive,
// parked by token until the real response (or a transport-level failure)
// arrives.
func (e *Engine) dispatchEmptyAck(m message.Message) {
	u := e.unconfirmed.findByMsgID(m.MsgID)
	if u == nil || !u.retire() {
		return
	}
	e.sched.Cancel(u.timer)
	e.unconfirmed.remove(u)
	e.waiting.Store(u.Token.String(), u)
}

// dispatchResponse matches an inbound response to its exchange. A callback
// that returns accepted=false (more confirmable Observe notifications for
// the same token are expected, RFC 7641 section 3.2) keeps the token
// registered in e.waiting instead of discarding it.
func (e *Engine) dispatchResponse(m message.Message) {
	if m.Type == message.TypeAcknowledgement {
		if u := e.unconfirmed.findByMsgID(m.MsgID); u != nil && u.retire() {
			if !e.finish(u, m, nil) {
				e.waiting.Store(u.Token.String(), u)
			}
		}
		return
	}

	key := m.Token.String()
	if v, ok := e.waiting.Load(key); ok {
		u := v.(*UnconfirmedMessage)
		accepted := true
		if u.Callback != nil {
			accepted = u.Callback(m, nil)
		}
		if accepted {
			e.waiting.Delete(key)
		}
	} else if u := e.unconfirmed.findByToken(m.Token); u != nil && u.retire() {
		if !e.finish(u, m, nil) {
			e.waiting.Store(u.Token.String(), u)
		}
	}

	if m.Type == message.TypeConfirmable {
		ack := message.Message{Type: message.TypeAcknowledgement, Code: message.CodeEmpty, MsgID: m.MsgID}
		_ = e.send(ack, nil, false)
	}
}

// dispatchRequest handles an inbound request, including RFC 7959 section
// 2.4 server-side BLOCK1 reassembly: an intermediate block (M=1) is
// accumulated and answered with 2.31 Continue without ever reaching
// OnRequest; the final block (M=0) is reassembled into a single payload
// before OnRequest sees it, and the outgoing response echoes the request's
// BLOCK1 option per RFC 7959 section 2.3.
func (e *Engine) dispatchRequest(m message.Message) {
	ep := e.remoteEndpoint()

	if cached, ok := e.responses.Get(ep, m.MsgID); ok {
		if e.metrics != nil {
			e.metrics.ObserveCacheHit(metrics.CacheResponse)
		}
		_ = e.sock.Send(cached)
		return
	}
	if e.metrics != nil {
		e.metrics.ObserveCacheMiss(metrics.CacheResponse)
	}

	if m.Options != nil {
		if raw, ok := m.Options.Get(message.OptionBlock1, 0); ok {
			bv, derr := block.Decode(raw, false)
			if derr != nil {
				e.replyRequestError(m, message.CodeBadOption)
				return
			}

			key := blockKey{ep: ep.String(), tok: m.Token.String()}
			payload := e.blocks.append(key, bv, m.Payload)

			if bv.More {
				e.replyBlock1Continue(m, bv)
				return
			}

			e.blocks.take(key)
			m.Payload = payload
			e.dispatchCompleteRequest(m, &bv)
			return
		}
	}

	e.dispatchCompleteRequest(m, nil)
}

// replyRequestError ACKs (or NONs) req with code and no payload, used for
// the malformed-BLOCK1-option path.
func (e *Engine) replyRequestError(req message.Message, code message.Code) {
	resp := message.Message{Code: code, Token: req.Token}
	if req.Type == message.TypeConfirmable {
		resp.Type = message.TypeAcknowledgement
		resp.MsgID = req.MsgID
	} else {
		resp.Type = message.TypeNonConfirmable
		resp.MsgID = e.msgIDs.Next()
	}
	_ = e.send(resp, nil, false)
}

// replyBlock1Continue answers an intermediate BLOCK1 block with 2.31
// Continue, echoing the same NUM/SZX the client sent (RFC 7959 section 2.3).
func (e *Engine) replyBlock1Continue(req message.Message, bv block.Value) {
	opts := option.NewList()
	if raw, eerr := block.Encode(bv, false); eerr == nil {
		opts.Insert(message.OptionBlock1, raw)
	}
	resp := message.Message{Code: message.CodeContinue, Token: req.Token, Options: opts}
	if req.Type == message.TypeConfirmable {
		resp.Type = message.TypeAcknowledgement
		resp.MsgID = req.MsgID
	} else {
		resp.Type = message.TypeNonConfirmable
		resp.MsgID = e.msgIDs.Next()
	}
	_ = e.send(resp, nil, false)
}

// dispatchCompleteRequest is the original, non-block-wise request path: m
// carries its full payload (whether or not it ever went through BLOCK1
// reassembly). block1Echo, if non-nil, is mirrored onto the final response
// so the client can confirm which block sequence completed.
func (e *Engine) dispatchCompleteRequest(m message.Message, block1Echo *block.Value) {
	if e.OnRequest == nil {
		return
	}

	resp, immediate := e.OnRequest(m)
	if !immediate {
		if m.Type == message.TypeConfirmable {
			ack := message.Message{Type: message.TypeAcknowledgement, Code: message.CodeEmpty, MsgID: m.MsgID}
			_ = e.send(ack, nil, false)
		}
		return
	}

	resp.Token = m.Token
	if m.Type == message.TypeConfirmable {
		resp.Type = message.TypeAcknowledgement
		resp.MsgID = m.MsgID
	} else {
		resp.Type = message.TypeNonConfirmable
		resp.MsgID = e.msgIDs.Next()
	}

	if block1Echo != nil {
		if raw, eerr := block.Encode(*block1Echo, false); eerr == nil {
			if resp.Options == nil {
				resp.Options = option.NewList()
			}
			resp.Options.Insert(message.OptionBlock1, raw)
		}
	}

	observe := false
	if resp.Options != nil {
		_, observe = resp.Options.Get(message.OptionObserve, 0)
	}

	_ = e.send(resp, nil, observe)
	if observe && resp.Type == message.TypeConfirmable {
		e.notifies.Put(resp.MsgID, resp.Token)
	}
}
