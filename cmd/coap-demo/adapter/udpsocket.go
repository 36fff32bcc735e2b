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

package adapter

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nabbar/coap-engine/transport"
)

// DialedUDPSocket adapts a connected net.UDPConn (net.DialUDP) to
// transport.EndpointSocket for a client talking to a single peer.
type DialedUDPSocket struct {
	conn *net.UDPConn

	mu      sync.Mutex
	timeout time.Duration
}

// NewDialedUDPSocket wraps a connected conn.
func NewDialedUDPSocket(conn *net.UDPConn) *DialedUDPSocket {
	return &DialedUDPSocket{conn: conn}
}

func (s *DialedUDPSocket) Send(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

func (s *DialedUDPSocket) Recv(buf []byte) (int, error) {
	if d := s.RecvTimeout(); d > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(d))
	} else {
		_ = s.conn.SetReadDeadline(time.Time{})
	}

	n, err := s.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, transport.ErrorRecvTimeout.Error(nil)
		}
		return n, err
	}
	return n, nil
}

func (s *DialedUDPSocket) SetRecvTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

func (s *DialedUDPSocket) RecvTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

func (s *DialedUDPSocket) Close() error {
	return s.conn.Close()
}

func (s *DialedUDPSocket) RemoteHost() string {
	if addr, ok := s.conn.RemoteAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return ""
}

func (s *DialedUDPSocket) RemotePort() int {
	if addr, ok := s.conn.RemoteAddr().(*net.UDPAddr); ok {
		return addr.Port
	}
	return 0
}

// PeerUDPSocket adapts a single remote peer seen on a shared, unconnected
// net.UDPConn (net.ListenUDP) to transport.EndpointSocket. Datagrams from
// that peer are pushed into inbox by the owning UDPListener's pump loop;
// Send always writes through the shared conn.
type PeerUDPSocket struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
	inbox  chan []byte

	mu      sync.Mutex
	timeout time.Duration
	closed  bool

	onClose func()
}

func newPeerUDPSocket(conn *net.UDPConn, remote *net.UDPAddr, onClose func()) *PeerUDPSocket {
	return &PeerUDPSocket{
		conn:    conn,
		remote:  remote,
		inbox:   make(chan []byte, 16),
		onClose: onClose,
	}
}

func (s *PeerUDPSocket) Send(b []byte) error {
	_, err := s.conn.WriteToUDP(b, s.remote)
	return err
}

func (s *PeerUDPSocket) Recv(buf []byte) (int, error) {
	d := s.RecvTimeout()
	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if d > 0 {
		timer = time.NewTimer(d)
		timeoutCh = timer.C
		defer timer.Stop()
	}

	select {
	case b, ok := <-s.inbox:
		if !ok {
			return 0, transport.ErrorSocketClosed.Error(nil)
		}
		n := copy(buf, b)
		return n, nil
	case <-timeoutCh:
		return 0, transport.ErrorRecvTimeout.Error(nil)
	}
}

func (s *PeerUDPSocket) SetRecvTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

func (s *PeerUDPSocket) RecvTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// Close marks the peer socket closed and notifies the owning listener to
// drop it from its demux table. It does not close the shared conn.
func (s *PeerUDPSocket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.inbox)
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

func (s *PeerUDPSocket) RemoteHost() string { return s.remote.IP.String() }
func (s *PeerUDPSocket) RemotePort() int    { return s.remote.Port }

func peerKey(addr *net.UDPAddr) string {
	return addr.IP.String() + ":" + strconv.Itoa(addr.Port)
}

// UDPListener demultiplexes datagrams received on a single shared
// net.UDPConn into one PeerUDPSocket per remote address, handing each
// newly-seen peer to onPeer so the caller can spin up its own engine.
type UDPListener struct {
	conn   *net.UDPConn
	onPeer func(*PeerUDPSocket)

	mu    sync.Mutex
	peers map[string]*PeerUDPSocket
}

// NewUDPListener binds conn for receiving and returns a listener that must
// be driven by calling Pump (typically in its own goroutine).
func NewUDPListener(conn *net.UDPConn, onPeer func(*PeerUDPSocket)) *UDPListener {
	return &UDPListener{
		conn:   conn,
		onPeer: onPeer,
		peers:  make(map[string]*PeerUDPSocket),
	}
}

// Pump reads datagrams from the shared conn until it is closed, routing
// each to the PeerUDPSocket for its source address (creating one via
// onPeer on first sight).
func (l *UDPListener) Pump() error {
	buf := make([]byte, 65535)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}

		cp := make([]byte, n)
		copy(cp, buf[:n])

		peer := l.peerFor(addr)
		select {
		case peer.inbox <- cp:
		default:
			// peer's engine is not draining fast enough; drop rather than
			// block the shared listener.
		}
	}
}

func (l *UDPListener) peerFor(addr *net.UDPAddr) *PeerUDPSocket {
	key := peerKey(addr)

	l.mu.Lock()
	peer, ok := l.peers[key]
	if !ok {
		peer = newPeerUDPSocket(l.conn, addr, func() {
			l.mu.Lock()
			delete(l.peers, key)
			l.mu.Unlock()
		})
		l.peers[key] = peer
	}
	l.mu.Unlock()

	if !ok && l.onPeer != nil {
		l.onPeer(peer)
	}
	return peer
}

// Close closes the shared conn, which unblocks Pump.
func (l *UDPListener) Close() error {
	return l.conn.Close()
}
