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
	"io"
	"net"
	"sync"
	"time"

	"github.com/nabbar/coap-engine/transport"
)

// TCPSocket adapts a net.Conn (net.TCPConn, dialed or accepted) to
// transport.Socket, translating the configured receive timeout into a
// per-Recv read deadline.
type TCPSocket struct {
	conn net.Conn

	mu      sync.Mutex
	timeout time.Duration
}

// NewTCPSocket wraps conn.
func NewTCPSocket(conn net.Conn) *TCPSocket {
	return &TCPSocket{conn: conn}
}

// Send implements transport.Socket.
func (s *TCPSocket) Send(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

// Recv implements transport.Socket. A read deadline timeout surfaces as
// transport.ErrorRecvTimeout so the engine treats it the same as an idle
// poll.
func (s *TCPSocket) Recv(buf []byte) (int, error) {
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
		if err == io.EOF {
			return n, transport.ErrorSocketClosed.Error(err)
		}
		return n, err
	}
	return n, nil
}

// SetRecvTimeout implements transport.Socket.
func (s *TCPSocket) SetRecvTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

// RecvTimeout implements transport.Socket.
func (s *TCPSocket) RecvTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// Close implements transport.Socket.
func (s *TCPSocket) Close() error {
	return s.conn.Close()
}
