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

package commands

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nabbar/coap-engine/cmd/coap-demo/adapter"
	liberr "github.com/nabbar/coap-engine/errors"
	"github.com/nabbar/coap-engine/logger"
	"github.com/nabbar/coap-engine/message"
	"github.com/nabbar/coap-engine/option"
	"github.com/nabbar/coap-engine/tcp"
	"github.com/nabbar/coap-engine/udp"

	"github.com/spf13/cobra"
)

var (
	getTransport string
	getHost      string
	getPort      int
	getPath      string
	getTimeout   time.Duration
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Send a single GET request to a peer and print its response",
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringVar(&getTransport, "transport", "udp", "transport to use: udp or tcp")
	getCmd.Flags().StringVar(&getHost, "host", "127.0.0.1", "peer host")
	getCmd.Flags().IntVar(&getPort, "port", 5683, "peer port")
	getCmd.Flags().StringVar(&getPath, "path", "/", "request URI path")
	getCmd.Flags().DurationVar(&getTimeout, "timeout", 5*time.Second, "overall request timeout")
}

func uriPathOptions(path string) *option.List {
	l := option.NewList()
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		l.Insert(message.OptionUriPath, []byte(seg))
	}
	return l
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}
	log := logger.New(nil)
	log.SetLevel(parseLogLevel())

	req := message.Message{Code: message.CodeGet, Options: uriPathOptions(getPath)}

	switch strings.ToLower(getTransport) {
	case "udp":
		return getOverUDP(cfg.Model().UDP(), req, log)
	case "tcp":
		return getOverTCP(cfg.Model().TCP(), req, log)
	default:
		return ErrorRequest.Error(fmt.Errorf("unknown transport %q", getTransport))
	}
}

func getOverUDP(cfg udp.Config, req message.Message, log logger.Logger) error {
	raddr := &net.UDPAddr{IP: net.ParseIP(getHost), Port: getPort}
	conn, derr := net.DialUDP("udp", nil, raddr)
	if derr != nil {
		return ErrorDial.Error(derr)
	}
	defer conn.Close()

	sock := adapter.NewDialedUDPSocket(conn)
	sock.SetRecvTimeout(getTimeout)

	e := udp.NewEngine(sock, adapter.NewSystemClock(), adapter.NewTimerScheduler(), adapter.NewCryptoPRNG(), cfg, nil)
	defer e.Close()

	done := make(chan struct{})
	var resp message.Message
	var rerr liberr.Error

	_, serr := e.SendRequest(req, func(m message.Message, respErr liberr.Error) bool {
		resp, rerr = m, respErr
		close(done)
		return true
	})
	if serr != nil {
		return ErrorRequest.Error(serr)
	}

	deadline := time.Now().Add(getTimeout)
	for {
		if err := e.ReadOnce(); err != nil {
			log.WithError(err).Warn("read error while awaiting response")
		}
		select {
		case <-done:
			if rerr != nil {
				return ErrorRequest.Error(rerr)
			}
			printResponse(resp)
			return nil
		default:
		}
		if time.Now().After(deadline) {
			return ErrorRequest.Error(fmt.Errorf("timed out waiting for response"))
		}
	}
}

func getOverTCP(cfg tcp.Config, req message.Message, log logger.Logger) error {
	raddr := net.JoinHostPort(getHost, strconv.Itoa(getPort))
	conn, derr := net.DialTimeout("tcp", raddr, getTimeout)
	if derr != nil {
		return ErrorDial.Error(derr)
	}
	defer conn.Close()

	sock := adapter.NewTCPSocket(conn)
	sock.SetRecvTimeout(getTimeout)

	e := tcp.NewEngine(sock, adapter.NewSystemClock(), adapter.NewTimerScheduler(), adapter.NewCryptoPRNG(), cfg, nil)
	if err := e.Handshake(); err != nil {
		return ErrorDial.Error(err)
	}

	done := make(chan struct{})
	var resp message.Message
	var status tcp.ResponseStatus

	_, serr := e.SendRequest(req, func(m message.Message, st tcp.ResponseStatus) bool {
		resp, status = m, st
		if st != tcp.StatusPartial {
			close(done)
		}
		return true
	})
	if serr != nil {
		return ErrorRequest.Error(serr)
	}

	deadline := time.Now().Add(getTimeout)
	for {
		if err := e.ReadOnce(); err != nil {
			log.WithError(err).Warn("read error while awaiting response")
		}
		select {
		case <-done:
			if status == tcp.StatusTimeout {
				return ErrorRequest.Error(fmt.Errorf("request timed out"))
			}
			printResponse(resp)
			return nil
		default:
		}
		if time.Now().After(deadline) {
			return ErrorRequest.Error(fmt.Errorf("timed out waiting for response"))
		}
	}
}

func printResponse(m message.Message) {
	fmt.Printf("%s %s\n", m.Code.String(), string(m.Payload))
}
