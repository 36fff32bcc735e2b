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
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nabbar/coap-engine/cmd/coap-demo/adapter"
	liberr "github.com/nabbar/coap-engine/errors"
	"github.com/nabbar/coap-engine/logger"
	"github.com/nabbar/coap-engine/message"
	"github.com/nabbar/coap-engine/metrics"
	"github.com/nabbar/coap-engine/runner/startStop"
	"github.com/nabbar/coap-engine/runner/ticker"
	"github.com/nabbar/coap-engine/tcp"
	"github.com/nabbar/coap-engine/udp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	serveTransport  string
	serveAddr       string
	serveMetricAddr string
	servePingEvery  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a CoAP server over UDP or TCP until interrupted",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "udp", "transport to bind: udp or tcp")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":5683", "address to listen on")
	serveCmd.Flags().StringVar(&serveMetricAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	serveCmd.Flags().DurationVar(&servePingEvery, "tcp-ping-interval", 30*time.Second, "TCP keepalive Ping interval")
}

// greetingResponder answers every inbound request with a fixed 2.05
// Content payload, for a CLI demo with nothing behind it to serve.
func greetingResponder(req message.Message) (message.Message, bool) {
	return message.Message{Code: message.CodeContent, Payload: []byte("hello from coap-demo")}, true
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	log := logger.New(nil)
	log.SetLevel(parseLogLevel())

	met := metrics.New()
	reg := prometheus.NewRegistry()
	if regErr := met.Register(reg); regErr != nil {
		return ErrorConfig.Error(regErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metricsSrv *http.Server
	if serveMetricAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: serveMetricAddr, Handler: mux}
		go func() {
			if lerr := metricsSrv.ListenAndServe(); lerr != nil && lerr != http.ErrServerClosed {
				log.WithError(lerr).Error("metrics server stopped unexpectedly")
			}
		}()
		log.Info(fmt.Sprintf("metrics listening on %s", serveMetricAddr))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	switch strings.ToLower(serveTransport) {
	case "udp":
		runErr = serveUDP(ctx, cfg.Model().UDP(), met, log)
	case "tcp":
		runErr = serveTCP(ctx, cfg.Model().TCP(), met, log)
	default:
		return ErrorListen.Error(fmt.Errorf("unknown transport %q", serveTransport))
	}
	if runErr != nil {
		return runErr
	}

	log.Info(fmt.Sprintf("%s server listening on %s", serveTransport, serveAddr))
	<-sig
	log.Info("shutdown signal received")
	cancel()

	if metricsSrv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = metricsSrv.Shutdown(sctx)
	}

	return nil
}

func serveUDP(ctx context.Context, cfg udp.Config, met *metrics.Metrics, log logger.Logger) error {
	addr, rerr := net.ResolveUDPAddr("udp", serveAddr)
	if rerr != nil {
		return ErrorListen.Error(rerr)
	}
	conn, lerr := net.ListenUDP("udp", addr)
	if lerr != nil {
		return ErrorListen.Error(lerr)
	}

	var mu sync.Mutex
	var runners []startStop.StartStop

	listener := adapter.NewUDPListener(conn, func(peer *adapter.PeerUDPSocket) {
		peer.SetRecvTimeout(time.Second)

		e := udp.NewEngine(peer, adapter.NewSystemClock(), adapter.NewTimerScheduler(), adapter.NewCryptoPRNG(), cfg, greetingResponder)
		e.SetMetrics(met)
		e.SetLogger(log.WithRemote(peer.RemoteHost()))

		sstop := startStop.New(
			func(sctx context.Context) error {
				for sctx.Err() == nil {
					if err := e.ReadOnce(); err != nil {
						log.WithError(err).Warn("udp read error")
					}
				}
				return nil
			},
			func(context.Context) error {
				e.Close()
				return nil
			},
		)

		mu.Lock()
		runners = append(runners, sstop)
		mu.Unlock()

		_ = sstop.Start(ctx)
	})

	go func() {
		if perr := listener.Pump(); perr != nil {
			log.Debug(fmt.Sprintf("udp listener pump stopped: %v", perr))
		}
	}()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, r := range runners {
			_ = r.Stop(context.Background())
		}
	}()

	return nil
}

func serveTCP(ctx context.Context, cfg tcp.Config, met *metrics.Metrics, log logger.Logger) error {
	ln, lerr := net.Listen("tcp", serveAddr)
	if lerr != nil {
		return ErrorListen.Error(lerr)
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	go func() {
		for {
			conn, aerr := ln.Accept()
			if aerr != nil {
				if ctx.Err() != nil {
					return
				}
				log.WithError(aerr).Warn("tcp accept error")
				continue
			}
			go handleTCPConn(ctx, conn, cfg, met, log)
		}
	}()

	return nil
}

func handleTCPConn(ctx context.Context, conn net.Conn, cfg tcp.Config, met *metrics.Metrics, log logger.Logger) {
	remote := conn.RemoteAddr().String()
	connLog := log.WithRemote(remote)

	sock := adapter.NewTCPSocket(conn)
	sock.SetRecvTimeout(time.Second)

	e := tcp.NewEngine(sock, adapter.NewSystemClock(), adapter.NewTimerScheduler(), adapter.NewCryptoPRNG(), cfg, greetingResponder)
	e.SetMetrics(met)
	e.SetLogger(connLog)

	if err := e.Handshake(); err != nil {
		connLog.WithError(err).Warn("tcp handshake failed")
		_ = conn.Close()
		return
	}

	sstop := startStop.New(
		func(sctx context.Context) error {
			for sctx.Err() == nil {
				if err := e.ReadOnce(); err != nil {
					connLog.WithError(err).Warn("tcp read error")
				}
			}
			return nil
		},
		func(context.Context) error {
			return sock.Close()
		},
	)

	pinger := ticker.New(servePingEvery, func(tctx context.Context, t *time.Ticker) error {
		return e.Ping(nil)
	})

	e.OnClose = func(liberr.Error) {
		go func() {
			_ = pinger.Stop(context.Background())
			_ = sstop.Stop(context.Background())
		}()
	}

	_ = pinger.Start(ctx)
	_ = sstop.Start(ctx)
}
