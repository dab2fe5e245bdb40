/*
NAME
  main.go - tsinspect: live MPEG-TS transport stream inspector.

DESCRIPTION
  See Readme.md

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command tsinspect binds a UDP socket carrying a raw or RTP-wrapped
// MPEG-TS stream, demultiplexes it, tracks ETSI TR 101 290-style
// compliance counters, and emits a structured JSON report once per
// refresh period.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ausocean/tsinspect/internal/engine"
)

// Exit codes, per §6.
const (
	exitOK       = 0
	exitBindFail = 2
	exitBadArg   = 3
)

// rtpHeaderLen is the length of a minimal RTP header, used by the
// stripping heuristic in §6: if the first byte of a datagram is not
// the TS sync byte but the byte 12 positions later is, the datagram is
// assumed to carry a bare RTP header with no extension or CSRC list.
const rtpHeaderLen = 12

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "239.1.1.2:1234", "UDP address to bind (multicast joined automatically if in 224.0.0.0/4)")
	refresh := flag.Int("refresh", 2, "report period, in seconds")
	noAnalysis := flag.Bool("no-analysis", false, "force mode Mux (demux only, no TR 101 290 counters)")
	priority := flag.String("tr101-priority", "12", "TR 101 290 priority filter: 1, 12, or all")
	logPath := flag.String("log", "tsinspect.log", "log file path")
	logToStderr := flag.Bool("log-stderr", true, "also echo log lines to stderr")
	metricsAddr := flag.String("metrics-addr", "", "optional address to serve Prometheus metrics on (disabled if empty)")
	flag.Parse()

	mode, err := resolveMode(*noAnalysis, *priority)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitBadArg
	}
	if _, err := net.ResolveUDPAddr("udp", *addr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitBadArg
	}

	runID := uuid.New().String()
	logger := newFileLogger(*logPath, runID, engine.Info, *logToStderr)
	logger.Info("starting", "run_id", runID, "addr", *addr, "mode", mode)

	conn, err := bindSocket(*addr)
	if err != nil {
		logger.Error("bind failed", "err", err)
		return exitBindFail
	}
	defer conn.Close()

	ingress := make(chan []byte, 256)
	eng, err := engine.New(ingress, engine.Options{
		ReportPeriod: time.Duration(*refresh) * time.Second,
		Mode:         mode,
		OnReport:     emitReport,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("engine construction failed", "err", err)
		return exitBadArg
	}

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, eng, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go readLoop(ctx, conn, ingress, eng, logger)

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("engine run loop exited", "err", err)
	}
	logger.Info("shutting down")
	return exitOK
}

func resolveMode(noAnalysis bool, priority string) (engine.Mode, error) {
	if noAnalysis {
		return engine.Mux, nil
	}
	switch priority {
	case "1":
		return engine.Tr101Priority1, nil
	case "12":
		return engine.Tr101Priority12, nil
	case "all":
		return engine.Tr101, nil
	default:
		return 0, fmt.Errorf("invalid --tr101-priority %q: want 1, 12, or all", priority)
	}
}

// bindSocket opens a UDP listener on addr, joining the multicast group
// automatically when the IP falls in 224.0.0.0/4, per §6.
func bindSocket(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	if udpAddr.IP != nil && udpAddr.IP.IsMulticast() {
		return net.ListenMulticastUDP("udp", nil, udpAddr)
	}
	return net.ListenUDP("udp", udpAddr)
}

// readLoop reads datagrams from conn, strips a bare RTP header when the
// §6 heuristic detects one, and forwards the TS payload to ingress. A
// send that would block the socket reader is dropped and reported to
// the engine as a lag, per §5's backpressure rule: the engine never
// blocks on I/O, so this is the layer responsible for not blocking
// either.
func readLoop(ctx context.Context, conn *net.UDPConn, ingress chan<- []byte, eng *engine.Engine, logger engine.Logger) {
	defer close(ingress)
	buf := make([]byte, 64*1024)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			logger.Warning("set read deadline failed", "err", err)
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			logger.Warning("read error", "err", err)
			continue
		}
		d := stripRTP(buf[:n])
		if len(d) == 0 {
			continue
		}
		cp := append([]byte(nil), d...)
		select {
		case ingress <- cp:
		default:
			eng.RecordIngressDrop(1)
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// stripRTP implements §6's RTP-header-stripping heuristic.
func stripRTP(d []byte) []byte {
	const syncByte = 0x47
	if len(d) > rtpHeaderLen && d[0] != syncByte && d[rtpHeaderLen] == syncByte {
		return d[rtpHeaderLen:]
	}
	return d
}

func emitReport(rep engine.Report) {
	_ = json.NewEncoder(os.Stdout).Encode(rep)
}

// serveMetrics exposes the engine's TR 101 290 counters as Prometheus
// gauges, refreshed on each scrape via a prometheus.GaugeFunc per
// indicator name, so there is no separate counter-mirroring goroutine
// to keep in sync with internal/tr101290.
func serveMetrics(addr string, eng *engine.Engine, logger engine.Logger) {
	reg := prometheus.NewRegistry()
	for _, name := range tr101290Names() {
		name := name
		reg.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "tsinspect",
				Subsystem: "tr101290",
				Name:      name,
				Help:      "TR 101 290-style compliance counter " + name,
			},
			func() float64 { return float64(snapshotValue(eng, name)) },
		))
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics endpoint stopped", "err", err)
	}
}

// snapshotValue asks the engine for an up-to-date status report and
// reads one counter out of it, so the Prometheus gauges and the JSON
// report always reflect the same underlying Counters.
func snapshotValue(eng *engine.Engine, name string) uint64 {
	reply := make(chan engine.Report, 1)
	eng.Control() <- engine.GetStatusCommand(reply)
	select {
	case rep := <-reply:
		return rep.TR101[name]
	case <-time.After(time.Second):
		return 0
	}
}

func tr101290Names() []string {
	return []string{
		"sync_byte_errors",
		"transport_error_indicator",
		"continuity_counter_errors",
		"pat_crc_errors",
		"pat_timeout_errors",
		"pmt_crc_errors",
		"pmt_timeout_errors",
		"cat_crc_errors",
		"cat_timeout_errors",
		"nit_crc_errors",
		"sdt_crc_errors",
		"eit_crc_errors",
		"pcr_repetition_errors",
		"pcr_accuracy_errors",
		"null_packet_rate_errors",
		"service_id_mismatch",
		"ingress_drop_errors",
	}
}

