// grpc-ping measures raw gRPC round-trip latency against
// grpc-ping-server (or a YDB server exposing the debug service).
// It exists to answer one question about the capture analyzer's
// numbers: how much of the client-side time is just the transport.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/exp/slices"

	"github.com/ydb-platform/benchhelpers/debuglog"
	"github.com/ydb-platform/benchhelpers/ping"
	"github.com/ydb-platform/benchhelpers/report"
)

var logger = log.New(os.Stderr, "[grpc-ping] - ", log.LstdFlags)

func main() {
	var (
		endpoint = pflag.StringP("endpoint", "e", "", "host:port of the ping server")
		workers  = pflag.IntP("workers", "w", 1, "concurrent workers, one connection each")
		requests = pflag.IntP("count", "c", 1000, "measured pings per worker")
		warmup   = pflag.Int("warmup", 100, "unmeasured pings per worker before the run")
		stream   = pflag.Bool("stream", false, "ping over one bidirectional stream per worker")
		debug    = pflag.Bool("debug", false, "print per-call failures")
	)
	pflag.Parse()

	if *endpoint == "" {
		fmt.Fprintln(os.Stderr, "missing required --endpoint")
		pflag.Usage()
		os.Exit(2)
	}

	level := debuglog.None
	if *debug {
		level = debuglog.Debug
	}
	lg := debuglog.New(os.Stderr, level)

	cfg := ping.Config{
		Endpoint: *endpoint,
		Workers:  *workers,
		Requests: *requests,
		Warmup:   *warmup,
		Mode:     ping.ModePlain,
	}
	if *stream {
		cfg.Mode = ping.ModeStream
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	runID := uuid.New()
	logger.Printf("run %s: %d workers x %d pings (%s) against %s",
		runID, cfg.Workers, cfg.Requests, cfg.Mode, cfg.Endpoint)

	result, err := ping.Run(ctx, cfg, lg)
	if err != nil {
		logger.Fatalf("run %s: %v", runID, err)
	}

	if len(result.Latencies) == 0 {
		logger.Fatalf("run %s: no pings succeeded (%d errors)", runID, result.Errors)
	}

	latencies := result.Latencies
	slices.Sort(latencies)

	fmt.Printf("Pings: %d, errors: %d\n", len(latencies), result.Errors)
	fmt.Printf("Min: %s\n", report.MsString(latencies[0]))
	for _, p := range report.Percentiles {
		fmt.Printf("%d%%: %s\n", int(p*100), report.MsString(report.Percentile(latencies, p)))
	}
	fmt.Printf("Max: %s\n", report.MsString(latencies[len(latencies)-1]))
}
