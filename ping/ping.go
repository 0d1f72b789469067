package ping

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/ydb-platform/ydb-go-genproto/Ydb_Debug_V1"
	"github.com/ydb-platform/ydb-go-genproto/protos/Ydb_Debug"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ydb-platform/benchhelpers/debuglog"
)

// Mode selects how each worker issues its pings.
type Mode string

const (
	// one unary call per ping
	ModePlain Mode = "plain"
	// one long-lived bidirectional stream per worker
	ModeStream Mode = "stream"
)

const callTimeout = time.Second

type Config struct {
	// host:port of the debug service
	Endpoint string
	// concurrent workers, each with its own connection
	Workers int
	// measured pings per worker
	Requests int
	// unmeasured pings per worker before the run
	Warmup int
	Mode    Mode
}

// Result collects the measured round trips of one run. Latencies is
// unsorted; Errors counts calls that failed and were not measured.
type Result struct {
	Latencies []uint64
	Errors    uint64
}

// Run hammers the endpoint with cfg.Workers concurrent workers and
// collects per-call round-trip times in microseconds. It returns an
// error only when no worker managed to connect; individual call
// failures are counted and the run keeps going.
func Run(ctx context.Context, cfg Config, lg *debuglog.Logger) (*Result, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Mode == "" {
		cfg.Mode = ModePlain
	}

	var (
		mu     sync.Mutex
		result Result
		errs   []error
	)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			latencies, callErrors, err := runWorker(ctx, cfg, worker, lg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			result.Latencies = append(result.Latencies, latencies...)
			result.Errors += callErrors
		}(i)
	}
	wg.Wait()

	if len(errs) == cfg.Workers {
		return nil, errs[0]
	}
	for _, err := range errs {
		lg.Warnf("worker failed: %v", err)
	}
	return &result, nil
}

func runWorker(ctx context.Context, cfg Config, worker int, lg *debuglog.Logger) (latencies []uint64, callErrors uint64, err error) {
	conn, err := grpc.NewClient(cfg.Endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, 0, errors.Wrapf(err, "worker %d: connect to %s", worker, cfg.Endpoint)
	}
	defer conn.Close()

	client := Ydb_Debug_V1.NewDebugServiceClient(conn)

	var ping func() error
	switch cfg.Mode {
	case ModePlain:
		ping = func() error {
			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()
			_, err := client.PingPlainGrpc(callCtx, &Ydb_Debug.PlainGrpcRequest{})
			return err
		}

	case ModeStream:
		stream, err := client.PingStream(ctx)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "worker %d: open stream", worker)
		}
		defer stream.CloseSend()
		ping = func() error {
			if err := stream.Send(&Ydb_Debug.PlainGrpcRequest{}); err != nil {
				return err
			}
			_, err := stream.Recv()
			return err
		}

	default:
		return nil, 0, errors.Errorf("unknown mode %q", cfg.Mode)
	}

	for i := 0; i < cfg.Warmup; i++ {
		if ctx.Err() != nil {
			return latencies, callErrors, nil
		}
		if err := ping(); err != nil {
			callErrors++
		}
	}

	latencies = make([]uint64, 0, cfg.Requests)
	for i := 0; i < cfg.Requests; i++ {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		if err := ping(); err != nil {
			callErrors++
			lg.Debugf("worker %d: ping %d failed: %v", worker, i, err)
			continue
		}
		latencies = append(latencies, uint64(time.Since(start).Microseconds()))
	}

	return latencies, callErrors, nil
}
