// Package pcap drives the offline capture analysis: it owns the
// capture reader and runs every frame through the decoding pipeline
// into the transaction tracker.
package pcap

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ydb-platform/benchhelpers/debuglog"
	"github.com/ydb-platform/benchhelpers/gnet"
	"github.com/ydb-platform/benchhelpers/report"
	"github.com/ydb-platform/benchhelpers/track"
	"github.com/ydb-platform/benchhelpers/ydb"
)

// Analyzer reconstructs database transactions from a capture of the
// gRPC traffic between a benchmark client and YDB, and reports
// their client-side vs. server-side latency breakdown.
//
// Processing is strictly sequential in capture order; the tracker's
// state transitions are totally ordered by capture timestamp and
// nothing here needs synchronization.
type Analyzer struct {
	opts    Options
	lg      *debuglog.Logger
	tracker *track.Tracker

	// frames decoded so far, not counting skipped ones
	decoded uint64

	// HTTP/2 frames split across TCP segments (not reassembled)
	truncatedPayloads uint64
	// gRPC messages with a non-zero compression flag
	compressedMessages uint64
}

func NewAnalyzer(opt ...Option) *Analyzer {
	opts := NewOptions()
	for _, o := range opt {
		o(&opts)
	}

	lg := debuglog.New(os.Stderr, opts.Verbosity)

	var filter track.Filter
	if !opts.AllTypes {
		filter = ydb.NewOrderFilter
	}

	return &Analyzer{
		opts:    opts,
		lg:      lg,
		tracker: track.NewTracker(filter, lg),
	}
}

// Run consumes the capture and returns the aggregated results.
// A reader error mid-stream stops the run and yields the results
// collected so far; decode and invariant errors are fatal.
func (a *Analyzer) Run() (*report.Summary, error) {
	reader, err := OpenFile(a.opts.File, a.opts.SkipFrames)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	for a.opts.MaxFrames <= 0 || a.decoded < uint64(a.opts.MaxFrames) {
		frame, ts, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			a.lg.Warnf("capture read failed, keeping partial results: %v", err)
			break
		}

		if err := a.handleFrame(frame, ts); err != nil {
			return nil, err
		}
	}

	if a.truncatedPayloads > 0 {
		a.lg.Warnf("%d TCP payloads ended inside an HTTP/2 frame", a.truncatedPayloads)
	}
	if a.compressedMessages > 0 {
		a.lg.Warnf("%d compressed gRPC messages skipped", a.compressedMessages)
	}

	finished := a.tracker.Finished()
	txs := make([]report.Transaction, len(finished))
	for i, tx := range finished {
		txs[i] = tx
	}
	return report.Build(txs, a.tracker.Counters()), nil
}

func (a *Analyzer) handleFrame(frame []byte, tsMicros uint64) error {
	a.decoded++

	info := gnet.FrameInfo{
		FrameNumber: uint64(a.opts.SkipFrames) + a.decoded,
		TsMicros:    tsMicros,
	}

	payload, err := gnet.DecodeFrame(frame, &info)
	if errors.Is(err, gnet.ErrNotIP) {
		a.lg.Tracef("frame %d is not an IP frame", info.FrameNumber)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "frame %d", info.FrameNumber)
	}

	a.lg.Tracef("frame %d from %s to %s with %d payload bytes",
		info.FrameNumber, info.Source, info.Destination, len(payload))

	if len(payload) == 0 {
		return nil
	}

	dataFrames, headers, truncated := gnet.DataFrames(payload)
	if truncated {
		a.truncatedPayloads++
		a.lg.Debugf("frame %d ends inside an HTTP/2 frame", info.FrameNumber)
	}
	if headers > 0 {
		a.lg.Tracef("frame %d carries %d HTTP/2 HEADERS frames", info.FrameNumber, headers)
	}

	for _, dataFrame := range dataFrames {
		info.StreamID = dataFrame.StreamID
		a.lg.Tracef("frame %d HTTP/2 data on stream %d, %d bytes",
			info.FrameNumber, dataFrame.StreamID, len(dataFrame.Payload))

		msgs, compressed := gnet.Messages(dataFrame.Payload)
		a.compressedMessages += uint64(compressed)

		for _, msg := range msgs {
			if err := ydb.Classify(msg, &info, a.tracker); err != nil {
				return errors.Wrapf(err, "frame %d", info.FrameNumber)
			}
		}
	}

	return nil
}
