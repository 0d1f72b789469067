// tcpdump-parse reconstructs YDB transactions from a capture of
// TPC-C benchmark traffic and reports where their latency went:
// the server, or the client and the network in between.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/ydb-platform/benchhelpers/debuglog"
	"github.com/ydb-platform/benchhelpers/pcap"
	"github.com/ydb-platform/benchhelpers/report"
)

var logger = log.New(os.Stderr, "[tcpdump-parse] - ", log.LstdFlags)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <file>\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Options:")
	pflag.PrintDefaults()
}

func main() {
	var (
		number   = pflag.IntP("number", "n", 0, "number of frames to parse, 0 means all")
		skip     = pflag.Int("skip", 0, "number of first frames to skip")
		printAll = pflag.Bool("print-all-transactions", false, "do not truncate the ranked transaction list")
		allTypes = pflag.Bool("all-types", false, "track all transaction types, not just TPC-C NewOrder")
		debug    = pflag.Bool("debug", false, "print transaction state transitions")
		trace    = pflag.Bool("trace", false, "print per-frame decoding details")
		help     = pflag.BoolP("help", "h", false, "display this help message")
	)
	pflag.Usage = usage
	pflag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}

	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "expected exactly one capture file")
		usage()
		os.Exit(2)
	}

	opts := []pcap.Option{
		pcap.WithFile(pflag.Arg(0)),
		pcap.WithSkipFrames(*skip),
		pcap.WithMaxFrames(*number),
	}
	if *allTypes {
		opts = append(opts, pcap.WithAllTypes())
	}
	switch {
	case *trace:
		opts = append(opts, pcap.WithVerbosity(debuglog.Trace))
	case *debug:
		opts = append(opts, pcap.WithVerbosity(debuglog.Debug))
	}

	analyzer := pcap.NewAnalyzer(opts...)
	summary, err := analyzer.Run()
	if err != nil {
		logger.Printf("error: %v", err)
		os.Exit(1)
	}

	topN := report.DefaultTopTransactions
	if *printAll {
		topN = -1
	}
	summary.Render(os.Stdout, topN)
}
