// Package report aggregates finished transactions into sorted
// latency sequences and renders the final text report.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/ydb-platform/benchhelpers/track"
)

// Percentiles reported for every latency sequence.
var Percentiles = []float64{0.5, 0.9, 0.95, 0.99}

// Default number of slowest transactions printed in the ranked list.
const DefaultTopTransactions = 50

// Transaction is the slice of a finished transaction the report
// needs. *track.State implements it.
type Transaction interface {
	TransactionID() string
	TotalUs() uint64
	ClientUs() uint64
	ServerUs() uint64
	RequestLatencies() []uint64
}

// Summary is the aggregate over all committed transactions of one
// capture. Finished is sorted by total time ascending; the latency
// sequences are each sorted independently.
type Summary struct {
	Counters track.Counters

	Finished []Transaction

	Totals  []uint64
	Clients []uint64
	Servers []uint64
	Queries []uint64
}

// Build sorts the finished transactions and derives the latency
// sequences the percentiles are computed over.
func Build(finished []Transaction, counters track.Counters) *Summary {
	s := &Summary{
		Counters: counters,
		Finished: slices.Clone(finished),
	}

	sort.Slice(s.Finished, func(i, j int) bool {
		return s.Finished[i].TotalUs() < s.Finished[j].TotalUs()
	})

	s.Totals = make([]uint64, 0, len(s.Finished))
	s.Clients = make([]uint64, 0, len(s.Finished))
	s.Servers = make([]uint64, 0, len(s.Finished))
	for _, tx := range s.Finished {
		s.Totals = append(s.Totals, tx.TotalUs())
		s.Clients = append(s.Clients, tx.ClientUs())
		s.Servers = append(s.Servers, tx.ServerUs())
		s.Queries = append(s.Queries, tx.RequestLatencies()...)
	}

	slices.Sort(s.Clients)
	slices.Sort(s.Servers)
	slices.Sort(s.Queries)

	return s
}

// Percentile picks the p-th percentile of a sorted sequence by
// index floor(p*N). Deterministic: no interpolation.
func Percentile(sorted []uint64, p float64) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// MsString renders microseconds as milliseconds with one decimal
// place, e.g. "12.3 ms".
func MsString(us uint64) string {
	return msString(us, false)
}

func msString(us uint64, skipUnit bool) string {
	s := fmt.Sprintf("%d.%d", us/1000, (us%1000)/100)
	if !skipUnit {
		s += " ms"
	}
	return s
}

// TransactionString renders one transaction the way the ranked list
// prints it.
func TransactionString(tx Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transaction %s took %s (client and net: %s, server: %s), with %d requests:",
		tx.TransactionID(), MsString(tx.TotalUs()), MsString(tx.ClientUs()),
		MsString(tx.ServerUs()), len(tx.RequestLatencies()))
	for i, latency := range tx.RequestLatencies() {
		fmt.Fprintf(&b, " r%d: %s", i+1, msString(latency, true))
	}
	return b.String()
}

// Render writes the counters, the percentile blocks and the ranked
// transaction list. topN < 0 prints every transaction.
func (s *Summary) Render(w io.Writer, topN int) {
	if len(s.Finished) == 0 {
		fmt.Fprintln(w, "No transactions finished")
		return
	}

	c := s.Counters
	fmt.Fprintf(w, "Processed %d requests and responses, skipped %d\n", c.Processed, c.Skipped)
	fmt.Fprintf(w, "Total transactions aborted: %d\n", c.Aborted)
	fmt.Fprintf(w, "Total transaction id mismatch: %d\n", c.TxIDMismatch)
	fmt.Fprintf(w, "Total request-response mismatch: %d\n", c.RequestResponseMismatch)
	fmt.Fprintf(w, "Total transactions committed: %d\n", len(s.Finished))
	if c.NegativeIntervals > 0 {
		fmt.Fprintf(w, "Total negative intervals clamped: %d\n", c.NegativeIntervals)
	}

	s.renderPercentiles(w, "Total time percentiles:", s.Totals)
	s.renderPercentiles(w, "Client time percentiles:", s.Clients)
	s.renderPercentiles(w, "Server time percentiles:", s.Servers)
	s.renderPercentiles(w, "Server time query percentiles:", s.Queries)

	if topN < 0 {
		topN = len(s.Finished)
		fmt.Fprintln(w, "Transactions by latency:")
	} else {
		fmt.Fprintf(w, "Top %d transactions by latency:\n", topN)
		if topN > len(s.Finished) {
			topN = len(s.Finished)
		}
	}
	for i := 0; i < topN; i++ {
		fmt.Fprintln(w, TransactionString(s.Finished[len(s.Finished)-1-i]))
	}
}

func (s *Summary) renderPercentiles(w io.Writer, title string, sorted []uint64) {
	fmt.Fprintln(w, title)
	for _, p := range Percentiles {
		fmt.Fprintf(w, "%d%%: %s\n", int(p*100), MsString(Percentile(sorted, p)))
	}
}
