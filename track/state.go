package track

import (
	"github.com/pkg/errors"

	"github.com/ydb-platform/benchhelpers/gnet"
)

// A TPC-C NewOrder transaction runs 10 data queries plus the
// commit; used as the capacity hint for the latency slice.
const newOrderRequestCount = 11

// State is the lifetime of one client transaction: a sequence of
// request/response pairs within a single YDB session, opened by an
// execute-data-query request carrying begin_tx and closed by a
// commit.
//
// Requests carry the session id but responses do not; a response is
// paired with its request through the HTTP/2 stream key instead. The
// opening request also has no transaction id yet: that becomes known
// from the first subsequent request, which for a single-query
// transaction is the commit.
type State struct {
	sessionID string
	txID      string

	startTs uint64
	endTs   uint64

	serverUs uint64

	// set iff a request is outstanding
	curStream gnet.StreamKey
	curStart  uint64

	committing bool

	// first entry opens the transaction, last is the commit
	latencies []uint64
}

func newState(key gnet.StreamKey, sessionID string, ts uint64) *State {
	s := &State{
		sessionID: sessionID,
		startTs:   ts,
		latencies: make([]uint64, 0, newOrderRequestCount),
	}
	// the opening execute-data-query request is itself the first
	// outstanding request
	s.curStream = key
	s.curStart = ts
	return s
}

func (s *State) SessionID() string {
	return s.sessionID
}

func (s *State) TransactionID() string {
	return s.txID
}

// setTransactionID records the id learned from a follow-up request.
// Once set it never changes.
func (s *State) setTransactionID(txID string) error {
	if s.txID != "" && s.txID != txID {
		return errors.Errorf("transaction id already set to %q, new id %q", s.txID, txID)
	}
	s.txID = txID
	return nil
}

func (s *State) RequestInProgress() bool {
	return !s.curStream.IsZero()
}

func (s *State) CurrentStream() gnet.StreamKey {
	return s.curStream
}

func (s *State) IsCommitting() bool {
	return s.committing
}

func (s *State) startRequest(key gnet.StreamKey, sessionID string, ts uint64) error {
	if s.sessionID != sessionID {
		return errors.Errorf("session id mismatch: %q vs. %q", s.sessionID, sessionID)
	}
	if !s.curStream.IsZero() {
		return errors.Errorf("request already outstanding for %s, can't start one for %s", s.curStream, key)
	}

	s.curStream = key
	s.curStart = ts
	return nil
}

func (s *State) startCommit(key gnet.StreamKey, sessionID string, ts uint64) error {
	// the commit is an ordinary request/response pair matched by
	// stream key
	if err := s.startRequest(key, sessionID, ts); err != nil {
		return err
	}
	s.committing = true
	return nil
}

// finishRequest closes the outstanding request at ts and records its
// latency. Timestamps come from the capturing kernel and are not
// cross-checked against anything, so an interval that comes out
// negative is clamped to zero rather than trusted; clamped reports
// that.
func (s *State) finishRequest(key gnet.StreamKey, ts uint64) (latency uint64, clamped bool, err error) {
	if s.curStream.IsZero() || s.curStream != key {
		return 0, false, errors.Errorf("finishing request for %s while current is %s", key, s.curStream)
	}

	if ts >= s.curStart {
		latency = ts - s.curStart
	} else {
		clamped = true
	}
	s.latencies = append(s.latencies, latency)

	s.curStream = gnet.StreamKey{}
	s.curStart = 0
	return latency, clamped, nil
}

// finishTransaction closes the commit request and seals the state.
func (s *State) finishTransaction(key gnet.StreamKey, ts uint64) (clamped bool, err error) {
	if _, clamped, err = s.finishRequest(key, ts); err != nil {
		return clamped, err
	}

	s.endTs = ts
	for _, latency := range s.latencies {
		s.serverUs += latency
	}
	return clamped, nil
}

// TotalUs is the wall time between the opening request and the
// commit response.
func (s *State) TotalUs() uint64 {
	if s.endTs < s.startTs {
		return 0
	}
	return s.endTs - s.startTs
}

// ServerUs is the time spent waiting for the server across all
// request/response pairs.
func (s *State) ServerUs() uint64 {
	return s.serverUs
}

// ClientUs is the remainder: client think time plus the network.
func (s *State) ClientUs() uint64 {
	total := s.TotalUs()
	if s.serverUs > total {
		return 0
	}
	return total - s.serverUs
}

func (s *State) RequestLatencies() []uint64 {
	return s.latencies
}
