package track

import (
	"github.com/pkg/errors"
	"github.com/ydb-platform/ydb-go-genproto/protos/Ydb_Table"

	"github.com/ydb-platform/benchhelpers/debuglog"
	"github.com/ydb-platform/benchhelpers/gnet"
)

// Counters accumulates everything the tracker observed besides the
// finished transactions themselves. Protocol anomalies never stop
// the run; they end up here.
type Counters struct {
	// requests and responses attributed to a tracked transaction
	Processed uint64
	// messages that were valid but not tracked: filtered out,
	// non-transactional, started before the capture, or orphaned
	Skipped uint64
	// transactions superseded by a new begin_tx on the same session
	Aborted uint64
	// transactions dropped because a request carried a different
	// transaction id than previously recorded
	TxIDMismatch uint64
	// stream collisions and requests that arrived while another
	// request was still outstanding
	RequestResponseMismatch uint64
	// response timestamps earlier than their request, clamped to 0
	NegativeIntervals uint64
}

// Filter decides whether a begin_tx request opens a transaction
// worth tracking. A nil Filter tracks everything.
type Filter func(*Ydb_Table.ExecuteDataQueryRequest) bool

// Tracker pairs requests with responses and groups them into
// transactions. It owns two indices: active maps a session id to its
// transaction state (exclusive ownership), byStream maps the stream
// key of the outstanding request to the same state (non-owning).
// Evictions always purge both.
type Tracker struct {
	filter Filter
	lg     *debuglog.Logger

	active   map[string]*State
	byStream map[gnet.StreamKey]*State

	finished []*State

	counters Counters
}

func NewTracker(filter Filter, lg *debuglog.Logger) *Tracker {
	return &Tracker{
		filter:   filter,
		lg:       lg,
		active:   make(map[string]*State),
		byStream: make(map[gnet.StreamKey]*State),
	}
}

// HandleDataQueryRequest routes an execute-data-query request. A
// begin_tx selector opens a transaction, a tx_id selector continues
// one, anything else is skipped. The returned error is a protocol
// invariant violation and fatal for the run.
func (t *Tracker) HandleDataQueryRequest(req *Ydb_Table.ExecuteDataQueryRequest, frame *gnet.FrameInfo) error {
	key := frame.SourceKey()

	txControl := req.GetTxControl()
	if txControl == nil {
		t.counters.Skipped++
		return nil
	}

	switch sel := txControl.GetTxSelector().(type) {
	case *Ydb_Table.TransactionControl_BeginTx:
		if t.filter != nil && !t.filter(req) {
			t.counters.Skipped++
			return nil
		}
		t.openTransaction(key, req.GetSessionId(), frame.TsMicros)
		return nil

	case *Ydb_Table.TransactionControl_TxId:
		return t.continueTransaction(key, req.GetSessionId(), sel.TxId, frame.TsMicros, false)

	default:
		t.counters.Skipped++
		return nil
	}
}

// TryHandleDataQueryResponse claims a response for the transaction
// whose outstanding request lives on the same stream. It reports
// false when no such transaction exists or when the transaction is
// already committing; in the latter case the blob is really a
// commit response and the commit handler must get a look at it.
func (t *Tracker) TryHandleDataQueryResponse(_ *Ydb_Table.ExecuteDataQueryResponse, frame *gnet.FrameInfo) bool {
	key := frame.DestinationKey()

	state, ok := t.byStream[key]
	if !ok || state.IsCommitting() {
		return false
	}

	t.finishRequest(state, key, frame.TsMicros)
	return true
}

// HandleCommitRequest opens the commit request/response pair of an
// active transaction.
func (t *Tracker) HandleCommitRequest(req *Ydb_Table.CommitTransactionRequest, frame *gnet.FrameInfo) error {
	return t.continueTransaction(frame.SourceKey(), req.GetSessionId(), req.GetTxId(), frame.TsMicros, true)
}

// TryHandleCommitResponse claims a commit response for a committing
// transaction on the same stream and finishes the transaction.
func (t *Tracker) TryHandleCommitResponse(_ *Ydb_Table.CommitTransactionResponse, frame *gnet.FrameInfo) bool {
	key := frame.DestinationKey()

	state, ok := t.byStream[key]
	if !ok || !state.IsCommitting() {
		return false
	}

	clamped, err := state.finishTransaction(key, frame.TsMicros)
	if err != nil {
		// unreachable after the index lookup; don't lose a
		// transaction over it
		t.lg.Warnf("commit response for %s: %v", key, err)
		return false
	}
	if clamped {
		t.counters.NegativeIntervals++
		t.lg.Warnf("commit response for %s is older than its request", key)
	}

	delete(t.byStream, key)
	delete(t.active, state.SessionID())
	t.finished = append(t.finished, state)
	t.counters.Processed++

	t.lg.Debugf("finished transaction in session %s with %s transaction %s",
		state.SessionID(), key, state.TransactionID())
	return true
}

// SkipOrphanResponse counts a response-shaped message that no
// transaction claimed: its stream was never seen, or the capture
// started after its request went out.
func (t *Tracker) SkipOrphanResponse(frame *gnet.FrameInfo) {
	t.counters.Skipped++
	t.lg.Tracef("orphan response on %s", frame.DestinationKey())
}

func (t *Tracker) openTransaction(key gnet.StreamKey, sessionID string, ts uint64) {
	if state, ok := t.byStream[key]; ok {
		// stream reuse before the previous occupant got its
		// response: the capture lost packets or the stream ids
		// wrapped; drop the stale transaction entirely
		t.lg.Warnf("transaction already exists for %s", key)
		t.evict(state)
		t.counters.RequestResponseMismatch++
		return
	}

	if old, ok := t.active[sessionID]; ok {
		// YDB aborts are not observable on the wire here: a new
		// begin_tx on a busy session means the previous
		// transaction went away
		t.evict(old)
		t.counters.Aborted++
		t.lg.Debugf("transaction in session %s replaced before committing", sessionID)
	}

	state := newState(key, sessionID, ts)
	t.active[sessionID] = state
	t.byStream[key] = state
	t.counters.Processed++

	t.lg.Debugf("transaction started in session %s with %s", sessionID, key)
}

func (t *Tracker) continueTransaction(key gnet.StreamKey, sessionID, txID string, ts uint64, isCommit bool) error {
	if sessionID == "" {
		return errors.New("empty session id in request")
	}

	state, ok := t.active[sessionID]
	if !ok {
		// the transaction started before the capture did, or its
		// begin_tx was filtered out
		t.counters.Skipped++
		return nil
	}

	if cur := state.CurrentStream(); !cur.IsZero() {
		t.lg.Warnf("can't start request %s in session %s, still waiting for the response on %s",
			key, sessionID, cur)
		t.evict(state)
		t.counters.RequestResponseMismatch++
		return nil
	}

	if cur := state.TransactionID(); cur == "" {
		if err := state.setTransactionID(txID); err != nil {
			return err
		}
	} else if cur != txID {
		t.lg.Warnf("transaction id mismatch in session %s: %q vs. %q", sessionID, cur, txID)
		t.evict(state)
		t.counters.TxIDMismatch++
		return nil
	}

	var err error
	if isCommit {
		err = state.startCommit(key, sessionID, ts)
	} else {
		err = state.startRequest(key, sessionID, ts)
	}
	if err != nil {
		return err
	}

	if isCommit {
		t.lg.Debugf("started commit in session %s transaction %s", sessionID, state.TransactionID())
	} else {
		t.lg.Debugf("started request in session %s with %s transaction %s",
			sessionID, key, state.TransactionID())
	}

	t.byStream[key] = state
	t.counters.Processed++
	return nil
}

func (t *Tracker) finishRequest(state *State, key gnet.StreamKey, ts uint64) {
	latency, clamped, err := state.finishRequest(key, ts)
	if err != nil {
		t.lg.Warnf("response for %s: %v", key, err)
		return
	}
	if clamped {
		t.counters.NegativeIntervals++
		t.lg.Warnf("response for %s is older than its request", key)
	}

	// the session index keeps owning the state; only the stream
	// entry is done
	delete(t.byStream, key)
	t.counters.Processed++

	t.lg.Tracef("finished request in session %s transaction %s in %dus",
		state.SessionID(), state.TransactionID(), latency)
}

// evict atomically removes a transaction from both indices.
func (t *Tracker) evict(state *State) {
	if cur := state.CurrentStream(); !cur.IsZero() {
		delete(t.byStream, cur)
	}
	delete(t.active, state.SessionID())
}

// Finished returns the committed transactions in completion order.
func (t *Tracker) Finished() []*State {
	return t.finished
}

func (t *Tracker) Counters() Counters {
	return t.counters
}
