package ydb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ydb-platform/ydb-go-genproto/protos/Ydb_Operations"
	"github.com/ydb-platform/ydb-go-genproto/protos/Ydb_Table"
	"google.golang.org/protobuf/proto"

	"github.com/ydb-platform/benchhelpers/gnet"
)

type recordingSink struct {
	claimDataResponse   bool
	claimCommitResponse bool

	dataQueryRequests  int
	commitRequests     int
	dataQueryResponses int
	commitResponses    int
	orphans            int
}

func (s *recordingSink) HandleDataQueryRequest(*Ydb_Table.ExecuteDataQueryRequest, *gnet.FrameInfo) error {
	s.dataQueryRequests++
	return nil
}

func (s *recordingSink) TryHandleDataQueryResponse(*Ydb_Table.ExecuteDataQueryResponse, *gnet.FrameInfo) bool {
	s.dataQueryResponses++
	return s.claimDataResponse
}

func (s *recordingSink) HandleCommitRequest(*Ydb_Table.CommitTransactionRequest, *gnet.FrameInfo) error {
	s.commitRequests++
	return nil
}

func (s *recordingSink) TryHandleCommitResponse(*Ydb_Table.CommitTransactionResponse, *gnet.FrameInfo) bool {
	s.commitResponses++
	return s.claimCommitResponse
}

func (s *recordingSink) SkipOrphanResponse(*gnet.FrameInfo) {
	s.orphans++
}

func marshal(t *testing.T, m proto.Message) []byte {
	t.Helper()
	blob, err := proto.Marshal(m)
	require.NoError(t, err)
	return blob
}

func beginTxRequest(session, query string) *Ydb_Table.ExecuteDataQueryRequest {
	return &Ydb_Table.ExecuteDataQueryRequest{
		SessionId: session,
		TxControl: &Ydb_Table.TransactionControl{
			TxSelector: &Ydb_Table.TransactionControl_BeginTx{
				BeginTx: &Ydb_Table.TransactionSettings{
					TxMode: &Ydb_Table.TransactionSettings_SerializableReadWrite{
						SerializableReadWrite: &Ydb_Table.SerializableModeSettings{},
					},
				},
			},
		},
		Query: &Ydb_Table.Query{
			Query: &Ydb_Table.Query_YqlText{YqlText: query},
		},
	}
}

func continueTxRequest(session, txID, query string) *Ydb_Table.ExecuteDataQueryRequest {
	return &Ydb_Table.ExecuteDataQueryRequest{
		SessionId: session,
		TxControl: &Ydb_Table.TransactionControl{
			TxSelector: &Ydb_Table.TransactionControl_TxId{TxId: txID},
		},
		Query: &Ydb_Table.Query{
			Query: &Ydb_Table.Query_YqlText{YqlText: query},
		},
	}
}

func operationResponse() *Ydb_Operations.Operation {
	return &Ydb_Operations.Operation{Ready: true}
}

var testFrame = &gnet.FrameInfo{TsMicros: 1}

func TestClassifyDataQueryRequest(t *testing.T) {
	sink := &recordingSink{}
	blob := marshal(t, beginTxRequest("session-1", "SELECT 1"))

	require.NoError(t, Classify(blob, testFrame, sink))

	assert.Equal(t, 1, sink.dataQueryRequests)
	assert.Zero(t, sink.commitRequests)
	assert.Zero(t, sink.dataQueryResponses)
	assert.Zero(t, sink.commitResponses)
	assert.Zero(t, sink.orphans)
}

func TestClassifyContinuationRequest(t *testing.T) {
	// a continuation request also carries a tx id; it must still be
	// classified as a data query request, not a commit
	sink := &recordingSink{}
	blob := marshal(t, continueTxRequest("session-1", "tx-1", "SELECT 2"))

	require.NoError(t, Classify(blob, testFrame, sink))

	assert.Equal(t, 1, sink.dataQueryRequests)
	assert.Zero(t, sink.commitRequests)
}

func TestClassifyCommitRequest(t *testing.T) {
	sink := &recordingSink{}
	blob := marshal(t, &Ydb_Table.CommitTransactionRequest{
		SessionId: "session-1",
		TxId:      "tx-1",
	})

	require.NoError(t, Classify(blob, testFrame, sink))

	assert.Zero(t, sink.dataQueryRequests)
	assert.Equal(t, 1, sink.commitRequests)
	assert.Zero(t, sink.orphans)
}

func TestClassifyResponseClaimedAsDataQuery(t *testing.T) {
	sink := &recordingSink{claimDataResponse: true}
	blob := marshal(t, &Ydb_Table.ExecuteDataQueryResponse{Operation: operationResponse()})

	require.NoError(t, Classify(blob, testFrame, sink))

	assert.Equal(t, 1, sink.dataQueryResponses)
	// claimed before the commit handler ever sees it
	assert.Zero(t, sink.commitResponses)
	assert.Zero(t, sink.orphans)
}

func TestClassifyResponseClaimedAsCommit(t *testing.T) {
	// the data-query handler gets the first look and rejects; only
	// then is the commit handler consulted
	sink := &recordingSink{claimCommitResponse: true}
	blob := marshal(t, &Ydb_Table.CommitTransactionResponse{Operation: operationResponse()})

	require.NoError(t, Classify(blob, testFrame, sink))

	assert.Equal(t, 1, sink.dataQueryResponses)
	assert.Equal(t, 1, sink.commitResponses)
	assert.Zero(t, sink.orphans)
}

func TestClassifyOrphanResponse(t *testing.T) {
	sink := &recordingSink{}
	blob := marshal(t, &Ydb_Table.CommitTransactionResponse{Operation: operationResponse()})

	require.NoError(t, Classify(blob, testFrame, sink))

	assert.Equal(t, 1, sink.dataQueryResponses)
	assert.Equal(t, 1, sink.commitResponses)
	assert.Equal(t, 1, sink.orphans)
}

func TestClassifyGarbage(t *testing.T) {
	sink := &recordingSink{}

	for _, blob := range [][]byte{
		{0xff},
		{0xff, 0xff, 0xff, 0xff},
		[]byte("not a protobuf message at all"),
	} {
		require.NoError(t, Classify(blob, testFrame, sink))
	}

	assert.Zero(t, sink.dataQueryRequests)
	assert.Zero(t, sink.commitRequests)
	assert.Zero(t, sink.orphans)
}

func TestNewOrderFilter(t *testing.T) {
	accepted := beginTxRequest("s", "SELECT C_DISCOUNT, C_LAST, C_CREDIT FROM customer")
	rejected := beginTxRequest("s", "SELECT * FROM warehouse")

	assert.True(t, NewOrderFilter(accepted))
	assert.False(t, NewOrderFilter(rejected))
	assert.False(t, NewOrderFilter(&Ydb_Table.ExecuteDataQueryRequest{}))
}
