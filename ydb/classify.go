// Package ydb guesses which Ydb.Table message a gRPC payload
// carries. The capture has no usable HTTP/2 headers (HPACK state is
// lost when a capture starts mid-connection), so there is no method
// path to dispatch on; instead each blob is trial-decoded against
// the candidate schemas and accepted when the decoded fields make
// sense for that type.
package ydb

import (
	"github.com/ydb-platform/ydb-go-genproto/protos/Ydb_Table"
	"google.golang.org/protobuf/proto"

	"github.com/ydb-platform/benchhelpers/gnet"
)

// Sink consumes classified messages. The two response handlers
// return whether they claimed the message: responses are
// indistinguishable by shape and only the sink's session and stream
// state can tell a data-query response from a commit response.
type Sink interface {
	HandleDataQueryRequest(*Ydb_Table.ExecuteDataQueryRequest, *gnet.FrameInfo) error
	TryHandleDataQueryResponse(*Ydb_Table.ExecuteDataQueryResponse, *gnet.FrameInfo) bool
	HandleCommitRequest(*Ydb_Table.CommitTransactionRequest, *gnet.FrameInfo) error
	TryHandleCommitResponse(*Ydb_Table.CommitTransactionResponse, *gnet.FrameInfo) bool
	SkipOrphanResponse(*gnet.FrameInfo)
}

// Classify trial-decodes blob and dispatches it to sink. Most blobs
// fail to decode as three of the four candidates; that is the
// normal mode of operation, not an error.
//
// The order is load-bearing. ExecuteDataQueryRequest's wire shape is
// a superset of CommitTransactionRequest's, so it must be ruled out
// first. The two response types are tried data-query first, commit
// second, which together with the sink's committing flag decides
// ambiguous pairings; swapping them would misattribute commit
// responses on streams the sink still considers mid-query.
func Classify(blob []byte, frame *gnet.FrameInfo, sink Sink) error {
	var dataQueryReq Ydb_Table.ExecuteDataQueryRequest
	if err := proto.Unmarshal(blob, &dataQueryReq); err == nil {
		if dataQueryReq.GetQuery() != nil && dataQueryReq.GetSessionId() != "" {
			return sink.HandleDataQueryRequest(&dataQueryReq, frame)
		}
	}

	var commitReq Ydb_Table.CommitTransactionRequest
	if err := proto.Unmarshal(blob, &commitReq); err == nil {
		if commitReq.GetSessionId() != "" && commitReq.GetTxId() != "" {
			return sink.HandleCommitRequest(&commitReq, frame)
		}
	}

	responseShaped := false

	var dataQueryResp Ydb_Table.ExecuteDataQueryResponse
	if err := proto.Unmarshal(blob, &dataQueryResp); err == nil && dataQueryResp.GetOperation() != nil {
		if sink.TryHandleDataQueryResponse(&dataQueryResp, frame) {
			return nil
		}
		responseShaped = true
	}

	var commitResp Ydb_Table.CommitTransactionResponse
	if err := proto.Unmarshal(blob, &commitResp); err == nil && commitResp.GetOperation() != nil {
		if sink.TryHandleCommitResponse(&commitResp, frame) {
			return nil
		}
		responseShaped = true
	}

	if responseShaped {
		sink.SkipOrphanResponse(frame)
	}
	return nil
}
