package ydb

import (
	"strings"

	"github.com/ydb-platform/ydb-go-genproto/protos/Ydb_Table"
)

// The customer lookup that opens every TPC-C NewOrder transaction.
const newOrderQueryFragment = "SELECT C_DISCOUNT, C_LAST, C_CREDIT"

// NewOrderFilter accepts transactions whose opening query is the
// NewOrder customer lookup. It is the default transaction filter:
// NewOrder is the latency-critical TPC-C transaction and the one
// worth a per-query breakdown.
func NewOrderFilter(req *Ydb_Table.ExecuteDataQueryRequest) bool {
	return strings.Contains(req.GetQuery().GetYqlText(), newOrderQueryFragment)
}
