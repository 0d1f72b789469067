// Package ping implements the gRPC ping microbenchmark pair: a
// minimal echo server speaking the YDB debug service, and a load
// generator measuring per-call round trips against it. Unlike the
// capture analyzer these tools run live and concurrent.
package ping

import (
	"context"
	"io"

	"github.com/ydb-platform/ydb-go-genproto/Ydb_Debug_V1"
	"github.com/ydb-platform/ydb-go-genproto/protos/Ydb_Debug"
)

// Server answers pings as fast as it can. Only the plain and
// streaming echo methods are implemented; the proxied ping variants
// only make sense inside a real YDB server.
type Server struct {
	Ydb_Debug_V1.UnimplementedDebugServiceServer
}

func NewServer() *Server {
	return &Server{}
}

func (s *Server) PingPlainGrpc(_ context.Context, _ *Ydb_Debug.PlainGrpcRequest) (*Ydb_Debug.PlainGrpcResponse, error) {
	return &Ydb_Debug.PlainGrpcResponse{}, nil
}

func (s *Server) PingStream(stream Ydb_Debug_V1.DebugService_PingStreamServer) error {
	for {
		if _, err := stream.Recv(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := stream.Send(&Ydb_Debug.PlainGrpcResponse{}); err != nil {
			return err
		}
	}
}
