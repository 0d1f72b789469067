// grpc-ping-server is the echo side of the gRPC ping
// microbenchmark. It serves the YDB debug service's plain and
// streaming ping methods on a plaintext listener.
package main

import (
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/ydb-platform/ydb-go-genproto/Ydb_Debug_V1"
	"google.golang.org/grpc"

	"github.com/ydb-platform/benchhelpers/ping"
)

var logger = log.New(os.Stderr, "[grpc-ping-server] - ", log.LstdFlags)

func main() {
	listen := pflag.StringP("listen", "l", "0.0.0.0:2137", "address to listen on")
	pflag.Parse()

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		logger.Fatalf("listen on %s: %v", *listen, err)
	}

	server := grpc.NewServer()
	Ydb_Debug_V1.RegisterDebugServiceServer(server, ping.NewServer())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		logger.Printf("shutting down")
		server.GracefulStop()
	}()

	logger.Printf("serving on %s", *listen)
	if err := server.Serve(lis); err != nil {
		logger.Fatalf("serve: %v", err)
	}
}
