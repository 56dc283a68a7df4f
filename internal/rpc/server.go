package rpc

import (
	"crypto/tls"

	grpcMiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpcZap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpcRecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpcCtxTags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	grpcPrometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// ServerTLSConfig names the materials needed to require and verify client
// certificates on the peer channel, per spec.md §6's mandatory-mTLS
// invariant: every peer is both server and client, so every listener
// also demands a verified client cert.
type ServerTLSConfig struct {
	CertFile     string
	KeyFile      string
	ClientCAFile string
}

// NewServer builds the grpc.Server the ledger-node listens on: mTLS
// transport credentials plus the teacher's recovery/ctxtags/prometheus/
// zap interceptor chain, grounded on cmd/api-gateway/main.go's
// construction of its own grpc.Server.
func NewServer(tlsCfg ServerTLSConfig, logger *zap.Logger) (*grpc.Server, error) {
	creds, err := serverTransportCredentials(tlsCfg)
	if err != nil {
		return nil, err
	}

	chain := []grpc.UnaryServerInterceptor{
		grpcRecovery.UnaryServerInterceptor(),
		grpcCtxTags.UnaryServerInterceptor(),
		grpcPrometheus.UnaryServerInterceptor,
		grpcZap.UnaryServerInterceptor(logger),
	}
	srv := grpc.NewServer(
		grpc.Creds(creds),
		grpc.UnaryInterceptor(grpcMiddleware.ChainUnaryServer(chain...)),
	)
	grpcPrometheus.EnableHandlingTimeHistogram()
	grpcPrometheus.Register(srv)
	return srv, nil
}

func serverTransportCredentials(cfg ServerTLSConfig) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	pool, err := loadCAPool(cfg.ClientCAFile)
	if err != nil {
		return nil, err
	}
	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS12,
	}), nil
}
