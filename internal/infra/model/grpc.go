package model

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCProvider holds a connection to a gRPC model backend.
// It does NOT implement Provider because gRPC backends use generated clients
// instead of a generic call surface; get the connection via Conn() and wrap
// it with the backend's generated client.
type GRPCProvider struct {
	name     string
	endpoint string
	conn     *grpc.ClientConn
}

// NewGRPCProvider dials a gRPC model backend.
func NewGRPCProvider(ctx context.Context, name, endpoint string) (*GRPCProvider, error) {
	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	opts = append(opts, grpc.WithBlock())

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial grpc endpoint %s: %w", target, err)
	}

	return &GRPCProvider{
		name:     name,
		endpoint: endpoint,
		conn:     conn,
	}, nil
}

// Name returns the provider label.
func (p *GRPCProvider) Name() string {
	return p.name
}

// Conn returns the underlying gRPC connection for generated clients.
func (p *GRPCProvider) Conn() *grpc.ClientConn {
	return p.conn
}

// Health probes the backend via the standard gRPC health service.
func (p *GRPCProvider) Health(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(p.conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed for %s: %w", p.name, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("provider %s not serving: %s", p.name, resp.GetStatus())
	}
	return nil
}

// Close cleans up resources.
func (p *GRPCProvider) Close() error {
	return p.conn.Close()
}
