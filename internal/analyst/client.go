// Package analyst is the gRPC client for the external SQL generator that
// turns free-text questions into warehouse SQL.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")

	// ErrNotServing is returned by Health when the service reports any
	// status other than SERVING.
	ErrNotServing = errors.New("analyst not serving")
)

// Client calls the analyst service.
type Client struct {
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
	addr    string
	timeout time.Duration
	logger  *slog.Logger
}

// Config holds configuration for the gRPC client.
type Config struct {
	Address          string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultConfig returns default configuration for addr.
func DefaultConfig(addr string) Config {
	return Config{
		Address:          addr,
		ConnectTimeout:   5 * time.Second,
		RequestTimeout:   30 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// New connects to the analyst service and waits until the connection is
// ready, so a bad address fails at startup rather than on the first query.
func New(cfg Config, logger *slog.Logger, opts ...grpc.DialOption) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Address == "" {
		return nil, errors.New("analyst address is required")
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}, opts...)

	conn, err := grpc.NewClient(cfg.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to analyst at %s: %w", cfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("analyst at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to analyst service", "address", cfg.Address)

	return &Client{
		conn:    conn,
		health:  healthpb.NewHealthClient(conn),
		addr:    cfg.Address,
		timeout: cfg.RequestTimeout,
		logger:  logger,
	}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Addr is the address the client is connected to.
func (c *Client) Addr() string { return c.addr }

// Close closes the gRPC connection.
func (c *Client) Close() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("failed to close gRPC connection", "error", err)
		}
	}
}

// Health checks the standard gRPC health service for the analyst.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, resp.GetStatus())
	}
	return nil
}

// GenerateSQL asks the service for SQL answering question. The answer may
// already carry result rows; when it does not, the caller executes SQL.
func (c *Client) GenerateSQL(ctx context.Context, question string) (Answer, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := newRequest(question)
	if err != nil {
		return Answer{}, err
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, generateSQLMethod, req, resp); err != nil {
		return Answer{}, fmt.Errorf("generate sql: %w", err)
	}

	ans, err := parseAnswer(resp)
	if err != nil {
		return Answer{}, err
	}
	c.logger.Debug("Analyst answered", "sql_len", len(ans.SQL), "rows", len(ans.Rows))
	return ans, nil
}
