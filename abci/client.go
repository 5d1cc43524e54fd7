package abci

import (
	"context"
	"fmt"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client - 실행 중인 volrank 노드에 gRPC로 붙는 읽기 전용 ABCI 클라이언트 (Info, Query)
type Client struct {
	conn    *grpc.ClientConn
	client  abci.ABCIClient
	timeout time.Duration
}

var _ Inspector = (*Client)(nil)

// ClientConfig - 클라이언트 설정
type ClientConfig struct {
	Address string
	Timeout time.Duration
}

// DefaultClientConfig - 기본 설정
func DefaultClientConfig(address string) *ClientConfig {
	return &ClientConfig{
		Address: address,
		Timeout: 10 * time.Second,
	}
}

// NewClient dials the application's gRPC ABCI endpoint.
func NewClient(config *ClientConfig) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	conn, err := grpc.DialContext(
		ctx,
		config.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ABCI app at %s: %w", config.Address, err)
	}

	return &Client{
		conn:    conn,
		client:  abci.NewABCIClient(conn),
		timeout: config.Timeout,
	}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Info reports the remote node's last committed height and app hash.
func (c *Client) Info(ctx context.Context, req *abci.RequestInfo) (*abci.ResponseInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.Info(ctx, req)
}

// Query - 커밋된 상태 조회
func (c *Client) Query(ctx context.Context, req *abci.RequestQuery) (*abci.ResponseQuery, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.Query(ctx, req)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
