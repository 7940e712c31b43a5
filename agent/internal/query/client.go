package query

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client calls the stack service over an existing connection.
type Client struct {
	conn   *grpc.ClientConn
	header string
	key    string
}

// NewClient wraps conn. When key is non-empty it is sent in the header
// metadata of every call.
func NewClient(conn *grpc.ClientConn, header, key string) *Client {
	return &Client{conn: conn, header: header, key: key}
}

// Dial opens an insecure connection to addr for NewClient.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.DialContext(ctx, addr, opts...) //nolint:staticcheck // NewClient needs grpc 1.63
	if err != nil {
		return nil, fmt.Errorf("query: dial %s: %w", addr, err)
	}
	return conn, nil
}

// GetRelatedStack fetches the stitched stack for identity id.
func (c *Client) GetRelatedStack(ctx context.Context, id uint64) (*StackReply, error) {
	if c.key != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, c.header, c.key)
	}
	reply := new(StackReply)
	err := c.conn.Invoke(ctx, FullMethodGetRelatedStack, &StackRequest{ID: id}, reply,
		grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, fmt.Errorf("query: get related stack: %w", err)
	}
	return reply, nil
}
