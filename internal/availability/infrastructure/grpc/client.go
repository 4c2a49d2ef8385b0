package grpc

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/roomflow/reservations/pkg/apperr"
)

type Client struct {
	log  *slog.Logger
	conn *grpc.ClientConn
}

func NewClient(log *slog.Logger, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{log: log, conn: conn}, nil
}

// CheckRoom returns an ErrTransport-wrapped error for every RPC failure;
// interpreting that failure is the caller's policy.
func (c *Client) CheckRoom(ctx context.Context, roomID, date string) (bool, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"roomId": structpb.NewStringValue(roomID),
	}}
	if date != "" {
		req.Fields["date"] = structpb.NewStringValue(date)
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, checkRoomMethod, req, resp); err != nil {
		return false, fmt.Errorf("%w: CheckRoom %s: %v", apperr.ErrTransport, roomID, err)
	}
	return resp.GetFields()["available"].GetBoolValue(), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
