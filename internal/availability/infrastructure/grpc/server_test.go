package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/roomflow/reservations/internal/availability/application"
	"github.com/roomflow/reservations/internal/availability/domain"
	"github.com/roomflow/reservations/internal/availability/infrastructure/memory"
	"github.com/roomflow/reservations/pkg/apperr"
)

func startOracle(t *testing.T, store *memory.Store) *Client {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	Register(gs, NewServer(log, application.NewService(log, store)))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	c, err := NewClient(log, "passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCheckRoomOverGRPC(t *testing.T) {
	c := startOracle(t, memory.NewStore(domain.DefaultRooms...))
	ctx := context.Background()

	available, err := c.CheckRoom(ctx, "102", "2024-01-01")
	require.NoError(t, err)
	assert.True(t, available)

	available, err = c.CheckRoom(ctx, "101", "")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = c.CheckRoom(ctx, "unknown", "")
	require.NoError(t, err)
	assert.False(t, available)
}

func TestCheckRoomStoreDownSurfacesTransportError(t *testing.T) {
	store := memory.NewStore(domain.DefaultRooms...)
	store.Err = errors.New("redis: connection refused")
	c := startOracle(t, store)

	_, err := c.CheckRoom(context.Background(), "102", "")
	assert.ErrorIs(t, err, apperr.ErrTransport)
	assert.Contains(t, err.Error(), "Unavailable")
}

func TestCheckRoomUnreachableOracle(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	lis := bufconn.Listen(1 << 10)
	require.NoError(t, lis.Close())

	c, err := NewClient(log, "passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = c.CheckRoom(ctx, "102", "")
	assert.ErrorIs(t, err, apperr.ErrTransport)
}
