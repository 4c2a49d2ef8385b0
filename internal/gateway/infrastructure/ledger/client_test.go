package ledger

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	availability "github.com/roomflow/reservations/internal/availability/application"
	"github.com/roomflow/reservations/internal/availability/domain"
	"github.com/roomflow/reservations/internal/availability/infrastructure/memory"
	"github.com/roomflow/reservations/internal/reservation/application"
	reservationhttp "github.com/roomflow/reservations/internal/reservation/infrastructure/http"
	reservationmem "github.com/roomflow/reservations/internal/reservation/infrastructure/memory"
	"github.com/roomflow/reservations/pkg/apperr"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// ledgerServer runs the real ledger API over in-memory stores.
func ledgerServer(t *testing.T) *httptest.Server {
	t.Helper()
	oracle := availability.NewService(discard(), memory.NewStore(
		domain.Room{ID: "101", Available: false},
		domain.Room{ID: "102", Available: true},
	))
	svc := application.NewService(discard(), reservationmem.NewRepository(), oracle, nil, application.Options{})
	srv := httptest.NewServer(reservationhttp.NewHandler(discard(), svc).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	c := NewClient(discard(), ledgerServer(t).URL+"/", time.Second)
	ctx := context.Background()

	r, err := c.Create(ctx, "102", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ID)

	got, err := c.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.User)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, c.Delete(ctx, r.ID))
	require.NoError(t, c.Ping(ctx))
}

func TestClientMapsStatuses(t *testing.T) {
	c := NewClient(discard(), ledgerServer(t).URL, time.Second)
	ctx := context.Background()

	_, err := c.Create(ctx, "101", "bob")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "room not available", apperr.Message(err))

	_, err = c.Create(ctx, "", "bob")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = c.Get(ctx, 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, c.Delete(ctx, 42), apperr.ErrNotFound)
}

func TestClientTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(discard(), srv.URL, time.Second).List(context.Background())
	assert.ErrorIs(t, err, apperr.ErrInternal)

	url := srv.URL
	srv.Close()
	_, err = NewClient(discard(), url, time.Second).List(context.Background())
	assert.ErrorIs(t, err, apperr.ErrTransport)
}
