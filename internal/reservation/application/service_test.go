package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomflow/reservations/internal/reservation/application"
	"github.com/roomflow/reservations/internal/reservation/domain"
	"github.com/roomflow/reservations/internal/reservation/infrastructure/memory"
	"github.com/roomflow/reservations/pkg/apperr"
)

type fakeOracle struct {
	rooms map[string]bool
	err   error
	delay time.Duration
	dates []string
}

func (o *fakeOracle) CheckRoom(ctx context.Context, roomID, date string) (bool, error) {
	o.dates = append(o.dates, date)
	if o.delay > 0 {
		select {
		case <-time.After(o.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if o.err != nil {
		return false, o.err
	}
	return o.rooms[roomID], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
	panics bool
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.Event) error {
	if p.panics {
		panic("producer exploded")
	}
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// flakyGetRepo fails snapshot lookups with a transient error.
type flakyGetRepo struct {
	*memory.Repository
}

func (r flakyGetRepo) Get(context.Context, int64) (domain.Reservation, error) {
	return domain.Reservation{}, errors.New("connection reset")
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func rooms() *fakeOracle {
	return &fakeOracle{rooms: map[string]bool{"101": false, "102": true, "103": false}}
}

func newLedger(repo application.ReservationRepository, oracle application.AvailabilityChecker, pub application.EventPublisher) *application.Service {
	return application.NewService(discard(), repo, oracle, pub, application.Options{
		ServiceName:   "reservation-service",
		OracleTimeout: 100 * time.Millisecond,
	})
}

func TestCreateUnavailableRoomIsConflict(t *testing.T) {
	repo := memory.NewRepository()
	pub := &recordingPublisher{}
	svc := newLedger(repo, rooms(), pub)

	_, err := svc.Create(context.Background(), "101", "alice")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.ErrorIs(t, err, application.ErrRoomUnavailable)

	list, _ := repo.List(context.Background())
	assert.Empty(t, list)
	assert.Empty(t, pub.events)
}

func TestCreateAvailableRoomPersistsAndPublishesOnce(t *testing.T) {
	repo := memory.NewRepository()
	pub := &recordingPublisher{}
	oracle := rooms()
	svc := newLedger(repo, oracle, pub)

	r, err := svc.Create(context.Background(), "102", "bob")
	require.NoError(t, err)
	assert.Equal(t, "102", r.Room)
	assert.Equal(t, "bob", r.User)
	assert.False(t, r.CreatedAt.IsZero())

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, domain.ReservationCreated, ev.Type)
	assert.Equal(t, "102", ev.Key())
	assert.Equal(t, r, ev.Data)
	assert.Equal(t, domain.Metadata{Service: "reservation-service", Version: "1.0"}, ev.Metadata)

	// the oracle is asked with today's date
	require.Len(t, oracle.dates, 1)
	assert.Equal(t, time.Now().UTC().Format(time.DateOnly), oracle.dates[0])
}

func TestCreateIDsStrictlyIncrease(t *testing.T) {
	svc := newLedger(memory.NewRepository(), rooms(), nil)
	var last int64
	for i := 0; i < 5; i++ {
		r, err := svc.Create(context.Background(), "102", "bob")
		require.NoError(t, err)
		assert.Greater(t, r.ID, last)
		last = r.ID
	}
}

func TestCreateValidation(t *testing.T) {
	repo := memory.NewRepository()
	oracle := rooms()
	svc := newLedger(repo, oracle, &recordingPublisher{})

	_, err := svc.Create(context.Background(), "", "bob")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = svc.Create(context.Background(), "102", " ")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	assert.Empty(t, oracle.dates, "validation must happen before the oracle call")
}

func TestCreateOracleFailureFailsClosed(t *testing.T) {
	repo := memory.NewRepository()
	oracle := rooms()
	oracle.err = fmt.Errorf("%w: dial tcp: connection refused", apperr.ErrTransport)
	svc := newLedger(repo, oracle, &recordingPublisher{})

	_, err := svc.Create(context.Background(), "102", "bob")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	list, _ := repo.List(context.Background())
	assert.Empty(t, list)
}

func TestCreateOracleTimeoutFailsClosed(t *testing.T) {
	repo := memory.NewRepository()
	oracle := rooms()
	oracle.delay = time.Second
	svc := newLedger(repo, oracle, nil)

	start := time.Now()
	_, err := svc.Create(context.Background(), "102", "bob")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestPublishFailureDoesNotChangeOutcome(t *testing.T) {
	for name, pub := range map[string]*recordingPublisher{
		"error": {err: errors.New("kafka: broker not available")},
		"panic": {panics: true},
	} {
		t.Run(name, func(t *testing.T) {
			repo := memory.NewRepository()
			svc := newLedger(repo, rooms(), pub)

			r, err := svc.Create(context.Background(), "102", "bob")
			require.NoError(t, err)

			list, _ := repo.List(context.Background())
			assert.Len(t, list, 1)

			require.NoError(t, svc.Delete(context.Background(), r.ID))
			list, _ = repo.List(context.Background())
			assert.Empty(t, list)
		})
	}
}

func TestCreateWithoutPublisher(t *testing.T) {
	svc := newLedger(memory.NewRepository(), rooms(), nil)
	_, err := svc.Create(context.Background(), "102", "bob")
	assert.NoError(t, err)
}

func TestDeleteMissingIsNotFoundWithoutEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newLedger(memory.NewRepository(), rooms(), pub)

	err := svc.Delete(context.Background(), 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, pub.events)
}

func TestDeletePublishesSnapshot(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newLedger(memory.NewRepository(), rooms(), pub)

	r, err := svc.Create(context.Background(), "102", "bob")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), r.ID))

	require.Len(t, pub.events, 2)
	ev := pub.events[1]
	assert.Equal(t, domain.ReservationDeleted, ev.Type)
	assert.Equal(t, r, ev.Data)
	assert.Equal(t, "102", ev.Key())

	_, err = svc.Get(context.Background(), r.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteWithTransientSnapshotFailurePublishesMinimalPayload(t *testing.T) {
	repo := memory.NewRepository()
	pub := &recordingPublisher{}
	seed := newLedger(repo, rooms(), nil)
	r, err := seed.Create(context.Background(), "102", "bob")
	require.NoError(t, err)

	svc := newLedger(flakyGetRepo{repo}, rooms(), pub)
	require.NoError(t, svc.Delete(context.Background(), r.ID))

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.Reservation{ID: r.ID}, pub.events[0].Data)
	assert.Equal(t, "1", pub.events[0].Key())
}

func TestDeleteAfterCallerCancelStillCompletes(t *testing.T) {
	pub := &recordingPublisher{}
	repo := memory.NewRepository()
	svc := newLedger(repo, rooms(), pub)
	r, err := svc.Create(context.Background(), "102", "bob")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// the in-memory store ignores ctx; the publish boundary detaches from it
	require.NoError(t, svc.Delete(ctx, r.ID))
	assert.Len(t, pub.events, 2)
}

func TestListIsStableAndOrdered(t *testing.T) {
	svc := newLedger(memory.NewRepository(), rooms(), nil)
	for _, u := range []string{"bob", "alice", "bob"} {
		_, err := svc.Create(context.Background(), "102", u)
		require.NoError(t, err)
	}

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	second, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, "alice", first[1].User)

	bobs, err := svc.ListByUser(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, bobs, 2)
	assert.Less(t, bobs[0].ID, bobs[1].ID)
}
