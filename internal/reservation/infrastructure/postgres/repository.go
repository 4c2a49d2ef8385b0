package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roomflow/reservations/internal/reservation/domain"
	"github.com/roomflow/reservations/pkg/apperr"
)

// DB is satisfied by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

const schema = `CREATE TABLE IF NOT EXISTS reservations (
	id         BIGSERIAL PRIMARY KEY,
	room       TEXT NOT NULL,
	"user"     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Repository struct {
	log *slog.Logger
	db  DB
}

func NewRepository(log *slog.Logger, db DB) *Repository {
	return &Repository{log: log, db: db}
}

func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate reservations: %w", err)
	}
	return nil
}

// Create relies on the BIGSERIAL sequence for monotonic ids and on the
// database clock for created_at.
func (r *Repository) Create(ctx context.Context, n domain.NewReservation) (domain.Reservation, error) {
	res := domain.Reservation{Room: n.Room, User: n.User}
	err := r.db.QueryRow(ctx,
		`INSERT INTO reservations (room, "user", created_at) VALUES ($1, $2, now()) RETURNING id, created_at`,
		n.Room, n.User,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%w: insert reservation: %v", apperr.ErrTransport, err)
	}
	res.CreatedAt = res.CreatedAt.UTC()
	return res, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Reservation, error) {
	rows, err := r.db.Query(ctx, `SELECT id, room, "user", created_at FROM reservations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list reservations: %v", apperr.ErrTransport, err)
	}
	defer rows.Close()

	out := []domain.Reservation{}
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.Room, &res.User, &res.CreatedAt); err != nil {
			return nil, err
		}
		res.CreatedAt = res.CreatedAt.UTC()
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Reservation, error) {
	var res domain.Reservation
	err := r.db.QueryRow(ctx, `SELECT id, room, "user", created_at FROM reservations WHERE id=$1`, id).
		Scan(&res.ID, &res.Room, &res.User, &res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, fmt.Errorf("%w: reservation %d", apperr.ErrNotFound, id)
	}
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%w: get reservation %d: %v", apperr.ErrTransport, id, err)
	}
	res.CreatedAt = res.CreatedAt.UTC()
	return res, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM reservations WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete reservation %d: %v", apperr.ErrTransport, id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: reservation %d", apperr.ErrNotFound, id)
	}
	return nil
}
