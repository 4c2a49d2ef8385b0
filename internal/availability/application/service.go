package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roomflow/reservations/internal/availability/domain"
	"github.com/roomflow/reservations/pkg/apperr"
)

type Service struct {
	log   *slog.Logger
	store RoomStore
}

func NewService(log *slog.Logger, store RoomStore) *Service {
	return &Service{log: log, store: store}
}

// CheckRoom never reports a room as missing: an unknown id is FailClosed.
// date is accepted for callers that send it but does not affect the answer.
func (s *Service) CheckRoom(ctx context.Context, roomID, date string) (bool, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return domain.FailClosed, nil
	}

	available, found, err := s.store.Availability(ctx, roomID)
	if err != nil {
		return domain.FailClosed, fmt.Errorf("%w: read room %s: %v", apperr.ErrTransport, roomID, err)
	}
	if !found {
		s.log.Debug("unknown room", "room", roomID, "date", date)
		return domain.FailClosed, nil
	}
	s.log.Debug("room checked", "room", roomID, "date", date, "available", available)
	return available, nil
}
