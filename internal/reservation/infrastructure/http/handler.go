package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/roomflow/reservations/internal/reservation/application"
	"github.com/roomflow/reservations/internal/reservation/domain"
	"github.com/roomflow/reservations/pkg/apperr"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("reservation-http"),
	}
}

type createReservationReq struct {
	Room string `json:"room"`
	User string `json:"user"`
}

type deleteReservationResp struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.health)
	r.Post("/reservations", h.createReservation)
	r.Get("/reservations", h.listReservations)
	r.Get("/reservations/{id}", h.getReservation)
	r.Delete("/reservations/{id}", h.deleteReservation)

	return r
}

func (h *Handler) createReservation(w http.ResponseWriter, r *http.Request) {
	// a client that gives up does not undo a mutation already under way
	ctx, span := h.tracer.Start(context.WithoutCancel(r.Context()), "CreateReservation")
	defer span.End()

	var req createReservationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid body"})
		return
	}

	res, err := h.service.Create(ctx, req.Room, req.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) listReservations(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListReservations")
	defer span.End()

	var (
		list []domain.Reservation
		err  error
	)
	if user := r.URL.Query().Get("user"); user != "" {
		list, err = h.service.ListByUser(ctx, user)
	} else {
		list, err = h.service.List(ctx)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getReservation(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetReservation")
	defer span.End()

	id, ok := parseID(w, r)
	if !ok {
		return
	}
	res, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) deleteReservation(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(context.WithoutCancel(r.Context()), "DeleteReservation")
	defer span.End()

	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, id); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteReservationResp{Message: "reservation deleted", ID: id})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid reservation id"})
		return 0, false
	}
	return id, true
}

type errorResp struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "err", err)
		writeJSON(w, status, errorResp{Error: "internal server error"})
		return
	}
	writeJSON(w, status, errorResp{Error: apperr.Message(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
