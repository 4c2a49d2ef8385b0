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

	"github.com/roomflow/reservations/internal/gateway/application"
	"github.com/roomflow/reservations/internal/reservation/domain"
	"github.com/roomflow/reservations/pkg/apperr"
)

type Handler struct {
	log      *slog.Logger
	orch     *application.Orchestrator
	services map[string]string
	tracer   trace.Tracer
}

// NewHandler exposes orch over HTTP. services names the upstream
// addresses reported by /health.
func NewHandler(log *slog.Logger, orch *application.Orchestrator, services map[string]string) *Handler {
	return &Handler{
		log:      log,
		orch:     orch,
		services: services,
		tracer:   otel.Tracer("gateway-http"),
	}
}

type createReservationReq struct {
	Room string `json:"room"`
	User string `json:"user"`
}

type deleteReservationResp struct {
	Deleted bool `json:"deleted"`
}

type healthResp struct {
	Status   string            `json:"status"`
	Mode     string            `json:"mode"`
	Services map[string]string `json:"services"`
}

type errorResp struct {
	Error string `json:"error"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.health)
	r.Route("/reservations", func(r chi.Router) {
		r.Get("/", h.reservations)
		r.Post("/", h.createReservation)
		r.Get("/{id}", h.reservation)
		r.Delete("/{id}", h.deleteReservation)
	})
	return r
}

func (h *Handler) reservations(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Gateway.Reservations")
	defer span.End()

	var (
		list []domain.Reservation
		err  error
	)
	if user := r.URL.Query().Get("user"); user != "" {
		list, err = h.orch.ReservationsByUser(ctx, user)
	} else {
		list, err = h.orch.Reservations(ctx)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) reservation(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Gateway.Reservation")
	defer span.End()

	id, ok := parseID(w, r)
	if !ok {
		return
	}
	res, err := h.orch.Reservation(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// unknown ids answer null, not 404
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) createReservation(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	var req createReservationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid body"})
		return
	}
	res, err := h.orch.CreateReservation(ctx, req.Room, req.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) deleteReservation(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}
	deleted, err := h.orch.DeleteReservation(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteReservationResp{Deleted: deleted})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResp{
		Status:   "Gateway OK",
		Mode:     string(h.orch.Mode()),
		Services: h.services,
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid reservation id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
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
