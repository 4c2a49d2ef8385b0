package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/roomflow/reservations/internal/reservation/domain"
	"github.com/roomflow/reservations/pkg/apperr"
)

// Client talks to the reservation ledger's HTTP API.
type Client struct {
	log  *slog.Logger
	base string
	hc   *http.Client
}

func NewClient(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		log:  log,
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) List(ctx context.Context) ([]domain.Reservation, error) {
	var out []domain.Reservation
	if err := c.do(ctx, http.MethodGet, "/reservations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (domain.Reservation, error) {
	var out domain.Reservation
	err := c.do(ctx, http.MethodGet, "/reservations/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

func (c *Client) Create(ctx context.Context, room, user string) (domain.Reservation, error) {
	var out domain.Reservation
	body := map[string]string{"room": room, "user": user}
	err := c.do(ctx, http.MethodPost, "/reservations", body, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/reservations/"+strconv.FormatInt(id, 10), nil, nil)
}

// Ping reports whether the ledger answers its health probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", apperr.ErrInternal, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", apperr.ErrInternal, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", apperr.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return apperr.FromStatus(resp.StatusCode, e.Error)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", apperr.ErrTransport, method, path, err)
	}
	return nil
}
