package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roomflow/reservations/internal/reservation/domain"
	"github.com/roomflow/reservations/pkg/idempotency"
	"github.com/roomflow/reservations/pkg/logging"
	"github.com/roomflow/reservations/pkg/tracing"
)

const headerEventID = "event_id"

type State int

const (
	Disconnected State = iota
	Subscribed
	Polling
)

func (s State) String() string {
	switch s {
	case Subscribed:
		return "subscribed"
	case Polling:
		return "polling"
	default:
		return "disconnected"
	}
}

var ErrNotConnected = errors.New("consumer not connected")

// Reader is the subset of *kafka.Reader the consumer drives.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderFactory opens a fresh group member. A new member resumes from the
// group's last committed offset.
type ReaderFactory func() Reader

// Dialer checks that a broker is reachable and serves the topic.
// *kafka.Dialer satisfies it.
type Dialer interface {
	LookupPartitions(ctx context.Context, network, address, topic string) ([]kafka.Partition, error)
}

type Handler interface {
	Handle(ctx context.Context, ev domain.Event, key string) error
}

type Config struct {
	Brokers       []string
	Topic         string
	GroupID       string
	ClientID      string
	DialTimeout   time.Duration
	RetryBackoff  time.Duration
	CommitTimeout time.Duration
}

type Option func(*Consumer)

func WithReaderFactory(f ReaderFactory) Option {
	return func(c *Consumer) { c.newReader = f }
}

func WithDialer(d Dialer) Option {
	return func(c *Consumer) { c.dialer = d }
}

// Consumer reads the reservation topic as a member of a consumer group and
// commits each message only after its side effect succeeded. On failure the
// reader is reopened so the group redelivers from the last commit.
type Consumer struct {
	log       *slog.Logger
	cfg       Config
	handler   Handler
	newReader ReaderFactory
	dialer    Dialer
	tracer    trace.Tracer

	mu     sync.Mutex
	state  State
	reader Reader
}

func NewConsumer(log *slog.Logger, cfg Config, handler Handler, opts ...Option) *Consumer {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = 5 * time.Second
	}
	c := &Consumer{
		log:     log,
		cfg:     cfg,
		handler: handler,
		dialer:  &kafka.Dialer{ClientID: cfg.ClientID, Timeout: cfg.DialTimeout},
		tracer:  otel.Tracer("notification-consumer"),
	}
	c.newReader = c.kafkaReader
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Consumer) kafkaReader() Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:           c.cfg.Brokers,
		Topic:             c.cfg.Topic,
		GroupID:           c.cfg.GroupID,
		StartOffset:       kafka.FirstOffset,
		CommitInterval:    0,
		MaxWait:           500 * time.Millisecond,
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		Dialer:            &kafka.Dialer{ClientID: c.cfg.ClientID, Timeout: c.cfg.DialTimeout},
		Logger:            logging.KafkaLogger(c.log),
		ErrorLogger:       logging.KafkaErrorLogger(c.log),
	})
}

func (c *Consumer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect verifies that the topic exists on some broker and joins the group.
func (c *Consumer) Connect(ctx context.Context) error {
	var lastErr error
	for _, broker := range c.cfg.Brokers {
		parts, err := c.dialer.LookupPartitions(ctx, "tcp", broker, c.cfg.Topic)
		if err != nil {
			lastErr = err
			continue
		}
		if len(parts) == 0 {
			lastErr = fmt.Errorf("topic %s has no partitions", c.cfg.Topic)
			continue
		}

		c.mu.Lock()
		c.reader = c.newReader()
		c.state = Subscribed
		c.mu.Unlock()
		c.log.Info("consumer subscribed", "topic", c.cfg.Topic, "group", c.cfg.GroupID, "partitions", len(parts))
		return nil
	}
	return fmt.Errorf("connect consumer to %v: %w", c.cfg.Brokers, lastErr)
}

// Run polls until ctx is cancelled. It returns nil on cancellation and an
// error only when the reader itself gives up.
func (c *Consumer) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.reader == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.state = Polling
	c.mu.Unlock()

	for {
		msg, err := c.current().FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch %s: %w", c.cfg.Topic, err)
		}

		if c.process(ctx, msg) {
			continue
		}
		if err := c.rewind(ctx); err != nil {
			return nil
		}
	}
}

// process reports whether msg was committed.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeReservationEvent", trace.WithAttributes(
		attribute.String("topic", msg.Topic),
		attribute.Int("partition", msg.Partition),
		attribute.Int64("offset", msg.Offset),
	))
	defer span.End()

	log := c.log.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

	var ev domain.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		log.Error("malformed event, skipping", "err", err)
		return c.commit(ctx, msg, log)
	}
	log.Info("event received", "type", ev.Type, "key", string(msg.Key), "reservation_id", ev.Data.ID)

	if err := c.handler.Handle(msgCtx, ev, dedupeKey(msg)); err != nil {
		span.RecordError(err)
		log.Error("event processing failed, will redeliver", "type", ev.Type, "err", err)
		return false
	}
	return c.commit(ctx, msg, log)
}

// commit survives shutdown so a processed message is not replayed needlessly.
func (c *Consumer) commit(ctx context.Context, msg kafka.Message, log *slog.Logger) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CommitTimeout)
	defer cancel()

	if err := c.current().CommitMessages(ctx, msg); err != nil {
		log.Error("commit failed, will redeliver", "err", err)
		return false
	}
	return true
}

// rewind drops the group membership and rejoins after the backoff, which
// restarts delivery at the last committed offset.
func (c *Consumer) rewind(ctx context.Context) error {
	c.closeReader()

	t := time.NewTimer(c.cfg.RetryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	c.mu.Lock()
	c.reader = c.newReader()
	c.state = Polling
	c.mu.Unlock()
	c.log.Info("consumer rejoined group", "topic", c.cfg.Topic, "group", c.cfg.GroupID)
	return nil
}

func (c *Consumer) current() Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

func (c *Consumer) closeReader() {
	c.mu.Lock()
	r := c.reader
	c.reader = nil
	c.state = Disconnected
	c.mu.Unlock()

	if r != nil {
		if err := r.Close(); err != nil {
			c.log.Warn("close reader", "err", err)
		}
	}
}

// Close leaves the group. Safe to call more than once.
func (c *Consumer) Close() error {
	c.closeReader()
	return nil
}

func dedupeKey(msg kafka.Message) string {
	if id := tracing.HeaderValue(msg.Headers, headerEventID); id != "" {
		return idempotency.EventKey(id)
	}
	return idempotency.MessageKey(msg.Topic, msg.Partition, msg.Offset)
}
