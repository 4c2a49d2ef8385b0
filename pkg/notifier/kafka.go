package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/roomflow/reservations/pkg/logging"
)

type KafkaConfig struct {
	Brokers      []string
	ClientID     string
	MaxAttempts  int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConnector dials a broker to prove reachability, then builds a
// writer that partitions by key with the murmur2 hash so every event for a
// room lands on the same partition.
type KafkaConnector struct {
	log *slog.Logger
	cfg KafkaConfig
}

func NewKafkaConnector(log *slog.Logger, cfg KafkaConfig) *KafkaConnector {
	return &KafkaConnector{log: log, cfg: cfg}
}

func (c *KafkaConnector) Connect(ctx context.Context) (Producer, error) {
	dialer := &kafka.Dialer{ClientID: c.cfg.ClientID, Timeout: c.cfg.DialTimeout}

	var lastErr error
	for _, broker := range c.cfg.Brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return c.writer(), nil
	}
	return nil, fmt.Errorf("no reachable broker in %v: %w", c.cfg.Brokers, lastErr)
}

func (c *KafkaConnector) writer() *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.cfg.Brokers...),
		Balancer:     &kafka.Murmur2Balancer{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  c.cfg.MaxAttempts,
		WriteTimeout: c.cfg.WriteTimeout,
		BatchTimeout: 10 * time.Millisecond,
		Transport: &kafka.Transport{
			ClientID:    c.cfg.ClientID,
			DialTimeout: c.cfg.DialTimeout,
		},
		Logger:      logging.KafkaLogger(c.log),
		ErrorLogger: logging.KafkaErrorLogger(c.log),
	}
}
