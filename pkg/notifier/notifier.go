// Package notifier publishes messages to the event log over a single,
// lazily established, process-wide Kafka connection.
//
// The connection moves Disconnected -> Connecting -> Connected on the first
// send. A failed connect falls back to Disconnected and is attempted again
// by the next send; there is no retry loop beyond the writer's own
// MaxAttempts policy.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

var ErrClosed = errors.New("notifier closed")

// Producer is the subset of *kafka.Writer the notifier relies on.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Connector interface {
	Connect(ctx context.Context) (Producer, error)
}

type ConnectorFunc func(ctx context.Context) (Producer, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Producer, error) { return f(ctx) }

type Notifier struct {
	log       *slog.Logger
	connector Connector

	mu       sync.Mutex
	state    State
	producer Producer
	closed   bool
}

func New(log *slog.Logger, connector Connector) *Notifier {
	return &Notifier{log: log, connector: connector}
}

func (n *Notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// EnsureConnected is idempotent: once connected it returns immediately.
// Concurrent callers wait for a single in-flight connect.
func (n *Notifier) EnsureConnected(ctx context.Context) (Producer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, ErrClosed
	}
	if n.state == Connected {
		return n.producer, nil
	}

	n.state = Connecting
	p, err := n.connector.Connect(ctx)
	if err != nil {
		n.state = Disconnected
		return nil, fmt.Errorf("connect event log: %w", err)
	}
	n.producer = p
	n.state = Connected
	n.log.Info("event log producer connected")
	return p, nil
}

// Send writes one keyed message. The caller owns error handling: a send
// failure never retries here.
func (n *Notifier) Send(ctx context.Context, topic, key string, value []byte, headers []kafka.Header) error {
	p, err := n.EnsureConnected(ctx)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
	}
	if err := p.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", topic, err)
	}
	return nil
}

// Close drains and disconnects the producer if a connection was ever made.
// In-flight sends are not guaranteed to complete.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	if n.state != Connected {
		return nil
	}
	n.state = Disconnected
	err := n.producer.Close()
	n.producer = nil
	if err != nil {
		return err
	}
	n.log.Info("event log producer disconnected")
	return nil
}
