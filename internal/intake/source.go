// Package intake feeds detected error events into the engine. The default
// source is a NATS queue subscription so multiple engine replicas share one
// stream of detections.
package intake

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/remedystack/remedy-engine/internal/config"
	"github.com/remedystack/remedy-engine/internal/models"
)

// Source delivers error events to a handler until closed.
type Source interface {
	// Subscribe registers the handler and starts delivery. It must be
	// called at most once.
	Subscribe(handler func(models.ErrorEvent)) error
	// Ready reports whether the source can currently receive events.
	Ready() bool
	Close()
}

// NATSSource consumes ErrorEvents published as JSON on a NATS subject.
type NATSSource struct {
	conn    *nats.Conn
	subject string
	queue   string
	sub     *nats.Subscription
	logger  *slog.Logger
}

// Connect dials the configured NATS server and returns a source bound to the
// configured subject and queue group.
func Connect(cfg config.IntakeConfig, logger *slog.Logger) (*NATSSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []nats.Option{
		nats.Name("remedy-engine-intake"),
		nats.MaxReconnects(-1),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, nats.Timeout(cfg.Timeout))
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect intake nats: %w", err)
	}
	return &NATSSource{
		conn:    conn,
		subject: cfg.Subject,
		queue:   cfg.Queue,
		logger:  logger,
	}, nil
}

// Subscribe starts a queue subscription. Malformed payloads are logged and
// dropped; they never reach the handler.
func (s *NATSSource) Subscribe(handler func(models.ErrorEvent)) error {
	sub, err := s.conn.QueueSubscribe(s.subject, s.queue, eventHandler(handler, s.logger))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	s.sub = sub
	s.logger.Info("intake subscribed",
		slog.String("subject", s.subject), slog.String("queue", s.queue))
	return nil
}

// eventHandler decodes incoming messages and forwards valid events.
func eventHandler(handler func(models.ErrorEvent), logger *slog.Logger) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var event models.ErrorEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Warn("drop malformed error event",
				slog.String("subject", msg.Subject), slog.Any("error", err))
			return
		}
		handler(event)
	}
}

func (s *NATSSource) Ready() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *NATSSource) Close() {
	if s.sub != nil {
		if err := s.sub.Drain(); err != nil {
			s.logger.Warn("drain intake subscription", slog.Any("error", err))
		}
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
