package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of the NATS connection the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATSSink returns a subscriber that publishes each lifecycle event as JSON
// to "<prefix>.<type>". Publish failures are logged, never propagated: the
// notification transport must not influence pipeline outcomes.
func NATSSink(conn Publisher, prefix string, logger *slog.Logger) Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "remedy.events"
	}
	return func(event Event) {
		data, err := json.Marshal(event)
		if err != nil {
			logger.Error("marshal lifecycle event", slog.String("event", string(event.Type)), slog.Any("error", err))
			return
		}
		subject := fmt.Sprintf("%s.%s", prefix, event.Type)
		if err := conn.Publish(subject, data); err != nil {
			logger.Warn("publish lifecycle event", slog.String("subject", subject), slog.Any("error", err))
		}
	}
}
