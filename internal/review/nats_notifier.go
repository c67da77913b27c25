package review

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/remedystack/remedy-engine/internal/models"
)

// Publisher is the messaging surface the notifier needs. *nats.Conn
// satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier announces new review items on a NATS subject so on-call
// tooling can pick them up.
type NATSNotifier struct {
	pub     Publisher
	subject string
}

func NewNATSNotifier(pub Publisher, subject string) *NATSNotifier {
	return &NATSNotifier{pub: pub, subject: subject}
}

func (n *NATSNotifier) NotifyReviewTeam(_ context.Context, item models.ReviewQueueItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal review item: %w", err)
	}
	return n.pub.Publish(n.subject, data)
}
