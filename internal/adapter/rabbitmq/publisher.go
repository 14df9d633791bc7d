package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tableside/internal/interfaces"
)

// changesExchange is a topic exchange keyed <entity>.<session_id>.<op>, so a
// subscriber can bind on one session's changes only.
const changesExchange = "table_changes"

func changeRoutingKey(entity interfaces.ChangeEntity, sessionID string, op interfaces.ChangeOp) string {
	return fmt.Sprintf("%s.%s.%s", entity, sessionID, op)
}

func changeBindingKey(entity interfaces.ChangeEntity, sessionID string) string {
	return fmt.Sprintf("%s.%s.*", entity, sessionID)
}

type publisher struct {
	conn Connection
}

func NewPublisher(conn Connection) interfaces.ChangePublisher {
	return &publisher{conn: conn}
}

func (p *publisher) PublishChange(ctx context.Context, ev interfaces.ChangeEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(changesExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	err = ch.Publish(changesExchange, changeRoutingKey(ev.Entity, ev.SessionID, ev.Op), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	return nil
}
