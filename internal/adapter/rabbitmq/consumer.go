package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tableside/internal/adapter/logger"
	"tableside/internal/interfaces"
)

const reconnectDelay = 5 * time.Second

type consumer struct {
	conn   Connection
	logger logger.Logger
}

func NewConsumer(conn Connection, lgr logger.Logger) interfaces.ChangeConsumer {
	return &consumer{conn: conn, logger: lgr}
}

// Consume delivers change events for one entity of one session until ctx is
// cancelled, reconnecting after channel failures.
func (c *consumer) Consume(ctx context.Context, entity interfaces.ChangeEntity, sessionID string, handler interfaces.ChangeHandler) error {
	for {
		err := c.consumeOnce(ctx, entity, sessionID, handler)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		c.logger.Error("consumer_disconnected", "Change consumer disconnected, reconnecting", sessionID, map[string]interface{}{
			"entity": string(entity),
		}, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *consumer) consumeOnce(ctx context.Context, entity interfaces.ChangeEntity, sessionID string, handler interfaces.ChangeHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.ExchangeDeclare(changesExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Exclusive auto-delete queue: each open view gets its own feed.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, changeBindingKey(entity, sessionID), changesExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			// An undecodable payload still means something changed;
			// the handler re-fetches either way.
			var ev interfaces.ChangeEvent
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				ev = interfaces.ChangeEvent{Entity: entity, SessionID: sessionID}
			}
			handler(ctx, ev)
		}
	}
}
