package interfaces

import (
	"context"
	"time"
)

// Entities whose changes are published on the notification channel.
type ChangeEntity string

const (
	EntityLineOrders ChangeEntity = "orders"
	EntitySessions   ChangeEntity = "sessions"
)

type ChangeOp string

const (
	ChangeOpInsert ChangeOp = "insert"
	ChangeOpUpdate ChangeOp = "update"
	ChangeOpDelete ChangeOp = "delete"
)

// ChangeEvent says that something changed for a session's entity. It carries
// no payload diff; subscribers must re-fetch rather than patch.
type ChangeEvent struct {
	Entity     ChangeEntity `json:"entity"`
	SessionID  string       `json:"session_id"`
	Op         ChangeOp     `json:"op"`
	OccurredAt time.Time    `json:"occurred_at"`
}

type ChangeHandler func(ctx context.Context, ev ChangeEvent)

// Messaging contracts implemented by adapter/rabbitmq.
type ChangePublisher interface {
	PublishChange(ctx context.Context, ev ChangeEvent) error
}

type ChangeConsumer interface {
	// Consume delivers every change event for one entity of one session
	// until ctx is cancelled. The session id is the equality filter: events
	// for other sessions are never delivered.
	Consume(ctx context.Context, entity ChangeEntity, sessionID string, handler ChangeHandler) error
}
