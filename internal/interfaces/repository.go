package interfaces

import (
	"context"
	"time"

	"tableside/internal/domain"
)

// Repository contracts implemented by adapter/postgres. Single-row lookups
// return domain.ErrNotFound for absence; any other failure is a real error.
type TableRepository interface {
	FindByScanToken(ctx context.Context, token string) (*domain.Table, error)
	Create(ctx context.Context, tableNumber, scanToken string, capacity int) (*domain.Table, error)
}

type SessionRepository interface {
	Create(ctx context.Context, tableID string) (*domain.Session, error)
	FindActiveByTable(ctx context.Context, tableID string) (*domain.Session, error)
	FindByID(ctx context.Context, sessionID string) (*domain.Session, error)
	// ReplaceSubOrders overwrites the embedded sub-order list wholesale and
	// recomputes the session total. Concurrent callers can lose an append.
	ReplaceSubOrders(ctx context.Context, sessionID string, subOrders []domain.SubOrder) (*domain.Session, error)
	CreateUser(ctx context.Context, sessionID, phoneNumber, userName string) (*domain.SessionUser, error)
}

type MenuRepository interface {
	ListActiveCategories(ctx context.Context) ([]domain.MenuCategory, error)
	ListAvailableItems(ctx context.Context) ([]domain.MenuItem, error)
}

type LineOrderRepository interface {
	Create(ctx context.Context, order *domain.LineOrder) error
	// ListBySession returns the session's line orders newest-first.
	ListBySession(ctx context.Context, sessionID string) ([]domain.LineOrder, error)
}

type VerificationRepository interface {
	Create(ctx context.Context, phoneNumber, code string, expiresAt time.Time) (*domain.PhoneVerification, error)
	// Consume matches an unused, unexpired code for the phone number and
	// marks it used. A mismatch burns an attempt on the latest open row.
	Consume(ctx context.Context, phoneNumber, code string) (*domain.PhoneVerification, error)
}
