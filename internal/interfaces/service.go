package interfaces

import (
	"context"
	"time"

	"tableside/internal/domain"
)

// Service contracts consumed by the HTTP adapters.
type JoinService interface {
	Scan(ctx context.Context, scanToken string) (*domain.Session, *domain.Table, error)
	JoinByTableNumber(ctx context.Context, tableNumber string) (*domain.Session, *domain.Table, error)
	LoadMenu(ctx context.Context) error
	RequestCode(ctx context.Context, phoneNumber string) error
	Verify(ctx context.Context, phoneNumber, code, userName string) (*domain.SessionUser, error)
}

type CheckoutService interface {
	PlaceOrder(ctx context.Context, subOrderName string) (*domain.SubOrder, error)
}

// BoardSnapshot is the aggregated table view the sync controller republishes
// after every re-fetch.
type BoardSnapshot struct {
	Session   *domain.Session    `json:"session"`
	Orders    []domain.LineOrder `json:"orders"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// StateStorage is the durable key-value persistence behind the client state
// store. Load returns (nil, nil) when nothing has been saved yet.
type StateStorage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}
