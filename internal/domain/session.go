package domain

import (
	"errors"
	"time"
)

type TableStatus string

const (
	TableStatusAvailable TableStatus = "available"
	TableStatusOccupied  TableStatus = "occupied"
	TableStatusCleaning  TableStatus = "cleaning"
)

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

type SubOrderStatus string

const (
	SubOrderStatusPending   SubOrderStatus = "pending"
	SubOrderStatusPreparing SubOrderStatus = "preparing"
	SubOrderStatusReady     SubOrderStatus = "ready"
	SubOrderStatusDelivered SubOrderStatus = "delivered"
)

// Table represents one physical table that diners join by scanning its token.
type Table struct {
	ID          string      `json:"id"`
	TableNumber string      `json:"table_number"`
	ScanToken   string      `json:"scan_token"`
	Capacity    int         `json:"capacity"`
	Status      TableStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
}

// SubOrder is one diner's single checkout within a session. It is embedded in
// the session's sub_orders list, not a joined table, so its JSON shape is the
// wire shape.
type SubOrder struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	UserName     string         `json:"user_name"`
	SubOrderName string         `json:"sub_order_name"`
	Status       SubOrderStatus `json:"status"`
	TotalAmount  float64        `json:"total_amount"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Session is one active ordering period for a table. At most one session per
// table is active at any time. TotalAmount always equals the sum of the
// embedded sub-order totals.
type Session struct {
	ID          string        `json:"id"`
	TableID     string        `json:"table_id"`
	Status      SessionStatus `json:"status"`
	SubOrders   []SubOrder    `json:"sub_orders"`
	TotalAmount float64       `json:"total_amount"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
}

// SubOrdersTotal sums the totals of the given sub-orders.
func SubOrdersTotal(subOrders []SubOrder) float64 {
	total := 0.0
	for _, so := range subOrders {
		total += so.TotalAmount
	}
	return total
}

// SessionUser is a diner who joined a session. Created once at verification
// completion and never mutated afterward.
type SessionUser struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	PhoneNumber string     `json:"phone_number"`
	UserName    string     `json:"user_name"`
	IsVerified  bool       `json:"is_verified"`
	JoinedAt    time.Time  `json:"joined_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// NewSubOrder builds a pending sub-order owned by the given user.
func NewSubOrder(id string, user *SessionUser, name string, total float64, now time.Time) SubOrder {
	return SubOrder{
		ID:           id,
		UserID:       user.ID,
		UserName:     user.UserName,
		SubOrderName: name,
		Status:       SubOrderStatusPending,
		TotalAmount:  total,
		CreatedAt:    now,
	}
}

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyCart    = errors.New("empty cart")
	ErrNameRequired = errors.New("name required")
	ErrNoSession    = errors.New("no active session")
)
