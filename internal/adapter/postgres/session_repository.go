package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tableside/internal/domain"
	"tableside/internal/interfaces"
)

type sessionRepository struct {
	db DB
}

func NewSessionRepository(db DB) interfaces.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, tableID string) (*domain.Session, error) {
	s := domain.Session{
		ID:        uuid.NewString(),
		TableID:   tableID,
		Status:    domain.SessionStatusActive,
		SubOrders: []domain.SubOrder{},
		CreatedAt: time.Now().UTC(),
	}

	subOrders, err := json.Marshal(s.SubOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sub-orders: %w", err)
	}

	query := `
		INSERT INTO table_sessions (id, table_id, status, sub_orders, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(ctx, query,
		s.ID, s.TableID, s.Status, subOrders, s.TotalAmount, s.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &s, nil
}

func (r *sessionRepository) FindActiveByTable(ctx context.Context, tableID string) (*domain.Session, error) {
	query := fmt.Sprintf(`
		SELECT id, table_id, status, sub_orders, total_amount, created_at, completed_at
		FROM table_sessions
		WHERE table_id = $1 AND status = $2 AND %s
	`, notDeleted(""))

	return r.scanSession(r.db.QueryRow(ctx, query, tableID, domain.SessionStatusActive))
}

func (r *sessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := fmt.Sprintf(`
		SELECT id, table_id, status, sub_orders, total_amount, created_at, completed_at
		FROM table_sessions
		WHERE id = $1 AND %s
	`, notDeleted(""))

	return r.scanSession(r.db.QueryRow(ctx, query, sessionID))
}

// ReplaceSubOrders is a whole-list overwrite, not an append. Two diners
// submitting in the same window can each read the list without the other's
// addition and drop one sub-order; callers own that retry contract.
func (r *sessionRepository) ReplaceSubOrders(ctx context.Context, sessionID string, subOrders []domain.SubOrder) (*domain.Session, error) {
	if subOrders == nil {
		subOrders = []domain.SubOrder{}
	}

	encoded, err := json.Marshal(subOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sub-orders: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE table_sessions
		SET sub_orders = $1, total_amount = $2
		WHERE id = $3 AND %s
		RETURNING id, table_id, status, sub_orders, total_amount, created_at, completed_at
	`, notDeleted(""))

	return r.scanSession(r.db.QueryRow(ctx, query, encoded, domain.SubOrdersTotal(subOrders), sessionID))
}

func (r *sessionRepository) CreateUser(ctx context.Context, sessionID, phoneNumber, userName string) (*domain.SessionUser, error) {
	u := domain.SessionUser{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		PhoneNumber: phoneNumber,
		UserName:    userName,
		IsVerified:  true,
		JoinedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO session_users (id, session_id, phone_number, user_name, is_verified, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(ctx, query,
		u.ID, u.SessionID, u.PhoneNumber, u.UserName, u.IsVerified, u.JoinedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create session user: %w", err)
	}

	return &u, nil
}

func (r *sessionRepository) scanSession(row Row) (*domain.Session, error) {
	var (
		s       domain.Session
		encoded []byte
	)
	err := row.Scan(&s.ID, &s.TableID, &s.Status, &encoded, &s.TotalAmount, &s.CreatedAt, &s.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if len(encoded) > 0 {
		if err := json.Unmarshal(encoded, &s.SubOrders); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sub-orders: %w", err)
		}
	}
	if s.SubOrders == nil {
		s.SubOrders = []domain.SubOrder{}
	}

	return &s, nil
}
