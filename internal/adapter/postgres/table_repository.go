package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tableside/internal/domain"
	"tableside/internal/interfaces"
)

type tableRepository struct {
	db DB
}

func NewTableRepository(db DB) interfaces.TableRepository {
	return &tableRepository{db: db}
}

func (r *tableRepository) FindByScanToken(ctx context.Context, token string) (*domain.Table, error) {
	query := fmt.Sprintf(`
		SELECT id, table_number, scan_token, capacity, status, created_at, updated_at
		FROM tables
		WHERE scan_token = $1 AND %s
	`, notDeleted(""))

	var t domain.Table
	err := r.db.QueryRow(ctx, query, token).Scan(
		&t.ID, &t.TableNumber, &t.ScanToken, &t.Capacity, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find table by scan token: %w", err)
	}

	return &t, nil
}

func (r *tableRepository) Create(ctx context.Context, tableNumber, scanToken string, capacity int) (*domain.Table, error) {
	now := time.Now().UTC()
	t := domain.Table{
		ID:          uuid.NewString(),
		TableNumber: tableNumber,
		ScanToken:   scanToken,
		Capacity:    capacity,
		Status:      domain.TableStatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
		INSERT INTO tables (id, table_number, scan_token, capacity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.Exec(ctx, query,
		t.ID, t.TableNumber, t.ScanToken, t.Capacity, t.Status, t.CreatedAt, t.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &t, nil
}
