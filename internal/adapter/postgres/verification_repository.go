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

type verificationRepository struct {
	db DB
}

func NewVerificationRepository(db DB) interfaces.VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Create(ctx context.Context, phoneNumber, code string, expiresAt time.Time) (*domain.PhoneVerification, error) {
	v := domain.PhoneVerification{
		ID:          uuid.NewString(),
		PhoneNumber: phoneNumber,
		Code:        code,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO phone_verifications (id, phone_number, verification_code, expires_at, attempts, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.Exec(ctx, query,
		v.ID, v.PhoneNumber, v.Code, v.ExpiresAt, v.Attempts, v.IsUsed, v.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create phone verification: %w", err)
	}

	return &v, nil
}

// Consume looks at the latest open code for the phone number. An exact match
// marks it used; a mismatch burns one attempt, and the attempt budget closes
// the row for good.
func (r *verificationRepository) Consume(ctx context.Context, phoneNumber, code string) (*domain.PhoneVerification, error) {
	query := fmt.Sprintf(`
		SELECT id, phone_number, verification_code, expires_at, attempts, is_used, created_at
		FROM phone_verifications
		WHERE phone_number = $1 AND is_used = FALSE AND %s
		ORDER BY created_at DESC
		LIMIT 1
	`, notDeleted(""))

	var v domain.PhoneVerification
	err := r.db.QueryRow(ctx, query, phoneNumber).Scan(
		&v.ID, &v.PhoneNumber, &v.Code, &v.ExpiresAt, &v.Attempts, &v.IsUsed, &v.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInvalidCode
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up phone verification: %w", err)
	}

	if time.Now().After(v.ExpiresAt) {
		return nil, domain.ErrCodeExpired
	}
	if v.Attempts >= domain.MaxVerificationAttempts {
		return nil, domain.ErrTooManyAttempts
	}

	if v.Code != code {
		bump := `UPDATE phone_verifications SET attempts = attempts + 1 WHERE id = $1`
		if _, err := r.db.Exec(ctx, bump, v.ID); err != nil {
			return nil, fmt.Errorf("failed to record failed attempt: %w", err)
		}
		if v.Attempts+1 >= domain.MaxVerificationAttempts {
			return nil, domain.ErrTooManyAttempts
		}
		return nil, domain.ErrInvalidCode
	}

	mark := `UPDATE phone_verifications SET is_used = TRUE WHERE id = $1`
	if _, err := r.db.Exec(ctx, mark, v.ID); err != nil {
		return nil, fmt.Errorf("failed to mark verification used: %w", err)
	}
	v.IsUsed = true

	return &v, nil
}
