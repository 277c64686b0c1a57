package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"homesync/internal/models"
)

// DefaultCodeTTL is how long a stored verification code stays consumable.
const DefaultCodeTTL = 10 * time.Minute

type UserVerificationRepository interface {
	// Store creates a new unused code expiring TTL from now. Earlier codes are left as is.
	Store(ctx context.Context, userID string, typ models.VerificationType, code string) (*models.VerificationCode, error)
	// FindActive returns an unused, unexpired row with exactly this code, or nil.
	FindActive(ctx context.Context, userID, code string) (*models.VerificationCode, error)
	// MarkUsed flips is_used once; a second call for the same row returns ErrAlreadyUsed.
	MarkUsed(ctx context.Context, id string) error
}

type userVerificationRepository struct {
	DB  *sql.DB
	TTL time.Duration
	now func() time.Time
}

func NewUserVerificationRepository(db *sql.DB, ttl time.Duration) UserVerificationRepository {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &userVerificationRepository{
		DB:  db,
		TTL: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Store: каждая отправка создаёт новую строку.
func (r *userVerificationRepository) Store(ctx context.Context, userID string, typ models.VerificationType, code string) (*models.VerificationCode, error) {
	const q = `
		INSERT INTO verifications (id, user_id, type, code, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`
	now := r.now()
	v := &models.VerificationCode{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Code:      code,
		ExpiresAt: now.Add(r.TTL),
		CreatedAt: now,
	}
	if _, err := r.DB.ExecContext(ctx, q, v.ID, v.UserID, string(v.Type), v.Code, v.ExpiresAt, v.CreatedAt); err != nil {
		return nil, fmt.Errorf("verification store: %w", err)
	}
	return v, nil
}

func (r *userVerificationRepository) FindActive(ctx context.Context, userID, code string) (*models.VerificationCode, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, nil
	}
	const q = `
		SELECT id, user_id, type, code, expires_at, is_used, created_at
		FROM verifications
		WHERE user_id = $1 AND code = $2 AND is_used = FALSE AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	var (
		v   models.VerificationCode
		typ string
	)
	err := r.DB.QueryRowContext(ctx, q, userID, code, r.now()).Scan(
		&v.ID, &v.UserID, &typ, &v.Code, &v.ExpiresAt, &v.IsUsed, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("verification find active: %w", err)
	}
	v.Type = models.VerificationType(typ)
	return &v, nil
}

func (r *userVerificationRepository) MarkUsed(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE verifications SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`, id)
	if err != nil {
		return fmt.Errorf("verification mark used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verification mark used: %w", err)
	}
	if n != 1 {
		return ErrAlreadyUsed
	}
	return nil
}
