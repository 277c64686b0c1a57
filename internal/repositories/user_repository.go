package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"homesync/internal/models"
)

type UserRepository interface {
	GetByEmailOrMobile(ctx context.Context, email, mobile string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Create returns ErrDuplicate when email or mobile is already taken.
	Create(ctx context.Context, email, mobile, passwordHash string) (string, error)
	// MarkVerified returns ErrNoRows when the user does not exist.
	MarkVerified(ctx context.Context, userID string, field models.VerificationField) error
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `id, email, mobile, password_hash, is_email_verified, is_mobile_verified, created_at`

// GetByEmailOrMobile: nil, nil если пользователя нет. Empty arguments never match.
func (r *userRepository) GetByEmailOrMobile(ctx context.Context, email, mobile string) (*models.User, error) {
	const q = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 OR mobile = $2
		LIMIT 1
	`
	return r.scanOne(ctx, q, nullString(email), nullString(mobile))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(ctx, q, nullString(email))
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(ctx, q, id)
}

func (r *userRepository) Create(ctx context.Context, email, mobile, passwordHash string) (string, error) {
	const q = `
		INSERT INTO users (id, email, mobile, password_hash, is_email_verified, is_mobile_verified)
		VALUES ($1, $2, $3, $4, FALSE, FALSE)
		RETURNING id
	`
	var id string
	err := r.DB.QueryRowContext(ctx, q, uuid.NewString(), nullString(email), nullString(mobile), passwordHash).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("user create: %w", err)
	}
	return id, nil
}

// MarkVerified sets exactly one verification flag; the column is chosen here, never from input.
func (r *userRepository) MarkVerified(ctx context.Context, userID string, field models.VerificationField) error {
	var q string
	switch field {
	case models.EmailVerification:
		q = `UPDATE users SET is_email_verified = TRUE WHERE id = $1`
	case models.MobileVerification:
		q = `UPDATE users SET is_mobile_verified = TRUE WHERE id = $1`
	default:
		return fmt.Errorf("user mark verified: unknown field %d", field)
	}
	res, err := r.DB.ExecContext(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("user mark verified (%s): %w", field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user mark verified (%s): %w", field, err)
	}
	if n == 0 {
		return fmt.Errorf("user mark verified (%s): %w", field, ErrNoRows)
	}
	return nil
}

func (r *userRepository) scanOne(ctx context.Context, q string, args ...any) (*models.User, error) {
	var (
		u      models.User
		email  sql.NullString
		mobile sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(
		&u.ID, &email, &mobile, &u.PasswordHash, &u.IsEmailVerified, &u.IsMobileVerified, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user get: %w", err)
	}
	if email.Valid {
		u.Email = email.String
	}
	if mobile.Valid {
		u.Mobile = mobile.String
	}
	return &u, nil
}
