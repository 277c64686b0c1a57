package models

import "time"

// VerificationType is the channel a code was issued for.
type VerificationType string

const (
	VerificationTypeEmail  VerificationType = "email"
	VerificationTypeMobile VerificationType = "mobile"
)

// VerificationField selects which verification flag on users is set.
type VerificationField int

const (
	EmailVerification VerificationField = iota + 1
	MobileVerification
)

func (f VerificationField) String() string {
	switch f {
	case EmailVerification:
		return "email"
	case MobileVerification:
		return "mobile"
	default:
		return "unknown"
	}
}

// VerificationCode: отдельная запись на каждую отправку кода.
// Код активен, пока IsUsed=false и ExpiresAt в будущем.
type VerificationCode struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      VerificationType `json:"type"`
	Code      string           `json:"-"`
	ExpiresAt time.Time        `json:"expires_at"`
	IsUsed    bool             `json:"is_used"`
	CreatedAt time.Time        `json:"created_at"`
}

// Active reports whether the code can still be consumed at now.
func (v *VerificationCode) Active(now time.Time) bool {
	return v != nil && !v.IsUsed && now.Before(v.ExpiresAt)
}
