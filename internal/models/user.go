package models

import "time"

type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email,omitempty"`
	Mobile           string    `json:"mobile,omitempty"`
	PasswordHash     string    `json:"-"` // не отдаём наружу
	IsEmailVerified  bool      `json:"is_email_verified"`
	IsMobileVerified bool      `json:"is_mobile_verified"`
	CreatedAt        time.Time `json:"created_at"`
}

// LoginEligible reports whether the account may log in.
func (u *User) LoginEligible() bool {
	return u != nil && u.IsEmailVerified
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResendRequest struct {
	Email string `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the envelope returned by every auth endpoint.
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
	Token   string `json:"token,omitempty"`
}
