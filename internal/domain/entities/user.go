package entities

import (
	"time"
)

// User is a dashboard operator account
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	FacilityID   string    `json:"facility_id" db:"facility_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Claims are the attributes asserted by a session token
type Claims struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Admin      bool      `json:"admin"`
	FacilityID string    `json:"facility_id"`
	TokenID    string    `json:"token_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Session is the result of a successful sign-in
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
	Claims    *Claims   `json:"claims"`
}

// AuthStateChange is emitted on every sign-in and sign-out
type AuthStateChange struct {
	Kind    ChangeKind `json:"kind"`
	UserID  string     `json:"user_id"`
	TokenID string     `json:"token_id"`
	At      time.Time  `json:"at"`
}
