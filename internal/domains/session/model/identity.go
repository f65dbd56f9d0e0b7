package model

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the signed-in user as the rest of the app sees it.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// Session is one signed-in token's view of an Identity.
type Session struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IdentityChange is pushed on every sign-in and sign-out.
// Identity is nil when the session signed out.
type IdentityChange struct {
	SessionID string    `json:"sessionId"`
	Identity  *Identity `json:"identity"`
	At        time.Time `json:"at"`
}

// Account backs the password identity provider.
type Account struct {
	ID           uuid.UUID
	Email        string
	DisplayName  string
	PhotoURL     string
	PasswordHash string
	CreatedAt    time.Time
}

func (a *Account) Identity() Identity {
	return Identity{
		UID:         a.ID.String(),
		DisplayName: a.DisplayName,
		Email:       a.Email,
		PhotoURL:    a.PhotoURL,
	}
}
