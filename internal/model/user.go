package model

import "time"

// User is a registered backend account. Anonymous identities never
// appear in this table; they exist only on-device until sign-in
// migrates their highlights under a durable account id.
type User struct {
	ID           string    `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Identity is the owner a session is currently acting as: either an
// anonymous, device-local identity or an authenticated account. A
// session holds at most one identity at a time; swapping it triggers
// the sync coordinator's migration pass.
type Identity struct {
	ID            string
	Authenticated bool
}

// Anonymous reports whether the identity is device-local only.
func (i Identity) Anonymous() bool {
	return !i.Authenticated
}
