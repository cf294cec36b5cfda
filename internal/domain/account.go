package domain

import "time"

// Account is an authenticated identity. Its ID is the opaque caller
// identity the escrow core sees: creators, contributors and voters are
// all account ids.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}
