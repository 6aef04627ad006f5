package domain

import "time"

type User struct {
	ID        string
	Name      string
	Email     string
	GoogleID  *string
	Avatar    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GoogleCredentials is the per-user credential store for the external
// provider. All fields are plaintext here; the service layer seals them
// before they reach the store.
type GoogleCredentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time // nil means unknown and is treated as stale
}

// Connected reports whether an access token has ever been stored.
func (c GoogleCredentials) Connected() bool { return c.AccessToken != "" }
