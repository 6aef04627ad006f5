package domain

import "time"

// Module is a service-to-service caller that authenticates with a
// long-lived bearer token.
type Module struct {
	ID          string
	Name        string
	Slug        string
	Description string
	IsActive    bool
	LastUsedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
