package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a named grouping that scopes which users may exchange
// kudos. Deleting an organization removes its members and their kudos
// (enforced by the schema, not application code).
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
