package models

import (
	"time"

	"github.com/google/uuid"
)

// Kudo is a directed, immutable appreciation message between two users of
// the same organization. Created once, never updated; deleted only by
// cascade when a user or organization is removed.
type Kudo struct {
	ID uuid.UUID `json:"id"`
	// OrgID is the organization both parties belong to; set on create for
	// feed routing, not serialized.
	OrgID      uuid.UUID `json:"-"`
	SenderID   uuid.UUID `json:"sender_id"`
	Sender     string    `json:"sender"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Receiver   string    `json:"receiver"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
