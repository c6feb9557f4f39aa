package kudos

import (
	"errors"
	"time"

	"github.com/orgkudos/backend/internal/models"
)

// WeeklyLimit is the default number of kudos a user may send per calendar week.
const WeeklyLimit = 3

var (
	// ErrQuotaExceeded means the sender has no remaining kudos this week.
	ErrQuotaExceeded = errors.New("no kudos left this week")
	// ErrOrganizationMismatch means sender and receiver are not in the same
	// organization, or one of them has none.
	ErrOrganizationMismatch = errors.New("receiver must be in your organization")
	// ErrSelfKudo means sender and receiver are the same user.
	ErrSelfKudo = errors.New("cannot send kudos to yourself")
)

// WeekStart returns Monday 00:00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	// time.Weekday has Sunday = 0; shift so Monday = 0.
	days := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// Validate decides whether a candidate kudo may be persisted. It is the
// single rule function shared by the handler-level pre-check and the
// transactional insert, so the two can never drift. Rules are evaluated in
// order and the first failure wins:
//  1. remaining weekly quota must be positive;
//  2. both users must belong to the same, non-null organization;
//  3. sender must not equal receiver.
func Validate(sender, receiver *models.User, remaining int) error {
	if remaining <= 0 {
		return ErrQuotaExceeded
	}
	if sender.OrganizationID == nil || receiver.OrganizationID == nil ||
		*sender.OrganizationID != *receiver.OrganizationID {
		return ErrOrganizationMismatch
	}
	if sender.ID == receiver.ID {
		return ErrSelfKudo
	}
	return nil
}
