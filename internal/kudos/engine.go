package kudos

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orgkudos/backend/internal/models"
)

// UserStore is the slice of the user repository the engine needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// KudoStore persists kudos. Create must re-run Validate with an in-transaction
// count under a lock on the sender so concurrent gives cannot exceed the quota.
type KudoStore interface {
	Create(ctx context.Context, sender, receiver *models.User, message string, weekStart time.Time, limit int, now time.Time) (*models.Kudo, error)
	CountSentSince(ctx context.Context, senderID uuid.UUID, since time.Time) (int, error)
	ListReceived(ctx context.Context, userID uuid.UUID) ([]models.Kudo, error)
	ListGiven(ctx context.Context, userID uuid.UUID) ([]models.Kudo, error)
}

// Engine evaluates the eligibility rules and creates kudos. The clock is
// injectable so week-boundary behavior is deterministic in tests.
type Engine struct {
	users UserStore
	kudos KudoStore
	limit int
	clock func() time.Time
}

// NewEngine creates a rule engine. A limit <= 0 falls back to WeeklyLimit;
// a nil clock falls back to time.Now.
func NewEngine(users UserStore, kudos KudoStore, limit int, clock func() time.Time) *Engine {
	if limit <= 0 {
		limit = WeeklyLimit
	}
	if clock == nil {
		clock = time.Now
	}
	return &Engine{users: users, kudos: kudos, limit: limit, clock: clock}
}

// Give validates and persists a kudo from sender to receiver. On a rule
// failure it returns one of the sentinel errors from rules.go and writes
// nothing.
func (e *Engine) Give(ctx context.Context, senderID, receiverID uuid.UUID, message string) (*models.Kudo, error) {
	sender, err := e.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := e.users.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	weekStart := WeekStart(now)
	count, err := e.kudos.CountSentSince(ctx, sender.ID, weekStart)
	if err != nil {
		return nil, err
	}
	if err := Validate(sender, receiver, e.limit-count); err != nil {
		return nil, err
	}
	return e.kudos.Create(ctx, sender, receiver, message, weekStart, e.limit, now)
}

// GivenThisWeek returns how many kudos the user has sent since the start of
// the current week.
func (e *Engine) GivenThisWeek(ctx context.Context, userID uuid.UUID) (int, error) {
	return e.kudos.CountSentSince(ctx, userID, WeekStart(e.clock()))
}

// KudosLeft returns max(0, limit - given this week).
func (e *Engine) KudosLeft(ctx context.Context, userID uuid.UUID) (int, error) {
	given, err := e.GivenThisWeek(ctx, userID)
	if err != nil {
		return 0, err
	}
	if left := e.limit - given; left > 0 {
		return left, nil
	}
	return 0, nil
}

// ListReceived returns kudos received by the user, newest first.
func (e *Engine) ListReceived(ctx context.Context, userID uuid.UUID) ([]models.Kudo, error) {
	return e.kudos.ListReceived(ctx, userID)
}

// ListGiven returns kudos sent by the user, newest first.
func (e *Engine) ListGiven(ctx context.Context, userID uuid.UUID) ([]models.Kudo, error) {
	return e.kudos.ListGiven(ctx, userID)
}
