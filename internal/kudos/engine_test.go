package kudos

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgkudos/backend/internal/models"
)

// fakeStore is an in-memory UserStore + KudoStore. Create mirrors the real
// repository: it recomputes the count and runs Validate before inserting.
type fakeStore struct {
	users map[uuid.UUID]*models.User
	kudos []models.Kudo
}

func newFakeStore(users ...*models.User) *fakeStore {
	f := &fakeStore{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) CountSentSince(_ context.Context, senderID uuid.UUID, since time.Time) (int, error) {
	count := 0
	for _, k := range f.kudos {
		if k.SenderID == senderID && !k.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Create(ctx context.Context, sender, receiver *models.User, message string, weekStart time.Time, limit int, now time.Time) (*models.Kudo, error) {
	count, _ := f.CountSentSince(ctx, sender.ID, weekStart)
	if err := Validate(sender, receiver, limit-count); err != nil {
		return nil, err
	}
	k := models.Kudo{
		ID:         uuid.New(),
		OrgID:      *sender.OrganizationID,
		SenderID:   sender.ID,
		Sender:     sender.Username,
		ReceiverID: receiver.ID,
		Receiver:   receiver.Username,
		Message:    message,
		CreatedAt:  now,
	}
	f.kudos = append(f.kudos, k)
	return &k, nil
}

func (f *fakeStore) ListReceived(_ context.Context, userID uuid.UUID) ([]models.Kudo, error) {
	return f.filter(func(k models.Kudo) bool { return k.ReceiverID == userID }), nil
}

func (f *fakeStore) ListGiven(_ context.Context, userID uuid.UUID) ([]models.Kudo, error) {
	return f.filter(func(k models.Kudo) bool { return k.SenderID == userID }), nil
}

func (f *fakeStore) filter(keep func(models.Kudo) bool) []models.Kudo {
	var out []models.Kudo
	for _, k := range f.kudos {
		if keep(k) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Tuesday 10:00 UTC; week starts Monday 2024-03-11 00:00.
var tuesday = time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)

func twoUsersSameOrg() (*models.User, *models.User) {
	org := uuid.New()
	a := &models.User{ID: uuid.New(), Username: "alice", OrganizationID: &org}
	b := &models.User{ID: uuid.New(), Username: "bob", OrganizationID: &org}
	return a, b
}

func TestEngine_Give_WeeklyQuota(t *testing.T) {
	a, b := twoUsersSameOrg()
	store := newFakeStore(a, b)
	engine := NewEngine(store, store, 3, fixedClock(tuesday))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		k, err := engine.Give(ctx, a.ID, b.ID, "great work")
		require.NoError(t, err, "give %d", i+1)
		assert.Equal(t, a.ID, k.SenderID)
		assert.Equal(t, b.ID, k.ReceiverID)
	}

	_, err := engine.Give(ctx, a.ID, b.ID, "one too many")
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	left, err := engine.KudosLeft(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestEngine_Give_OrganizationMismatch(t *testing.T) {
	acme := uuid.New()
	globex := uuid.New()
	a := &models.User{ID: uuid.New(), Username: "alice", OrganizationID: &acme}
	c := &models.User{ID: uuid.New(), Username: "carol", OrganizationID: &globex}
	d := &models.User{ID: uuid.New(), Username: "dave"} // no organization
	store := newFakeStore(a, c, d)
	engine := NewEngine(store, store, 3, fixedClock(tuesday))
	ctx := context.Background()

	_, err := engine.Give(ctx, a.ID, c.ID, "thanks")
	assert.ErrorIs(t, err, ErrOrganizationMismatch)

	_, err = engine.Give(ctx, a.ID, d.ID, "thanks")
	assert.ErrorIs(t, err, ErrOrganizationMismatch)

	// Unassigned users cannot send either.
	_, err = engine.Give(ctx, d.ID, a.ID, "thanks")
	assert.ErrorIs(t, err, ErrOrganizationMismatch)

	assert.Empty(t, store.kudos, "no partial writes on validation failure")
}

func TestEngine_Give_Self(t *testing.T) {
	a, _ := twoUsersSameOrg()
	store := newFakeStore(a)
	engine := NewEngine(store, store, 3, fixedClock(tuesday))

	_, err := engine.Give(context.Background(), a.ID, a.ID, "me")
	assert.ErrorIs(t, err, ErrSelfKudo)
}

func TestEngine_Give_UnknownReceiver(t *testing.T) {
	a, _ := twoUsersSameOrg()
	store := newFakeStore(a)
	engine := NewEngine(store, store, 3, fixedClock(tuesday))

	_, err := engine.Give(context.Background(), a.ID, uuid.New(), "hi")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestEngine_Give_CreatedAt(t *testing.T) {
	a, b := twoUsersSameOrg()
	store := newFakeStore(a, b)
	engine := NewEngine(store, store, 3, fixedClock(tuesday))

	k, err := engine.Give(context.Background(), a.ID, b.ID, "hi")
	require.NoError(t, err)
	assert.True(t, k.CreatedAt.Equal(tuesday))
	start := WeekStart(tuesday)
	assert.False(t, k.CreatedAt.Before(start))
	assert.False(t, k.CreatedAt.After(tuesday))
}

func TestEngine_WeekBoundary(t *testing.T) {
	a, b := twoUsersSameOrg()
	store := newFakeStore(a, b)
	ctx := context.Background()

	// Exhaust the quota just before the week turns over.
	sunday := time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC)
	engine := NewEngine(store, store, 3, fixedClock(sunday))
	for i := 0; i < 3; i++ {
		_, err := engine.Give(ctx, a.ID, b.ID, "late sunday")
		require.NoError(t, err)
	}
	_, err := engine.Give(ctx, a.ID, b.ID, "over")
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// One second into Monday the counter resets.
	monday := time.Date(2024, 3, 11, 0, 0, 1, 0, time.UTC)
	engine = NewEngine(store, store, 3, fixedClock(monday))

	given, err := engine.GivenThisWeek(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, given)

	left, err := engine.KudosLeft(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, left)

	_, err = engine.Give(ctx, a.ID, b.ID, "fresh week")
	assert.NoError(t, err)
}

func TestEngine_KudosLeft(t *testing.T) {
	a, b := twoUsersSameOrg()
	ctx := context.Background()

	for given := 0; given <= 5; given++ {
		store := newFakeStore(a, b)
		for i := 0; i < given; i++ {
			store.kudos = append(store.kudos, models.Kudo{
				ID: uuid.New(), SenderID: a.ID, ReceiverID: b.ID,
				Message: "x", CreatedAt: tuesday.Add(-time.Duration(i) * time.Minute),
			})
		}
		engine := NewEngine(store, store, 3, fixedClock(tuesday))
		left, err := engine.KudosLeft(ctx, a.ID)
		require.NoError(t, err)
		want := 3 - given
		if want < 0 {
			want = 0
		}
		assert.Equal(t, want, left, "given=%d", given)
	}
}

func TestEngine_RoundTripAndOrdering(t *testing.T) {
	a, b := twoUsersSameOrg()
	store := newFakeStore(a, b)
	ctx := context.Background()

	var created []*models.Kudo
	for i, msg := range []string{"first", "second", "third"} {
		at := tuesday.Add(time.Duration(i) * time.Hour)
		engine := NewEngine(store, store, 3, fixedClock(at))
		k, err := engine.Give(ctx, a.ID, b.ID, msg)
		require.NoError(t, err)
		created = append(created, k)
	}

	engine := NewEngine(store, store, 3, fixedClock(tuesday.Add(3*time.Hour)))

	given, err := engine.ListGiven(ctx, a.ID)
	require.NoError(t, err)
	received, err := engine.ListReceived(ctx, b.ID)
	require.NoError(t, err)

	require.Len(t, given, 3)
	require.Len(t, received, 3)
	assert.Equal(t, given, received, "same kudos visible from both sides")

	// Newest first, unchanged contents.
	for i, k := range given {
		want := created[len(created)-1-i]
		assert.Equal(t, want.ID, k.ID)
		assert.Equal(t, want.Message, k.Message)
		if i > 0 {
			assert.True(t, given[i-1].CreatedAt.After(k.CreatedAt))
		}
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	a, b := twoUsersSameOrg()
	store := newFakeStore(a, b)
	engine := NewEngine(store, store, 0, nil)

	assert.Equal(t, WeeklyLimit, engine.limit)
	left, err := engine.KudosLeft(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, WeeklyLimit, left)
}
