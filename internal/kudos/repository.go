package kudos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgkudos/backend/internal/models"
)

// Repository handles kudo persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a kudos repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a kudo after re-checking the weekly quota inside a
// transaction. The sender row is locked first, so two concurrent gives from
// the same sender serialize on the count and cannot both slip under the limit.
func (r *Repository) Create(ctx context.Context, sender, receiver *models.User, message string, weekStart time.Time, limit int, now time.Time) (*models.Kudo, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var lockedID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, sender.ID).Scan(&lockedID); err != nil {
		return nil, err
	}

	var count int
	const countQ = `SELECT COUNT(*) FROM kudos WHERE sender_id = $1 AND created_at >= $2`
	if err := tx.QueryRow(ctx, countQ, sender.ID, weekStart).Scan(&count); err != nil {
		return nil, err
	}
	if err := Validate(sender, receiver, limit-count); err != nil {
		return nil, err
	}

	const insertQ = `INSERT INTO kudos (id, sender_id, receiver_id, message, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id`
	k := models.Kudo{
		OrgID:      *sender.OrganizationID,
		SenderID:   sender.ID,
		Sender:     sender.Username,
		ReceiverID: receiver.ID,
		Receiver:   receiver.Username,
		Message:    message,
		CreatedAt:  now,
	}
	if err := tx.QueryRow(ctx, insertQ, sender.ID, receiver.ID, message, now).Scan(&k.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &k, nil
}

// CountSentSince returns how many kudos the sender created on or after since.
func (r *Repository) CountSentSince(ctx context.Context, senderID uuid.UUID, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM kudos WHERE sender_id = $1 AND created_at >= $2`
	var count int
	err := r.pool.QueryRow(ctx, q, senderID, since).Scan(&count)
	return count, err
}

// ListReceived returns kudos where the user is the receiver, newest first.
func (r *Repository) ListReceived(ctx context.Context, userID uuid.UUID) ([]models.Kudo, error) {
	return r.list(ctx, `k.receiver_id = $1`, userID)
}

// ListGiven returns kudos where the user is the sender, newest first.
func (r *Repository) ListGiven(ctx context.Context, userID uuid.UUID) ([]models.Kudo, error) {
	return r.list(ctx, `k.sender_id = $1`, userID)
}

func (r *Repository) list(ctx context.Context, where string, userID uuid.UUID) ([]models.Kudo, error) {
	q := `SELECT k.id, k.sender_id, s.username, k.receiver_id, rcv.username, k.message, k.created_at
		FROM kudos k
		INNER JOIN users s ON s.id = k.sender_id
		INNER JOIN users rcv ON rcv.id = k.receiver_id
		WHERE ` + where + `
		ORDER BY k.created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Kudo
	for rows.Next() {
		var k models.Kudo
		if err := rows.Scan(&k.ID, &k.SenderID, &k.Sender, &k.ReceiverID, &k.Receiver, &k.Message, &k.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, k)
	}
	return list, rows.Err()
}
