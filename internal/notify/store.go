package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the feed entry is absent or not addressed to the
// caller.
var ErrNotFound = errors.New("notify: notification not found")

// Store persists the notification feed. Broadcast entries are stored with a
// NULL recipient and surface in every member's feed.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert appends a feed entry and fills its id and timestamp.
func (s *Store) Insert(ctx context.Context, n *Notification) error {
	var recipient *int64
	if !n.Broadcast() {
		recipient = &n.RecipientID
	}
	data, err := json.Marshal(n.Data)
	if err != nil {
		return err
	}
	n.CreatedAt = time.Now().UTC()
	return s.pool.QueryRow(ctx, `INSERT INTO notifications
		(audience, recipient_id, type, title, message, data, read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	RETURNING id`,
		n.Audience, recipient, n.Type, n.Title, n.Message, data, n.CreatedAt,
	).Scan(&n.ID)
}

// List returns the newest feed entries visible to a recipient, direct and
// broadcast alike.
func (s *Store) List(ctx context.Context, audience Audience, recipientID int64, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `SELECT id, audience, COALESCE(recipient_id, 0),
		type, title, message, data, read, created_at
	FROM notifications
	WHERE audience = $1 AND (recipient_id = $2 OR recipient_id IS NULL)
	ORDER BY created_at DESC
	LIMIT $3`, audience, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.Audience, &n.RecipientID, &n.Type, &n.Title,
			&n.Message, &data, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &n.Data)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a directly addressed entry as read. Broadcast entries have
// no per-recipient read state and are left untouched.
func (s *Store) MarkRead(ctx context.Context, audience Audience, recipientID, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND audience = $2 AND recipient_id = $3`,
		id, audience, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
