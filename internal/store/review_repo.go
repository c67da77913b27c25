package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/utils"
)

// ReviewRepo persists review-queue items.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo constructs a ReviewRepo over an open database.
func NewReviewRepo(db *sql.DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

// Enqueue stores one review item. Items are write-once.
func (r *ReviewRepo) Enqueue(ctx context.Context, item models.ReviewQueueItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return utils.NewAppError("review.enqueue", "encode review item", err)
	}

	const q = `INSERT INTO review_queue (id, error_id, priority, status, payload_json, queued_at)
VALUES (?, ?, ?, 'pending', ?, ?)`
	if _, err := r.db.ExecContext(ctx, q,
		item.ID,
		item.ErrorEvent.ID,
		item.Priority,
		string(payload),
		item.QueuedAt.Unix(),
	); err != nil {
		return utils.NewAppError("review.enqueue", "insert review item", err)
	}
	return nil
}

// ListPending returns pending items ordered by priority (highest first),
// then arrival.
func (r *ReviewRepo) ListPending(ctx context.Context, limit int) ([]models.ReviewQueueItem, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT payload_json FROM review_queue
WHERE status = 'pending'
ORDER BY priority DESC, queued_at ASC
LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, utils.NewAppError("review.list", "query pending items", err)
	}
	defer rows.Close()

	var items []models.ReviewQueueItem
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, utils.NewAppError("review.list", "scan review item", err)
		}
		var item models.ReviewQueueItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, utils.NewAppError("review.list", "decode review item", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkResolved flips an item out of the pending state once a human picks
// it up.
func (r *ReviewRepo) MarkResolved(ctx context.Context, id string) error {
	const q = `UPDATE review_queue SET status = 'resolved' WHERE id = ? AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return utils.NewAppError("review.resolve", "update review item", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return utils.NewAppError("review.resolve", "update review item", err)
	}
	if affected == 0 {
		return utils.NewAppError("review.resolve", fmt.Sprintf("item %s not pending", id), nil)
	}
	return nil
}
