package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles generation_runs PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a run. Redelivered events carry the same id, so a
// duplicate insert is a no-op.
func (r *Repository) Insert(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO generation_runs (id, request_id, status, error_message, reply_chars,
		     audio_present, image_present, chat_latency_ms, total_latency_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		run.ID, run.RequestID, run.Status, run.ErrorMessage, run.ReplyChars,
		run.AudioPresent, run.ImagePresent, run.ChatLatencyMs, run.TotalLatencyMs, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting generation run: %w", err)
	}
	return nil
}

// Recent returns the newest runs first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, request_id, status, error_message, reply_chars, audio_present,
		        image_present, chat_latency_ms, total_latency_ms, created_at
		 FROM generation_runs
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing generation runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.RequestID, &run.Status, &run.ErrorMessage, &run.ReplyChars,
			&run.AudioPresent, &run.ImagePresent, &run.ChatLatencyMs, &run.TotalLatencyMs, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning generation run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
