package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{DB: db}
}

// DeleteExpiredMeetings removes meetings whose grace period ended before the given time.
func (r *JobRepository) DeleteExpiredMeetings(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM meetings WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired meetings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		slog.WarnContext(ctx, "could not get rows affected", "error", err)
		return 0, nil
	}
	return rowsAffected, nil
}
