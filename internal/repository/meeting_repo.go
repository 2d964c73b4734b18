package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"coworkspace/internal/db"
	apperrors "coworkspace/internal/errors"
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
	pqInvalidText        = "22P02"
)

const meetingColumns = `id, full_name, email, phone_number, start_time, end_time,
	external_event_id, external_join_link, status, notes, expires_at, created_at, updated_at`

type MeetingRepository struct {
	DB *sql.DB
}

func NewMeetingRepository(db *sql.DB) *MeetingRepository {
	return &MeetingRepository{DB: db}
}

func (r *MeetingRepository) FindOverlapping(ctx context.Context, start, end time.Time, excludeStatus db.MeetingStatus) ([]db.Meeting, error) {
	query := `SELECT ` + meetingColumns + `
		FROM meetings
		WHERE start_time < $2 AND end_time > $1 AND status <> $3
		ORDER BY start_time`
	return r.queryMeetings(ctx, query, start, end, string(excludeStatus))
}

func (r *MeetingRepository) FindInRange(ctx context.Context, start, end time.Time, excludeStatus db.MeetingStatus) ([]db.Meeting, error) {
	query := `SELECT ` + meetingColumns + `
		FROM meetings
		WHERE start_time >= $1 AND start_time < $2 AND status <> $3
		ORDER BY start_time`
	return r.queryMeetings(ctx, query, start, end, string(excludeStatus))
}

func (r *MeetingRepository) Insert(ctx context.Context, m *db.Meeting) error {
	query := `
		INSERT INTO meetings
		(id, full_name, email, phone_number, start_time, end_time, external_event_id, external_join_link, status, notes, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query,
		m.ID,
		m.FullName,
		m.Email,
		m.PhoneNumber,
		m.StartTime,
		m.EndTime,
		m.ExternalEventID,
		m.ExternalJoinLink,
		string(m.Status),
		m.Notes,
		m.ExpiresAt,
		m.CreatedAt,
		m.UpdatedAt,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isSlotConflict(err) {
			return ErrSlotConflict
		}
		return fmt.Errorf("error inserting meeting: %w", err)
	}
	return nil
}

func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*db.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`
	m, err := scanMeeting(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, fmt.Errorf("meeting '%s': %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying meeting: %w", err)
	}
	return m, nil
}

func (r *MeetingRepository) UpdateStatus(ctx context.Context, id string, status db.MeetingStatus) (*db.Meeting, error) {
	query := `UPDATE meetings SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING ` + meetingColumns
	m, err := scanMeeting(r.DB.QueryRowContext(ctx, query, id, string(status), string(db.StatusScheduled)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			current, findErr := r.FindByID(ctx, id)
			if findErr != nil {
				return nil, findErr
			}
			return nil, fmt.Errorf("meeting '%s' is %s: %w", id, current.Status, apperrors.ErrNotScheduled)
		}
		if isMalformedID(err) {
			return nil, fmt.Errorf("meeting '%s': %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error updating meeting status: %w", err)
	}
	return m, nil
}

func (r *MeetingRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func (r *MeetingRepository) queryMeetings(ctx context.Context, query string, args ...any) ([]db.Meeting, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying meetings: %w", err)
	}
	defer rows.Close()

	var meetings []db.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning meeting: %w", err)
		}
		meetings = append(meetings, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating meeting rows: %w", err)
	}
	return meetings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*db.Meeting, error) {
	var m db.Meeting
	var status string
	err := row.Scan(
		&m.ID, &m.FullName, &m.Email, &m.PhoneNumber, &m.StartTime, &m.EndTime,
		&m.ExternalEventID, &m.ExternalJoinLink, &status, &m.Notes, &m.ExpiresAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Status = db.MeetingStatus(status)
	return &m, nil
}

// isSlotConflict recognises both the unique start_time index and the
// exclusion constraint on overlapping ranges.
func isSlotConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqUniqueViolation || pqErr.Code == pqExclusionViolation
}

// isMalformedID reports an id that Postgres could not cast to uuid.
func isMalformedID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidText
}
