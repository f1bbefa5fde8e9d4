package sqlite

import (
	"context"
	"database/sql"
	"time"

	"pouchlog/internal/domain"
)

// Timestamps are stored as Unix seconds; SQLite has no native time type and
// epoch seconds keep comparisons cheap and unambiguous.

// AddEvent inserts a new dose event.
func (db *DB) AddEvent(ctx context.Context, userID int64, e domain.DoseEvent) error {
	var end any
	if e.EndTime != nil {
		end = e.EndTime.UTC().Unix()
	}
	_, err := db.sql.ExecContext(ctx,
		"INSERT INTO dose_events(id, user_id, content_mg, start_time, end_time, planned_duration_s) VALUES(?, ?, ?, ?, ?, ?)",
		e.ID, userID, e.Content, e.StartTime.UTC().Unix(), end, int64(e.PlannedDuration.Seconds()),
	)
	return err
}

// CloseEvent sets end_time on an open event; a no-op when the row is already
// closed or missing.
func (db *DB) CloseEvent(ctx context.Context, userID int64, id string, endTime time.Time) (bool, error) {
	res, err := db.sql.ExecContext(ctx,
		"UPDATE dose_events SET end_time=? WHERE id=? AND user_id=? AND end_time IS NULL",
		endTime.UTC().Unix(), id, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListEventsSince returns events starting at or after since, ascending.
func (db *DB) ListEventsSince(ctx context.Context, userID int64, since time.Time) ([]domain.DoseEvent, error) {
	rows, err := db.sql.QueryContext(ctx,
		"SELECT id, content_mg, start_time, end_time, planned_duration_s FROM dose_events WHERE user_id=? AND start_time >= ? ORDER BY start_time ASC",
		userID, since.UTC().Unix(),
	)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows, userID)
}

// ListOpenEvents returns events without an end time, ascending by start time.
func (db *DB) ListOpenEvents(ctx context.Context, userID int64) ([]domain.DoseEvent, error) {
	rows, err := db.sql.QueryContext(ctx,
		"SELECT id, content_mg, start_time, end_time, planned_duration_s FROM dose_events WHERE user_id=? AND end_time IS NULL ORDER BY start_time ASC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows, userID)
}

// ListRecentEvents returns up to limit most recent events, ascending.
func (db *DB) ListRecentEvents(ctx context.Context, userID int64, limit int) ([]domain.DoseEvent, error) {
	rows, err := db.sql.QueryContext(ctx,
		"SELECT id, content_mg, start_time, end_time, planned_duration_s FROM (SELECT * FROM dose_events WHERE user_id=? ORDER BY start_time DESC LIMIT ?) ORDER BY start_time ASC",
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows, userID)
}

func scanEvents(rows *sql.Rows, userID int64) ([]domain.DoseEvent, error) {
	defer rows.Close() //nolint:errcheck

	var out []domain.DoseEvent
	for rows.Next() {
		var (
			e         domain.DoseEvent
			start     int64
			end       sql.NullInt64
			durationS int64
		)
		if err := rows.Scan(&e.ID, &e.Content, &start, &end, &durationS); err != nil {
			return nil, err
		}
		e.UserID = userID
		e.StartTime = time.Unix(start, 0).UTC()
		e.PlannedDuration = time.Duration(durationS) * time.Second
		if end.Valid {
			t := time.Unix(end.Int64, 0).UTC()
			e.EndTime = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
