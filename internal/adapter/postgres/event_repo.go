package postgres

import (
	"context"
	"database/sql"
	"time"

	"pouchlog/internal/domain"
)

// AddEvent inserts a new dose event.
func (d *DB) AddEvent(ctx context.Context, userID int64, e domain.DoseEvent) error {
	var end any
	if e.EndTime != nil {
		end = e.EndTime.UTC()
	}
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO dose_events(id, user_id, content_mg, start_time, end_time, planned_duration_s) VALUES($1, $2, $3, $4, $5, $6);",
		e.ID, userID, e.Content, e.StartTime.UTC(), end, int64(e.PlannedDuration.Seconds()),
	)
	return err
}

// CloseEvent sets end_time on an open event. The WHERE clause only matches
// rows still open, so a racing close elsewhere makes this a no-op rather
// than a second mutation.
func (d *DB) CloseEvent(ctx context.Context, userID int64, id string, endTime time.Time) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		"UPDATE dose_events SET end_time=$1 WHERE id=$2 AND user_id=$3 AND end_time IS NULL;",
		endTime.UTC(), id, userID,
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
func (d *DB) ListEventsSince(ctx context.Context, userID int64, since time.Time) ([]domain.DoseEvent, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, content_mg, start_time, end_time, planned_duration_s FROM dose_events WHERE user_id=$1 AND start_time >= $2 ORDER BY start_time ASC;",
		userID, since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows, userID)
}

// ListOpenEvents returns events without an end time, ascending by start time.
func (d *DB) ListOpenEvents(ctx context.Context, userID int64) ([]domain.DoseEvent, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, content_mg, start_time, end_time, planned_duration_s FROM dose_events WHERE user_id=$1 AND end_time IS NULL ORDER BY start_time ASC;",
		userID,
	)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows, userID)
}

// ListRecentEvents returns the most recent events up to limit, ascending by
// start time within the window.
func (d *DB) ListRecentEvents(ctx context.Context, userID int64, limit int) ([]domain.DoseEvent, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, content_mg, start_time, end_time, planned_duration_s FROM (SELECT * FROM dose_events WHERE user_id=$1 ORDER BY start_time DESC LIMIT $2) sub ORDER BY start_time ASC;",
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
			end       sql.NullTime
			durationS int64
		)
		if err := rows.Scan(&e.ID, &e.Content, &e.StartTime, &end, &durationS); err != nil {
			return nil, err
		}
		e.UserID = userID
		e.PlannedDuration = time.Duration(durationS) * time.Second
		if end.Valid {
			t := end.Time.UTC()
			e.EndTime = &t
		}
		e.StartTime = e.StartTime.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
