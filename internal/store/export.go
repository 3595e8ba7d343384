package store

import (
	"context"
	"errors"

	"github.com/rcliao/context-digest/internal/model"
)

// ExportAll returns every event, optionally filtered by user, oldest first.
func (s *SQLiteStore) ExportAll(ctx context.Context, userID string) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var args []interface{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY user_id, created_at, id`
	return s.queryEvents(ctx, query, args...)
}

// Import stores events from an export. Events whose id already exists are
// skipped; the returned count covers new events only.
func (s *SQLiteStore) Import(ctx context.Context, events []model.Event) (int, error) {
	imported := 0
	for _, e := range events {
		if e.ID != "" {
			if _, err := s.Get(ctx, e.ID); err == nil {
				continue
			} else if !errors.Is(err, ErrNotFound) {
				return imported, err
			}
		}
		if _, err := s.Put(ctx, paramsFromEvent(e)); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
