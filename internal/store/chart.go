package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/context-digest/internal/model"
)

// PutChart stores c as the user's current chart. The version is one past the
// previous chart's, whatever c.Version holds.
func (s *SQLiteStore) PutChart(ctx context.Context, c model.NatalChart) (*model.NatalChart, error) {
	if c.UserID == "" {
		return nil, errors.New("user id is required")
	}
	if c.CalculatedAt.IsZero() {
		c.CalculatedAt = time.Now()
	}
	c.CalculatedAt = c.CalculatedAt.UTC()

	planets, err := json.Marshal(c.Planets)
	if err != nil {
		return nil, fmt.Errorf("encode planets: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var prev int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM natal_charts WHERE user_id = ?`, c.UserID).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	c.Version = prev + 1

	_, err = tx.ExecContext(ctx,
		`INSERT INTO natal_charts (user_id, version, calculated_at, planets) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET version = excluded.version,
		   calculated_at = excluded.calculated_at, planets = excluded.planets`,
		c.UserID, c.Version, formatTime(c.CalculatedAt), string(planets))
	if err != nil {
		return nil, fmt.Errorf("upsert chart: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) ChartVersion(ctx context.Context, userID string) (int64, bool, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM natal_charts WHERE user_id = ?`, userID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (s *SQLiteStore) Chart(ctx context.Context, userID string) (*model.NatalChart, error) {
	var c model.NatalChart
	var calculatedAt, planets string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, version, calculated_at, planets FROM natal_charts WHERE user_id = ?`, userID).
		Scan(&c.UserID, &c.Version, &calculatedAt, &planets)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chart for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	c.CalculatedAt = parseTime(calculatedAt)
	if err := json.Unmarshal([]byte(planets), &c.Planets); err != nil {
		return nil, fmt.Errorf("%w: chart planets for %s: %v", ErrCorrupt, userID, err)
	}
	return &c, nil
}
