package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string      `json:"db_path"`
	DBSizeBytes    int64       `json:"db_size_bytes"`
	TotalEvents    int         `json:"total_events"`
	TotalChunks    int         `json:"total_chunks"`
	EmbeddedChunks int         `json:"embedded_chunks"`
	Charts         int         `json:"charts"`
	Users          []UserStats `json:"users"`
}

// UserStats holds per-user counts.
type UserStats struct {
	UserID string `json:"user_id"`
	Events int    `json:"events"`
	First  string `json:"first"`
	Last   string `json:"last"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&st.TotalEvents)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_chunks`).Scan(&st.TotalChunks)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_chunks WHERE embedding IS NOT NULL`).Scan(&st.EmbeddedChunks)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM natal_charts`).Scan(&st.Charts)

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, COUNT(*) AS cnt, MIN(created_at), MAX(created_at)
		FROM events GROUP BY user_id ORDER BY cnt DESC, user_id`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserStats
		var first, last string
		rows.Scan(&u.UserID, &u.Events, &first, &last)
		u.First = parseTime(first).Format("2006-01-02")
		u.Last = parseTime(last).Format("2006-01-02")
		st.Users = append(st.Users, u)
	}

	return st, rows.Err()
}
