package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/context-digest/internal/chunker"
	"github.com/rcliao/context-digest/internal/model"
)

// timeLayout sorts lexicographically once times are in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// newID is safe for concurrent use; rand.Rand is not.
func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		message         TEXT NOT NULL DEFAULT '',
		response        TEXT NOT NULL DEFAULT '',
		description     TEXT NOT NULL DEFAULT '',
		insight         TEXT NOT NULL DEFAULT '',
		emotional_state TEXT NOT NULL DEFAULT '',
		tags            TEXT,
		priority        INTEGER NOT NULL DEFAULT 0,
		category        TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_events_user_created ON events(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS event_chunks (
		id        TEXT PRIMARY KEY,
		event_id  TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		user_id   TEXT NOT NULL,
		seq       INTEGER NOT NULL,
		text      TEXT NOT NULL,
		embedding BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_event ON event_chunks(event_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_user ON event_chunks(user_id);

	CREATE TABLE IF NOT EXISTS natal_charts (
		user_id       TEXT PRIMARY KEY,
		version       INTEGER NOT NULL,
		calculated_at TEXT NOT NULL,
		planets       TEXT NOT NULL
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS event_chunks_fts USING fts5(
		text,
		content=event_chunks,
		content_rowid=rowid
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 triggers keep the index in sync with event_chunks.
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS event_chunks_ai AFTER INSERT ON event_chunks BEGIN
			INSERT INTO event_chunks_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS event_chunks_ad AFTER DELETE ON event_chunks BEGIN
			INSERT INTO event_chunks_fts(event_chunks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS event_chunks_au AFTER UPDATE OF text ON event_chunks BEGIN
			INSERT INTO event_chunks_fts(event_chunks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			INSERT INTO event_chunks_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
	}
	for _, t := range triggers {
		if _, err := s.db.Exec(t); err != nil {
			return fmt.Errorf("create trigger: %w", err)
		}
	}
	return nil
}

// indexText is the text chunked for keyword and embedding search.
func indexText(e model.Event) string {
	var parts []string
	for _, p := range []string{e.Description, e.Message, e.Insight} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func (s *SQLiteStore) Put(ctx context.Context, p PutParams) (*model.Event, error) {
	if p.UserID == "" {
		return nil, errors.New("user id is required")
	}
	id := p.ID
	if id == "" {
		id = s.newID()
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	ev := p.event(id, createdAt.UTC())

	var tagsJSON *string
	if len(ev.Tags) > 0 {
		b, _ := json.Marshal(ev.Tags)
		t := string(b)
		tagsJSON = &t
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, user_id, created_at, message, response, description, insight,
		                     emotional_state, tags, priority, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, formatTime(ev.CreatedAt), ev.Message, ev.Response, ev.Description,
		ev.Insight, ev.EmotionalState, tagsJSON, ev.Priority, ev.Category)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	for i, c := range chunker.Chunk(indexText(ev), chunker.DefaultOptions()) {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO event_chunks (id, event_id, user_id, seq, text) VALUES (?, ?, ?, ?, ?)`,
			s.newID(), ev.ID, ev.UserID, i, c.Text)
		if err != nil {
			return nil, fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &ev, nil
}

const eventColumns = `id, user_id, created_at, message, response, description, insight,
	emotional_state, tags, priority, category`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Event, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	var where []string
	var args []interface{}
	if p.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, p.UserID)
	}
	for _, tag := range p.Tags {
		where = append(where, "tags LIKE ?")
		args = append(args, "%\""+tag+"\"%")
	}
	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	return s.queryEvents(ctx, query, args...)
}

func (s *SQLiteStore) Rm(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_chunks WHERE event_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

func fetchWhere(q FetchQuery) (string, []interface{}) {
	where := []string{"user_id = ?"}
	args := []interface{}{q.UserID}
	if !q.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, formatTime(q.To))
	}
	return strings.Join(where, " AND "), args
}

func (s *SQLiteStore) Fetch(ctx context.Context, q FetchQuery) ([]model.Event, error) {
	where, args := fetchWhere(q)
	order := "created_at DESC, id DESC"
	if q.Order == OldestFirst {
		order = "created_at ASC, id ASC"
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + where + ` ORDER BY ` + order
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	return s.queryEvents(ctx, query, args...)
}

func (s *SQLiteStore) Count(ctx context.Context, q FetchQuery) (int, error) {
	where, args := fetchWhere(q)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE `+where, args...).Scan(&n)
	return n, err
}

func (s *SQLiteStore) GetByIDs(ctx context.Context, userID string, ids []string) ([]model.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE user_id = ? AND id IN (`+placeholders+`)`, args...)
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...interface{}) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scanner) (model.Event, error) {
	var e model.Event
	var tagsJSON sql.NullString
	var createdAt string

	err := row.Scan(
		&e.ID, &e.UserID, &createdAt, &e.Message, &e.Response, &e.Description, &e.Insight,
		&e.EmotionalState, &tagsJSON, &e.Priority, &e.Category,
	)
	if err != nil {
		return e, err
	}
	e.CreatedAt = parseTime(createdAt)
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &e.Tags)
	}
	return e, nil
}
