package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Chunk is an indexed slice of an event's text.
type Chunk struct {
	ID        string
	EventID   string
	Seq       int
	Text      string
	Embedding []float32
}

// TextMatch is one keyword hit, already reduced to the best chunk per event.
// Rank is the raw bm25 value (lower is better).
type TextMatch struct {
	EventID string
	Rank    float64
}

// PendingChunks returns up to limit chunks of the user that have no embedding.
// An empty userID covers every user.
func (s *SQLiteStore) PendingChunks(ctx context.Context, userID string, limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT id, event_id, seq, text FROM event_chunks WHERE embedding IS NULL`
	var args []interface{}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY event_id, seq LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.EventID, &c.Seq, &c.Text); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetChunkEmbedding stores the vector of one chunk.
func (s *SQLiteStore) SetChunkEmbedding(ctx context.Context, chunkID string, v []float32) error {
	res, err := s.db.ExecContext(ctx, `UPDATE event_chunks SET embedding = ? WHERE id = ?`, encodeVector(v), chunkID)
	if err != nil {
		return fmt.Errorf("set embedding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("chunk %s: %w", chunkID, ErrNotFound)
	}
	return nil
}

// EmbeddedChunks returns every chunk of the user that has an embedding.
func (s *SQLiteStore) EmbeddedChunks(ctx context.Context, userID string) ([]Chunk, error) {
	query := `SELECT id, event_id, seq, text, embedding FROM event_chunks WHERE embedding IS NOT NULL`
	var args []interface{}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY event_id, seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.EventID, &c.Seq, &c.Text, &blob); err != nil {
			return nil, err
		}
		c.Embedding = decodeVector(blob)
		out = append(out, c)
	}
	return out, rows.Err()
}

// MatchText runs a keyword query against the FTS5 chunk index. Events are
// returned best first.
func (s *SQLiteStore) MatchText(ctx context.Context, userID, query string, limit int) ([]TextMatch, error) {
	expr := ftsExpr(query)
	if expr == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	sqlq := `
		WITH m AS MATERIALIZED (
			SELECT rowid, rank FROM event_chunks_fts WHERE event_chunks_fts MATCH ?
		)
		SELECT c.event_id, MIN(m.rank) AS best
		FROM m JOIN event_chunks c ON c.rowid = m.rowid
		WHERE 1 = 1`
	args := []interface{}{expr}
	if userID != "" {
		sqlq += ` AND c.user_id = ?`
		args = append(args, userID)
	}
	sqlq += ` GROUP BY c.event_id ORDER BY best ASC, c.event_id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlq, args...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var out []TextMatch
	for rows.Next() {
		var m TextMatch
		if err := rows.Scan(&m.EventID, &m.Rank); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ftsExpr turns free text into an OR of quoted terms so user input never
// reaches the FTS5 query grammar.
func ftsExpr(q string) string {
	words := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words))
	for _, w := range words {
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
