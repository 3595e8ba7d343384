// Package store provides the event log contract and its SQLite and in-memory
// implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/context-digest/internal/model"
)

// ErrNotFound is returned when an event or chart does not exist.
var ErrNotFound = errors.New("not found")

// ErrCorrupt is returned when a stored row cannot be decoded.
var ErrCorrupt = errors.New("corrupt record")

// Order is the sort direction of a fetch.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

// FetchQuery selects a user's events in [From, To]. Zero bounds are open and a
// zero Limit returns everything.
type FetchQuery struct {
	UserID string
	From   time.Time
	To     time.Time
	Limit  int
	Order  Order
}

// EventStore is the read-only view of the log used by the scoring modules.
type EventStore interface {
	// Fetch returns events ordered by creation time.
	Fetch(ctx context.Context, q FetchQuery) ([]model.Event, error)

	// Count returns how many events Fetch would return without a limit.
	Count(ctx context.Context, q FetchQuery) (int, error)

	// GetByIDs resolves ids to events in one lookup. Unknown ids are skipped
	// and the result order is unspecified.
	GetByIDs(ctx context.Context, userID string, ids []string) ([]model.Event, error)
}

// ChartSource gives access to pre-computed natal charts.
type ChartSource interface {
	// ChartVersion returns the current chart version of a user. ok is false
	// when the user has no chart.
	ChartVersion(ctx context.Context, userID string) (version int64, ok bool, err error)

	// Chart loads the current chart. It returns ErrNotFound when none exists.
	Chart(ctx context.Context, userID string) (*model.NatalChart, error)
}

// PutParams holds parameters for storing an event.
type PutParams struct {
	ID             string // generated when empty
	UserID         string
	CreatedAt      time.Time // now when zero
	Message        string
	Response       string
	Description    string
	Insight        string
	EmotionalState string
	Tags           []string
	Priority       int
	Category       string
}

// ListParams holds parameters for listing events.
type ListParams struct {
	UserID string
	Tags   []string
	Limit  int
}

// Store is the full read-write log used by the CLI and tests.
type Store interface {
	EventStore
	ChartSource

	// Put stores an event and returns it.
	Put(ctx context.Context, p PutParams) (*model.Event, error)

	// Get retrieves an event by id.
	Get(ctx context.Context, id string) (*model.Event, error)

	// List lists a user's events newest first.
	List(ctx context.Context, p ListParams) ([]model.Event, error)

	// Rm deletes an event.
	Rm(ctx context.Context, id string) error

	// PutChart stores a recalculated chart and bumps its version.
	PutChart(ctx context.Context, c model.NatalChart) (*model.NatalChart, error)

	// Close closes the store.
	Close() error
}

func paramsFromEvent(e model.Event) PutParams {
	return PutParams{
		ID:             e.ID,
		UserID:         e.UserID,
		CreatedAt:      e.CreatedAt,
		Message:        e.Message,
		Response:       e.Response,
		Description:    e.Description,
		Insight:        e.Insight,
		EmotionalState: e.EmotionalState,
		Tags:           e.Tags,
		Priority:       e.Priority,
		Category:       e.Category,
	}
}

func (p PutParams) event(id string, createdAt time.Time) model.Event {
	return model.Event{
		ID:             id,
		UserID:         p.UserID,
		CreatedAt:      createdAt,
		Message:        p.Message,
		Response:       p.Response,
		Description:    p.Description,
		Insight:        p.Insight,
		EmotionalState: p.EmotionalState,
		Tags:           p.Tags,
		Priority:       p.Priority,
		Category:       p.Category,
	}
}
