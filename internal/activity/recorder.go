// Package activity records the audit trail. Every mutating operation appends
// an entry here, and each entry is announced to event subscribers.
package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/events"
	"github.com/dukerupert/chorewheel/internal/metrics"
	"github.com/dukerupert/chorewheel/internal/model"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

type Store interface {
	Insert(ctx context.Context, e *model.ActivityEntry) (*model.ActivityEntry, error)
	List(ctx context.Context, householdID int64, limit, offset int) ([]model.ActivityEntry, error)
}

type Recorder struct {
	store     Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecorder returns a Recorder. publisher and m may be nil.
func NewRecorder(store Store, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Recorder {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Recorder{store: store, publisher: publisher, metrics: m, logger: logger, now: time.Now}
}

// Record appends e. Only the household, actor and action are required.
// Publishing the resulting event is best effort; a failed publish is logged
// and does not fail the write.
func (r *Recorder) Record(ctx context.Context, e model.ActivityEntry) (*model.ActivityEntry, error) {
	var v apperr.Validation
	if e.HouseholdID <= 0 {
		v.Add("household_id", "is required")
	}
	if e.ActorID <= 0 {
		v.Add("actor_id", "is required")
	}
	if !e.Action.Valid() {
		v.Add("action", "is not a known action")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	entry, err := r.store.Insert(ctx, &e)
	if err != nil {
		return nil, err
	}
	r.metrics.ActivityRecorded(string(entry.Action))

	if err := r.publisher.Publish(ctx, events.FromActivity(*entry)); err != nil {
		r.logger.Warn("publish activity event", "action", entry.Action, "entry_id", entry.ID, "error", err)
	}
	return entry, nil
}

// List returns entries newest first. A non-positive limit means
// DefaultLimit; limits above MaxLimit are capped.
func (r *Recorder) List(ctx context.Context, householdID int64, limit, offset int) ([]model.ActivityEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		return nil, apperr.Invalid("offset", "must not be negative")
	}
	entries, err := r.store.List(ctx, householdID, limit, offset)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.ActivityEntry{}
	}
	return entries, nil
}
