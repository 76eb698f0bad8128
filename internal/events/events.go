// Package events carries domain events to subscribers outside the request
// path: open websocket clients and, when configured, a NATS subject tree.
package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

// Message is the wire form of a domain event.
type Message struct {
	Type        string         `json:"type"`
	HouseholdID int64          `json:"household_id"`
	Entity      string         `json:"entity"`
	Action      string         `json:"action"`
	ID          int64          `json:"id,omitempty"`
	ActorID     int64          `json:"actor_id,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	At          time.Time      `json:"at"`
}

// FromActivity builds the event announcing a recorded activity entry. The
// action is the verb part of the action type ("completed" for
// task_completed), so subscribers can filter on entity and action separately.
func FromActivity(e model.ActivityEntry) Message {
	action := string(e.Action)
	if rest, ok := strings.CutPrefix(action, string(e.EntityType)+"_"); ok {
		action = rest
	} else if i := strings.LastIndex(action, "_"); i >= 0 {
		action = action[i+1:]
	}
	return Message{
		Type:        string(e.Action),
		HouseholdID: e.HouseholdID,
		Entity:      string(e.EntityType),
		Action:      action,
		ID:          e.EntityID,
		ActorID:     e.ActorID,
		Extra:       e.Metadata,
		At:          e.CreatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Multi fans a message out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every message.
type Discard struct{}

func (Discard) Publish(context.Context, Message) error { return nil }
