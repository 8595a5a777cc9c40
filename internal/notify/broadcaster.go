// Package notify delivers workflow events to in-process subscribers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"folio/api/internal/store"
)

type Kind string

const (
	PaperSubmitted     Kind = "paper_submitted"
	PaperStatusChanged Kind = "paper_status_changed"
	ReviewAssigned     Kind = "review_assigned"
	ReviewDeclined     Kind = "review_declined"
	ReviewCompleted    Kind = "review_completed"
	DecisionRecorded   Kind = "decision_recorded"
	RevisionSubmitted  Kind = "revision_submitted"
)

// Event carries the post-write state of a paper. Paper reflects the row
// after the mutation that produced the event.
type Event struct {
	Kind       Kind
	Paper      store.Paper
	ReviewID   string
	ReviewerID string
	Decision   string
	Changes    string
	ActorID    string
	OccurredAt time.Time
}

type Subscriber interface {
	Handle(ctx context.Context, event Event) error
}

type SubscriberFunc func(ctx context.Context, event Event) error

func (f SubscriberFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

type subscription struct {
	name string
	sub  Subscriber
}

// Broadcaster fans events out to every subscriber in registration order.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *slog.Logger
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{logger: logger}
}

func (b *Broadcaster) Subscribe(name string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, sub: sub})
}

// Publish delivers the event to every subscriber even when earlier ones fail.
// Failures are logged and returned joined.
func (b *Broadcaster) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := s.sub.Handle(ctx, event); err != nil {
			b.logger.Error("notify: subscriber failed",
				"subscriber", s.name,
				"event", string(event.Kind),
				"paper_id", event.Paper.ID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
