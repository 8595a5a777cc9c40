package notify

import (
	"context"
	"fmt"
	"log/slog"

	"folio/api/internal/store"
	"folio/api/internal/util"
)

// Notification types persisted on the notifications table.
const (
	TypePaperSubmitted    = "paper_submitted"
	TypeReviewAssigned    = "review_assigned"
	TypeReviewDeclined    = "review_declined"
	TypeReviewCompleted   = "review_completed"
	TypeDecisionMade      = "decision_made"
	TypeRevisionRequested = "revision_requested"
	TypePaperAccepted     = "paper_accepted"
	TypePaperPublished    = "paper_published"
)

type OutboxStore interface {
	ListProfilesByRole(ctx context.Context, role string) ([]store.Profile, error)
	InsertNotifications(ctx context.Context, notifications []store.Notification) error
	GetUserByID(ctx context.Context, userID string) (store.User, error)
}

type Mailer interface {
	IsConfigured() bool
	SendNotificationEmail(to []string, title, message, paperID string) error
}

// Outbox turns events into per-user notifications and optionally mirrors
// them by email.
type Outbox struct {
	store  OutboxStore
	mailer Mailer
	logger *slog.Logger
}

func NewOutbox(st OutboxStore, mailer Mailer, logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{store: st, mailer: mailer, logger: logger}
}

type message struct {
	typ   string
	title string
	body  string
}

func (o *Outbox) Handle(ctx context.Context, event Event) error {
	recipients, err := o.recipients(ctx, event)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	msg := compose(event)
	notifications := make([]store.Notification, 0, len(recipients))
	for _, userID := range recipients {
		n := store.Notification{
			ID:        util.NewID("ntf"),
			UserID:    userID,
			Type:      msg.typ,
			Title:     msg.title,
			Message:   msg.body,
			CreatedAt: event.OccurredAt,
		}
		if event.Paper.ID != "" {
			paperID := event.Paper.ID
			n.PaperID = &paperID
		}
		if event.ReviewID != "" {
			reviewID := event.ReviewID
			n.ReviewID = &reviewID
		}
		notifications = append(notifications, n)
	}
	if err := o.store.InsertNotifications(ctx, notifications); err != nil {
		return fmt.Errorf("write notifications: %w", err)
	}

	o.mirror(ctx, recipients, msg, event.Paper.ID)
	return nil
}

func (o *Outbox) recipients(ctx context.Context, event Event) ([]string, error) {
	switch event.Kind {
	case PaperSubmitted:
		return o.editors(ctx, event)
	case PaperStatusChanged, DecisionRecorded:
		return []string{event.Paper.AuthorID}, nil
	case ReviewAssigned:
		return []string{event.ReviewerID}, nil
	case ReviewDeclined, ReviewCompleted:
		if event.Paper.EditorID == nil || *event.Paper.EditorID == "" {
			return nil, nil
		}
		return []string{*event.Paper.EditorID}, nil
	case RevisionSubmitted:
		if event.Paper.EditorID != nil && *event.Paper.EditorID != "" {
			return []string{*event.Paper.EditorID}, nil
		}
		return o.editors(ctx, event)
	default:
		return nil, fmt.Errorf("unknown event kind \"%s\"", event.Kind)
	}
}

func (o *Outbox) editors(ctx context.Context, event Event) ([]string, error) {
	profiles, err := o.store.ListProfilesByRole(ctx, "editor")
	if err != nil {
		return nil, fmt.Errorf("list editors: %w", err)
	}
	if len(profiles) == 0 {
		o.logger.Warn("notify: no editors to notify", "event", string(event.Kind), "paper_id", event.Paper.ID)
		return nil, nil
	}
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

func compose(event Event) message {
	title := event.Paper.Title
	switch event.Kind {
	case PaperSubmitted:
		return message{TypePaperSubmitted, "New Paper Submission", fmt.Sprintf("New paper \"%s\" has been submitted", title)}
	case PaperStatusChanged:
		return message{statusType(event.Paper.Status), "Paper Status Updated",
			fmt.Sprintf("Your paper \"%s\" status has been updated to %s", title, event.Paper.Status)}
	case ReviewAssigned:
		return message{TypeReviewAssigned, "Review Assignment", fmt.Sprintf("You have been assigned to review \"%s\"", title)}
	case ReviewDeclined:
		return message{TypeReviewDeclined, "Review Declined", fmt.Sprintf("Reviewer declined to review \"%s\"", title)}
	case ReviewCompleted:
		return message{TypeReviewCompleted, "Review Completed", fmt.Sprintf("Review for \"%s\" has been completed", title)}
	case DecisionRecorded:
		return message{statusType(event.Paper.Status), "Editorial Decision",
			fmt.Sprintf("An editorial decision (%s) has been recorded for your paper \"%s\"", event.Decision, title)}
	case RevisionSubmitted:
		return message{TypePaperSubmitted, "Revision Submitted",
			fmt.Sprintf("Version %d of \"%s\" has been submitted", event.Paper.Version, title)}
	}
	return message{TypeDecisionMade, "Update", title}
}

func statusType(status string) string {
	switch status {
	case "accepted":
		return TypePaperAccepted
	case "published":
		return TypePaperPublished
	case "revision_requested":
		return TypeRevisionRequested
	default:
		return TypeDecisionMade
	}
}

func (o *Outbox) mirror(ctx context.Context, recipients []string, msg message, paperID string) {
	if o.mailer == nil || !o.mailer.IsConfigured() {
		return
	}
	to := make([]string, 0, len(recipients))
	for _, userID := range recipients {
		user, err := o.store.GetUserByID(ctx, userID)
		if err != nil {
			o.logger.Warn("notify: resolve recipient email", "user_id", userID, "error", err)
			continue
		}
		to = append(to, user.Email)
	}
	for _, addr := range to {
		if err := o.mailer.SendNotificationEmail([]string{addr}, msg.title, msg.body, paperID); err != nil {
			o.logger.Warn("notify: send email", "type", msg.typ, "error", err)
		}
	}
}
