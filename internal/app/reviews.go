package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"folio/api/internal/notify"
	"folio/api/internal/rbac"
	"folio/api/internal/store"
	"folio/api/internal/util"
	"folio/api/internal/workflow"
)

type AssignReviewerInput struct {
	ReviewerID string `json:"reviewerId"`
	DueDate    string `json:"dueDate"`
}

type SubmitReviewInput struct {
	workflow.Scores
	Comments             string `json:"comments"`
	ConfidentialComments string `json:"confidentialComments"`
	Recommendation       string `json:"recommendation"`
}

// parseDueDate accepts RFC 3339 timestamps and plain dates.
func parseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (s *Service) AssignReviewer(ctx context.Context, session Session, paperID string, input AssignReviewerInput) (ReviewView, error) {
	if _, err := s.authorize(ctx, session, rbac.ActionAssignReviewer); err != nil {
		return ReviewView{}, err
	}
	reviewerID := strings.TrimSpace(input.ReviewerID)
	if reviewerID == "" {
		return ReviewView{}, validation("reviewerId is required", nil)
	}
	due, err := parseDueDate(input.DueDate)
	if err != nil {
		return ReviewView{}, validation("dueDate must be a date (YYYY-MM-DD) or RFC 3339 timestamp", nil)
	}
	paper, err := s.loadPaper(ctx, paperID)
	if err != nil {
		return ReviewView{}, err
	}
	if _, err := s.store.GetProfileByUserID(ctx, reviewerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ReviewView{}, notFound("Reviewer")
		}
		return ReviewView{}, err
	}

	review := store.Review{
		ID:           util.NewID("rev"),
		PaperID:      paper.ID,
		ReviewerID:   reviewerID,
		AssignedBy:   session.UserID,
		AssignedDate: s.now(),
		DueDate:      due,
		Status:       string(workflow.ReviewAssigned),
	}
	if err := s.store.InsertReview(ctx, review); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ReviewView{}, conflict("DUPLICATE_ASSIGNMENT", "Reviewer is already assigned to this paper")
		}
		return ReviewView{}, err
	}

	s.publish(ctx, notify.Event{
		Kind:       notify.ReviewAssigned,
		Paper:      paper,
		ReviewID:   review.ID,
		ReviewerID: reviewerID,
		ActorID:    session.UserID,
	})
	names := s.names(ctx, reviewerID)
	return newReviewView(review, names[reviewerID], true), nil
}

// AvailableReviewers lists reviewer profiles, optionally narrowed to those
// with an expertise term containing expertise. Callers who may not list
// reviewers get an empty list.
func (s *Service) AvailableReviewers(ctx context.Context, session Session, expertise string) ([]ProfileView, error) {
	role, err := s.roleOf(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !rbac.Can(role, rbac.ActionListReviewers) {
		return []ProfileView{}, nil
	}
	profiles, err := s.store.ListProfilesByRole(ctx, string(rbac.RoleReviewer))
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(expertise))
	views := make([]ProfileView, 0, len(profiles))
	for _, p := range profiles {
		if needle != "" && !hasExpertise(p.Expertise, needle) {
			continue
		}
		views = append(views, newProfileView(p))
	}
	return views, nil
}

func hasExpertise(terms []string, needle string) bool {
	for _, term := range terms {
		if strings.Contains(strings.ToLower(term), needle) {
			return true
		}
	}
	return false
}

// ownReview loads a review assigned to the caller. Reviews belonging to
// someone else are reported as missing.
func (s *Service) ownReview(ctx context.Context, session Session, reviewID string) (store.Review, error) {
	if session.UserID == "" {
		return store.Review{}, errUnauthenticated
	}
	review, err := s.store.GetReview(ctx, strings.TrimSpace(reviewID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Review{}, notFound("Review")
		}
		return store.Review{}, err
	}
	if review.ReviewerID != session.UserID {
		return store.Review{}, notFound("Review")
	}
	return review, nil
}

func (s *Service) RespondToReview(ctx context.Context, session Session, reviewID string, accept bool) (ReviewView, error) {
	review, err := s.ownReview(ctx, session, reviewID)
	if err != nil {
		return ReviewView{}, err
	}
	from := workflow.ReviewStatus(review.Status)
	to := workflow.ReviewDeclined
	if accept {
		to = workflow.ReviewInProgress
	}
	if err := workflow.CheckReview(from, to); err != nil {
		return ReviewView{}, err
	}
	applied, err := s.store.TransitionReview(ctx, review.ID, session.UserID, string(from), string(to))
	if err != nil {
		return ReviewView{}, err
	}
	if !applied {
		return ReviewView{}, conflict("CONFLICT", "Review changed concurrently; reload and retry")
	}
	review.Status = string(to)

	if !accept {
		if paper, err := s.store.GetPaper(ctx, review.PaperID); err != nil {
			s.logger.Warn("reviews: load paper for decline event", "review_id", review.ID, "error", err)
		} else {
			s.publish(ctx, notify.Event{
				Kind:       notify.ReviewDeclined,
				Paper:      paper,
				ReviewID:   review.ID,
				ReviewerID: session.UserID,
				ActorID:    session.UserID,
			})
		}
	}
	return newReviewView(review, s.names(ctx, session.UserID)[session.UserID], true), nil
}

func (s *Service) SubmitReview(ctx context.Context, session Session, reviewID string, input SubmitReviewInput) (ReviewView, error) {
	review, err := s.ownReview(ctx, session, reviewID)
	if err != nil {
		return ReviewView{}, err
	}
	if err := input.Scores.Validate(); err != nil {
		return ReviewView{}, validation(err.Error(), nil)
	}
	recommendation, err := workflow.ParseRecommendation(strings.TrimSpace(input.Recommendation))
	if err != nil {
		return ReviewView{}, validation(err.Error(), nil)
	}
	if err := workflow.CheckReview(workflow.ReviewStatus(review.Status), workflow.ReviewCompleted); err != nil {
		return ReviewView{}, err
	}

	now := s.now()
	rec := string(recommendation)
	review.OverallScore = &input.Overall
	review.TechnicalQuality = &input.Technical
	review.Novelty = &input.Novelty
	review.Clarity = &input.Clarity
	review.Significance = &input.Significance
	review.Comments = optionalString(strings.TrimSpace(input.Comments))
	review.ConfidentialComments = optionalString(strings.TrimSpace(input.ConfidentialComments))
	review.Recommendation = &rec
	review.SubmittedDate = &now

	applied, err := s.store.CompleteReview(ctx, review)
	if err != nil {
		return ReviewView{}, err
	}
	if !applied {
		return ReviewView{}, conflict("CONFLICT", "Review changed concurrently; reload and retry")
	}
	review.Status = string(workflow.ReviewCompleted)

	if paper, err := s.store.GetPaper(ctx, review.PaperID); err != nil {
		s.logger.Warn("reviews: load paper for completion event", "review_id", review.ID, "error", err)
	} else {
		s.publish(ctx, notify.Event{
			Kind:       notify.ReviewCompleted,
			Paper:      paper,
			ReviewID:   review.ID,
			ReviewerID: session.UserID,
			ActorID:    session.UserID,
		})
	}
	return newReviewView(review, s.names(ctx, session.UserID)[session.UserID], true), nil
}

// MyReviews lists the caller's assignments, newest first, each with its paper.
func (s *Service) MyReviews(ctx context.Context, session Session, status string) ([]ReviewView, error) {
	if session.UserID == "" {
		return nil, errUnauthenticated
	}
	if status = strings.TrimSpace(status); status != "" {
		if _, err := workflow.ParseReviewStatus(status); err != nil {
			return nil, validation(err.Error(), nil)
		}
	}
	reviews, err := s.store.ListReviewsByReviewer(ctx, session.UserID, status)
	if err != nil {
		return nil, err
	}
	paperIDs := make([]string, 0, len(reviews))
	for _, r := range reviews {
		paperIDs = append(paperIDs, r.PaperID)
	}
	papers, err := s.store.ListPapersByIDs(ctx, paperIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]PaperView, len(papers))
	for _, view := range s.paperViews(ctx, papers) {
		byID[view.ID] = view
	}

	reviewerName := s.names(ctx, session.UserID)[session.UserID]
	views := make([]ReviewView, 0, len(reviews))
	for _, r := range reviews {
		view := newReviewView(r, reviewerName, true)
		if paper, ok := byID[r.PaperID]; ok {
			view.Paper = &paper
		}
		views = append(views, view)
	}
	return views, nil
}
