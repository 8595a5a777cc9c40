// Package workflow holds the paper and review state machines and the
// editorial vocabulary shared by the store and the application layer.
package workflow

import (
	"errors"
	"fmt"
)

type PaperStatus string

const (
	PaperSubmitted         PaperStatus = "submitted"
	PaperUnderReview       PaperStatus = "under_review"
	PaperRevisionRequested PaperStatus = "revision_requested"
	PaperAccepted          PaperStatus = "accepted"
	PaperRejected          PaperStatus = "rejected"
	PaperPublished         PaperStatus = "published"
)

var paperTransitions = map[PaperStatus][]PaperStatus{
	PaperSubmitted:         {PaperUnderReview, PaperRevisionRequested, PaperAccepted, PaperRejected},
	PaperUnderReview:       {PaperRevisionRequested, PaperAccepted, PaperRejected},
	PaperRevisionRequested: {PaperSubmitted, PaperUnderReview, PaperRejected},
	PaperAccepted:          {PaperPublished},
	PaperRejected:          nil,
	PaperPublished:         nil,
}

// PaperStatuses lists every status in lifecycle order.
func PaperStatuses() []PaperStatus {
	return []PaperStatus{
		PaperSubmitted,
		PaperUnderReview,
		PaperRevisionRequested,
		PaperAccepted,
		PaperRejected,
		PaperPublished,
	}
}

func ParsePaperStatus(value string) (PaperStatus, error) {
	status := PaperStatus(value)
	if _, ok := paperTransitions[status]; !ok {
		return "", fmt.Errorf("unknown paper status %q", value)
	}
	return status, nil
}

func (s PaperStatus) CanTransition(to PaperStatus) bool {
	for _, next := range paperTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s PaperStatus) Terminal() bool {
	return len(paperTransitions[s]) == 0
}

type ReviewStatus string

const (
	ReviewAssigned   ReviewStatus = "assigned"
	ReviewInProgress ReviewStatus = "in_progress"
	ReviewCompleted  ReviewStatus = "completed"
	ReviewDeclined   ReviewStatus = "declined"
)

var reviewTransitions = map[ReviewStatus][]ReviewStatus{
	ReviewAssigned:   {ReviewInProgress, ReviewDeclined},
	ReviewInProgress: {ReviewCompleted},
	ReviewCompleted:  nil,
	ReviewDeclined:   nil,
}

func ParseReviewStatus(value string) (ReviewStatus, error) {
	status := ReviewStatus(value)
	if _, ok := reviewTransitions[status]; !ok {
		return "", fmt.Errorf("unknown review status %q", value)
	}
	return status, nil
}

func (s ReviewStatus) CanTransition(to ReviewStatus) bool {
	for _, next := range reviewTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Active reports whether the assignment still occupies the reviewer slot.
func (s ReviewStatus) Active() bool {
	return s != ReviewDeclined
}

// Recommendation is both a reviewer's recommendation and an editor's decision.
type Recommendation string

const (
	Accept        Recommendation = "accept"
	MinorRevision Recommendation = "minor_revision"
	MajorRevision Recommendation = "major_revision"
	Reject        Recommendation = "reject"
)

func ParseRecommendation(value string) (Recommendation, error) {
	switch Recommendation(value) {
	case Accept, MinorRevision, MajorRevision, Reject:
		return Recommendation(value), nil
	default:
		return "", fmt.Errorf("unknown recommendation %q", value)
	}
}

// PaperStatus is the status a paper moves to when an editor records r.
func (r Recommendation) PaperStatus() PaperStatus {
	switch r {
	case Accept:
		return PaperAccepted
	case MinorRevision, MajorRevision:
		return PaperRevisionRequested
	default:
		return PaperRejected
	}
}

const (
	MinScore = 1
	MaxScore = 5
)

// Scores are the five review criteria, each 1..5.
type Scores struct {
	Overall      int `json:"overallScore"`
	Technical    int `json:"technicalQuality"`
	Novelty      int `json:"novelty"`
	Clarity      int `json:"clarity"`
	Significance int `json:"significance"`
}

func (s Scores) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"overallScore", s.Overall},
		{"technicalQuality", s.Technical},
		{"novelty", s.Novelty},
		{"clarity", s.Clarity},
		{"significance", s.Significance},
	}
	var errs []error
	for _, f := range fields {
		if f.value < MinScore || f.value > MaxScore {
			errs = append(errs, fmt.Errorf("%s must be between %d and %d", f.name, MinScore, MaxScore))
		}
	}
	return errors.Join(errs...)
}

var ErrInvalidTransition = errors.New("invalid transition")

type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func CheckPaper(from, to PaperStatus) error {
	if !from.CanTransition(to) {
		return &TransitionError{Entity: "paper", From: string(from), To: string(to)}
	}
	return nil
}

func CheckReview(from, to ReviewStatus) error {
	if !from.CanTransition(to) {
		return &TransitionError{Entity: "review", From: string(from), To: string(to)}
	}
	return nil
}
