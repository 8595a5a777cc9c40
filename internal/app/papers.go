package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"folio/api/internal/manuscript"
	"folio/api/internal/notify"
	"folio/api/internal/rbac"
	"folio/api/internal/search"
	"folio/api/internal/storage"
	"folio/api/internal/store"
	"folio/api/internal/util"
	"folio/api/internal/workflow"

	"github.com/montanaflynn/stats"
)

type SubmitPaperInput struct {
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Keywords  []string `json:"keywords"`
	CoAuthors []string `json:"coAuthors"`
	Category  string   `json:"category"`
	FileID    string   `json:"fileId"`
	FileName  string   `json:"fileName"`
}

type UpdatePaperStatusInput struct {
	Status   string `json:"status"`
	EditorID string `json:"editorId"`
	Override bool   `json:"override"`
}

type RevisionInput struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	Changes  string `json:"changes"`
}

type DecisionInput struct {
	Decision string `json:"decision"`
	Comments string `json:"comments"`
}

func (s *Service) SubmitPaper(ctx context.Context, session Session, input SubmitPaperInput) (PaperView, error) {
	if _, err := s.authorize(ctx, session, rbac.ActionSubmitPaper); err != nil {
		return PaperView{}, err
	}

	title := strings.TrimSpace(input.Title)
	abstract := strings.TrimSpace(input.Abstract)
	category := strings.TrimSpace(input.Category)
	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if abstract == "" {
		missing = append(missing, "abstract")
	}
	if category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return PaperView{}, validation("title, abstract and category are required", map[string]any{"missing": missing})
	}
	if err := s.checkUpload(ctx, session.UserID, input.FileID); err != nil {
		return PaperView{}, err
	}

	now := s.now()
	paper := store.Paper{
		ID:             util.NewID("pap"),
		Title:          title,
		Abstract:       abstract,
		Keywords:       cleanList(input.Keywords),
		AuthorID:       session.UserID,
		CoAuthors:      cleanList(input.CoAuthors),
		FileID:         optionalString(strings.TrimSpace(input.FileID)),
		FileName:       optionalString(strings.TrimSpace(input.FileName)),
		Status:         string(workflow.PaperSubmitted),
		SubmissionDate: now,
		Category:       category,
		Version:        1,
		UpdatedAt:      now,
	}
	version := store.PaperVersion{
		ID:         util.NewID("ver"),
		PaperID:    paper.ID,
		Version:    1,
		FileID:     paper.FileID,
		FileName:   paper.FileName,
		UploadDate: now,
	}
	if err := s.store.InsertPaper(ctx, paper, version); err != nil {
		return PaperView{}, err
	}

	s.publish(ctx, notify.Event{Kind: notify.PaperSubmitted, Paper: paper, ActorID: session.UserID})
	return s.paperView(ctx, paper), nil
}

// checkUpload verifies a referenced upload when object storage is configured.
func (s *Service) checkUpload(ctx context.Context, ownerID, fileID string) error {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" || s.files == nil {
		return nil
	}
	if !storage.OwnedBy(fileID, ownerID) {
		return validation("fileId does not reference one of your uploads", nil)
	}
	info, err := s.files.Stat(ctx, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return validation("uploaded file not found", nil)
		}
		return err
	}
	if s.cfg.MaxUploadBytes > 0 && info.Size > s.cfg.MaxUploadBytes {
		return validation(fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxUploadBytes), nil)
	}
	if !storage.AllowedContentType(info.ContentType) {
		return validation("file must be a PDF or Word document", map[string]any{"contentType": info.ContentType})
	}
	return nil
}

// ListPapers returns every paper to editors and admins and only the caller's
// own papers to everyone else.
func (s *Service) ListPapers(ctx context.Context, session Session, status string) ([]PaperView, error) {
	role, err := s.roleOf(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	filter := store.PaperFilter{}
	if status = strings.TrimSpace(status); status != "" {
		parsed, err := workflow.ParsePaperStatus(status)
		if err != nil {
			return nil, validation(err.Error(), nil)
		}
		filter.Status = string(parsed)
	}
	if !rbac.Can(role, rbac.ActionListAllPapers) {
		filter.AuthorID = session.UserID
	}
	papers, err := s.store.ListPapers(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.paperViews(ctx, papers), nil
}

// visiblePaper loads a paper the caller may read: its author, editorial staff
// and its assigned reviewers. Anyone else gets not-found.
func (s *Service) visiblePaper(ctx context.Context, session Session, paperID string) (store.Paper, rbac.Role, []store.Review, error) {
	role, err := s.roleOf(ctx, session.UserID)
	if err != nil {
		return store.Paper{}, "", nil, err
	}
	paper, err := s.loadPaper(ctx, paperID)
	if err != nil {
		return store.Paper{}, "", nil, err
	}
	reviews, err := s.store.ListReviewsByPaper(ctx, paper.ID)
	if err != nil {
		return store.Paper{}, "", nil, err
	}
	if paper.AuthorID == session.UserID || rbac.Can(role, rbac.ActionListAllPapers) {
		return paper, role, reviews, nil
	}
	for _, r := range reviews {
		if r.ReviewerID == session.UserID {
			return paper, role, reviews, nil
		}
	}
	return store.Paper{}, "", nil, notFound("Paper")
}

func (s *Service) GetPaper(ctx context.Context, session Session, paperID string) (PaperDetail, error) {
	paper, role, reviews, err := s.visiblePaper(ctx, session, paperID)
	if err != nil {
		return PaperDetail{}, err
	}
	decisions, err := s.store.ListDecisions(ctx, paper.ID)
	if err != nil {
		return PaperDetail{}, err
	}
	versions, err := s.store.ListPaperVersions(ctx, paper.ID)
	if err != nil {
		return PaperDetail{}, err
	}

	ids := []string{paper.AuthorID}
	for _, r := range reviews {
		ids = append(ids, r.ReviewerID)
	}
	for _, d := range decisions {
		ids = append(ids, d.EditorID)
	}
	names := s.names(ctx, ids...)

	canSeeConfidential := rbac.Can(role, rbac.ActionViewConfidential)
	detail := PaperDetail{
		PaperView: newPaperView(paper, names[paper.AuthorID], s.fileURLs(ctx, []store.Paper{paper})[paper.ID]),
		Reviews:   make([]ReviewView, 0, len(reviews)),
		Decisions: make([]DecisionView, 0, len(decisions)),
		Versions:  newVersionViews(versions),
		Scores:    scoreSummary(reviews),
	}
	for _, r := range reviews {
		detail.Reviews = append(detail.Reviews, newReviewView(r, names[r.ReviewerID], canSeeConfidential || r.ReviewerID == session.UserID))
	}
	for _, d := range decisions {
		detail.Decisions = append(detail.Decisions, newDecisionView(d, names[d.EditorID]))
	}
	return detail, nil
}

// scoreSummary averages each criterion over completed reviews.
func scoreSummary(reviews []store.Review) []ScoreSummary {
	criteria := []struct {
		name  string
		value func(store.Review) *int
	}{
		{"overallScore", func(r store.Review) *int { return r.OverallScore }},
		{"technicalQuality", func(r store.Review) *int { return r.TechnicalQuality }},
		{"novelty", func(r store.Review) *int { return r.Novelty }},
		{"clarity", func(r store.Review) *int { return r.Clarity }},
		{"significance", func(r store.Review) *int { return r.Significance }},
	}
	summary := make([]ScoreSummary, 0, len(criteria))
	for _, c := range criteria {
		var data stats.Float64Data
		for _, r := range reviews {
			if r.Status != string(workflow.ReviewCompleted) {
				continue
			}
			if v := c.value(r); v != nil {
				data = append(data, float64(*v))
			}
		}
		if len(data) == 0 {
			continue
		}
		mean, err := stats.Mean(data)
		if err != nil {
			continue
		}
		rounded, err := stats.Round(mean, 2)
		if err != nil {
			rounded = mean
		}
		summary = append(summary, ScoreSummary{Criterion: c.name, Mean: rounded, Count: len(data)})
	}
	return summary
}

type SearchInput struct {
	Query    string
	Category string
	Status   string
}

func (s *Service) SearchPapers(ctx context.Context, session Session, input SearchInput) (map[string]any, error) {
	if _, err := s.roleOf(ctx, session.UserID); err != nil {
		return nil, err
	}
	if input.Status != "" {
		if _, err := workflow.ParsePaperStatus(input.Status); err != nil {
			return nil, validation(err.Error(), nil)
		}
	}
	if s.search == nil {
		return nil, unavailable("SEARCH_UNAVAILABLE", "Search is not configured")
	}
	resp := s.search.Search(ctx, search.Query{
		Text:     strings.TrimSpace(input.Query),
		Category: strings.TrimSpace(input.Category),
		Status:   input.Status,
		Limit:    search.MaxResults,
	})

	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		ids = append(ids, r.ID)
	}
	papers, err := s.store.ListPapersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.Paper, len(papers))
	for _, p := range papers {
		byID[p.ID] = p
	}
	ordered := make([]store.Paper, 0, len(papers))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	authorIDs := make([]string, 0, len(ordered))
	for _, p := range ordered {
		authorIDs = append(authorIDs, p.AuthorID)
	}
	names := s.names(ctx, authorIDs...)
	// Hits carry the author name only; manuscripts are reachable through GetPaper.
	views := make([]PaperView, 0, len(ordered))
	for _, p := range ordered {
		views = append(views, newPaperView(p, names[p.AuthorID], ""))
	}
	return map[string]any{
		"papers": views,
		"total":  resp.Total,
		"query":  resp.Query,
	}, nil
}

func (s *Service) UpdatePaperStatus(ctx context.Context, session Session, paperID string, input UpdatePaperStatusInput) (PaperView, error) {
	if _, err := s.authorize(ctx, session, rbac.ActionUpdatePaperStatus); err != nil {
		return PaperView{}, err
	}
	if input.Override {
		if _, err := s.authorize(ctx, session, rbac.ActionOverrideStatus); err != nil {
			return PaperView{}, err
		}
	}
	to, err := workflow.ParsePaperStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return PaperView{}, validation(err.Error(), nil)
	}
	paper, err := s.loadPaper(ctx, paperID)
	if err != nil {
		return PaperView{}, err
	}
	from := workflow.PaperStatus(paper.Status)
	if !input.Override {
		if err := workflow.CheckPaper(from, to); err != nil {
			return PaperView{}, err
		}
	}

	editorID := strings.TrimSpace(input.EditorID)
	if editorID == "" {
		editorID = session.UserID
	} else if editorID != session.UserID {
		if err := s.requireEditor(ctx, editorID); err != nil {
			return PaperView{}, err
		}
	}
	var publishedAt *time.Time
	if to == workflow.PaperPublished {
		now := s.now()
		publishedAt = &now
	}
	applied, err := s.store.UpdatePaperStatus(ctx, paper.ID, string(from), string(to), editorID, publishedAt)
	if err != nil {
		return PaperView{}, err
	}
	if !applied {
		return PaperView{}, conflict("CONFLICT", "Paper status changed concurrently; reload and retry")
	}

	updated, err := s.loadPaper(ctx, paper.ID)
	if err != nil {
		return PaperView{}, err
	}
	s.publish(ctx, notify.Event{Kind: notify.PaperStatusChanged, Paper: updated, ActorID: session.UserID})
	return s.paperView(ctx, updated), nil
}

func (s *Service) GenerateUploadURL(ctx context.Context, session Session) (storage.UploadTicket, error) {
	if _, err := s.authorize(ctx, session, rbac.ActionSubmitPaper); err != nil {
		return storage.UploadTicket{}, err
	}
	if s.files == nil {
		return storage.UploadTicket{}, unavailable("STORAGE_UNAVAILABLE", "File storage is not configured")
	}
	return s.files.PresignUpload(ctx, session.UserID)
}

// SubmitRevision resubmits a paper awaiting revision as the next version.
func (s *Service) SubmitRevision(ctx context.Context, session Session, paperID string, input RevisionInput) (PaperView, error) {
	if _, err := s.roleOf(ctx, session.UserID); err != nil {
		return PaperView{}, err
	}
	paper, err := s.loadPaper(ctx, paperID)
	if err != nil {
		return PaperView{}, err
	}
	if paper.AuthorID != session.UserID {
		return PaperView{}, notFound("Paper")
	}
	from := workflow.PaperStatus(paper.Status)
	if from != workflow.PaperRevisionRequested {
		return PaperView{}, &workflow.TransitionError{Entity: "paper", From: paper.Status, To: string(workflow.PaperSubmitted)}
	}
	if err := s.checkUpload(ctx, session.UserID, input.FileID); err != nil {
		return PaperView{}, err
	}

	version := store.PaperVersion{
		ID:         util.NewID("ver"),
		PaperID:    paper.ID,
		Version:    paper.Version + 1,
		FileID:     optionalString(strings.TrimSpace(input.FileID)),
		FileName:   optionalString(strings.TrimSpace(input.FileName)),
		Changes:    optionalString(strings.TrimSpace(input.Changes)),
		UploadDate: s.now(),
	}
	applied, err := s.store.ApplyRevision(ctx, version, string(workflow.PaperSubmitted))
	if err != nil {
		return PaperView{}, err
	}
	if !applied {
		return PaperView{}, conflict("CONFLICT", "Paper changed concurrently; reload and retry")
	}

	updated, err := s.loadPaper(ctx, paper.ID)
	if err != nil {
		return PaperView{}, err
	}
	s.publish(ctx, notify.Event{
		Kind:    notify.RevisionSubmitted,
		Paper:   updated,
		Changes: strings.TrimSpace(input.Changes),
		ActorID: session.UserID,
	})
	return s.paperView(ctx, updated), nil
}

// RecordDecision appends an editorial decision and applies the status it
// maps to in one step.
func (s *Service) RecordDecision(ctx context.Context, session Session, paperID string, input DecisionInput) (map[string]any, error) {
	if _, err := s.authorize(ctx, session, rbac.ActionRecordDecision); err != nil {
		return nil, err
	}
	decision, err := workflow.ParseRecommendation(strings.TrimSpace(input.Decision))
	if err != nil {
		return nil, validation(err.Error(), nil)
	}
	paper, err := s.loadPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	from := workflow.PaperStatus(paper.Status)
	to := decision.PaperStatus()
	if err := workflow.CheckPaper(from, to); err != nil {
		return nil, err
	}

	record := store.EditorialDecision{
		ID:           util.NewID("dec"),
		PaperID:      paper.ID,
		EditorID:     session.UserID,
		Decision:     string(decision),
		Comments:     strings.TrimSpace(input.Comments),
		DecisionDate: s.now(),
	}
	applied, err := s.store.RecordDecision(ctx, record, string(from), string(to))
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, conflict("CONFLICT", "Paper status changed concurrently; reload and retry")
	}

	updated, err := s.loadPaper(ctx, paper.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notify.Event{
		Kind:     notify.DecisionRecorded,
		Paper:    updated,
		Decision: string(decision),
		ActorID:  session.UserID,
	})
	names := s.names(ctx, session.UserID)
	return map[string]any{
		"decision": newDecisionView(record, names[session.UserID]),
		"paper":    s.paperView(ctx, updated),
	}, nil
}

func (s *Service) GetPaperHistory(ctx context.Context, session Session, paperID string) (map[string]any, error) {
	paper, _, _, err := s.visiblePaper(ctx, session, paperID)
	if err != nil {
		return nil, err
	}
	versions, err := s.store.ListPaperVersions(ctx, paper.ID)
	if err != nil {
		return nil, err
	}
	commits := make([]store.CommitInfo, 0)
	if s.archive != nil {
		history, err := s.archive.History(paper.ID, 0)
		switch {
		case err == nil:
			commits = history
		case errors.Is(err, manuscript.ErrNoArchive):
		default:
			return nil, err
		}
	}
	return map[string]any{
		"paperId":  paper.ID,
		"versions": newVersionViews(versions),
		"commits":  commits,
	}, nil
}

// cleanList trims entries and drops blanks, keeping order.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
