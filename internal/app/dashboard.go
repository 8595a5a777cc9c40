package app

import (
	"context"
	"errors"
	"sync"

	"folio/api/internal/export"
	"folio/api/internal/rbac"
	"folio/api/internal/store"
	"folio/api/internal/workflow"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

type Dashboard struct {
	Role         string         `json:"role"`
	Tabs         []rbac.Tab     `json:"tabs"`
	PaperCounts  map[string]int `json:"paperCounts"`
	ReviewCounts map[string]int `json:"reviewCounts,omitempty"`
	UnreadCount  int            `json:"unreadNotifications"`
}

// Dashboard summarizes what the caller can see. Editors and admins count
// every paper; everyone else counts their own.
func (s *Service) Dashboard(ctx context.Context, session Session) (Dashboard, error) {
	role, err := s.roleOf(ctx, session.UserID)
	if err != nil {
		return Dashboard{}, err
	}
	authorID := session.UserID
	if rbac.Can(role, rbac.ActionListAllPapers) {
		authorID = ""
	}

	dash := Dashboard{Role: string(role), Tabs: rbac.Tabs(role)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.store.PaperStatusCounts(gctx, authorID)
		if err != nil {
			return err
		}
		dash.PaperCounts = zeroFilled(counts, paperStatusNames())
		return nil
	})
	if rbac.Can(role, rbac.ActionReviewPapers) {
		g.Go(func() error {
			counts, err := s.store.ReviewStatusCounts(gctx, session.UserID)
			if err != nil {
				return err
			}
			dash.ReviewCounts = counts
			return nil
		})
	}
	g.Go(func() error {
		unread, err := s.store.CountUnreadNotifications(gctx, session.UserID)
		if err != nil {
			return err
		}
		dash.UnreadCount = unread
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

func paperStatusNames() []string {
	statuses := workflow.PaperStatuses()
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}
	return names
}

func zeroFilled(counts map[string]int, keys []string) map[string]int {
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		out[k] = counts[k]
	}
	return out
}

// ExportPaper renders the review packet for one paper.
func (s *Service) ExportPaper(ctx context.Context, session Session, paperID, rawFormat string) (*export.Result, error) {
	if _, err := s.authorize(ctx, session, rbac.ActionExportReport); err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, validation("format must be html or pdf", map[string]any{"format": rawFormat})
	}
	if s.exporter == nil {
		return nil, unavailable("EXPORT_UNAVAILABLE", "Export is not configured")
	}
	detail, err := s.GetPaper(ctx, session, paperID)
	if err != nil {
		return nil, err
	}

	packet := export.Packet{
		PaperID:        detail.ID,
		Title:          detail.Title,
		Abstract:       detail.Abstract,
		Keywords:       detail.Keywords,
		CoAuthors:      detail.CoAuthors,
		Category:       detail.Category,
		Status:         detail.Status,
		Version:        detail.Version,
		AuthorName:     detail.AuthorName,
		SubmissionDate: detail.SubmissionDate,
		GeneratedAt:    s.now(),
	}
	for _, sc := range detail.Scores {
		packet.Scores = append(packet.Scores, export.ScoreLine{Criterion: sc.Criterion, Mean: sc.Mean, Count: sc.Count})
	}
	for _, r := range detail.Reviews {
		packet.Reviews = append(packet.Reviews, export.PacketReview{
			ReviewerName:         r.ReviewerName,
			Status:               r.Status,
			Recommendation:       deref(r.Recommendation),
			OverallScore:         r.OverallScore,
			Comments:             deref(r.Comments),
			ConfidentialComments: deref(r.ConfidentialComments),
			SubmittedDate:        r.SubmittedDate,
		})
	}
	for _, d := range detail.Decisions {
		packet.Decisions = append(packet.Decisions, export.PacketDecision{
			EditorName:   d.EditorName,
			Decision:     d.Decision,
			Comments:     d.Comments,
			DecisionDate: d.DecisionDate,
		})
	}

	result, err := s.exporter.Packet(ctx, packet, format)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, unavailable("PDF_UNAVAILABLE", "PDF export requires a Chrome installation")
		}
		return nil, err
	}
	return result, nil
}

const reportConcurrency = 8

// ExportSubmissionsReport builds the spreadsheet of every paper with its
// review count and mean overall score.
func (s *Service) ExportSubmissionsReport(ctx context.Context, session Session) (*export.Result, error) {
	if _, err := s.authorize(ctx, session, rbac.ActionExportReport); err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, unavailable("EXPORT_UNAVAILABLE", "Export is not configured")
	}
	papers, err := s.store.ListPapers(ctx, store.PaperFilter{})
	if err != nil {
		return nil, err
	}
	authorIDs := make([]string, 0, len(papers))
	for _, p := range papers {
		authorIDs = append(authorIDs, p.AuthorID)
	}
	names := s.names(ctx, authorIDs...)

	rows := make([]export.ReportRow, len(papers))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reportConcurrency)
	for i, p := range papers {
		g.Go(func() error {
			reviews, err := s.store.ListReviewsByPaper(gctx, p.ID)
			if err != nil {
				return err
			}
			var overall stats.Float64Data
			for _, r := range reviews {
				if r.Status == string(workflow.ReviewCompleted) && r.OverallScore != nil {
					overall = append(overall, float64(*r.OverallScore))
				}
			}
			mean := 0.0
			if len(overall) > 0 {
				if m, err := stats.Mean(overall); err == nil {
					mean, _ = stats.Round(m, 2)
				}
			}
			author := names[p.AuthorID]
			if author == "" {
				author = unknownAuthor
			}
			mu.Lock()
			rows[i] = export.ReportRow{
				PaperID:        p.ID,
				Title:          p.Title,
				AuthorName:     author,
				Category:       p.Category,
				Status:         p.Status,
				Version:        p.Version,
				SubmissionDate: p.SubmissionDate,
				ReviewCount:    len(reviews),
				MeanOverall:    mean,
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s.exporter.SubmissionsReport(rows)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
