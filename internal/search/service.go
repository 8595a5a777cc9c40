package search

import (
	"context"
	"log/slog"
)

// Index is a Searcher that also accepts documents.
type Index interface {
	Searcher
	IndexPaper(p PaperRecord) error
	IndexPapers(papers []PaperRecord) error
}

// Fallback is the always-available searcher backed by the primary database.
type Fallback interface {
	Searcher
	LoadAllRecords(ctx context.Context) ([]PaperRecord, error)
}

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	index    Index
	fallback Fallback
	logger   *slog.Logger
}

// NewService creates a search service. index may be nil if Meilisearch is not
// configured.
func NewService(index Index, fallback Fallback, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{index: index, fallback: fallback, logger: logger}
}

// Search tries the index if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	q.Limit = clampLimit(q.Limit)
	if s.index != nil && s.index.Healthy() {
		results, total, err := s.index.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("search: meilisearch error, falling back to pgfts", "error", err)
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("search: pgfts error", "error", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPaper indexes a paper (fire-and-forget).
func (s *Service) IndexPaper(p PaperRecord) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	go func() {
		if err := s.index.IndexPaper(p); err != nil {
			s.logger.Warn("search: index paper", "paper_id", p.ID, "error", err)
		}
	}()
}

// ReindexAllFromPG pushes every paper from PostgreSQL into the index.
// Called during Bootstrap.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.index == nil || !s.index.Healthy() || s.fallback == nil {
		return
	}
	records, err := s.fallback.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Error("search: reindex load failed", "error", err)
		return
	}
	if err := s.index.IndexPapers(records); err != nil {
		s.logger.Error("search: reindex papers", "count", len(records), "error", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
