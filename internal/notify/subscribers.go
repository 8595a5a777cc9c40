package notify

import (
	"context"
	"fmt"
	"log/slog"

	"folio/api/internal/manuscript"
	"folio/api/internal/search"
	"folio/api/internal/store"
)

type PaperIndexer interface {
	IndexPaper(p search.PaperRecord)
}

// SearchSubscriber keeps the search index in step with paper writes.
func SearchSubscriber(indexer PaperIndexer) Subscriber {
	return SubscriberFunc(func(_ context.Context, event Event) error {
		switch event.Kind {
		case PaperSubmitted, PaperStatusChanged, DecisionRecorded, RevisionSubmitted:
			indexer.IndexPaper(search.PaperRecord{
				ID:       event.Paper.ID,
				Title:    event.Paper.Title,
				Status:   event.Paper.Status,
				Category: event.Paper.Category,
				AuthorID: event.Paper.AuthorID,
			})
		}
		return nil
	})
}

type Archiver interface {
	RecordVersion(snap manuscript.Snapshot, author string) (store.CommitInfo, error)
}

type VersionStore interface {
	SetVersionCommit(ctx context.Context, paperID string, version int, hash string) error
	DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// ArchiveSubscriber commits a manuscript snapshot for each new version and
// stores the resulting commit hash on the version row.
func ArchiveSubscriber(archive Archiver, st VersionStore, logger *slog.Logger) Subscriber {
	return SubscriberFunc(func(ctx context.Context, event Event) error {
		if event.Kind != PaperSubmitted && event.Kind != RevisionSubmitted {
			return nil
		}
		p := event.Paper

		author := p.AuthorID
		if names, err := st.DisplayNames(ctx, []string{p.AuthorID}); err == nil && names[p.AuthorID] != "" {
			author = names[p.AuthorID]
		}

		snap := manuscript.Snapshot{
			PaperID:   p.ID,
			Version:   p.Version,
			Title:     p.Title,
			Abstract:  p.Abstract,
			Keywords:  []string(p.Keywords),
			CoAuthors: []string(p.CoAuthors),
			Category:  p.Category,
			Changes:   event.Changes,
		}
		if p.FileID != nil {
			snap.FileID = *p.FileID
		}
		if p.FileName != nil {
			snap.FileName = *p.FileName
		}

		commit, err := archive.RecordVersion(snap, author)
		if err != nil {
			return fmt.Errorf("archive version %d: %w", p.Version, err)
		}
		if err := st.SetVersionCommit(ctx, p.ID, p.Version, commit.Hash); err != nil {
			return fmt.Errorf("store version commit: %w", err)
		}
		if logger != nil {
			logger.Debug("notify: archived manuscript", "paper_id", p.ID, "version", p.Version, "commit", commit.Hash)
		}
		return nil
	})
}
