package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// PgFTS implements Searcher using the generated tsvector on papers.title.
type PgFTS struct {
	db *sqlx.DB
}

func NewPgFTS(db *sqlx.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	where, args := ftsWhere(q)

	var total int
	if err := p.db.GetContext(ctx, &total, `SELECT count(*) FROM papers WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	results := make([]Result, 0)
	query := fmt.Sprintf(`
		SELECT id, title, status, category
		FROM papers
		WHERE %s
		ORDER BY ts_rank(fts, plainto_tsquery('english', $1)) DESC, submission_date DESC
		LIMIT %d`, where, clampLimit(q.Limit))
	if err := p.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	return results, total, nil
}

func ftsWhere(q Query) (string, []any) {
	clauses := []string{"fts @@ plainto_tsquery('english', $1)"}
	args := []any{q.Text}
	if q.Category != "" {
		args = append(args, q.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

// LoadAllRecords returns every paper for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]PaperRecord, error) {
	records := make([]PaperRecord, 0)
	if err := p.db.SelectContext(ctx, &records, `
		SELECT id, title, status, category, author_id FROM papers
	`); err != nil {
		return nil, fmt.Errorf("load papers: %w", err)
	}
	return records, nil
}
