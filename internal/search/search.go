package search

import "context"

// MaxResults caps every search regardless of the requested limit.
const MaxResults = 20

// Result is a single paper hit.
type Result struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Category string `json:"category"`
}

// Query describes a title search with optional equality filters.
type Query struct {
	Text     string
	Category string
	Status   string
	Limit    int
}

// Response is the envelope returned by Service.Search.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over papers.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// PaperRecord is the data indexed for a paper.
type PaperRecord struct {
	ID       string `json:"id" db:"id"`
	Title    string `json:"title" db:"title"`
	Status   string `json:"status" db:"status"`
	Category string `json:"category" db:"category"`
	AuthorID string `json:"authorId" db:"author_id"`
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxResults {
		return MaxResults
	}
	return limit
}
