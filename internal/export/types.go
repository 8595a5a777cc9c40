// Package export renders review packets (HTML, PDF) and submission reports (XLSX).
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", ErrUnsupportedFormat
}

// Packet is everything an editor needs to rule on a paper.
type Packet struct {
	PaperID        string
	Title          string
	Abstract       string // markdown
	Keywords       []string
	CoAuthors      []string
	Category       string
	Status         string
	Version        int
	AuthorName     string
	SubmissionDate time.Time
	Scores         []ScoreLine
	Reviews        []PacketReview
	Decisions      []PacketDecision
	GeneratedAt    time.Time
}

type ScoreLine struct {
	Criterion string
	Mean      float64
	Count     int
}

type PacketReview struct {
	ReviewerName         string
	Status               string
	Recommendation       string
	OverallScore         *int
	Comments             string // markdown
	ConfidentialComments string // markdown
	SubmittedDate        *time.Time
}

type PacketDecision struct {
	EditorName   string
	Decision     string
	Comments     string
	DecisionDate time.Time
}

// ReportRow is one paper line in the submissions report.
type ReportRow struct {
	PaperID        string
	Title          string
	AuthorName     string
	Category       string
	Status         string
	Version        int
	SubmissionDate time.Time
	ReviewCount    int
	MeanOverall    float64
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
