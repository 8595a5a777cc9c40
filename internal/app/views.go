package app

import (
	"time"

	"folio/api/internal/store"
)

const (
	unknownAuthor     = "Unknown"
	anonymousReviewer = "Anonymous"
)

type PaperView struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Abstract       string     `json:"abstract"`
	Keywords       []string   `json:"keywords"`
	AuthorID       string     `json:"authorId"`
	AuthorName     string     `json:"authorName"`
	CoAuthors      []string   `json:"coAuthors"`
	FileID         *string    `json:"fileId,omitempty"`
	FileName       *string    `json:"fileName,omitempty"`
	FileURL        string     `json:"fileUrl,omitempty"`
	Status         string     `json:"status"`
	SubmissionDate time.Time  `json:"submissionDate"`
	Category       string     `json:"category"`
	EditorID       *string    `json:"editorId,omitempty"`
	PublishedDate  *time.Time `json:"publishedDate,omitempty"`
	Version        int        `json:"version"`
}

func newPaperView(p store.Paper, authorName, fileURL string) PaperView {
	if authorName == "" {
		authorName = unknownAuthor
	}
	return PaperView{
		ID:             p.ID,
		Title:          p.Title,
		Abstract:       p.Abstract,
		Keywords:       nonNilStrings(p.Keywords),
		AuthorID:       p.AuthorID,
		AuthorName:     authorName,
		CoAuthors:      nonNilStrings(p.CoAuthors),
		FileID:         p.FileID,
		FileName:       p.FileName,
		FileURL:        fileURL,
		Status:         p.Status,
		SubmissionDate: p.SubmissionDate,
		Category:       p.Category,
		EditorID:       p.EditorID,
		PublishedDate:  p.PublishedDate,
		Version:        p.Version,
	}
}

type ReviewView struct {
	ID                   string     `json:"id"`
	PaperID              string     `json:"paperId"`
	ReviewerID           string     `json:"reviewerId"`
	ReviewerName         string     `json:"reviewerName"`
	AssignedBy           string     `json:"assignedBy"`
	AssignedDate         time.Time  `json:"assignedDate"`
	DueDate              time.Time  `json:"dueDate"`
	Status               string     `json:"status"`
	OverallScore         *int       `json:"overallScore,omitempty"`
	TechnicalQuality     *int       `json:"technicalQuality,omitempty"`
	Novelty              *int       `json:"novelty,omitempty"`
	Clarity              *int       `json:"clarity,omitempty"`
	Significance         *int       `json:"significance,omitempty"`
	Comments             *string    `json:"comments,omitempty"`
	ConfidentialComments *string    `json:"confidentialComments,omitempty"`
	Recommendation       *string    `json:"recommendation,omitempty"`
	SubmittedDate        *time.Time `json:"submittedDate,omitempty"`
	Paper                *PaperView `json:"paper,omitempty"`
}

func newReviewView(r store.Review, reviewerName string, showConfidential bool) ReviewView {
	if reviewerName == "" {
		reviewerName = anonymousReviewer
	}
	view := ReviewView{
		ID:               r.ID,
		PaperID:          r.PaperID,
		ReviewerID:       r.ReviewerID,
		ReviewerName:     reviewerName,
		AssignedBy:       r.AssignedBy,
		AssignedDate:     r.AssignedDate,
		DueDate:          r.DueDate,
		Status:           r.Status,
		OverallScore:     r.OverallScore,
		TechnicalQuality: r.TechnicalQuality,
		Novelty:          r.Novelty,
		Clarity:          r.Clarity,
		Significance:     r.Significance,
		Comments:         r.Comments,
		Recommendation:   r.Recommendation,
		SubmittedDate:    r.SubmittedDate,
	}
	if showConfidential {
		view.ConfidentialComments = r.ConfidentialComments
	}
	return view
}

type DecisionView struct {
	ID           string    `json:"id"`
	PaperID      string    `json:"paperId"`
	EditorID     string    `json:"editorId"`
	EditorName   string    `json:"editorName"`
	Decision     string    `json:"decision"`
	Comments     string    `json:"comments"`
	DecisionDate time.Time `json:"decisionDate"`
}

func newDecisionView(d store.EditorialDecision, editorName string) DecisionView {
	if editorName == "" {
		editorName = unknownAuthor
	}
	return DecisionView{
		ID:           d.ID,
		PaperID:      d.PaperID,
		EditorID:     d.EditorID,
		EditorName:   editorName,
		Decision:     d.Decision,
		Comments:     d.Comments,
		DecisionDate: d.DecisionDate,
	}
}

type VersionView struct {
	Version    int       `json:"version"`
	FileID     *string   `json:"fileId,omitempty"`
	FileName   *string   `json:"fileName,omitempty"`
	Changes    *string   `json:"changes,omitempty"`
	UploadDate time.Time `json:"uploadDate"`
	CommitHash *string   `json:"commitHash,omitempty"`
}

func newVersionViews(versions []store.PaperVersion) []VersionView {
	views := make([]VersionView, 0, len(versions))
	for _, v := range versions {
		views = append(views, VersionView{
			Version:    v.Version,
			FileID:     v.FileID,
			FileName:   v.FileName,
			Changes:    v.Changes,
			UploadDate: v.UploadDate,
			CommitHash: v.CommitHash,
		})
	}
	return views
}

type ScoreSummary struct {
	Criterion string  `json:"criterion"`
	Mean      float64 `json:"mean"`
	Count     int     `json:"count"`
}

type PaperDetail struct {
	PaperView
	Reviews   []ReviewView   `json:"reviews"`
	Decisions []DecisionView `json:"decisions"`
	Versions  []VersionView  `json:"versions"`
	Scores    []ScoreSummary `json:"scoreSummary"`
}

type ProfileView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Affiliation string    `json:"affiliation"`
	Expertise   []string  `json:"expertise"`
	Role        string    `json:"role"`
	Bio         *string   `json:"bio,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newProfileView(p store.Profile) ProfileView {
	return ProfileView{
		ID:          p.ID,
		UserID:      p.UserID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Affiliation: p.Affiliation,
		Expertise:   nonNilStrings(p.Expertise),
		Role:        p.Role,
		Bio:         p.Bio,
		UpdatedAt:   p.UpdatedAt,
	}
}

type CategoryView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	EditorID    *string `json:"editorId,omitempty"`
}

func newCategoryView(c store.Category) CategoryView {
	return CategoryView{ID: c.ID, Name: c.Name, Description: c.Description, EditorID: c.EditorID}
}

type NotificationView struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	PaperID   *string   `json:"paperId,omitempty"`
	ReviewID  *string   `json:"reviewId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func newNotificationView(n store.Notification) NotificationView {
	return NotificationView{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		PaperID:   n.PaperID,
		ReviewID:  n.ReviewID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
