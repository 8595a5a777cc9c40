package store

import (
	"time"

	"github.com/lib/pq"
)

type User struct {
	ID                    string     `db:"id"`
	Email                 string     `db:"email"`
	DisplayName           string     `db:"display_name"`
	PasswordHash          string     `db:"password_hash"`
	IsEmailVerified       bool       `db:"is_email_verified"`
	VerificationToken     string     `db:"verification_token"`
	VerificationExpiresAt *time.Time `db:"verification_expires_at"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

type Profile struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	FirstName   string         `db:"first_name"`
	LastName    string         `db:"last_name"`
	Affiliation string         `db:"affiliation"`
	Expertise   pq.StringArray `db:"expertise"`
	Role        string         `db:"role"`
	Bio         *string        `db:"bio"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type Category struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	EditorID    *string   `db:"editor_id"`
	CreatedAt   time.Time `db:"created_at"`
}

type Paper struct {
	ID             string         `db:"id"`
	Title          string         `db:"title"`
	Abstract       string         `db:"abstract"`
	Keywords       pq.StringArray `db:"keywords"`
	AuthorID       string         `db:"author_id"`
	CoAuthors      pq.StringArray `db:"co_authors"`
	FileID         *string        `db:"file_id"`
	FileName       *string        `db:"file_name"`
	Status         string         `db:"status"`
	SubmissionDate time.Time      `db:"submission_date"`
	Category       string         `db:"category"`
	EditorID       *string        `db:"editor_id"`
	PublishedDate  *time.Time     `db:"published_date"`
	Version        int            `db:"version"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type PaperVersion struct {
	ID         string    `db:"id"`
	PaperID    string    `db:"paper_id"`
	Version    int       `db:"version"`
	FileID     *string   `db:"file_id"`
	FileName   *string   `db:"file_name"`
	Changes    *string   `db:"changes"`
	UploadDate time.Time `db:"upload_date"`
	CommitHash *string   `db:"commit_hash"`
}

type Review struct {
	ID                   string     `db:"id"`
	PaperID              string     `db:"paper_id"`
	ReviewerID           string     `db:"reviewer_id"`
	AssignedBy           string     `db:"assigned_by"`
	AssignedDate         time.Time  `db:"assigned_date"`
	DueDate              time.Time  `db:"due_date"`
	Status               string     `db:"status"`
	OverallScore         *int       `db:"overall_score"`
	TechnicalQuality     *int       `db:"technical_quality"`
	Novelty              *int       `db:"novelty"`
	Clarity              *int       `db:"clarity"`
	Significance         *int       `db:"significance"`
	Comments             *string    `db:"comments"`
	ConfidentialComments *string    `db:"confidential_comments"`
	Recommendation       *string    `db:"recommendation"`
	SubmittedDate        *time.Time `db:"submitted_date"`
}

type EditorialDecision struct {
	ID           string    `db:"id"`
	PaperID      string    `db:"paper_id"`
	EditorID     string    `db:"editor_id"`
	Decision     string    `db:"decision"`
	Comments     string    `db:"comments"`
	DecisionDate time.Time `db:"decision_date"`
}

type Notification struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	PaperID   *string   `db:"paper_id"`
	ReviewID  *string   `db:"review_id"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}

// PaperFilter narrows ListPapers. Empty fields match everything.
type PaperFilter struct {
	AuthorID string
	Status   string
}

// CommitInfo describes one manuscript archive commit.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}
