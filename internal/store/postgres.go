package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrInvalidReference is returned when a write points at a row that does not exist.
	ErrInvalidReference = errors.New("invalid reference")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sqlx.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	case foreignKeyViolation:
		return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
	}
	return err
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Users

const userColumns = `id, email, display_name, password_hash, is_email_verified, verification_token, verification_expires_at, created_at, updated_at`

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, is_email_verified, verification_token)
		VALUES (:id, :email, :display_name, :password_hash, :is_email_verified, :verification_token)
	`, user)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapWriteError(err))
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	if err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	if err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW()
		WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("update verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token='', verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND verification_token <> '' AND verification_expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DisplayNames resolves "First Last" from profiles, falling back to the
// account email. Users without a row are absent from the map.
func (s *PostgresStore) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}
	rows, err := s.db.QueryxContext(ctx, `
		SELECT u.id,
			COALESCE(NULLIF(TRIM(CONCAT(p.first_name, ' ', p.last_name)), ''), u.email) AS name
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = ANY($1)
	`, pq.StringArray(userIDs))
	if err != nil {
		return nil, fmt.Errorf("resolve display names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan display name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// Sessions (PostgreSQL fallback when Redis is not configured)

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, `
		SELECT u.id, u.email, u.display_name, u.password_hash, u.is_email_verified, u.verification_token,
			u.verification_expires_at, u.created_at, u.updated_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`, tokenHash)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.GetContext(ctx, &revoked, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// Profiles

const profileColumns = `id, user_id, first_name, last_name, affiliation, expertise, role, bio, created_at, updated_at`

// UpsertProfile inserts or replaces the single profile owned by profile.UserID.
func (s *PostgresStore) UpsertProfile(ctx context.Context, profile Profile) (Profile, error) {
	if profile.Expertise == nil {
		profile.Expertise = pq.StringArray{}
	}
	rows, err := s.db.NamedQueryContext(ctx, `
		INSERT INTO profiles (id, user_id, first_name, last_name, affiliation, expertise, role, bio)
		VALUES (:id, :user_id, :first_name, :last_name, :affiliation, :expertise, :role, :bio)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name=EXCLUDED.first_name,
			last_name=EXCLUDED.last_name,
			affiliation=EXCLUDED.affiliation,
			expertise=EXCLUDED.expertise,
			role=EXCLUDED.role,
			bio=EXCLUDED.bio,
			updated_at=NOW()
		RETURNING `+profileColumns, profile)
	if err != nil {
		return Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	defer rows.Close()
	var saved Profile
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Profile{}, fmt.Errorf("upsert profile: %w", err)
		}
		return Profile{}, sql.ErrNoRows
	}
	if err := rows.StructScan(&saved); err != nil {
		return Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) GetProfileByUserID(ctx context.Context, userID string) (Profile, error) {
	var profile Profile
	if err := s.db.GetContext(ctx, &profile, `SELECT `+profileColumns+` FROM profiles WHERE user_id=$1`, userID); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (s *PostgresStore) ListProfilesByRole(ctx context.Context, role string) ([]Profile, error) {
	profiles := make([]Profile, 0)
	err := s.db.SelectContext(ctx, &profiles, `
		SELECT `+profileColumns+` FROM profiles WHERE role=$1 ORDER BY last_name, first_name
	`, role)
	if err != nil {
		return nil, fmt.Errorf("list profiles by role: %w", err)
	}
	return profiles, nil
}

// Categories

// SeedCategories inserts seeds only when the table is empty. The table lock
// serializes concurrent seeders so exactly one set is written.
func (s *PostgresStore) SeedCategories(ctx context.Context, seeds []Category) (int, error) {
	inserted := 0
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `LOCK TABLE categories IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("lock categories: %w", err)
		}
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM categories`); err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if count > 0 {
			return nil
		}
		for _, seed := range seeds {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO categories (id, name, description, editor_id)
				VALUES (:id, :name, :description, :editor_id)
			`, seed); err != nil {
				return fmt.Errorf("insert category %s: %w", seed.Name, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	categories := make([]Category, 0)
	if err := s.db.SelectContext(ctx, &categories, `
		SELECT id, name, description, editor_id, created_at FROM categories ORDER BY name
	`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *PostgresStore) InsertCategory(ctx context.Context, category Category) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO categories (id, name, description, editor_id)
		VALUES (:id, :name, :description, :editor_id)
	`, category)
	if err != nil {
		return fmt.Errorf("insert category: %w", mapWriteError(err))
	}
	return nil
}

// Papers

const paperColumns = `id, title, abstract, keywords, author_id, co_authors, file_id, file_name, status,
	submission_date, category, editor_id, published_date, version, updated_at`

const insertVersionSQL = `
	INSERT INTO paper_versions (id, paper_id, version, file_id, file_name, changes, upload_date)
	VALUES (:id, :paper_id, :version, :file_id, :file_name, :changes, :upload_date)
`

// InsertPaper writes a paper together with its first version record.
func (s *PostgresStore) InsertPaper(ctx context.Context, paper Paper, version PaperVersion) error {
	if paper.Keywords == nil {
		paper.Keywords = pq.StringArray{}
	}
	if paper.CoAuthors == nil {
		paper.CoAuthors = pq.StringArray{}
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO papers (id, title, abstract, keywords, author_id, co_authors, file_id, file_name, status,
				submission_date, category, editor_id, version, updated_at)
			VALUES (:id, :title, :abstract, :keywords, :author_id, :co_authors, :file_id, :file_name, :status,
				:submission_date, :category, :editor_id, :version, :submission_date)
		`, paper); err != nil {
			return fmt.Errorf("insert paper: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, insertVersionSQL, version); err != nil {
			return fmt.Errorf("insert paper version: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetPaper(ctx context.Context, paperID string) (Paper, error) {
	var paper Paper
	if err := s.db.GetContext(ctx, &paper, `SELECT `+paperColumns+` FROM papers WHERE id=$1`, paperID); err != nil {
		return Paper{}, err
	}
	return paper, nil
}

func (s *PostgresStore) ListPapers(ctx context.Context, filter PaperFilter) ([]Paper, error) {
	papers := make([]Paper, 0)
	err := s.db.SelectContext(ctx, &papers, `
		SELECT `+paperColumns+`
		FROM papers
		WHERE ($1 = '' OR author_id = $1)
			AND ($2 = '' OR status = $2)
		ORDER BY submission_date DESC
	`, filter.AuthorID, filter.Status)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	return papers, nil
}

func (s *PostgresStore) ListPapersByIDs(ctx context.Context, ids []string) ([]Paper, error) {
	papers := make([]Paper, 0, len(ids))
	if len(ids) == 0 {
		return papers, nil
	}
	if err := s.db.SelectContext(ctx, &papers, `
		SELECT `+paperColumns+` FROM papers WHERE id = ANY($1)
	`, pq.StringArray(ids)); err != nil {
		return nil, fmt.Errorf("list papers by id: %w", err)
	}
	return papers, nil
}

// UpdatePaperStatus moves a paper from one status to another. It reports
// false when the paper was no longer in the expected status.
func (s *PostgresStore) UpdatePaperStatus(ctx context.Context, paperID, from, to, editorID string, publishedAt *time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE papers
		SET status=$3, editor_id=$4, published_date=COALESCE($5, published_date), updated_at=NOW()
		WHERE id=$1 AND status=$2
	`, paperID, from, to, editorID, publishedAt)
	if err != nil {
		return false, fmt.Errorf("update paper status: %w", mapWriteError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update paper status rows affected: %w", err)
	}
	return affected > 0, nil
}

// RecordDecision appends a decision and applies its status in one transaction.
func (s *PostgresStore) RecordDecision(ctx context.Context, decision EditorialDecision, from, to string) (bool, error) {
	applied := false
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE papers SET status=$3, editor_id=$4, updated_at=NOW()
			WHERE id=$1 AND status=$2
		`, decision.PaperID, from, to, decision.EditorID)
		if err != nil {
			return fmt.Errorf("apply decision status: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("apply decision rows affected: %w", err)
		}
		if affected == 0 {
			return nil
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO editorial_decisions (id, paper_id, editor_id, decision, comments, decision_date)
			VALUES (:id, :paper_id, :editor_id, :decision, :comments, :decision_date)
		`, decision); err != nil {
			return fmt.Errorf("insert editorial decision: %w", err)
		}
		applied = true
		return nil
	})
	return applied, err
}

// ApplyRevision resubmits a paper that is awaiting revision and appends the
// new version record.
func (s *PostgresStore) ApplyRevision(ctx context.Context, version PaperVersion, status string) (bool, error) {
	applied := false
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE papers
			SET status=$3, version=$4, file_id=COALESCE($5, file_id), file_name=COALESCE($6, file_name), updated_at=NOW()
			WHERE id=$1 AND status=$2 AND version=$4-1
		`, version.PaperID, "revision_requested", status, version.Version, version.FileID, version.FileName)
		if err != nil {
			return fmt.Errorf("apply revision: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("apply revision rows affected: %w", err)
		}
		if affected == 0 {
			return nil
		}
		if _, err := tx.NamedExecContext(ctx, insertVersionSQL, version); err != nil {
			return fmt.Errorf("insert paper version: %w", err)
		}
		applied = true
		return nil
	})
	return applied, err
}

func (s *PostgresStore) ListPaperVersions(ctx context.Context, paperID string) ([]PaperVersion, error) {
	versions := make([]PaperVersion, 0)
	if err := s.db.SelectContext(ctx, &versions, `
		SELECT id, paper_id, version, file_id, file_name, changes, upload_date, commit_hash
		FROM paper_versions WHERE paper_id=$1 ORDER BY version
	`, paperID); err != nil {
		return nil, fmt.Errorf("list paper versions: %w", err)
	}
	return versions, nil
}

func (s *PostgresStore) SetVersionCommit(ctx context.Context, paperID string, version int, hash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE paper_versions SET commit_hash=$3 WHERE paper_id=$1 AND version=$2
	`, paperID, version, hash)
	if err != nil {
		return fmt.Errorf("set version commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) PaperStatusCounts(ctx context.Context, authorID string) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT status, COUNT(*) FROM papers
		WHERE ($1 = '' OR author_id = $1)
		GROUP BY status
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("count papers: %w", err)
	}
	return scanCounts(rows)
}

// Reviews

const reviewColumns = `id, paper_id, reviewer_id, assigned_by, assigned_date, due_date, status,
	overall_score, technical_quality, novelty, clarity, significance,
	comments, confidential_comments, recommendation, submitted_date`

// InsertReview returns ErrConflict when the reviewer already holds an active
// assignment for the paper.
func (s *PostgresStore) InsertReview(ctx context.Context, review Review) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO reviews (id, paper_id, reviewer_id, assigned_by, assigned_date, due_date, status)
		VALUES (:id, :paper_id, :reviewer_id, :assigned_by, :assigned_date, :due_date, :status)
	`, review)
	if err != nil {
		return fmt.Errorf("insert review: %w", mapWriteError(err))
	}
	return nil
}

func (s *PostgresStore) GetReview(ctx context.Context, reviewID string) (Review, error) {
	var review Review
	if err := s.db.GetContext(ctx, &review, `SELECT `+reviewColumns+` FROM reviews WHERE id=$1`, reviewID); err != nil {
		return Review{}, err
	}
	return review, nil
}

func (s *PostgresStore) ListReviewsByPaper(ctx context.Context, paperID string) ([]Review, error) {
	reviews := make([]Review, 0)
	if err := s.db.SelectContext(ctx, &reviews, `
		SELECT `+reviewColumns+` FROM reviews WHERE paper_id=$1 ORDER BY assigned_date
	`, paperID); err != nil {
		return nil, fmt.Errorf("list reviews by paper: %w", err)
	}
	return reviews, nil
}

func (s *PostgresStore) ListReviewsByReviewer(ctx context.Context, reviewerID, status string) ([]Review, error) {
	reviews := make([]Review, 0)
	if err := s.db.SelectContext(ctx, &reviews, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE reviewer_id=$1 AND ($2 = '' OR status = $2)
		ORDER BY assigned_date DESC
	`, reviewerID, status); err != nil {
		return nil, fmt.Errorf("list reviews by reviewer: %w", err)
	}
	return reviews, nil
}

// TransitionReview changes status only when the review belongs to reviewerID
// and is still in from.
func (s *PostgresStore) TransitionReview(ctx context.Context, reviewID, reviewerID, from, to string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE reviews SET status=$4 WHERE id=$1 AND reviewer_id=$2 AND status=$3
	`, reviewID, reviewerID, from, to)
	if err != nil {
		return false, fmt.Errorf("transition review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition review rows affected: %w", err)
	}
	return affected > 0, nil
}

// CompleteReview stores scores and moves an in-progress review to completed.
func (s *PostgresStore) CompleteReview(ctx context.Context, review Review) (bool, error) {
	result, err := s.db.NamedExecContext(ctx, `
		UPDATE reviews SET
			status='completed',
			overall_score=:overall_score,
			technical_quality=:technical_quality,
			novelty=:novelty,
			clarity=:clarity,
			significance=:significance,
			comments=:comments,
			confidential_comments=:confidential_comments,
			recommendation=:recommendation,
			submitted_date=:submitted_date
		WHERE id=:id AND reviewer_id=:reviewer_id AND status='in_progress'
	`, review)
	if err != nil {
		return false, fmt.Errorf("complete review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete review rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ReviewStatusCounts(ctx context.Context, reviewerID string) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT status, COUNT(*) FROM reviews WHERE reviewer_id=$1 GROUP BY status
	`, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}
	return scanCounts(rows)
}

// Editorial decisions

func (s *PostgresStore) ListDecisions(ctx context.Context, paperID string) ([]EditorialDecision, error) {
	decisions := make([]EditorialDecision, 0)
	if err := s.db.SelectContext(ctx, &decisions, `
		SELECT id, paper_id, editor_id, decision, comments, decision_date
		FROM editorial_decisions WHERE paper_id=$1 ORDER BY decision_date
	`, paperID); err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	return decisions, nil
}

// Notifications

func (s *PostgresStore) InsertNotifications(ctx context.Context, notifications []Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, paper_id, review_id, read, created_at)
		VALUES (:id, :user_id, :type, :title, :message, :paper_id, :review_id, :read, :created_at)
	`, notifications)
	if err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	notifications := make([]Notification, 0)
	if err := s.db.SelectContext(ctx, &notifications, `
		SELECT id, user_id, type, title, message, paper_id, review_id, read, created_at
		FROM notifications
		WHERE user_id=$1 AND (NOT $2 OR read = FALSE)
		ORDER BY created_at DESC
	`, userID, unreadOnly); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead reports false when the notification does not exist or
// belongs to someone else.
func (s *PostgresStore) MarkNotificationRead(ctx context.Context, notificationID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read=TRUE WHERE id=$1 AND user_id=$2
	`, notificationID, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND read = FALSE
	`, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func scanCounts(rows *sqlx.Rows) (map[string]int, error) {
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
