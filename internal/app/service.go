package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"folio/api/internal/auth"
	"folio/api/internal/authpw"
	"folio/api/internal/config"
	"folio/api/internal/export"
	"folio/api/internal/notify"
	"folio/api/internal/rbac"
	"folio/api/internal/search"
	sessionstore "folio/api/internal/session"
	"folio/api/internal/storage"
	"folio/api/internal/store"
	"folio/api/internal/util"

	"golang.org/x/sync/errgroup"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	JTI          string
	ExpiresAt    time.Time
}

// DataStore is the relational state the service reads and writes.
type DataStore interface {
	authpw.UserStore
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)

	UpsertProfile(ctx context.Context, profile store.Profile) (store.Profile, error)
	GetProfileByUserID(ctx context.Context, userID string) (store.Profile, error)
	ListProfilesByRole(ctx context.Context, role string) ([]store.Profile, error)

	SeedCategories(ctx context.Context, seeds []store.Category) (int, error)
	ListCategories(ctx context.Context) ([]store.Category, error)
	InsertCategory(ctx context.Context, category store.Category) error

	InsertPaper(ctx context.Context, paper store.Paper, version store.PaperVersion) error
	GetPaper(ctx context.Context, paperID string) (store.Paper, error)
	ListPapers(ctx context.Context, filter store.PaperFilter) ([]store.Paper, error)
	ListPapersByIDs(ctx context.Context, ids []string) ([]store.Paper, error)
	UpdatePaperStatus(ctx context.Context, paperID, from, to, editorID string, publishedAt *time.Time) (bool, error)
	RecordDecision(ctx context.Context, decision store.EditorialDecision, from, to string) (bool, error)
	ApplyRevision(ctx context.Context, version store.PaperVersion, status string) (bool, error)
	ListPaperVersions(ctx context.Context, paperID string) ([]store.PaperVersion, error)
	PaperStatusCounts(ctx context.Context, authorID string) (map[string]int, error)

	InsertReview(ctx context.Context, review store.Review) error
	GetReview(ctx context.Context, reviewID string) (store.Review, error)
	ListReviewsByPaper(ctx context.Context, paperID string) ([]store.Review, error)
	ListReviewsByReviewer(ctx context.Context, reviewerID, status string) ([]store.Review, error)
	TransitionReview(ctx context.Context, reviewID, reviewerID, from, to string) (bool, error)
	CompleteReview(ctx context.Context, review store.Review) (bool, error)
	ReviewStatusCounts(ctx context.Context, reviewerID string) (map[string]int, error)

	ListDecisions(ctx context.Context, paperID string) ([]store.EditorialDecision, error)

	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]store.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID string) (bool, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)

	Ping(ctx context.Context) error
}

// SessionStore holds refresh sessions and revoked access tokens.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type FileStore interface {
	PresignUpload(ctx context.Context, ownerID string) (storage.UploadTicket, error)
	URL(ctx context.Context, fileID, fileName string) (string, error)
	Stat(ctx context.Context, fileID string) (storage.ObjectInfo, error)
}

type Searcher interface {
	Search(ctx context.Context, q search.Query) search.Response
	ReindexAllFromPG(ctx context.Context)
}

type Archive interface {
	History(paperID string, limit int) ([]store.CommitInfo, error)
}

type Publisher interface {
	Publish(ctx context.Context, event notify.Event) error
}

type Exporter interface {
	Packet(ctx context.Context, packet export.Packet, format export.Format) (*export.Result, error)
	SubmissionsReport(rows []export.ReportRow) (*export.Result, error)
}

type VerificationMailer interface {
	IsConfigured() bool
	SendVerificationEmail(to, userName, token string) error
}

// Deps wires the service to its collaborators. Files, Search, Archive,
// Exporter and Mailer may be nil when the backing service is not configured.
type Deps struct {
	Store     DataStore
	Sessions  SessionStore
	Files     FileStore
	Search    Searcher
	Archive   Archive
	Publisher Publisher
	Exporter  Exporter
	Mailer    VerificationMailer
}

type Service struct {
	cfg      config.Config
	store    DataStore
	sessions SessionStore
	files    FileStore
	search   Searcher
	archive  Archive
	events   Publisher
	exporter Exporter
	mailer   VerificationMailer
	authpw   *authpw.Service
	logger   *slog.Logger
	now      func() time.Time
}

func New(cfg config.Config, deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	sessions := deps.Sessions
	if sessions == nil {
		if fallback, ok := deps.Store.(SessionStore); ok {
			sessions = fallback
		}
	}
	return &Service{
		cfg:      cfg,
		store:    deps.Store,
		sessions: sessions,
		files:    deps.Files,
		search:   deps.Search,
		archive:  deps.Archive,
		events:   deps.Publisher,
		exporter: deps.Exporter,
		mailer:   deps.Mailer,
		authpw:   authpw.NewService(deps.Store),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var seedCategories = []store.Category{
	{Name: "Computer Science", Description: "General CS research"},
	{Name: "Machine Learning", Description: "ML and AI research"},
	{Name: "Software Engineering", Description: "Software development"},
	{Name: "Data Science", Description: "Data analysis research"},
}

// Bootstrap seeds categories and pushes existing papers into the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if _, err := s.SeedCategories(ctx); err != nil {
		return err
	}
	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) SMTPConfigured() bool {
	return s.mailer != nil && s.mailer.IsConfigured()
}

// SignUp creates the account and mails the verification link when SMTP is
// configured. A mail failure does not fail sign-up.
func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (*authpw.SignUpResponse, error) {
	resp, err := s.authpw.SignUp(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.SMTPConfigured() {
		if err := s.mailer.SendVerificationEmail(strings.ToLower(strings.TrimSpace(req.Email)), req.DisplayName, resp.VerificationToken); err != nil {
			s.logger.Warn("auth: send verification email", "user_id", resp.UserID, "error", err)
		}
	}
	return resp, nil
}

func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if s.sessions == nil {
		return Session{}, unavailable("SESSIONS_UNAVAILABLE", "Session storage not configured")
	}
	tokenHash := auth.HashToken(refreshToken)
	ref, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, sessionstore.ErrSessionNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, ref.ID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	if s.sessions == nil {
		return Session{}, unavailable("SESSIONS_UNAVAILABLE", "Session storage not configured")
	}
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), user.ID, user.DisplayName, jti, expiresAt)
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	if s.sessions != nil {
		revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.ID)
		if err != nil {
			return Session{}, err
		}
		if revoked {
			return Session{}, auth.ErrInvalidToken
		}
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if s.sessions == nil {
		return nil
	}
	if session.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			s.logger.Warn("auth: revoke access token", "user_id", session.UserID, "error", err)
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			s.logger.Warn("auth: revoke refresh session", "user_id", session.UserID, "error", err)
		}
	}
	return nil
}

// roleOf loads the caller's role from their profile. Callers without a
// profile are authors.
func (s *Service) roleOf(ctx context.Context, userID string) (rbac.Role, error) {
	if userID == "" {
		return "", errUnauthenticated
	}
	profile, err := s.store.GetProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rbac.RoleAuthor, nil
		}
		return "", fmt.Errorf("load caller profile: %w", err)
	}
	return rbac.Normalize(profile.Role), nil
}

// requireEditor checks that userID names an editor or admin profile.
func (s *Service) requireEditor(ctx context.Context, userID string) error {
	profile, err := s.store.GetProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return validation("editorId must reference an editor", map[string]any{"editorId": userID})
		}
		return fmt.Errorf("load editor profile: %w", err)
	}
	switch rbac.Normalize(profile.Role) {
	case rbac.RoleEditor, rbac.RoleAdmin:
		return nil
	}
	return validation("editorId must reference an editor", map[string]any{"editorId": userID})
}

// authorize resolves the caller's role and checks it against action.
func (s *Service) authorize(ctx context.Context, session Session, action rbac.Action) (rbac.Role, error) {
	role, err := s.roleOf(ctx, session.UserID)
	if err != nil {
		return "", err
	}
	if !rbac.Can(role, action) {
		return role, forbidden(action)
	}
	return role, nil
}

// RoleOf is the caller's current role for session responses.
func (s *Service) RoleOf(ctx context.Context, userID string) string {
	role, err := s.roleOf(ctx, userID)
	if err != nil {
		return string(rbac.RoleAuthor)
	}
	return string(role)
}

// publish runs the event subscribers after the primary write has committed.
// Subscriber failures are logged by the broadcaster and never fail the request.
func (s *Service) publish(ctx context.Context, event notify.Event) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now()
	if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("events: publish incomplete", "event", string(event.Kind), "paper_id", event.Paper.ID, "error", err)
	}
}

func (s *Service) names(ctx context.Context, ids ...string) map[string]string {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	names, err := s.store.DisplayNames(ctx, unique)
	if err != nil {
		s.logger.Warn("resolve display names", "error", err)
		return map[string]string{}
	}
	return names
}

const fileURLConcurrency = 8

// fileURLs presigns download URLs for every paper with a file. Presign
// failures leave the URL empty.
func (s *Service) fileURLs(ctx context.Context, papers []store.Paper) map[string]string {
	urls := make(map[string]string)
	if s.files == nil {
		return urls
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fileURLConcurrency)
	for _, p := range papers {
		if p.FileID == nil || *p.FileID == "" {
			continue
		}
		g.Go(func() error {
			name := ""
			if p.FileName != nil {
				name = *p.FileName
			}
			u, err := s.files.URL(gctx, *p.FileID, name)
			if err != nil {
				s.logger.Warn("storage: presign download", "paper_id", p.ID, "error", err)
				return nil
			}
			mu.Lock()
			urls[p.ID] = u
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return urls
}

func (s *Service) paperViews(ctx context.Context, papers []store.Paper) []PaperView {
	ids := make([]string, 0, len(papers))
	for _, p := range papers {
		ids = append(ids, p.AuthorID)
	}
	names := s.names(ctx, ids...)
	urls := s.fileURLs(ctx, papers)

	views := make([]PaperView, 0, len(papers))
	for _, p := range papers {
		views = append(views, newPaperView(p, names[p.AuthorID], urls[p.ID]))
	}
	return views
}

func (s *Service) paperView(ctx context.Context, paper store.Paper) PaperView {
	return s.paperViews(ctx, []store.Paper{paper})[0]
}

func (s *Service) loadPaper(ctx context.Context, paperID string) (store.Paper, error) {
	paper, err := s.store.GetPaper(ctx, strings.TrimSpace(paperID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Paper{}, notFound("Paper")
		}
		return store.Paper{}, err
	}
	return paper, nil
}
