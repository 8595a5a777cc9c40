package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"folio/api/internal/auth"
	"folio/api/internal/config"
	"folio/api/internal/notify"
	"folio/api/internal/store"
)

// memStore is an in-memory DataStore and SessionStore with the same
// conditional-update semantics as the Postgres store.
type memStore struct {
	mu            sync.Mutex
	users         map[string]store.User
	profiles      map[string]store.Profile // by user id
	categories    []store.Category
	papers        map[string]store.Paper
	versions      map[string][]store.PaperVersion
	reviews       map[string]store.Review
	decisions     map[string][]store.EditorialDecision
	notifications []store.Notification
	refresh       map[string]string
	revoked       map[string]bool
	pingErr       error
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]store.User),
		profiles:  make(map[string]store.Profile),
		papers:    make(map[string]store.Paper),
		versions:  make(map[string][]store.PaperVersion),
		reviews:   make(map[string]store.Review),
		decisions: make(map[string][]store.EditorialDecision),
		refresh:   make(map[string]string),
		revoked:   make(map[string]bool),
	}
}

func (m *memStore) addUser(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = store.User{
		ID:              id,
		Email:           strings.ToLower(name) + "@example.com",
		DisplayName:     name,
		IsEmailVerified: true,
	}
}

func (m *memStore) addProfile(userID, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = store.Profile{
		ID:        "prf_" + userID,
		UserID:    userID,
		FirstName: userID,
		LastName:  "Test",
		Role:      role,
	}
}

func (m *memStore) notificationsFor(userID string) []store.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (m *memStore) notificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

func (m *memStore) paper(id string) store.Paper {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.papers[id]
}

// Users

func (m *memStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (m *memStore) CreateUser(_ context.Context, user store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return store.ErrConflict
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memStore) UpdateUserVerificationToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.VerificationToken = token
	u.VerificationExpiresAt = &expiresAt
	m.users[userID] = u
	return nil
}

func (m *memStore) VerifyUserEmail(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if token != "" && u.VerificationToken == token {
			u.IsEmailVerified = true
			u.VerificationToken = ""
			m.users[id] = u
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memStore) GetUserByID(_ context.Context, userID string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memStore) DisplayNames(_ context.Context, userIDs []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if u, ok := m.users[id]; ok {
			names[id] = u.DisplayName
		}
	}
	return names, nil
}

// Profiles

func (m *memStore) UpsertProfile(_ context.Context, profile store.Profile) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.profiles[profile.UserID]; ok {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	}
	profile.UpdatedAt = time.Now()
	m.profiles[profile.UserID] = profile
	return profile, nil
}

func (m *memStore) GetProfileByUserID(_ context.Context, userID string) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return store.Profile{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memStore) ListProfilesByRole(_ context.Context, role string) ([]store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Profile, 0)
	for _, p := range m.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Categories

func (m *memStore) SeedCategories(_ context.Context, seeds []store.Category) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.categories) > 0 {
		return 0, nil
	}
	m.categories = append(m.categories, seeds...)
	return len(seeds), nil
}

func (m *memStore) ListCategories(context.Context) ([]store.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Category(nil), m.categories...), nil
}

func (m *memStore) InsertCategory(_ context.Context, category store.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Name == category.Name {
			return fmt.Errorf("%w: categories_name_key", store.ErrConflict)
		}
	}
	m.categories = append(m.categories, category)
	return nil
}

// Papers

func (m *memStore) InsertPaper(_ context.Context, paper store.Paper, version store.PaperVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.papers[paper.ID] = paper
	m.versions[paper.ID] = append(m.versions[paper.ID], version)
	return nil
}

func (m *memStore) GetPaper(_ context.Context, paperID string) (store.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.papers[paperID]
	if !ok {
		return store.Paper{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memStore) ListPapers(_ context.Context, filter store.PaperFilter) ([]store.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Paper, 0)
	for _, p := range m.papers {
		if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmissionDate.After(out[j].SubmissionDate) })
	return out, nil
}

func (m *memStore) ListPapersByIDs(_ context.Context, ids []string) ([]store.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Paper, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.papers[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) UpdatePaperStatus(_ context.Context, paperID, from, to, editorID string, publishedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.papers[paperID]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.EditorID = &editorID
	if publishedAt != nil {
		p.PublishedDate = publishedAt
	}
	m.papers[paperID] = p
	return true, nil
}

func (m *memStore) RecordDecision(_ context.Context, decision store.EditorialDecision, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.papers[decision.PaperID]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	if p.EditorID == nil {
		editorID := decision.EditorID
		p.EditorID = &editorID
	}
	m.papers[p.ID] = p
	m.decisions[p.ID] = append(m.decisions[p.ID], decision)
	return true, nil
}

func (m *memStore) ApplyRevision(_ context.Context, version store.PaperVersion, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.papers[version.PaperID]
	if !ok || p.Version != version.Version-1 {
		return false, nil
	}
	p.Version = version.Version
	p.Status = status
	if version.FileID != nil {
		p.FileID = version.FileID
		p.FileName = version.FileName
	}
	m.papers[p.ID] = p
	m.versions[p.ID] = append(m.versions[p.ID], version)
	return true, nil
}

func (m *memStore) ListPaperVersions(_ context.Context, paperID string) ([]store.PaperVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.PaperVersion{}, m.versions[paperID]...), nil
}

func (m *memStore) PaperStatusCounts(_ context.Context, authorID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, p := range m.papers {
		if authorID == "" || p.AuthorID == authorID {
			counts[p.Status]++
		}
	}
	return counts, nil
}

// Reviews

func (m *memStore) InsertReview(_ context.Context, review store.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.PaperID == review.PaperID && r.ReviewerID == review.ReviewerID && r.Status != "declined" {
			return fmt.Errorf("insert review: %w", store.ErrConflict)
		}
	}
	m.reviews[review.ID] = review
	return nil
}

func (m *memStore) GetReview(_ context.Context, reviewID string) (store.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[reviewID]
	if !ok {
		return store.Review{}, sql.ErrNoRows
	}
	return r, nil
}

func (m *memStore) ListReviewsByPaper(_ context.Context, paperID string) ([]store.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Review, 0)
	for _, r := range m.reviews {
		if r.PaperID == paperID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedDate.Before(out[j].AssignedDate) })
	return out, nil
}

func (m *memStore) ListReviewsByReviewer(_ context.Context, reviewerID, status string) ([]store.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Review, 0)
	for _, r := range m.reviews {
		if r.ReviewerID == reviewerID && (status == "" || r.Status == status) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedDate.After(out[j].AssignedDate) })
	return out, nil
}

func (m *memStore) TransitionReview(_ context.Context, reviewID, reviewerID, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[reviewID]
	if !ok || r.ReviewerID != reviewerID || r.Status != from {
		return false, nil
	}
	r.Status = to
	m.reviews[reviewID] = r
	return true, nil
}

func (m *memStore) CompleteReview(_ context.Context, review store.Review) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[review.ID]
	if !ok || r.ReviewerID != review.ReviewerID || r.Status != "in_progress" {
		return false, nil
	}
	review.Status = "completed"
	m.reviews[review.ID] = review
	return true, nil
}

func (m *memStore) ReviewStatusCounts(_ context.Context, reviewerID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, r := range m.reviews {
		if r.ReviewerID == reviewerID {
			counts[r.Status]++
		}
	}
	return counts, nil
}

func (m *memStore) ListDecisions(_ context.Context, paperID string) ([]store.EditorialDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.EditorialDecision{}, m.decisions[paperID]...), nil
}

// Notifications

func (m *memStore) InsertNotifications(_ context.Context, notifications []store.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, notifications...)
	return nil
}

func (m *memStore) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Notification, 0)
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) MarkNotificationRead(_ context.Context, notificationID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notifications {
		if n.ID == notificationID && n.UserID == userID {
			m.notifications[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memStore) Ping(context.Context) error {
	return m.pingErr
}

// Sessions

func (m *memStore) SaveRefreshSession(_ context.Context, tokenHash, userID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[tokenHash] = userID
	return nil
}

func (m *memStore) LookupRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.refresh[tokenHash]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return m.users[userID], nil
}

func (m *memStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, tokenHash)
	return nil
}

func (m *memStore) RevokeAccessToken(_ context.Context, jti string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = true
	return nil
}

func (m *memStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[jti], nil
}

const testSecret = "test-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService wires the service to st with the real outbox so
// notification fan-out is observable in st.
func newTestService(t *testing.T, st *memStore) *Service {
	t.Helper()
	logger := testLogger()
	events := notify.NewBroadcaster(logger)
	events.Subscribe("outbox", notify.NewOutbox(st, nil, logger))
	return New(config.Config{
		JWTSecret:  testSecret,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
	}, Deps{Store: st, Publisher: events}, logger)
}

func sessionFor(userID string) Session {
	return Session{UserID: userID, UserName: userID}
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte(testSecret), userID, userID, "jti-"+userID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}
