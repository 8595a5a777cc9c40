package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"folio/api/internal/rbac"
	"folio/api/internal/store"
	"folio/api/internal/util"
)

type ProfileInput struct {
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Affiliation string   `json:"affiliation"`
	Expertise   []string `json:"expertise"`
	Role        string   `json:"role"`
	Bio         string   `json:"bio"`
}

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	EditorID    string `json:"editorId"`
}

// CreateProfile creates or replaces the caller's profile. The role is
// self-selected.
func (s *Service) CreateProfile(ctx context.Context, session Session, input ProfileInput) (ProfileView, error) {
	if session.UserID == "" {
		return ProfileView{}, errUnauthenticated
	}
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = string(rbac.RoleAuthor)
	}
	if !rbac.Valid(role) {
		return ProfileView{}, validation("role must be one of author, reviewer, editor, admin", map[string]any{"role": input.Role})
	}
	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	if first == "" || last == "" {
		return ProfileView{}, validation("firstName and lastName are required", nil)
	}

	saved, err := s.store.UpsertProfile(ctx, store.Profile{
		ID:          util.NewID("prf"),
		UserID:      session.UserID,
		FirstName:   first,
		LastName:    last,
		Affiliation: strings.TrimSpace(input.Affiliation),
		Expertise:   cleanList(input.Expertise),
		Role:        role,
		Bio:         optionalString(strings.TrimSpace(input.Bio)),
	})
	if err != nil {
		return ProfileView{}, err
	}
	return newProfileView(saved), nil
}

// MyProfile returns nil when the caller has not created a profile yet.
func (s *Service) MyProfile(ctx context.Context, session Session) (*ProfileView, error) {
	if session.UserID == "" {
		return nil, errUnauthenticated
	}
	profile, err := s.store.GetProfileByUserID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	view := newProfileView(profile)
	return &view, nil
}

// SeedCategories inserts the default categories when none exist and returns
// how many were written.
func (s *Service) SeedCategories(ctx context.Context) (int, error) {
	seeds := make([]store.Category, 0, len(seedCategories))
	for _, c := range seedCategories {
		c.ID = util.NewID("cat")
		seeds = append(seeds, c)
	}
	inserted, err := s.store.SeedCategories(ctx, seeds)
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		s.logger.Info("categories seeded", "count", inserted)
	}
	return inserted, nil
}

func (s *Service) Categories(ctx context.Context) ([]CategoryView, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, newCategoryView(c))
	}
	return views, nil
}

func (s *Service) CreateCategory(ctx context.Context, session Session, input CategoryInput) (CategoryView, error) {
	if _, err := s.authorize(ctx, session, rbac.ActionCreateCategory); err != nil {
		return CategoryView{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return CategoryView{}, validation("name is required", nil)
	}
	editorID := strings.TrimSpace(input.EditorID)
	if editorID != "" {
		if err := s.requireEditor(ctx, editorID); err != nil {
			return CategoryView{}, err
		}
	}
	category := store.Category{
		ID:          util.NewID("cat"),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		EditorID:    optionalString(editorID),
		CreatedAt:   s.now(),
	}
	if err := s.store.InsertCategory(ctx, category); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return CategoryView{}, conflict("CONFLICT", "Category already exists")
		}
		return CategoryView{}, err
	}
	return newCategoryView(category), nil
}

func (s *Service) Notifications(ctx context.Context, session Session, unreadOnly bool) ([]NotificationView, error) {
	if session.UserID == "" {
		return nil, errUnauthenticated
	}
	notifications, err := s.store.ListNotifications(ctx, session.UserID, unreadOnly)
	if err != nil {
		return nil, err
	}
	views := make([]NotificationView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, newNotificationView(n))
	}
	return views, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, session Session, notificationID string) error {
	if session.UserID == "" {
		return errUnauthenticated
	}
	updated, err := s.store.MarkNotificationRead(ctx, strings.TrimSpace(notificationID), session.UserID)
	if err != nil {
		return err
	}
	if !updated {
		return notFound("Notification")
	}
	return nil
}
