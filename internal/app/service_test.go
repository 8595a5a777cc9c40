package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"folio/api/internal/workflow"
)

func newWorkflowFixture(t *testing.T) (*memStore, *Service) {
	t.Helper()
	st := newMemStore()
	for _, u := range []struct{ id, role string }{
		{"alice", "author"},
		{"bob", "author"},
		{"erin", "editor"},
		{"emma", "editor"},
		{"rita", "reviewer"},
		{"adam", "admin"},
	} {
		st.addUser(u.id, u.id)
		st.addProfile(u.id, u.role)
	}
	return st, newTestService(t, st)
}

func submit(t *testing.T, svc *Service, author, title string) PaperView {
	t.Helper()
	paper, err := svc.SubmitPaper(context.Background(), sessionFor(author), SubmitPaperInput{
		Title:    title,
		Abstract: "A",
		Category: "Computer Science",
	})
	if err != nil {
		t.Fatalf("SubmitPaper() error = %v", err)
	}
	return paper
}

func requireDomainError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError %s, got %v", code, err)
	}
	if domainErr.Status != status || domainErr.Code != code {
		t.Fatalf("expected %d %s, got %d %s (%s)", status, code, domainErr.Status, domainErr.Code, domainErr.Message)
	}
}

func TestSubmitPaperNotifiesEveryEditor(t *testing.T) {
	st, svc := newWorkflowFixture(t)

	paper := submit(t, svc, "alice", "T")

	if paper.Status != "submitted" || paper.Version != 1 {
		t.Fatalf("expected submitted v1, got %s v%d", paper.Status, paper.Version)
	}
	if paper.AuthorName != "alice" {
		t.Fatalf("expected author name, got %q", paper.AuthorName)
	}
	versions, _ := st.ListPaperVersions(context.Background(), paper.ID)
	if len(versions) != 1 || versions[0].Version != 1 {
		t.Fatalf("expected one version record, got %+v", versions)
	}
	for _, editor := range []string{"erin", "emma"} {
		got := st.notificationsFor(editor)
		if len(got) != 1 {
			t.Fatalf("expected 1 notification for %s, got %d", editor, len(got))
		}
		if got[0].Type != "paper_submitted" || got[0].Message != `New paper "T" has been submitted` {
			t.Fatalf("unexpected notification %+v", got[0])
		}
	}
	if st.notificationCount() != 2 {
		t.Fatalf("expected exactly 2 notifications, got %d", st.notificationCount())
	}
}

func TestSubmitPaperWithoutEditorsWritesNoNotifications(t *testing.T) {
	st := newMemStore()
	st.addUser("alice", "alice")
	svc := newTestService(t, st)

	submit(t, svc, "alice", "Lonely")

	if st.notificationCount() != 0 {
		t.Fatalf("expected no notifications, got %d", st.notificationCount())
	}
}

func TestSubmitPaperRequiresFields(t *testing.T) {
	_, svc := newWorkflowFixture(t)

	_, err := svc.SubmitPaper(context.Background(), sessionFor("alice"), SubmitPaperInput{Title: "T"})
	requireDomainError(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestCreateProfileTwiceUpdates(t *testing.T) {
	st := newMemStore()
	st.addUser("alice", "alice")
	svc := newTestService(t, st)
	ctx := context.Background()

	first, err := svc.CreateProfile(ctx, sessionFor("alice"), ProfileInput{FirstName: "Alice", LastName: "A", Role: "author"})
	if err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	second, err := svc.CreateProfile(ctx, sessionFor("alice"), ProfileInput{FirstName: "Alicia", LastName: "A", Role: "reviewer"})
	if err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	if len(st.profiles) != 1 {
		t.Fatalf("expected one profile, got %d", len(st.profiles))
	}
	if second.ID != first.ID || second.FirstName != "Alicia" || second.Role != "reviewer" {
		t.Fatalf("expected updated profile with same id, got %+v", second)
	}
}

func TestCreateProfileRejectsUnknownRole(t *testing.T) {
	st := newMemStore()
	st.addUser("alice", "alice")
	svc := newTestService(t, st)

	_, err := svc.CreateProfile(context.Background(), sessionFor("alice"), ProfileInput{FirstName: "A", LastName: "B", Role: "owner"})
	requireDomainError(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestMyProfileReturnsNilWithoutProfile(t *testing.T) {
	st := newMemStore()
	st.addUser("alice", "alice")
	svc := newTestService(t, st)

	profile, err := svc.MyProfile(context.Background(), sessionFor("alice"))
	if err != nil {
		t.Fatalf("MyProfile() error = %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil profile, got %+v", profile)
	}
}

func TestUpdatePaperStatusRequiresEditor(t *testing.T) {
	st, svc := newWorkflowFixture(t)
	paper := submit(t, svc, "alice", "T")

	for _, caller := range []string{"alice", "rita"} {
		_, err := svc.UpdatePaperStatus(context.Background(), sessionFor(caller), paper.ID, UpdatePaperStatusInput{Status: "accepted"})
		requireDomainError(t, err, http.StatusForbidden, "FORBIDDEN")
	}
	if got := st.paper(paper.ID).Status; got != "submitted" {
		t.Fatalf("status changed to %s", got)
	}
}

func TestUpdatePaperStatusNotifiesAuthor(t *testing.T) {
	st, svc := newWorkflowFixture(t)
	paper := submit(t, svc, "alice", "T")

	updated, err := svc.UpdatePaperStatus(context.Background(), sessionFor("erin"), paper.ID, UpdatePaperStatusInput{Status: "under_review"})
	if err != nil {
		t.Fatalf("UpdatePaperStatus() error = %v", err)
	}
	if updated.Status != "under_review" {
		t.Fatalf("expected under_review, got %s", updated.Status)
	}
	if updated.EditorID == nil || *updated.EditorID != "erin" {
		t.Fatalf("expected editor defaulted to caller, got %v", updated.EditorID)
	}
	got := st.notificationsFor("alice")
	if len(got) != 1 || got[0].Message != `Your paper "T" status has been updated to under_review` {
		t.Fatalf("unexpected author notifications %+v", got)
	}
}

func TestUpdatePaperStatusRejectsIllegalTransition(t *testing.T) {
	st, svc := newWorkflowFixture(t)
	paper := submit(t, svc, "alice", "T")

	_, err := svc.UpdatePaperStatus(context.Background(), sessionFor("erin"), paper.ID, UpdatePaperStatusInput{Status: "published"})
	var transitionErr *workflow.TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}

	updated, err := svc.UpdatePaperStatus(context.Background(), sessionFor("erin"), paper.ID, UpdatePaperStatusInput{Status: "published", Override: true})
	if err != nil {
		t.Fatalf("override error = %v", err)
	}
	if updated.PublishedDate == nil {
		t.Fatal("expected published date on entering published")
	}
	if st.paper(paper.ID).Status != "published" {
		t.Fatal("override not applied")
	}
}

func TestListPapersScopesByRole(t *testing.T) {
	_, svc := newWorkflowFixture(t)
	ctx := context.Background()
	submit(t, svc, "alice", "Alice 1")
	submit(t, svc, "alice", "Alice 2")
	submit(t, svc, "bob", "Bob 1")

	own, err := svc.ListPapers(ctx, sessionFor("alice"), "")
	if err != nil {
		t.Fatalf("ListPapers() error = %v", err)
	}
	if len(own) != 2 {
		t.Fatalf("author should see 2 papers, got %d", len(own))
	}
	for _, p := range own {
		if p.AuthorID != "alice" {
			t.Fatalf("author saw foreign paper %+v", p)
		}
	}

	for _, caller := range []string{"erin", "adam"} {
		all, err := svc.ListPapers(ctx, sessionFor(caller), "")
		if err != nil {
			t.Fatalf("ListPapers() error = %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("%s should see 3 papers, got %d", caller, len(all))
		}
	}

	filtered, err := svc.ListPapers(ctx, sessionFor("erin"), "accepted")
	if err != nil {
		t.Fatalf("ListPapers() error = %v", err)
	}
	if len(filtered) != 0 {
		t.Fatalf("expected no accepted papers, got %d", len(filtered))
	}

	_, err = svc.ListPapers(ctx, sessionFor("erin"), "lost")
	requireDomainError(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestSeedCategoriesIsIdempotent(t *testing.T) {
	st := newMemStore()
	svc := newTestService(t, st)
	ctx := context.Background()

	if n, err := svc.SeedCategories(ctx); err != nil || n != 4 {
		t.Fatalf("first seed = %d, %v", n, err)
	}
	if n, err := svc.SeedCategories(ctx); err != nil || n != 0 {
		t.Fatalf("second seed = %d, %v", n, err)
	}
	categories, err := svc.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(categories) != 4 {
		t.Fatalf("expected 4 categories, got %d", len(categories))
	}
}

func TestCreateCategoryRequiresAdmin(t *testing.T) {
	_, svc := newWorkflowFixture(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, sessionFor("erin"), CategoryInput{Name: "Robotics"})
	requireDomainError(t, err, http.StatusForbidden, "FORBIDDEN")

	if _, err := svc.CreateCategory(ctx, sessionFor("adam"), CategoryInput{Name: "Robotics"}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	_, err = svc.CreateCategory(ctx, sessionFor("adam"), CategoryInput{Name: "Robotics"})
	requireDomainError(t, err, http.StatusConflict, "CONFLICT")
}

func assign(t *testing.T, svc *Service, paperID, reviewerID string) ReviewView {
	t.Helper()
	review, err := svc.AssignReviewer(context.Background(), sessionFor("erin"), paperID, AssignReviewerInput{
		ReviewerID: reviewerID,
		DueDate:    "2030-01-31",
	})
	if err != nil {
		t.Fatalf("AssignReviewer() error = %v", err)
	}
	return review
}

func TestAssignReviewerNotifiesReviewerAndRejectsDuplicates(t *testing.T) {
	st, svc := newWorkflowFixture(t)
	paper := submit(t, svc, "alice", "T")

	review := assign(t, svc, paper.ID, "rita")
	if review.Status != "assigned" {
		t.Fatalf("expected assigned, got %s", review.Status)
	}
	got := st.notificationsFor("rita")
	if len(got) != 1 || got[0].Type != "review_assigned" {
		t.Fatalf("unexpected reviewer notifications %+v", got)
	}

	_, err := svc.AssignReviewer(context.Background(), sessionFor("erin"), paper.ID, AssignReviewerInput{ReviewerID: "rita", DueDate: "2030-01-31"})
	requireDomainError(t, err, http.StatusConflict, "DUPLICATE_ASSIGNMENT")

	_, err = svc.AssignReviewer(context.Background(), sessionFor("erin"), paper.ID, AssignReviewerInput{ReviewerID: "ghost", DueDate: "2030-01-31"})
	requireDomainError(t, err, http.StatusNotFound, "NOT_FOUND")

	_, err = svc.AssignReviewer(context.Background(), sessionFor("alice"), paper.ID, AssignReviewerInput{ReviewerID: "rita", DueDate: "2030-01-31"})
	requireDomainError(t, err, http.StatusForbidden, "FORBIDDEN")
}

func TestDeclineNotifiesEditorOnlyWhenSet(t *testing.T) {
	t.Run("editor unset", func(t *testing.T) {
		st, svc := newWorkflowFixture(t)
		paper := submit(t, svc, "alice", "T")
		review := assign(t, svc, paper.ID, "rita")
		before := st.notificationCount()

		declined, err := svc.RespondToReview(context.Background(), sessionFor("rita"), review.ID, false)
		if err != nil {
			t.Fatalf("RespondToReview() error = %v", err)
		}
		if declined.Status != "declined" {
			t.Fatalf("expected declined, got %s", declined.Status)
		}
		if st.notificationCount() != before {
			t.Fatalf("expected no new notifications, got %d", st.notificationCount()-before)
		}
	})

	t.Run("editor set", func(t *testing.T) {
		st, svc := newWorkflowFixture(t)
		paper := submit(t, svc, "alice", "T")
		if _, err := svc.UpdatePaperStatus(context.Background(), sessionFor("erin"), paper.ID, UpdatePaperStatusInput{Status: "under_review"}); err != nil {
			t.Fatalf("UpdatePaperStatus() error = %v", err)
		}
		review := assign(t, svc, paper.ID, "rita")
		before := len(st.notificationsFor("erin"))

		if _, err := svc.RespondToReview(context.Background(), sessionFor("rita"), review.ID, false); err != nil {
			t.Fatalf("RespondToReview() error = %v", err)
		}
		got := st.notificationsFor("erin")
		if len(got) != before+1 || got[len(got)-1].Type != "review_declined" {
			t.Fatalf("expected one review_declined for editor, got %+v", got)
		}
	})
}

func TestSubmitReviewRejectsOtherReviewer(t *testing.T) {
	st, svc := newWorkflowFixture(t)
	st.addUser("ruth", "ruth")
	st.addProfile("ruth", "reviewer")
	paper := submit(t, svc, "alice", "T")
	review := assign(t, svc, paper.ID, "rita")
	if _, err := svc.RespondToReview(context.Background(), sessionFor("rita"), review.ID, true); err != nil {
		t.Fatalf("accept error = %v", err)
	}

	_, err := svc.SubmitReview(context.Background(), sessionFor("ruth"), review.ID, validReview())
	requireDomainError(t, err, http.StatusNotFound, "NOT_FOUND")

	stored, _ := st.GetReview(context.Background(), review.ID)
	if stored.Status != "in_progress" || stored.OverallScore != nil {
		t.Fatalf("review changed by non-owner: %+v", stored)
	}
}

func validReview() SubmitReviewInput {
	return SubmitReviewInput{
		Scores:         workflow.Scores{Overall: 4, Technical: 4, Novelty: 3, Clarity: 5, Significance: 4},
		Comments:       "Solid work",
		Recommendation: "minor_revision",
	}
}

func TestSubmitReviewLifecycle(t *testing.T) {
	_, svc := newWorkflowFixture(t)
	ctx := context.Background()
	paper := submit(t, svc, "alice", "T")
	review := assign(t, svc, paper.ID, "rita")

	_, err := svc.SubmitReview(ctx, sessionFor("rita"), review.ID, validReview())
	var transitionErr *workflow.TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected TransitionError before accepting, got %v", err)
	}

	if _, err := svc.RespondToReview(ctx, sessionFor("rita"), review.ID, true); err != nil {
		t.Fatalf("accept error = %v", err)
	}

	bad := validReview()
	bad.Overall = 6
	_, err = svc.SubmitReview(ctx, sessionFor("rita"), review.ID, bad)
	requireDomainError(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	done, err := svc.SubmitReview(ctx, sessionFor("rita"), review.ID, validReview())
	if err != nil {
		t.Fatalf("SubmitReview() error = %v", err)
	}
	if done.Status != "completed" || done.SubmittedDate == nil {
		t.Fatalf("expected completed review with date, got %+v", done)
	}

	mine, err := svc.MyReviews(ctx, sessionFor("rita"), "")
	if err != nil {
		t.Fatalf("MyReviews() error = %v", err)
	}
	if len(mine) != 1 || mine[0].Paper == nil || mine[0].Paper.Title != "T" {
		t.Fatalf("expected review joined with paper, got %+v", mine)
	}
}

func TestGetPaperVisibilityAndRedaction(t *testing.T) {
	_, svc := newWorkflowFixture(t)
	ctx := context.Background()
	paper := submit(t, svc, "alice", "T")
	review := assign(t, svc, paper.ID, "rita")
	if _, err := svc.RespondToReview(ctx, sessionFor("rita"), review.ID, true); err != nil {
		t.Fatalf("accept error = %v", err)
	}
	input := validReview()
	input.ConfidentialComments = "for editors only"
	if _, err := svc.SubmitReview(ctx, sessionFor("rita"), review.ID, input); err != nil {
		t.Fatalf("SubmitReview() error = %v", err)
	}

	_, err := svc.GetPaper(ctx, sessionFor("bob"), paper.ID)
	requireDomainError(t, err, http.StatusNotFound, "NOT_FOUND")

	asAuthor, err := svc.GetPaper(ctx, sessionFor("alice"), paper.ID)
	if err != nil {
		t.Fatalf("GetPaper(author) error = %v", err)
	}
	if len(asAuthor.Reviews) != 1 || asAuthor.Reviews[0].ConfidentialComments != nil {
		t.Fatalf("author must not see confidential comments: %+v", asAuthor.Reviews)
	}
	if asAuthor.Reviews[0].ReviewerName != "rita" {
		t.Fatalf("expected reviewer name, got %q", asAuthor.Reviews[0].ReviewerName)
	}

	asEditor, err := svc.GetPaper(ctx, sessionFor("erin"), paper.ID)
	if err != nil {
		t.Fatalf("GetPaper(editor) error = %v", err)
	}
	if asEditor.Reviews[0].ConfidentialComments == nil {
		t.Fatal("editor should see confidential comments")
	}
	if len(asEditor.Scores) != 5 || asEditor.Scores[0].Criterion != "overallScore" || asEditor.Scores[0].Mean != 4 {
		t.Fatalf("unexpected score summary %+v", asEditor.Scores)
	}

	asReviewer, err := svc.GetPaper(ctx, sessionFor("rita"), paper.ID)
	if err != nil {
		t.Fatalf("GetPaper(reviewer) error = %v", err)
	}
	if asReviewer.Reviews[0].ConfidentialComments == nil {
		t.Fatal("reviewer should see their own confidential comments")
	}
}

func TestRecordDecisionAndRevision(t *testing.T) {
	st, svc := newWorkflowFixture(t)
	ctx := context.Background()
	paper := submit(t, svc, "alice", "T")

	_, err := svc.RecordDecision(ctx, sessionFor("alice"), paper.ID, DecisionInput{Decision: "accept"})
	requireDomainError(t, err, http.StatusForbidden, "FORBIDDEN")

	_, err = svc.RecordDecision(ctx, sessionFor("erin"), paper.ID, DecisionInput{Decision: "maybe"})
	requireDomainError(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	if _, err := svc.RecordDecision(ctx, sessionFor("erin"), paper.ID, DecisionInput{Decision: "major_revision", Comments: "More data"}); err != nil {
		t.Fatalf("RecordDecision() error = %v", err)
	}
	if got := st.paper(paper.ID).Status; got != "revision_requested" {
		t.Fatalf("expected revision_requested, got %s", got)
	}
	authorNotes := st.notificationsFor("alice")
	if len(authorNotes) != 1 || authorNotes[0].Type != "revision_requested" {
		t.Fatalf("unexpected author notifications %+v", authorNotes)
	}

	_, err = svc.SubmitRevision(ctx, sessionFor("bob"), paper.ID, RevisionInput{Changes: "x"})
	requireDomainError(t, err, http.StatusNotFound, "NOT_FOUND")

	revised, err := svc.SubmitRevision(ctx, sessionFor("alice"), paper.ID, RevisionInput{Changes: "Added data"})
	if err != nil {
		t.Fatalf("SubmitRevision() error = %v", err)
	}
	if revised.Version != 2 || revised.Status != "submitted" {
		t.Fatalf("expected submitted v2, got %s v%d", revised.Status, revised.Version)
	}
	editorNotes := st.notificationsFor("erin")
	last := editorNotes[len(editorNotes)-1]
	if last.Message != `Version 2 of "T" has been submitted` {
		t.Fatalf("unexpected editor notification %+v", last)
	}

	_, err = svc.SubmitRevision(ctx, sessionFor("alice"), paper.ID, RevisionInput{})
	var transitionErr *workflow.TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected TransitionError for second revision, got %v", err)
	}

	history, err := svc.GetPaperHistory(ctx, sessionFor("alice"), paper.ID)
	if err != nil {
		t.Fatalf("GetPaperHistory() error = %v", err)
	}
	if versions := history["versions"].([]VersionView); len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
}

func TestAvailableReviewersFiltersByExpertise(t *testing.T) {
	st, svc := newWorkflowFixture(t)
	ctx := context.Background()
	st.mu.Lock()
	p := st.profiles["rita"]
	p.Expertise = []string{"Machine Learning", "Databases"}
	st.profiles["rita"] = p
	st.mu.Unlock()

	got, err := svc.AvailableReviewers(ctx, sessionFor("erin"), "machine")
	if err != nil {
		t.Fatalf("AvailableReviewers() error = %v", err)
	}
	if len(got) != 1 || got[0].UserID != "rita" {
		t.Fatalf("expected rita, got %+v", got)
	}
	none, err := svc.AvailableReviewers(ctx, sessionFor("erin"), "quantum")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty list, got %+v, %v", none, err)
	}
	forAuthor, err := svc.AvailableReviewers(ctx, sessionFor("alice"), "")
	if err != nil || len(forAuthor) != 0 {
		t.Fatalf("author should get an empty list, got %+v, %v", forAuthor, err)
	}
}

func TestNotificationsAndMarkRead(t *testing.T) {
	st, svc := newWorkflowFixture(t)
	ctx := context.Background()
	submit(t, svc, "alice", "T")

	notes, err := svc.Notifications(ctx, sessionFor("erin"), true)
	if err != nil || len(notes) != 1 {
		t.Fatalf("expected 1 unread, got %d, %v", len(notes), err)
	}

	err = svc.MarkNotificationRead(ctx, sessionFor("emma"), notes[0].ID)
	requireDomainError(t, err, http.StatusNotFound, "NOT_FOUND")

	if err := svc.MarkNotificationRead(ctx, sessionFor("erin"), notes[0].ID); err != nil {
		t.Fatalf("MarkNotificationRead() error = %v", err)
	}
	unread, _ := st.CountUnreadNotifications(ctx, "erin")
	if unread != 0 {
		t.Fatalf("expected 0 unread, got %d", unread)
	}
}

func TestDashboardCountsByRole(t *testing.T) {
	_, svc := newWorkflowFixture(t)
	ctx := context.Background()
	submit(t, svc, "alice", "A1")
	submit(t, svc, "bob", "B1")

	author, err := svc.Dashboard(ctx, sessionFor("alice"))
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if author.PaperCounts["submitted"] != 1 || author.ReviewCounts != nil {
		t.Fatalf("unexpected author dashboard %+v", author)
	}

	editor, err := svc.Dashboard(ctx, sessionFor("erin"))
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if editor.PaperCounts["submitted"] != 2 || editor.UnreadCount != 2 {
		t.Fatalf("unexpected editor dashboard %+v", editor)
	}
	if editor.Tabs[len(editor.Tabs)-3] != "editorial" {
		t.Fatalf("expected editorial tab, got %v", editor.Tabs)
	}
}

func TestUnauthenticatedCallsFail(t *testing.T) {
	_, svc := newWorkflowFixture(t)
	_, err := svc.SubmitPaper(context.Background(), Session{}, SubmitPaperInput{Title: "T", Abstract: "A", Category: "C"})
	requireDomainError(t, err, http.StatusUnauthorized, "UNAUTHENTICATED")
}

func TestUploadsUnavailableWithoutStorage(t *testing.T) {
	_, svc := newWorkflowFixture(t)
	_, err := svc.GenerateUploadURL(context.Background(), sessionFor("alice"))
	requireDomainError(t, err, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE")
}

func TestRefreshRotatesToken(t *testing.T) {
	_, svc := newWorkflowFixture(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	rotated, err := svc.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if rotated.RefreshToken == session.RefreshToken {
		t.Fatal("expected a new refresh token")
	}
	if _, err := svc.Refresh(ctx, session.RefreshToken); err == nil {
		t.Fatal("expected reuse of the old refresh token to fail")
	}

	if err := svc.Logout(ctx, rotated, ""); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.SessionFromToken(ctx, rotated.Token); err == nil {
		t.Fatal("expected revoked access token to be rejected")
	}
}

func TestEditorAssignmentsMustNameAnEditor(t *testing.T) {
	st, svc := newWorkflowFixture(t)
	ctx := context.Background()
	paper := submit(t, svc, "alice", "T")

	for _, editorID := range []string{"ghost", "bob", "rita"} {
		_, err := svc.UpdatePaperStatus(ctx, sessionFor("erin"), paper.ID, UpdatePaperStatusInput{Status: "under_review", EditorID: editorID})
		requireDomainError(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	}
	if st.paper(paper.ID).Status != "submitted" {
		t.Fatal("rejected editor must leave the paper unchanged")
	}

	if _, err := svc.UpdatePaperStatus(ctx, sessionFor("erin"), paper.ID, UpdatePaperStatusInput{Status: "under_review", EditorID: "emma"}); err != nil {
		t.Fatalf("UpdatePaperStatus(emma) error = %v", err)
	}
	if got := st.paper(paper.ID).EditorID; got == nil || *got != "emma" {
		t.Fatalf("expected editor emma, got %v", got)
	}

	_, err := svc.CreateCategory(ctx, sessionFor("adam"), CategoryInput{Name: "Robotics", EditorID: "ghost"})
	requireDomainError(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	if _, err := svc.CreateCategory(ctx, sessionFor("adam"), CategoryInput{Name: "Robotics", EditorID: "adam"}); err != nil {
		t.Fatalf("CreateCategory(adam) error = %v", err)
	}
}

func TestReviewerNameComesFromProfileNotSession(t *testing.T) {
	_, svc := newWorkflowFixture(t)
	ctx := context.Background()
	paper := submit(t, svc, "alice", "T")
	review := assign(t, svc, paper.ID, "rita")
	session := Session{UserID: "rita", UserName: "rita@legacy-account"}

	accepted, err := svc.RespondToReview(ctx, session, review.ID, true)
	if err != nil {
		t.Fatalf("RespondToReview() error = %v", err)
	}
	mine, err := svc.MyReviews(ctx, session, "")
	if err != nil {
		t.Fatalf("MyReviews() error = %v", err)
	}
	submitted, err := svc.SubmitReview(ctx, session, review.ID, validReview())
	if err != nil {
		t.Fatalf("SubmitReview() error = %v", err)
	}
	detail, err := svc.GetPaper(ctx, sessionFor("erin"), paper.ID)
	if err != nil {
		t.Fatalf("GetPaper() error = %v", err)
	}

	want := detail.Reviews[0].ReviewerName
	for name, got := range map[string]string{
		"respond": accepted.ReviewerName,
		"mine":    mine[0].ReviewerName,
		"submit":  submitted.ReviewerName,
	} {
		if got != want {
			t.Errorf("%s: reviewer name %q, GetPaper shows %q", name, got, want)
		}
	}
}
