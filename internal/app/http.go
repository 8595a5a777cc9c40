package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"folio/api/internal/auth"
	"folio/api/internal/authpw"
	"folio/api/internal/store"
	"folio/api/internal/workflow"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *slog.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: logger}
}

type authedHandler func(w http.ResponseWriter, r *http.Request, session Session)

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)
	r.Use(s.cors)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)

		r.Post("/auth/signup", s.handleAuthSignUp)
		r.Post("/auth/signin", s.handleAuthSignIn)
		r.Post("/auth/verify-email", s.handleAuthVerifyEmail)

		r.Get("/session", s.handleSession)
		r.Post("/session/refresh", s.handleRefresh)
		r.Post("/session/logout", s.authed(s.handleLogout))

		r.Get("/profile", s.authed(s.handleGetProfile))
		r.Put("/profile", s.authed(s.handlePutProfile))

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.authed(s.handleCreateCategory))
		r.Post("/categories/seed", s.authed(s.handleSeedCategories))

		r.Post("/uploads", s.authed(s.handleUpload))

		r.Route("/papers", func(r chi.Router) {
			r.Get("/", s.authed(s.handleListPapers))
			r.Post("/", s.authed(s.handleSubmitPaper))
			r.Get("/search", s.authed(s.handleSearchPapers))
			r.Route("/{paperID}", func(r chi.Router) {
				r.Get("/", s.authed(s.handleGetPaper))
				r.Patch("/status", s.authed(s.handleUpdatePaperStatus))
				r.Post("/revisions", s.authed(s.handleSubmitRevision))
				r.Get("/history", s.authed(s.handlePaperHistory))
				r.Post("/decisions", s.authed(s.handleRecordDecision))
				r.Post("/reviews", s.authed(s.handleAssignReviewer))
				r.Get("/export", s.authed(s.handleExportPaper))
			})
		})

		r.Get("/reviewers", s.authed(s.handleAvailableReviewers))
		r.Get("/reviews", s.authed(s.handleMyReviews))
		r.Post("/reviews/{reviewID}/respond", s.authed(s.handleRespondToReview))
		r.Post("/reviews/{reviewID}/submit", s.authed(s.handleSubmitReview))

		r.Get("/notifications", s.authed(s.handleNotifications))
		r.Post("/notifications/{notificationID}/read", s.authed(s.handleMarkNotificationRead))

		r.Get("/dashboard", s.authed(s.handleDashboard))
		r.Get("/reports/submissions", s.authed(s.handleSubmissionsReport))
	})
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

// Auth

func (s *HTTPServer) handleAuthSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	resp, err := s.service.SignUp(r.Context(), authpw.SignUpRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	response := map[string]any{
		"userId":  resp.UserID,
		"message": "Please check your email to verify your account",
	}
	// Without SMTP the verification token is returned in the response.
	if !s.service.SMTPConfigured() {
		response["devVerificationToken"] = resp.VerificationToken
		response["message"] = "Account created. Verify your email to continue."
	}
	writeJSON(w, http.StatusCreated, response)
}

func (s *HTTPServer) handleAuthSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	resp, err := s.service.AuthPasswordService().SignIn(r.Context(), authpw.SignInRequest{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if resp.RequiresVerify {
		writeError(w, http.StatusForbidden, "EMAIL_NOT_VERIFIED", "Please verify your email before signing in", nil)
		return
	}

	session, err := s.service.CreateSession(r.Context(), resp.User.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionPayload(r.Context(), session))
}

func (s *HTTPServer) handleAuthVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.service.AuthPasswordService().VerifyEmail(r.Context(), body.Token); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully"})
}

// Sessions

func (s *HTTPServer) sessionPayload(ctx context.Context, session Session) map[string]any {
	return map[string]any{
		"accessToken":  session.Token,
		"refreshToken": session.RefreshToken,
		"userId":       session.UserID,
		"userName":     session.UserName,
		"role":         s.service.RoleOf(ctx, session.UserID),
		"expiresAt":    session.ExpiresAt.Unix(),
	}
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
		return
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"userName":      session.UserName,
		"userId":        session.UserID,
		"role":          s.service.RoleOf(r.Context(), session.UserID),
	})
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "refreshToken is required", nil)
		return
	}
	session, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionPayload(r.Context(), session))
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request, session Session) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.service.Logout(r.Context(), session, body.RefreshToken); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Profiles and categories

func (s *HTTPServer) handleGetProfile(w http.ResponseWriter, r *http.Request, session Session) {
	profile, err := s.service.MyProfile(r.Context(), session)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func (s *HTTPServer) handlePutProfile(w http.ResponseWriter, r *http.Request, session Session) {
	var body ProfileInput
	if !s.decode(w, r, &body) {
		return
	}
	profile, err := s.service.CreateProfile(r.Context(), session, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func (s *HTTPServer) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.service.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *HTTPServer) handleCreateCategory(w http.ResponseWriter, r *http.Request, session Session) {
	var body CategoryInput
	if !s.decode(w, r, &body) {
		return
	}
	category, err := s.service.CreateCategory(r.Context(), session, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"category": category})
}

func (s *HTTPServer) handleSeedCategories(w http.ResponseWriter, r *http.Request, session Session) {
	inserted, err := s.service.SeedCategories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inserted": inserted})
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request, session Session) {
	ticket, err := s.service.GenerateUploadURL(r.Context(), session)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// Papers

func (s *HTTPServer) handleListPapers(w http.ResponseWriter, r *http.Request, session Session) {
	papers, err := s.service.ListPapers(r.Context(), session, r.URL.Query().Get("status"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"papers": papers})
}

func (s *HTTPServer) handleSubmitPaper(w http.ResponseWriter, r *http.Request, session Session) {
	var body SubmitPaperInput
	if !s.decode(w, r, &body) {
		return
	}
	paper, err := s.service.SubmitPaper(r.Context(), session, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"paper": paper})
}

func (s *HTTPServer) handleSearchPapers(w http.ResponseWriter, r *http.Request, session Session) {
	query := r.URL.Query()
	result, err := s.service.SearchPapers(r.Context(), session, SearchInput{
		Query:    query.Get("q"),
		Category: query.Get("category"),
		Status:   query.Get("status"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleGetPaper(w http.ResponseWriter, r *http.Request, session Session) {
	paper, err := s.service.GetPaper(r.Context(), session, chi.URLParam(r, "paperID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paper": paper})
}

func (s *HTTPServer) handleUpdatePaperStatus(w http.ResponseWriter, r *http.Request, session Session) {
	var body UpdatePaperStatusInput
	if !s.decode(w, r, &body) {
		return
	}
	paper, err := s.service.UpdatePaperStatus(r.Context(), session, chi.URLParam(r, "paperID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paper": paper})
}

func (s *HTTPServer) handleSubmitRevision(w http.ResponseWriter, r *http.Request, session Session) {
	var body RevisionInput
	if !s.decode(w, r, &body) {
		return
	}
	paper, err := s.service.SubmitRevision(r.Context(), session, chi.URLParam(r, "paperID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"paper": paper})
}

func (s *HTTPServer) handlePaperHistory(w http.ResponseWriter, r *http.Request, session Session) {
	history, err := s.service.GetPaperHistory(r.Context(), session, chi.URLParam(r, "paperID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *HTTPServer) handleRecordDecision(w http.ResponseWriter, r *http.Request, session Session) {
	var body DecisionInput
	if !s.decode(w, r, &body) {
		return
	}
	result, err := s.service.RecordDecision(r.Context(), session, chi.URLParam(r, "paperID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *HTTPServer) handleAssignReviewer(w http.ResponseWriter, r *http.Request, session Session) {
	var body AssignReviewerInput
	if !s.decode(w, r, &body) {
		return
	}
	review, err := s.service.AssignReviewer(r.Context(), session, chi.URLParam(r, "paperID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"review": review})
}

func (s *HTTPServer) handleExportPaper(w http.ResponseWriter, r *http.Request, session Session) {
	result, err := s.service.ExportPaper(r.Context(), session, chi.URLParam(r, "paperID"), r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeFile(w, result.Data, result.Filename, result.MimeType)
}

// Reviews

func (s *HTTPServer) handleAvailableReviewers(w http.ResponseWriter, r *http.Request, session Session) {
	reviewers, err := s.service.AvailableReviewers(r.Context(), session, r.URL.Query().Get("expertise"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviewers": reviewers})
}

func (s *HTTPServer) handleMyReviews(w http.ResponseWriter, r *http.Request, session Session) {
	reviews, err := s.service.MyReviews(r.Context(), session, r.URL.Query().Get("status"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (s *HTTPServer) handleRespondToReview(w http.ResponseWriter, r *http.Request, session Session) {
	var body struct {
		Accept *bool `json:"accept"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.Accept == nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "accept is required", nil)
		return
	}
	review, err := s.service.RespondToReview(r.Context(), session, chi.URLParam(r, "reviewID"), *body.Accept)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"review": review})
}

func (s *HTTPServer) handleSubmitReview(w http.ResponseWriter, r *http.Request, session Session) {
	var body SubmitReviewInput
	if !s.decode(w, r, &body) {
		return
	}
	review, err := s.service.SubmitReview(r.Context(), session, chi.URLParam(r, "reviewID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"review": review})
}

// Notifications and dashboard

func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request, session Session) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	notifications, err := s.service.Notifications(r.Context(), session, unreadOnly)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (s *HTTPServer) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request, session Session) {
	if err := s.service.MarkNotificationRead(r.Context(), session, chi.URLParam(r, "notificationID")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request, session Session) {
	dash, err := s.service.Dashboard(r.Context(), session)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *HTTPServer) handleSubmissionsReport(w http.ResponseWriter, r *http.Request, session Session) {
	result, err := s.service.ExportSubmissionsReport(r.Context(), session)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeFile(w, result.Data, result.Filename, result.MimeType)
}

// Plumbing

func (s *HTTPServer) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		next(w, r, session)
	}
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Not authenticated", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Not authenticated", nil)
			return Session{}, false
		}
		s.logger.Error("session lookup failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return false
	}
	return true
}

// fail maps err onto the error envelope. Unexpected errors are logged with
// the request id and never leak their text.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info("http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

func (s *HTTPServer) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w.Header(), s.corsOrigin)
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeFile(w http.ResponseWriter, data []byte, filename, mimeType string) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var transitionErr *workflow.TransitionError
	if errors.As(err, &transitionErr) {
		return http.StatusConflict, "INVALID_TRANSITION", transitionErr.Error(), map[string]any{
			"from": transitionErr.From,
			"to":   transitionErr.To,
		}
	}
	var validationErr *authpw.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationErr.Error(), nil
	}
	switch {
	case errors.Is(err, authpw.ErrEmailTaken):
		return http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, authpw.ErrInvalidToken):
		return http.StatusBadRequest, "VERIFICATION_FAILED", err.Error(), nil
	case errors.Is(err, store.ErrInvalidReference):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Referenced record does not exist", nil
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHENTICATED", "Not authenticated", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
