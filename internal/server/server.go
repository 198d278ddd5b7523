// Package server exposes the triage core over HTTP. The credential bundle
// travels in an HttpOnly cookie; handlers re-issue the cookie whenever a call
// refreshed the access token underneath it.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/propflow/mailtriage/internal/credential"
	"github.com/propflow/mailtriage/internal/gmail"
	"github.com/propflow/mailtriage/internal/triage"
)

const authCookie = "auth_token"

// cookieMaxAge matches the codec's token lifetime.
const cookieMaxAge = 7 * 24 * time.Hour

// Server routes API requests to the triage service.
type Server struct {
	svc    *triage.Service
	codec  *credential.Codec
	logger *slog.Logger
}

// New builds the HTTP handler with logging and request-id middleware applied.
func New(svc *triage.Service, codec *credential.Codec, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, codec: codec, logger: logger}

	mux := http.NewServeMux()
	// /api/emails                  → GET: list classified messages
	// /api/emails/{id}/category    → PUT: change category
	mux.HandleFunc("/api/emails", s.handleEmails)
	mux.HandleFunc("/api/emails/", s.handleEmailWithID)

	return chainMiddlewares(mux, s.withLogging, withRequestID)
}

// DTOs

type emailResponse struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	LabelIDs []string `json:"labelIds"`
	Subject  string   `json:"subject"`
	From     string   `json:"from"`
	Snippet  string   `json:"snippet"`
	Date     string   `json:"internalDate,omitempty"`
	Category string   `json:"category"`
}

type listEmailsResponse struct {
	Emails []emailResponse `json:"emails"`
}

type changeCategoryRequest struct {
	Category string `json:"category"`
}

type changeCategoryResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GET /api/emails?maxResults=&query=&category=
func (s *Server) handleEmails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	bundle, ok := s.decodeCredential(w, r)
	if !ok {
		return
	}

	maxResults := int64(20)
	if raw := r.URL.Query().Get("maxResults"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid maxResults")
			return
		}
		maxResults = n
	}
	query := r.URL.Query().Get("query")

	msgs, bundle, refreshed, err := s.svc.ListClassified(r.Context(), bundle, maxResults, query)
	// The refresh already happened even when the list call failed; the new
	// token must reach the browser either way or the stale cookie would
	// force another refresh on the next request.
	if refreshed {
		s.reissueCookie(w, r, bundle)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if raw := r.URL.Query().Get("category"); raw != "" {
		cat, err := triage.ParseCategory(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		msgs = triage.FilterByCategory(msgs, cat)
	}

	out := listEmailsResponse{Emails: make([]emailResponse, 0, len(msgs))}
	for _, m := range msgs {
		out.Emails = append(out.Emails, toEmailResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// /api/emails/{id}/category
func (s *Server) handleEmailWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/emails/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "category" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	bundle, ok := s.decodeCredential(w, r)
	if !ok {
		return
	}

	var req changeCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bundle, refreshed, err := s.svc.ChangeCategory(r.Context(), bundle, gmail.MessageID(parts[0]), req.Category)
	if refreshed {
		s.reissueCookie(w, r, bundle)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, changeCategoryResponse{Success: true})
}

func (s *Server) decodeCredential(w http.ResponseWriter, r *http.Request) (credential.Bundle, bool) {
	c, err := r.Cookie(authCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return credential.Bundle{}, false
	}
	bundle, err := s.codec.Decode(c.Value)
	if err != nil {
		s.logger.WarnContext(r.Context(), "rejecting credential token", slog.Any("error", err))
		writeError(w, http.StatusUnauthorized, "invalid token")
		return credential.Bundle{}, false
	}
	return bundle, true
}

// reissueCookie is the required side effect after any silent refresh: the
// caller's stored credential must be replaced or the next request would
// trigger another refresh.
func (s *Server) reissueCookie(w http.ResponseWriter, r *http.Request, b credential.Bundle) {
	token, err := s.codec.Encode(b)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "re-encode credential", slog.Any("error", err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, triage.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "invalid category")
	case errors.Is(err, credential.ErrRefreshFailed), errors.Is(err, gmail.ErrAuth):
		writeError(w, http.StatusUnauthorized, "re-authentication required")
	case errors.Is(err, gmail.ErrRejected), errors.Is(err, gmail.ErrTransient):
		s.logger.ErrorContext(r.Context(), "provider call failed", slog.Any("error", err))
		writeError(w, http.StatusBadGateway, "provider request failed")
	default:
		s.logger.ErrorContext(r.Context(), "request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func toEmailResponse(m triage.Message) emailResponse {
	resp := emailResponse{
		ID:       string(m.ID),
		ThreadID: string(m.ThreadID),
		LabelIDs: make([]string, 0, len(m.LabelIDs)),
		Subject:  m.Header("Subject"),
		From:     m.Header("From"),
		Snippet:  m.Snippet,
		Category: m.Category.String(),
	}
	for _, l := range m.LabelIDs {
		resp.LabelIDs = append(resp.LabelIDs, string(l))
	}
	if !m.InternalDate.IsZero() {
		resp.Date = strconv.FormatInt(m.InternalDate.UnixMilli(), 10)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
