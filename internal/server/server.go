package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"bookreader/internal/app"
	"bookreader/internal/ratelimit"
	"bookreader/internal/util"
	"bookreader/pkg/domain"
)

const maxBodyBytes = 1 << 20

const (
	defaultPageNumber = 1
	defaultPageSize   = 10
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	// Optional limiters for the account endpoints, keyed by client IP.
	RegisterLimiter *ratelimit.FixedWindow
	LoginLimiter    *ratelimit.FixedWindow
}

// Server exposes the HTTP endpoints of the book-reading API.
type Server struct {
	app             *app.App
	mux             *http.ServeMux
	registerLimiter *ratelimit.FixedWindow
	loginLimiter    *ratelimit.FixedWindow
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:             cfg.App,
		mux:             http.NewServeMux(),
		registerLimiter: cfg.RegisterLimiter,
		loginLimiter:    cfg.LoginLimiter,
	}
	s.routes()
	return s
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)

	// books
	s.mux.HandleFunc("/api/books", s.handleBooks)
	s.mux.HandleFunc("/api/books/", s.handleBookByID)

	// pages
	s.mux.HandleFunc("/api/pages/", s.handlePages)

	// donations
	s.mux.HandleFunc("/api/donations", s.handleDonations)

	// uploads
	s.mux.HandleFunc("/api/upload", s.handleUpload)
	s.mux.Handle("/uploads/", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(s.app.UploadDir()))))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// claims context

type claimsContextKey struct{}

// ClaimsFromRequest returns the verified claims attached by the access gate.
// Only protected handlers see a populated value.
func ClaimsFromRequest(r *http.Request) (domain.Claims, bool) {
	claims, ok := r.Context().Value(claimsContextKey{}).(domain.Claims)
	return claims, ok
}

// authenticate runs the first half of the access gate: token extraction and
// verification. An absent header yields 401 while a present-but-invalid one
// yields 400; the asymmetry is kept for compatibility with existing clients.
// The token is whatever follows the first space, so an unexpected scheme
// fails verification rather than the extraction.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*http.Request, domain.Claims, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		writeError(w, http.StatusUnauthorized, "ACCESS_DENIED", "Access Denied")
		return r, domain.Claims{}, false
	}
	_, token, _ := strings.Cut(header, " ")
	claims, err := s.app.VerifyToken(token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_TOKEN", "Invalid Token")
		return r, domain.Claims{}, false
	}
	r = r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims))
	return r, claims, true
}

// authorize runs the second half of the gate: membership in the endpoint's
// explicit allowed-role set. Admin is not an implicit superset.
func (s *Server) authorize(w http.ResponseWriter, claims domain.Claims, roles ...domain.UserRole) bool {
	for _, role := range roles {
		if claims.Role == role {
			return true
		}
	}
	writeError(w, http.StatusForbidden, "PERMISSION_DENIED", "Permission Denied")
	return false
}

// gate combines both checks for write endpoints open to any logged-in user.
func (s *Server) gate(w http.ResponseWriter, r *http.Request) (*http.Request, domain.Claims, bool) {
	r, claims, ok := s.authenticate(w, r)
	if !ok {
		return r, claims, false
	}
	if !s.authorize(w, claims, domain.RoleUser, domain.RoleAdmin) {
		return r, claims, false
	}
	return r, claims, true
}

// auth handlers

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.registerLimiter) {
		return
	}
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := s.app.Register(r.Header.Get("Registration-Token"), req.Username, req.Password, req.Role)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    user,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter) {
		return
	}
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := s.app.Login(req.Username, req.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// book handlers

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, size, ok := pagination(w, r)
		if !ok {
			return
		}
		res, err := s.app.ListBooks(page, size)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	case http.MethodPost:
		r, claims, ok := s.gate(w, r)
		if !ok {
			return
		}
		var in app.BookInput
		if !decodeBody(w, r, &in) {
			return
		}
		book, err := s.app.CreateBook(claims, in)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, book)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/books/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		book, err := s.app.GetBook(id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodPut:
		r, _, ok := s.gate(w, r)
		if !ok {
			return
		}
		var in app.BookUpdate
		if !decodeBody(w, r, &in) {
			return
		}
		book, err := s.app.UpdateBook(id, in)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodDelete:
		_, claims, ok := s.gate(w, r)
		if !ok {
			return
		}
		if err := s.app.DeleteBook(id, claims); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Book deleted successfully"})
	default:
		methodNotAllowed(w)
	}
}

// page handlers
//
// The pages surface keeps the shape of the original routing table:
//
//	GET    /api/pages/{bookId}        list a book's pages (paginated)
//	GET    /api/pages/fetch/{pageId}  fetch one page
//	POST   /api/pages/{bookId}        add a page to a book
//	PUT    /api/pages/{pageId}        sparse-update a page
//	DELETE /api/pages/{pageId}        delete a page
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/pages/")
	if rest == "" || strings.Count(rest, "/") > 1 {
		http.NotFound(w, r)
		return
	}

	if fetchID, found := strings.CutPrefix(rest, "fetch/"); found {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		page, err := s.app.GetPage(fetchID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
		return
	}
	if strings.Contains(rest, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		page, size, ok := pagination(w, r)
		if !ok {
			return
		}
		res, err := s.app.ListPages(rest, page, size)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	case http.MethodPost:
		r, _, ok := s.gate(w, r)
		if !ok {
			return
		}
		var in app.PageInput
		if !decodeBody(w, r, &in) {
			return
		}
		page, err := s.app.AddPage(rest, in)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, page)
	case http.MethodPut:
		r, _, ok := s.gate(w, r)
		if !ok {
			return
		}
		var in app.PageInput
		if !decodeBody(w, r, &in) {
			return
		}
		page, err := s.app.UpdatePage(rest, in)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodDelete:
		if _, _, ok := s.gate(w, r); !ok {
			return
		}
		if err := s.app.DeletePage(rest); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Page deleted successfully"})
	default:
		methodNotAllowed(w)
	}
}

// donation handlers

func (s *Server) handleDonations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		donations, err := s.app.ListDonations()
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, donations)
	case http.MethodPost:
		var in app.DonationInput
		if !decodeBody(w, r, &in) {
			return
		}
		donation, err := s.app.CreateDonation(in)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, donation)
	default:
		methodNotAllowed(w)
	}
}

// upload handler

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 32<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "No file uploaded")
		return
	}
	defer file.Close()
	url, err := s.app.SaveUpload(header.Filename, file)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// helpers

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindow) bool {
	if limiter == nil {
		return true
	}
	if !limiter.Allow(util.ClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
		return false
	}
	return true
}

func pagination(w http.ResponseWriter, r *http.Request) (page, size int, ok bool) {
	page, ok = queryInt(r, "pageNumber", defaultPageNumber)
	if !ok {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid pagination parameters")
		return 0, 0, false
	}
	size, ok = queryInt(r, "pageSize", defaultPageSize)
	if !ok || page < 1 || size < 1 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid pagination parameters")
		return 0, 0, false
	}
	return page, size, true
}

func queryInt(r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrBookNotFound),
		errors.Is(err, app.ErrPageNotFound),
		errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, app.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, app.ErrInvalidRegistrationToken):
		writeError(w, http.StatusUnauthorized, "ACCESS_DENIED", "Invalid registration token")
	case errors.Is(err, app.ErrInvalidPassword):
		writeError(w, http.StatusUnauthorized, "ACCESS_DENIED", err.Error())
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "PERMISSION_DENIED", "Permission Denied")
	case errors.Is(err, app.ErrInvalidPagination),
		errors.Is(err, app.ErrCredentialsRequired),
		errors.Is(err, app.ErrInvalidRole),
		errors.Is(err, app.ErrTitleRequired),
		errors.Is(err, app.ErrAuthorRequired),
		errors.Is(err, app.ErrInvalidDonation):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	default:
		slog.Error("internal error", "path", r.URL.Path, "request_id", util.RequestID(r), "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unknown error occurred")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

type errorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"message": msg,
		"error":   errorBody{ErrorCode: code, Message: msg},
	})
}
