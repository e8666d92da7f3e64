package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"postboard/internal/app"
	"postboard/internal/ratelimit"
	"postboard/internal/util"
	"postboard/pkg/domain"
)

// maxBodyBytes bounds request bodies. It leaves headroom above the 1 MiB
// post-text bound so the size check in the app layer, not the reader,
// produces the 413.
const maxBodyBytes = 4 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	// Redis-backed rate limiting for the unauthenticated endpoints. Leaving
	// RedisAddr empty or a limit at zero disables the corresponding limiter.
	RedisAddr                string
	RedisPassword            string
	SignupRateLimitPerMinute int
	LoginRateLimitPerMinute  int
}

// Server exposes the HTTP endpoints.
type Server struct {
	app           *app.App
	mux           *http.ServeMux
	signupLimiter *ratelimit.FixedWindowLimiter
	loginLimiter  *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	s := &Server{
		app: cfg.App,
		mux: http.NewServeMux(),
	}
	if cfg.RedisAddr != "" {
		newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
			if limit <= 0 {
				return nil, nil
			}
			prefix := "postboard:ratelimit:" + name
			limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
			if err != nil {
				return nil, fmt.Errorf("init %s limiter: %w", name, err)
			}
			return limiter, nil
		}
		var err error
		if s.signupLimiter, err = newLimiter("signup", cfg.SignupRateLimitPerMinute); err != nil {
			return nil, err
		}
		if s.loginLimiter, err = newLimiter("login", cfg.LoginRateLimitPerMinute); err != nil {
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the middleware stack.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(
		util.WithCORS(
			util.WithRequestID(
				util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/signup", s.handleSignup)
	s.mux.HandleFunc("/login", s.handleLogin)

	s.mux.Handle("/addpost", s.authenticated(s.handleAddPost))
	s.mux.Handle("/getposts", s.authenticated(s.handleGetPosts))
	s.mux.Handle("/deletepost", s.authenticated(s.handleDeletePost))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authHandler receives the authenticated identity resolved from the bearer
// token. No handler body runs before the token is validated.
type authHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		identity, ok := s.app.IdentityFromToken(tokenString)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next(w, r, identity)
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.SignUp(req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, app.ErrEmailAlreadyExists), errors.Is(err, app.ErrEmailAndPasswordRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.internalError(w, r, "signup failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User registered successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	accessToken, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.internalError(w, r, "login failed", err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: accessToken, TokenType: "bearer"})
}

func (s *Server) handleAddPost(w http.ResponseWriter, r *http.Request, identity string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req addPostRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	postID, err := s.app.AddPost(identity, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrPostTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, app.ErrTextRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrUnknownIdentity):
			writeError(w, http.StatusUnauthorized, "unauthorized")
		default:
			s.internalError(w, r, "add post failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, addPostResponse{PostID: postID, Message: "Post added successfully"})
}

func (s *Server) handleGetPosts(w http.ResponseWriter, r *http.Request, identity string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	posts, err := s.app.ListPosts(identity)
	if err != nil {
		if errors.Is(err, app.ErrUnknownIdentity) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.internalError(w, r, "list posts failed", err)
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	writeJSON(w, http.StatusOK, postsResponse{Posts: posts})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, identity string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	raw := r.URL.Query().Get("postID")
	postID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid postID")
		return
	}
	if err := s.app.DeletePost(identity, uint(postID)); err != nil {
		switch {
		case errors.Is(err, app.ErrPostNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, app.ErrUnknownIdentity):
			writeError(w, http.StatusUnauthorized, "unauthorized")
		default:
			s.internalError(w, r, "delete post failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Post deleted successfully"})
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + clientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	util.LoggerFromContext(r.Context()).Error(msg, "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func clientIP(r *http.Request) string {
	if xfwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xfwd != "" {
		parts := strings.Split(xfwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return "", false
	}
	return tokenString, true
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type addPostRequest struct {
	Text string `json:"text"`
}

type addPostResponse struct {
	PostID  uint   `json:"postID"`
	Message string `json:"message"`
}

type postsResponse struct {
	Posts []domain.Post `json:"posts"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
