package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"snapfeed/internal/util"
	"snapfeed/pkg/domain"
	"snapfeed/services/feed/internal/app"
)

// TokenVerifier resolves a bearer token to the subject it asserts.
type TokenVerifier interface {
	VerifySubject(token string) (domain.Subject, error)
}

// WriteLimiter caps the rate of mutating requests per subject.
type WriteLimiter interface {
	Allow(subjectID string) bool
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	TokenVerifier TokenVerifier
	// Limiter is optional; nil disables write rate limiting.
	Limiter WriteLimiter
}

// Server exposes HTTP endpoints for the feed service.
type Server struct {
	app      *app.App
	verifier TokenVerifier
	limiter  WriteLimiter
	mux      *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:      cfg.App,
		verifier: cfg.TokenVerifier,
		limiter:  cfg.Limiter,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("feed", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.Handle("/profiles", s.withSubject(s.handleProfiles))
	s.mux.Handle("/profiles/", s.withSubject(s.handleProfileByID))
	s.mux.Handle("/posts", s.withSubject(s.handlePosts))
	s.mux.Handle("/posts/", s.withSubject(s.handlePostByID))
	s.mux.Handle("/reels", s.withSubject(s.handleReels))
	s.mux.Handle("/stories", s.withSubject(s.handleStories))
	s.mux.Handle("/stories/", s.withSubject(s.handleStoryByID))
	s.mux.Handle("/likes", s.withSubject(s.handleLikes))
	s.mux.Handle("/likes/", s.withSubject(s.handleLikeByID))
	s.mux.Handle("/comments", s.withSubject(s.handleComments))
	s.mux.Handle("/comments/", s.withSubject(s.handleCommentByID))
	s.mux.Handle("/follows", s.withSubject(s.handleFollows))
	s.mux.Handle("/follows/", s.withSubject(s.handleFollowByID))
	s.mux.Handle("/saves", s.withSubject(s.handleSaves))
	s.mux.Handle("/saves/", s.withSubject(s.handleSaveByID))
	s.mux.Handle("/messages", s.withSubject(s.handleMessages))
	s.mux.Handle("/messages/", s.withSubject(s.handleMessageByID))
	s.mux.Handle("/media/", s.withSubject(s.handleMedia))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type subjectHandler func(http.ResponseWriter, *http.Request, domain.Subject)

// withSubject resolves the caller identity. A missing Authorization
// header yields the anonymous subject; an invalid token is rejected
// outright so a client never silently downgrades to anonymous.
func (s *Server) withSubject(next subjectHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sub domain.Subject
		if token, ok := bearerToken(r); ok {
			if s.verifier == nil {
				writeError(w, http.StatusInternalServerError, "token verifier not configured")
				return
			}
			verified, err := s.verifier.VerifySubject(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			sub = verified
		}
		if s.limiter != nil && sub.Authenticated() && mutating(r.Method) {
			if !s.limiter.Allow(sub.ID) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next(w, r, sub)
	})
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// profiles

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Username  string `json:"username"`
		Bio       string `json:"bio"`
		AvatarURL string `json:"avatarUrl"`
		Website   string `json:"website"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	profile, err := s.app.CreateProfile(sub, sub.ID, req.Username, req.Bio, req.AvatarURL, req.Website)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// /profiles/{id} or /profiles/{id}/{posts|stories|followers|following}
func (s *Server) handleProfileByID(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	id, rest := splitPath(r.URL.Path, "/profiles/")
	if id == "" {
		notFound(w)
		return
	}
	if rest != "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		switch rest {
		case "posts":
			list, err := s.app.ListPostsByOwner(sub, id)
			writeListOrError(w, list, err)
		case "stories":
			list, err := s.app.ListStories(sub, id)
			writeListOrError(w, list, err)
		case "followers":
			list, err := s.app.ListFollowers(sub, id)
			writeListOrError(w, list, err)
		case "following":
			list, err := s.app.ListFollowing(sub, id)
			writeListOrError(w, list, err)
		default:
			notFound(w)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := s.app.GetProfile(sub, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPatch:
		var req struct {
			Username  *string `json:"username"`
			Bio       *string `json:"bio"`
			AvatarURL *string `json:"avatarUrl"`
			Website   *string `json:"website"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		profile, err := s.app.UpdateProfile(sub, id, app.ProfileUpdate{
			Username:  req.Username,
			Bio:       req.Bio,
			AvatarURL: req.AvatarURL,
			Website:   req.Website,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	default:
		methodNotAllowed(w)
	}
}

// posts

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Caption  string `json:"caption"`
		MediaURL string `json:"mediaUrl"`
		IsReel   bool   `json:"isReel"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	post, err := s.app.CreatePost(sub, sub.ID, req.Caption, req.MediaURL, req.IsReel)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// /posts/{id} or /posts/{id}/comments
func (s *Server) handlePostByID(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	id, rest := splitPath(r.URL.Path, "/posts/")
	if id == "" {
		notFound(w)
		return
	}
	if rest == "comments" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		list, err := s.app.ListComments(sub, id)
		writeListOrError(w, list, err)
		return
	}
	if rest != "" {
		notFound(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		post, err := s.app.GetPost(sub, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	case http.MethodPatch:
		var req struct {
			Caption string `json:"caption"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		post, err := s.app.UpdatePost(sub, id, req.Caption)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	case http.MethodDelete:
		if err := s.app.DeletePost(sub, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleReels(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	list, err := s.app.ListReels(sub, queryInt(r, "limit", 50))
	writeListOrError(w, list, err)
}

// stories

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		MediaURL  string    `json:"mediaUrl"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	story, err := s.app.CreateStory(sub, sub.ID, req.MediaURL, req.ExpiresAt)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, story)
}

func (s *Server) handleStoryByID(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	id, rest := splitPath(r.URL.Path, "/stories/")
	if id == "" || rest != "" {
		notFound(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		story, err := s.app.GetStory(sub, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, story)
	case http.MethodDelete:
		if err := s.app.DeleteStory(sub, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

// engagement edges

func (s *Server) handleLikes(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		PostID string `json:"postId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	like, err := s.app.CreateLike(sub, sub.ID, req.PostID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, like)
}

func (s *Server) handleLikeByID(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	s.handleEdgeDelete(w, r, "/likes/", func(id string) error { return s.app.DeleteLike(sub, id) })
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		PostID  string `json:"postId"`
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	comment, err := s.app.CreateComment(sub, sub.ID, req.PostID, req.Content)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleCommentByID(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	id, rest := splitPath(r.URL.Path, "/comments/")
	if id == "" || rest != "" {
		notFound(w)
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var req struct {
			Content string `json:"content"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		comment, err := s.app.UpdateComment(sub, id, req.Content)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comment)
	case http.MethodDelete:
		if err := s.app.DeleteComment(sub, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleFollows(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		FollowingID string `json:"followingId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	follow, err := s.app.CreateFollow(sub, sub.ID, req.FollowingID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, follow)
}

func (s *Server) handleFollowByID(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	s.handleEdgeDelete(w, r, "/follows/", func(id string) error { return s.app.DeleteFollow(sub, id) })
}

func (s *Server) handleSaves(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			PostID string `json:"postId"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		save, err := s.app.CreateSave(sub, sub.ID, req.PostID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, save)
	case http.MethodGet:
		list, err := s.app.ListSaves(sub, sub.ID)
		writeListOrError(w, list, err)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSaveByID(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	s.handleEdgeDelete(w, r, "/saves/", func(id string) error { return s.app.DeleteSave(sub, id) })
}

func (s *Server) handleEdgeDelete(w http.ResponseWriter, r *http.Request, prefix string, del func(id string) error) {
	id, rest := splitPath(r.URL.Path, prefix)
	if id == "" || rest != "" {
		notFound(w)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := del(id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// messages

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			ReceiverID string `json:"receiverId"`
			Content    string `json:"content"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		msg, err := s.app.CreateMessage(sub, sub.ID, req.ReceiverID, req.Content)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	case http.MethodGet:
		peer := strings.TrimSpace(r.URL.Query().Get("peer"))
		if peer == "" {
			writeError(w, http.StatusBadRequest, "peer query parameter is required")
			return
		}
		list, err := s.app.ListMessages(sub, peer, queryInt(r, "limit", 100))
		writeListOrError(w, list, err)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleMessageByID(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	id, rest := splitPath(r.URL.Path, "/messages/")
	if id == "" || rest != "" {
		notFound(w)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	msg, err := s.app.GetMessage(sub, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// media

// /media/{namespace}/{key...}
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	path := strings.TrimPrefix(r.URL.Path, "/media/")
	namespace, key, ok := strings.Cut(path, "/")
	if !ok || namespace == "" || key == "" {
		notFound(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		url, err := s.app.MediaURL(r.Context(), sub, namespace, key)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	case http.MethodPut:
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := s.app.UploadMedia(r.Context(), sub, namespace, key, r.Body, r.ContentLength, contentType); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "stored"})
	case http.MethodDelete:
		if err := s.app.DeleteMedia(r.Context(), sub, namespace, key); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

// helpers

func splitPath(path, prefix string) (id, rest string) {
	trimmed := strings.TrimPrefix(path, prefix)
	id, rest, _ = strings.Cut(trimmed, "/")
	return id, rest
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeListOrError[T any](w http.ResponseWriter, items []T, err error) {
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrDenied):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, app.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrUsernameRequired),
		errors.Is(err, app.ErrMediaURLRequired),
		errors.Is(err, app.ErrContentRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
