// Package api exposes the remote persistence boundary of the progress
// engine over HTTP, plus the websocket push feed and the admin export.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/brightpath/courseplayer/internal/progress"
	"github.com/brightpath/courseplayer/internal/push"
	"github.com/brightpath/courseplayer/internal/report"
)

// Handlers wires the persistence boundary to a Persister and fans confirmed
// writes out through the push hub and publisher.
type Handlers struct {
	persister progress.Persister
	auth      *Auth
	hub       *push.Hub
	publisher *push.Publisher
	report    *report.Builder
}

// Config holds handler dependencies. Hub, Publisher and Report are
// optional; nil disables the corresponding surface.
type Config struct {
	Persister progress.Persister
	Auth      *Auth
	Hub       *push.Hub
	Publisher *push.Publisher
	Report    *report.Builder
}

// New creates the handler set.
func New(cfg Config) *Handlers {
	return &Handlers{
		persister: cfg.Persister,
		auth:      cfg.Auth,
		hub:       cfg.Hub,
		publisher: cfg.Publisher,
		report:    cfg.Report,
	}
}

// Router returns the HTTP mux for the progress API.
func (h *Handlers) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /progress", h.authed(h.getProgress))
	mux.HandleFunc("POST /progress/video", h.authed(h.postVideo))
	mux.HandleFunc("POST /progress/question", h.authed(h.postQuestion))
	mux.HandleFunc("POST /progress/unit", h.authed(h.postUnit))
	mux.HandleFunc("DELETE /progress", h.authed(h.deleteProgress))
	mux.HandleFunc("GET /progress/feed", h.authed(h.feed))
	mux.HandleFunc("GET /admin/progress.xlsx", h.authed(h.adminReport))
	return mux
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (h *Handlers) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.auth.Authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "auth", "missing or invalid session token")
			return
		}
		next(w, r, userID)
	}
}

func (h *Handlers) getProgress(w http.ResponseWriter, r *http.Request, userID string) {
	set, err := h.persister.Fetch(r.Context(), userID)
	if err != nil {
		writeTypedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress.SnapshotOf(set))
}

func (h *Handlers) postVideo(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		UnitID      string  `json:"unit_id"`
		CurrentTime float64 `json:"current_time"`
		Duration    float64 `json:"duration"`
		Completed   bool    `json:"completed"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.UnitID == "" || req.CurrentTime < 0 || req.Duration < 0 {
		writeError(w, http.StatusBadRequest, "validation", "unit_id is required and times must be non-negative")
		return
	}

	rec := progress.VideoProgress{
		UserID:      userID,
		UnitID:      req.UnitID,
		CurrentTime: req.CurrentTime,
		Duration:    req.Duration,
		Completed:   req.Completed,
		LastUpdated: time.Now(),
	}
	if err := h.persister.SaveVideo(r.Context(), rec); err != nil {
		writeTypedError(w, err)
		return
	}

	// Respond and broadcast the stored row: its completed flag is sticky and
	// may differ from the request. Pushing the request copy could regress
	// another device's state under the last-write-wins merge.
	if set, err := h.persister.Fetch(r.Context(), userID); err == nil {
		if stored, ok := set.Video[req.UnitID]; ok {
			rec = stored
		}
	}
	h.broadcast(r, push.VideoUpdate(rec))
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) postQuestion(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		QuestionID string `json:"question_id"`
		UnitID     string `json:"unit_id"`
		ChapterID  string `json:"chapter_id"`
		Correct    bool   `json:"correct"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.QuestionID == "" || req.UnitID == "" {
		writeError(w, http.StatusBadRequest, "validation", "question_id and unit_id are required")
		return
	}

	rec := progress.QuestionProgress{
		UserID:      userID,
		QuestionID:  req.QuestionID,
		UnitID:      req.UnitID,
		ChapterID:   req.ChapterID,
		Correct:     req.Correct,
		LastUpdated: time.Now(),
	}
	if err := h.persister.SaveQuestion(r.Context(), rec); err != nil {
		writeTypedError(w, err)
		return
	}

	// The attempt counter lives in the stored row; echo that back, not the
	// request's advisory copy.
	if set, err := h.persister.Fetch(r.Context(), userID); err == nil {
		if stored, ok := set.Questions[req.QuestionID]; ok {
			rec = stored
		}
	}
	h.broadcast(r, push.QuestionUpdate(rec))
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) postUnit(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		UnitID             string `json:"unit_id"`
		ChapterID          string `json:"chapter_id"`
		VideoCompleted     *bool  `json:"video_completed"`
		QuestionsCompleted *int   `json:"questions_completed"`
		TotalQuestions     *int   `json:"total_questions"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.UnitID == "" {
		writeError(w, http.StatusBadRequest, "validation", "unit_id is required")
		return
	}

	upd := progress.UnitUpdate{
		UserID:             userID,
		UnitID:             req.UnitID,
		ChapterID:          req.ChapterID,
		VideoCompleted:     req.VideoCompleted,
		QuestionsCompleted: req.QuestionsCompleted,
		TotalQuestions:     req.TotalQuestions,
		LastUpdated:        time.Now(),
	}
	if err := h.persister.SaveUnit(r.Context(), upd); err != nil {
		writeTypedError(w, err)
		return
	}

	// Broadcast the stored row, not the partial request.
	if set, err := h.persister.Fetch(r.Context(), userID); err == nil {
		if rec, ok := set.Units[req.UnitID]; ok {
			h.broadcast(r, push.UnitUpdate(rec))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) deleteProgress(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.persister.Reset(r.Context(), userID); err != nil {
		writeTypedError(w, err)
		return
	}
	slog.Info("progress reset", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) feed(w http.ResponseWriter, r *http.Request, userID string) {
	if h.hub == nil {
		writeError(w, http.StatusNotFound, "validation", "push feed not enabled")
		return
	}
	h.hub.ServeFeed(w, r, userID)
}

func (h *Handlers) adminReport(w http.ResponseWriter, r *http.Request, userID string) {
	if !h.auth.IsAdmin(userID) {
		writeError(w, http.StatusForbidden, "auth", "admin access required")
		return
	}
	if h.report == nil {
		writeError(w, http.StatusNotFound, "validation", "reporting not enabled")
		return
	}

	f, err := h.report.Build(r.Context())
	if err != nil {
		slog.Error("report build failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "persistence", "could not build report")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	if err := f.Write(w); err != nil {
		slog.Warn("report write failed", "error", err)
	}
}

func (h *Handlers) broadcast(r *http.Request, u push.Update) {
	if h.hub != nil {
		h.hub.Broadcast(u)
	}
	if h.publisher != nil {
		h.publisher.Publish(r.Context(), u)
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed JSON body")
		return false
	}
	return true
}

// writeTypedError maps the progress error taxonomy to HTTP statuses.
func writeTypedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progress.ErrAuth):
		writeError(w, http.StatusUnauthorized, "auth", err.Error())
	case errors.Is(err, progress.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		slog.Error("persistence failure", "error", err)
		writeError(w, http.StatusServiceUnavailable, "persistence", "storage unavailable")
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"type": kind, "message": message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}
