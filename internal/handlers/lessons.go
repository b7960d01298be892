package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tudasmester/elira-backend/internal/models"
	"github.com/tudasmester/elira-backend/internal/realtime"
	"github.com/tudasmester/elira-backend/internal/store"
)

// LessonHandler handles lesson CRUD nested under a course (admin only for
// mutations). Committed mutations are reported to the broker.
type LessonHandler struct {
	store  *store.Store
	broker *realtime.Broker
}

// NewLessonHandler creates a LessonHandler.
func NewLessonHandler(st *store.Store, broker *realtime.Broker) *LessonHandler {
	return &LessonHandler{store: st, broker: broker}
}

// List handles GET /api/courses/{id}/lessons.
func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.store.ListLessons(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list lessons", err)
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

// Create handles POST /api/courses/{id}/lessons (admin only).
func (h *LessonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.LessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	courseID := chi.URLParam(r, "id")
	if _, err := h.store.GetCourse(r.Context(), courseID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load course", err)
		return
	}

	lesson, err := h.store.CreateLesson(r.Context(), courseID, req)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create lesson", err)
		return
	}

	h.broker.Publish(r.Context(), realtime.KindLesson, lesson.ID, realtime.ActionCreate)
	writeJSON(w, http.StatusCreated, lesson)
}

// Update handles PUT /api/lessons/{lessonId} (admin only).
func (h *LessonHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.LessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "lessonId")
	lesson, err := h.store.UpdateLesson(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lesson not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update lesson", err)
		return
	}

	h.broker.Publish(r.Context(), realtime.KindLesson, id, realtime.ActionUpdate)
	writeJSON(w, http.StatusOK, lesson)
}

// Delete handles DELETE /api/lessons/{lessonId} (admin only).
func (h *LessonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "lessonId")
	if err := h.store.DeleteLesson(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lesson not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to delete lesson", err)
		return
	}

	h.broker.Publish(r.Context(), realtime.KindLesson, id, realtime.ActionDelete)
	w.WriteHeader(http.StatusNoContent)
}
