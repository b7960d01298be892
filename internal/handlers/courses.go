package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tudasmester/elira-backend/internal/middleware"
	"github.com/tudasmester/elira-backend/internal/models"
	"github.com/tudasmester/elira-backend/internal/realtime"
	"github.com/tudasmester/elira-backend/internal/services"
	"github.com/tudasmester/elira-backend/internal/store"
)

// CourseHandler handles course catalog reads and admin CRUD. Every committed
// mutation is reported to the broker for fan-out.
type CourseHandler struct {
	store  *store.Store
	broker *realtime.Broker
}

// NewCourseHandler creates a CourseHandler.
func NewCourseHandler(st *store.Store, broker *realtime.Broker) *CourseHandler {
	return &CourseHandler{store: st, broker: broker}
}

// List handles GET /api/courses. Non-admin callers see published courses only.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	publishedOnly := claims == nil || claims.Role != services.RoleAdmin

	courses, err := h.store.ListCourses(r.Context(), publishedOnly)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list courses", err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

// Get handles GET /api/courses/{id}.
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	course, err := h.store.GetCourse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load course", err)
		return
	}

	claims := middleware.GetClaims(r.Context())
	if !course.Published && (claims == nil || claims.Role != services.RoleAdmin) {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}

	writeJSON(w, http.StatusOK, course)
}

// Create handles POST /api/courses (admin only).
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	course, err := h.store.CreateCourse(r.Context(), req)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create course", err)
		return
	}

	h.broker.Publish(r.Context(), realtime.KindCourse, course.ID, realtime.ActionCreate)
	writeJSON(w, http.StatusCreated, course)
}

// Update handles PUT /api/courses/{id} (admin only).
func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.CourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	course, err := h.store.UpdateCourse(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update course", err)
		return
	}

	h.broker.Publish(r.Context(), realtime.KindCourse, id, realtime.ActionUpdate)
	writeJSON(w, http.StatusOK, course)
}

// Delete handles DELETE /api/courses/{id} (admin only).
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteCourse(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to delete course", err)
		return
	}

	h.broker.Publish(r.Context(), realtime.KindCourse, id, realtime.ActionDelete)
	w.WriteHeader(http.StatusNoContent)
}
