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

// EnrollmentHandler lets authenticated users manage their own enrollments.
// Change notifications carry the owner so the broker can target the owner's
// connections alongside admins.
type EnrollmentHandler struct {
	store  *store.Store
	broker *realtime.Broker
}

// NewEnrollmentHandler creates an EnrollmentHandler.
func NewEnrollmentHandler(st *store.Store, broker *realtime.Broker) *EnrollmentHandler {
	return &EnrollmentHandler{store: st, broker: broker}
}

// List handles GET /api/enrollments: the caller's own enrollments, or every
// enrollment when the caller is an admin.
func (h *EnrollmentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	var (
		enrollments []models.Enrollment
		err         error
	)
	if claims.Role == services.RoleAdmin {
		enrollments, err = h.store.ListEnrollments(r.Context())
	} else {
		enrollments, err = h.store.ListEnrollmentsByUser(r.Context(), claims.UserID)
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list enrollments", err)
		return
	}
	writeJSON(w, http.StatusOK, enrollments)
}

// Create handles POST /api/enrollments: enroll the caller in a course.
func (h *EnrollmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	var req models.EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	course, err := h.store.GetCourse(r.Context(), req.CourseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load course", err)
		return
	}
	if !course.Published && claims.Role != services.RoleAdmin {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}

	enrollment, err := h.store.CreateEnrollment(r.Context(), claims.UserID, req.CourseID)
	if err != nil {
		writeError(w, http.StatusConflict, "already enrolled")
		return
	}

	h.broker.PublishEnrollment(r.Context(), enrollment.ID, realtime.ActionCreate, claims.UserID)
	writeJSON(w, http.StatusCreated, enrollment)
}

// Delete handles DELETE /api/enrollments/{id}: unenroll. Admins may remove
// any enrollment; users only their own.
func (h *EnrollmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	id := chi.URLParam(r, "id")

	enrollment, err := h.store.GetEnrollment(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "enrollment not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load enrollment", err)
		return
	}

	if enrollment.UserID != claims.UserID && claims.Role != services.RoleAdmin {
		writeError(w, http.StatusForbidden, "cannot remove another user's enrollment")
		return
	}

	if err := h.store.DeleteEnrollment(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "enrollment not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to delete enrollment", err)
		return
	}

	// The row is gone; the owner travels with the publish call.
	h.broker.PublishEnrollment(r.Context(), id, realtime.ActionDelete, enrollment.UserID)
	w.WriteHeader(http.StatusNoContent)
}
