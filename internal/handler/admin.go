package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rsharan/examgate/internal/model"
)

type createStudentRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Stream      string `json:"stream"`
}

func (h *Handler) adminCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Stream == "" {
		writeError(w, http.StatusBadRequest, "username, password, and stream are required")
		return
	}
	if existing, err := h.store.GetUserByUsername(req.Username); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create student")
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user := model.User{
		Username:     req.Username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         model.UserRoleStudent,
		Stream:       req.Stream,
		Active:       true,
	}
	id, err := h.store.CreateUser(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create student")
		return
	}
	created, err := h.store.GetUserByID(id)
	if err != nil || created == nil {
		writeError(w, http.StatusInternalServerError, "failed to create student")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) adminToggleStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid student id")
		return
	}
	user, err := h.store.GetUserByID(studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load student")
		return
	}
	if user == nil || user.Role != model.UserRoleStudent {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	if err := h.store.ToggleUserActive(studentID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update student")
		return
	}
	updated, err := h.store.GetUserByID(studentID)
	if err != nil || updated == nil {
		writeError(w, http.StatusInternalServerError, "failed to load student")
		return
	}
	slog.Info("student active flag toggled", "student_id", studentID, "active", updated.Active)
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetAdminStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) adminStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list students")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": students})
}

func (h *Handler) adminDeleteExam(w http.ResponseWriter, r *http.Request) {
	examID, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid exam id")
		return
	}
	if err := h.store.DeleteExam(examID); err != nil {
		writeError(w, http.StatusNotFound, "exam not found")
		return
	}
	slog.Info("exam deleted", "exam_id", examID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) adminCreateResource(w http.ResponseWriter, r *http.Request) {
	var res model.LearningResource
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if res.Stream == "" || res.Subject == "" || res.Title == "" || res.URL == "" {
		writeError(w, http.StatusBadRequest, "stream, subject_name, title, and url are required")
		return
	}
	switch res.Category {
	case model.CategoryBelow40, model.Category40To80, model.CategoryAbove80:
	default:
		writeError(w, http.StatusBadRequest, "invalid performance_category")
		return
	}

	id, err := h.store.InsertResource(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create resource")
		return
	}
	res.ID = id
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) adminDeleteResource(w http.ResponseWriter, r *http.Request) {
	resourceID, err := strconv.ParseInt(chi.URLParam(r, "resourceID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid resource id")
		return
	}
	if err := h.store.DeleteResource(resourceID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete resource")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) metricsSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collector.Summary())
}

func (h *Handler) metricsDetailed(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	events, err := h.collector.Detailed(category)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "events": events})
}

func (h *Handler) metricsTrends(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = parsed
	}
	writeJSON(w, http.StatusOK, h.collector.Trends(hours))
}

func (h *Handler) metricsReset(w http.ResponseWriter, r *http.Request) {
	h.collector.Reset()
	slog.Info("metrics reset", "by", model.UserFromContext(r.Context()).Username)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
