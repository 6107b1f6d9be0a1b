// Package handler exposes the JSON API: authentication, exam lifecycle,
// improvement tracking, resource recommendation, fallback status, and the
// admin surface.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rsharan/examgate/internal/exam"
	"github.com/rsharan/examgate/internal/metrics"
	"github.com/rsharan/examgate/internal/model"
	"github.com/rsharan/examgate/internal/qbank"
	"github.com/rsharan/examgate/internal/scoring"
	"github.com/rsharan/examgate/internal/store"
)

// Handler carries the services behind the HTTP API.
type Handler struct {
	store         *store.Store
	exams         *exam.Service
	fallback      *qbank.Service
	collector     *metrics.Collector
	corsOrigin    string
	secureCookies bool
}

// New creates the API handler.
func New(st *store.Store, exams *exam.Service, fallback *qbank.Service, collector *metrics.Collector, corsOrigin string, secureCookies bool) *Handler {
	return &Handler{
		store:         st,
		exams:         exams,
		fallback:      fallback,
		collector:     collector,
		corsOrigin:    corsOrigin,
		secureCookies: secureCookies,
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)
		r.Get("/fallback/status", h.fallbackStatus)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/auth/me", h.currentUser)
			r.Post("/exams", h.startExam)
			r.Get("/exams", h.listExams)
			r.Get("/exams/{examID}", h.getExam)
			r.Post("/exams/{examID}/submit", h.submitExam)
			r.Get("/improvement", h.improvement)
			r.Get("/resources", h.resources)

			r.Group(func(r chi.Router) {
				r.Use(h.requireRole(model.UserRoleAdmin))
				r.Get("/admin/stats", h.adminStats)
				r.Get("/admin/students", h.adminStudents)
				r.Post("/admin/students", h.adminCreateStudent)
				r.Post("/admin/students/{studentID}/toggle", h.adminToggleStudent)
				r.Delete("/admin/exams/{examID}", h.adminDeleteExam)
				r.Post("/admin/resources", h.adminCreateResource)
				r.Delete("/admin/resources/{resourceID}", h.adminDeleteResource)
				r.Get("/metrics", h.metricsSummary)
				r.Get("/metrics/trends", h.metricsTrends)
				r.Get("/metrics/{category}", h.metricsDetailed)
				r.Post("/metrics/reset", h.metricsReset)
			})
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) fallbackStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.fallback.Status())
}

type startExamRequest struct {
	Stream  string `json:"stream,omitempty"`
	Subject string `json:"subject"`
}

func (h *Handler) startExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req startExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject == "" {
		writeError(w, http.StatusBadRequest, "subject is required")
		return
	}
	stream := req.Stream
	if user.Role == model.UserRoleStudent {
		stream = user.Stream
	}
	if stream == "" {
		writeError(w, http.StatusBadRequest, "stream is required")
		return
	}

	result, err := h.exams.Start(r.Context(), user.ID, stream, req.Subject)
	if err != nil {
		var nf *qbank.NotFoundError
		if errors.As(err, &nf) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("failed to start exam", "student_id", user.ID, "subject", req.Subject, "error", err)
		writeError(w, http.StatusServiceUnavailable, "unable to start exam")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) listExams(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	exams, err := h.store.ListExamsForStudent(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list exams")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exams": exams})
}

// loadOwnedExam fetches the exam from the URL parameter and enforces that
// students only see their own attempts. Writes the error response itself.
func (h *Handler) loadOwnedExam(w http.ResponseWriter, r *http.Request) (model.Exam, bool) {
	user := model.UserFromContext(r.Context())
	examID, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid exam id")
		return model.Exam{}, false
	}
	e, err := h.store.GetExam(examID)
	if err != nil {
		writeError(w, http.StatusNotFound, "exam not found")
		return model.Exam{}, false
	}
	if user.Role != model.UserRoleAdmin && e.StudentID != user.ID {
		writeError(w, http.StatusNotFound, "exam not found")
		return model.Exam{}, false
	}
	return e, true
}

func (h *Handler) getExam(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadOwnedExam(w, r)
	if !ok {
		return
	}
	questions, err := h.store.GetExamQuestions(e.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load questions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exam": e, "questions": questions})
}

type submitAnswer struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

type submitExamRequest struct {
	Answers        []submitAnswer `json:"answers"`
	TabSwitchCount int            `json:"tab_switch_count"`
}

func (h *Handler) submitExam(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadOwnedExam(w, r)
	if !ok {
		return
	}

	var req submitExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answers := make(map[int64]string, len(req.Answers))
	for _, a := range req.Answers {
		answers[a.QuestionID] = a.Answer
	}

	report, err := h.exams.Submit(r.Context(), e.ID, answers, req.TabSwitchCount)
	if err != nil {
		if errors.Is(err, store.ErrAlreadySubmitted) {
			writeError(w, http.StatusConflict, "exam already submitted")
			return
		}
		slog.Error("failed to submit exam", "exam_id", e.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit exam")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) improvement(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	records, err := h.store.ListImprovementsForStudent(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load improvement records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"improvement": records})
}

// resources recommends learning material for the caller's performance tier
// in one subject, derived from their most recent completed percentage.
func (h *Handler) resources(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		writeError(w, http.StatusBadRequest, "subject is required")
		return
	}

	rec, err := h.store.GetImprovement(user.ID, subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load improvement record")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no completed attempts for subject")
		return
	}

	category := scoring.Classify(rec.CurrentScore)
	resources, err := h.store.ListResources(user.Stream, subject, category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load resources")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"performance_category": category,
		"current_score":        rec.CurrentScore,
		"resources":            resources,
	})
}
