package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createTaskRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type createBoardResponse struct {
	ID string `json:"id"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

type handler struct {
	repo   Repository
	logger *slog.Logger
}

func RegisterRoutes(r chi.Router, repo Repository, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{repo: repo, logger: logger}

	r.Post("/boards", h.createBoard)
	r.Route("/boards/{boardID}/tasks", func(r chi.Router) {
		r.Post("/", h.createTask)
		r.Get("/", h.listTasks)
		r.Get("/{taskID}", h.getTask)
		r.Patch("/{taskID}", h.updateTask)
		r.Delete("/{taskID}", h.deleteTask)
	})
}

func (h *handler) createBoard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusCreated, createBoardResponse{ID: uuid.NewString()})
}

func (h *handler) createTask(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
		return
	}

	if vErrs := validateTitle(req.Title); len(vErrs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:   "validation_error",
			Details: vErrs,
		})
		return
	}

	t, err := h.repo.Create(r.Context(), chi.URLParam(r, "boardID"), req.Title, req.Content)
	if err != nil {
		h.writeRepoErr(w, r, "create", err)
		return
	}
	taskWrites.WithLabelValues("create").Inc()
	writeJSON(w, http.StatusCreated, t)
}

func (h *handler) listTasks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	tasks, err := h.repo.List(r.Context(), chi.URLParam(r, "boardID"))
	if err != nil {
		h.writeRepoErr(w, r, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handler) getTask(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, ok := taskID(w, r)
	if !ok {
		return
	}
	t, err := h.repo.Get(r.Context(), chi.URLParam(r, "boardID"), id)
	if err != nil {
		h.writeRepoErr(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) updateTask(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var p Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
		return
	}
	if p.Title != nil {
		if vErrs := validateTitle(*p.Title); len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}
	}

	t, err := h.repo.Update(r.Context(), chi.URLParam(r, "boardID"), id, p)
	if err != nil {
		h.writeRepoErr(w, r, "update", err)
		return
	}
	for _, f := range p.Fields() {
		taskWrites.WithLabelValues("update_" + f).Inc()
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "boardID"), id); err != nil {
		w.Header().Set("Content-Type", "application/json")
		h.writeRepoErr(w, r, "delete", err)
		return
	}
	taskWrites.WithLabelValues("delete").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	if err != nil || id <= 0 {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_id"})
		return 0, false
	}
	return id, true
}

// writeRepoErr maps repository errors onto the JSON error envelope.
func (h *handler) writeRepoErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrTitleTooLong):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:   "validation_error",
			Details: []fieldError{{Field: "title", Message: err.Error()}},
		})
	case errors.Is(err, ErrTimerStartRequired):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:   "validation_error",
			Details: []fieldError{{Field: "timer_start", Message: err.Error()}},
		})
	case errors.Is(err, ErrTimerEndBeforeStart):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:   "validation_error",
			Details: []fieldError{{Field: "timer_end", Message: err.Error()}},
		})
	case errors.Is(err, ErrNegativeDuration):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:   "validation_error",
			Details: []fieldError{{Field: "timer_duration_ms", Message: err.Error()}},
		})
	default:
		h.logger.Error("task_"+op+"_failed",
			slog.String("board_id", chi.URLParam(r, "boardID")),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
	}
}

func validateTitle(title string) []fieldError {
	var errs []fieldError

	if strings.TrimSpace(title) == "" {
		errs = append(errs, fieldError{
			Field:   "title",
			Message: "title is required",
		})
	}

	if utf8.RuneCountInString(title) > MaxTitleLen {
		errs = append(errs, fieldError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", MaxTitleLen),
		})
	}

	return errs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
