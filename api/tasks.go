package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ownerFromRequest converts the verified claim into the store's id type.
// The auth middleware guarantees a non-empty userId, but not that it is a
// well-formed object id.
func ownerFromRequest(r *http.Request) (primitive.ObjectID, error) {
	claims := claimsFromRequest(r)
	if claims == nil {
		return primitive.NilObjectID, errMissingUserClaim
	}
	return primitive.ObjectIDFromHex(claims.UserID)
}

func (app *application) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		slog.Warn("bad userId claim", errAttr(err))
		writeJSON(w, http.StatusForbidden, envelope{"error": "Invalid token."})
		return
	}

	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Deadline    string `json:"deadline"`
		Priority    string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{"message": "Invalid request body."})
		return
	}
	if input.Title == "" || input.Priority == "" {
		writeJSON(w, http.StatusBadRequest, envelope{"message": "Title and priority are required."})
		return
	}

	var deadline *time.Time
	if input.Deadline != "" {
		d, err := parseDate(input.Deadline)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, envelope{"message": "Invalid deadline date."})
			return
		}
		deadline = &d
	}

	t := &task{
		UserID:      owner,
		Title:       input.Title,
		Description: input.Description,
		Deadline:    deadline,
		Priority:    input.Priority,
	}
	if err := app.storage.insertTask(r.Context(), t); err != nil {
		writeServerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{"message": "Task created successfully.", "task": t})
}

func (app *application) getTasksHandler(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		slog.Warn("bad userId claim", errAttr(err))
		writeJSON(w, http.StatusForbidden, envelope{"error": "Invalid token."})
		return
	}

	q := r.URL.Query()
	filters := taskFilters{
		Priority: q.Get("priority"),
		Search:   q.Get("search"),
	}
	if due := q.Get("dueBefore"); due != "" {
		d, err := parseDate(due)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, envelope{"message": "Invalid dueBefore date."})
			return
		}
		filters.DueBefore = &d
	}

	tasks, err := app.storage.getTasks(r.Context(), owner, filters)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*task{}
	}

	writeJSON(w, http.StatusOK, envelope{"tasks": tasks})
}

func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		slog.Warn("bad userId claim", errAttr(err))
		writeJSON(w, http.StatusForbidden, envelope{"error": "Invalid token."})
		return
	}

	// A malformed id cannot match any task, so it falls into the same 404
	// as a missing or foreign one.
	taskID, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, envelope{"message": "Task not found or unauthorized."})
		return
	}

	var input struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Deadline    *string `json:"deadline"`
		Priority    *string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{"message": "Invalid request body."})
		return
	}

	upd := taskUpdate{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
	}
	if input.Deadline != nil {
		d, err := parseDate(*input.Deadline)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, envelope{"message": "Invalid deadline date."})
			return
		}
		upd.Deadline = &d
	}

	updated, err := app.storage.updateTask(r.Context(), owner, taskID, upd)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if updated == nil {
		writeJSON(w, http.StatusNotFound, envelope{"message": "Task not found or unauthorized."})
		return
	}

	writeJSON(w, http.StatusOK, envelope{"message": "Task updated successfully.", "task": updated})
}

func (app *application) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		slog.Warn("bad userId claim", errAttr(err))
		writeJSON(w, http.StatusForbidden, envelope{"error": "Invalid token."})
		return
	}

	taskID, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, envelope{"message": "Task not found or unauthorized."})
		return
	}

	deleted, err := app.storage.deleteTask(r.Context(), owner, taskID)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if deleted == nil {
		writeJSON(w, http.StatusNotFound, envelope{"message": "Task not found or unauthorized."})
		return
	}

	writeJSON(w, http.StatusOK, envelope{"message": "Task deleted successfully."})
}
