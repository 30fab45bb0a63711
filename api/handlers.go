package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, statusCode int, data envelope) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("response marshal failed", errAttr(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	w.Write(body)
}

// writeServerError logs the real cause and reports a generic message so
// store and crypto internals never leak to clients.
func writeServerError(w http.ResponseWriter, err error) {
	slog.Error("unexpected server error", errAttr(err))
	writeJSON(w, http.StatusInternalServerError, envelope{"message": "Server error."})
}

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{
		"status":      "available",
		"environment": app.config.Env,
		"version":     version,
	})
}

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{"message": "Invalid request body."})
		return
	}
	if anyEmpty(input.Username, input.Email, input.Password) {
		writeJSON(w, http.StatusBadRequest, envelope{"message": "All fields are required."})
		return
	}

	existing, err := app.storage.getUserByEmail(r.Context(), input.Email)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, envelope{"message": "User already exists."})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		writeServerError(w, err)
		return
	}

	u := &user{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	}
	err = app.storage.insertUser(r.Context(), u)
	if err != nil {
		// the unique index backstops the lookup above against a racing insert
		if errors.Is(err, errDuplicateEmail) {
			writeJSON(w, http.StatusConflict, envelope{"message": "User already exists."})
			return
		}
		writeServerError(w, err)
		return
	}

	app.mailer.sendWelcome(u)

	writeJSON(w, http.StatusCreated, envelope{"message": "User registered successfully.", "user": u})
}

func (app *application) loginUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{"message": "Invalid request body."})
		return
	}
	if anyEmpty(input.Email, input.Password) {
		writeJSON(w, http.StatusBadRequest, envelope{"message": "All fields are required."})
		return
	}

	u, err := app.storage.getUserByEmail(r.Context(), input.Email)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if u == nil {
		writeJSON(w, http.StatusNotFound, envelope{"message": "User not found."})
		return
	}

	err = bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(input.Password))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{"message": "Invalid credentials."})
		return
	}

	token, err := issueToken(u.ID.Hex(), app.config.JWTSecret)
	if err != nil {
		writeServerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"message": "Login successful.", "token": token})
}
