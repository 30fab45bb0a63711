package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStorage implements the storage contract in memory so handlers can be
// tested without a running database. It mirrors the mongo implementation's
// filter and ownership semantics.
type memStorage struct {
	mu    sync.Mutex
	users []*user
	tasks []*task
}

func (s *memStorage) getUserByEmail(_ context.Context, email string) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStorage) insertUser(_ context.Context, u *user) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return errDuplicateEmail
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	cp := *u
	s.users = append(s.users, &cp)
	return nil
}

func (s *memStorage) insertTask(_ context.Context, t *task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = primitive.NewObjectID()
	t.CreatedAt = time.Now().UTC()
	cp := *t
	s.tasks = append(s.tasks, &cp)
	return nil
}

func matchesFilters(t *task, filters taskFilters) bool {
	if filters.Priority != "" && t.Priority != filters.Priority {
		return false
	}
	if filters.DueBefore != nil {
		if t.Deadline == nil || t.Deadline.After(*filters.DueBefore) {
			return false
		}
	}
	if filters.Search != "" {
		needle := strings.ToLower(filters.Search)
		inTitle := strings.Contains(strings.ToLower(t.Title), needle)
		inDescription := strings.Contains(strings.ToLower(t.Description), needle)
		if !inTitle && !inDescription {
			return false
		}
	}
	return true
}

func (s *memStorage) getTasks(_ context.Context, userID primitive.ObjectID, filters taskFilters) ([]*task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*task
	for _, t := range s.tasks {
		if t.UserID != userID || !matchesFilters(t, filters) {
			continue
		}
		cp := *t
		result = append(result, &cp)
	}
	// missing deadlines sort first, matching the store's ascending sort
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i].Deadline, result[j].Deadline
		if a == nil {
			return b != nil
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})
	return result, nil
}

func (s *memStorage) updateTask(_ context.Context, userID, taskID primitive.ObjectID, upd taskUpdate) (*task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID != taskID || t.UserID != userID {
			continue
		}
		if upd.Title != nil {
			t.Title = *upd.Title
		}
		if upd.Description != nil {
			t.Description = *upd.Description
		}
		if upd.Deadline != nil {
			t.Deadline = upd.Deadline
		}
		if upd.Priority != nil {
			t.Priority = *upd.Priority
		}
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (s *memStorage) deleteTask(_ context.Context, userID, taskID primitive.ObjectID) (*task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID != taskID || t.UserID != userID {
			continue
		}
		cp := *t
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		return &cp, nil
	}
	return nil, nil
}

func (s *memStorage) findTask(taskID primitive.ObjectID) *task {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == taskID {
			cp := *t
			return &cp
		}
	}
	return nil
}

const testJWTSecret = "test-secret-key"

func newTestApp() (*application, *memStorage) {
	store := &memStorage{}
	app := &application{
		config:  config{Env: "test", JWTSecret: testJWTSecret},
		storage: store,
		mailer:  newMailer("", 0, "", "", ""),
	}
	return app, store
}

func doRequest(t *testing.T, h http.Handler, method, target, token string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, resp
}

// seedUser inserts a user directly into the store and returns it together
// with a freshly issued token.
func seedUser(t *testing.T, app *application, username, email string) (*user, string) {
	t.Helper()
	u := &user{Username: username, Email: email, PasswordHash: []byte("irrelevant")}
	if err := app.storage.insertUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := issueToken(u.ID.Hex(), app.config.JWTSecret)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return u, token
}

func seedTask(t *testing.T, app *application, owner primitive.ObjectID, title, description, deadline, priority string) *task {
	t.Helper()
	tk := &task{UserID: owner, Title: title, Description: description, Priority: priority}
	if deadline != "" {
		d, err := parseDate(deadline)
		if err != nil {
			t.Fatalf("parse deadline %q: %v", deadline, err)
		}
		tk.Deadline = &d
	}
	if err := app.storage.insertTask(context.Background(), tk); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return tk
}
