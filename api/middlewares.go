package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type claimsContext string

const claimsContextKey claimsContext = "claimsContextKey"

// requireAuth guards the task routes. A request without an Authorization
// header is rejected with 401; a request whose token fails verification for
// any reason gets a uniform 403 so the response never reveals whether the
// token was tampered with, expired, or malformed.
func (app *application) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSON(w, http.StatusUnauthorized, envelope{"error": "Access denied. Token is required."})
			return
		}
		var tokenStr string
		if parts := strings.Fields(authHeader); len(parts) >= 2 {
			tokenStr = parts[1]
		}
		claims, err := verifyToken(tokenStr, app.config.JWTSecret)
		if err != nil {
			slog.Warn("token verification failed", errAttr(err))
			writeJSON(w, http.StatusForbidden, envelope{"error": "Invalid token."})
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func claimsFromRequest(r *http.Request) *tokenClaims {
	c, _ := r.Context().Value(claimsContextKey).(*tokenClaims)
	return c
}

func enableCORS(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		// preflight request
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET, POST, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func logRequests(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"ip", r.RemoteAddr,
			"duration", time.Since(start).String(),
		)
	}
}
