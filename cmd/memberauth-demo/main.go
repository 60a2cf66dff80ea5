// Package main demonstrates a minimal HTTP integration with memberauth.
//
// It starts a local HTTP server on :8080 backed by miniredis (no external
// Redis required) and an in-memory SQLite user store.
//
// Endpoints:
//
//	POST /session          — opens a login session, returns {"session_id":"..."}
//	POST /register         — JSON registration form, returns {"user_id":"..."} or field errors
//	POST /login            — JSON {"session_id":"...","identifier":"...","password":"..."}
//	GET  /session/info     — ?session_id=... login-page state (failure count, recovery link, lockout)
//	POST /recovery/begin   — JSON {"session_id":"...","identifier":"..."}, returns the three questions
//	POST /recovery/answers — JSON answers + confirmations, unlocks password change on success
//	POST /recovery/password — JSON new password + confirmation, consumes the authorization
//	GET  /metrics          — Prometheus text exposition
//
// Run:
//
//	go run ./cmd/memberauth-demo
//
// Then:
//
//	# open a session
//	curl -s -X POST localhost:8080/session
//
//	# register
//	curl -i -X POST localhost:8080/register \
//	  -H 'Content-Type: application/json' \
//	  -d @register.json
//
//	# login
//	curl -i -X POST localhost:8080/login \
//	  -H 'Content-Type: application/json' \
//	  -d '{"session_id":"<SID>","identifier":"alice","password":"Correct-horse1"}'
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	memberauth "github.com/liquorlink/memberauth"
	promexport "github.com/liquorlink/memberauth/metrics/export/prometheus"
	"github.com/liquorlink/memberauth/sqlstore"
)

func main() {
	// ---------- infrastructure ----------
	mr, err := miniredis.Run()
	if err != nil {
		log.Fatal(err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	dbPath := os.Getenv("MEMBERAUTH_DB")
	if dbPath == "" {
		dbPath = ":memory:"
	}
	store, err := sqlstore.Open(dbPath)
	if err != nil {
		log.Fatal("sqlite open:", err)
	}
	defer store.Close()

	// ---------- build engine ----------
	cfg := memberauth.DefaultConfig()
	cfg.Audit.Enabled = true

	engine, err := memberauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithAuditSink(memberauth.NewJSONWriterSink(os.Stdout)).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		log.Fatal("engine build:", err)
	}
	defer engine.Close()

	// ---------- routes ----------
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session", sessionHandler(engine))
	mux.HandleFunc("POST /register", registerHandler(engine))
	mux.HandleFunc("POST /login", loginHandler(engine))
	mux.HandleFunc("GET /session/info", sessionInfoHandler(engine))
	mux.HandleFunc("POST /recovery/begin", recoveryBeginHandler(engine))
	mux.HandleFunc("POST /recovery/answers", recoveryAnswersHandler(engine))
	mux.HandleFunc("POST /recovery/password", recoveryPasswordHandler(engine))
	mux.Handle("GET /metrics", promexport.NewPrometheusExporter(engine).Handler())

	fmt.Println("listening on :8080")
	log.Fatal(http.ListenAndServe(":8080", mux))
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func sessionHandler(engine *memberauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := engine.NewLoginSession(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"session_id": sid})
	}
}

func registerHandler(engine *memberauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body memberauth.RegistrationInput
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		userID, err := engine.Register(withRequestContext(r), body)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"user_id": userID})
	}
}

func loginHandler(engine *memberauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SessionID  string `json:"session_id"`
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		result, err := engine.Login(withRequestContext(r), body.SessionID, body.Identifier, body.Password)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"user_id":  result.UserID,
			"username": result.Username,
		})
	}
}

func sessionInfoHandler(engine *memberauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := engine.SessionInfo(r.Context(), r.URL.Query().Get("session_id"))
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func recoveryBeginHandler(engine *memberauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SessionID  string `json:"session_id"`
			Identifier string `json:"identifier"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		challenge, err := engine.BeginRecovery(withRequestContext(r), body.SessionID, body.Identifier)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, challenge)
	}
}

func recoveryAnswersHandler(engine *memberauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SessionID     string    `json:"session_id"`
			UserID        string    `json:"user_id"`
			Answers       [3]string `json:"answers"`
			Confirmations [3]string `json:"confirmations"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if err := engine.SubmitRecoveryAnswers(withRequestContext(r), body.SessionID, body.UserID, body.Answers, body.Confirmations); err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"authorized": true})
	}
}

func recoveryPasswordHandler(engine *memberauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SessionID       string `json:"session_id"`
			NewPassword     string `json:"new_password"`
			ConfirmPassword string `json:"confirm_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if err := engine.SetNewPassword(withRequestContext(r), body.SessionID, body.NewPassword, body.ConfirmPassword); err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"changed": true})
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func withRequestContext(r *http.Request) context.Context {
	ctx := r.Context()

	// Best-effort IP extraction for local demo.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx = memberauth.WithClientIP(ctx, host)
	ctx = memberauth.WithUserAgent(ctx, r.UserAgent())

	return ctx
}

func writeAuthError(w http.ResponseWriter, err error) {
	var fields memberauth.FieldErrors
	if errors.As(err, &fields) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"field_errors": fields})
		return
	}

	var locked *memberauth.LockedOutError
	if errors.As(err, &locked) {
		writeJSON(w, http.StatusLocked, map[string]any{
			"error":             locked.Error(),
			"remaining_seconds": locked.RemainingSeconds,
		})
		return
	}

	switch {
	case errors.Is(err, memberauth.ErrInvalidCredentials),
		errors.Is(err, memberauth.ErrAnswersIncorrect),
		errors.Is(err, memberauth.ErrRecoveryNotAuthorized),
		errors.Is(err, memberauth.ErrRecoveryNotStarted):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, memberauth.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, memberauth.ErrAnswerConfirmationMismatch),
		errors.Is(err, memberauth.ErrSessionIDInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
