package login

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/wallchart/internal/auth"
	"github.com/wolfeidau/wallchart/internal/models"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrExpiredSession = errors.New("session expired")
)

// CookieName is the session cookie.
const CookieName = "_session"

type contextKey string

const (
	actorContextKey   contextKey = "actor"
	sessionContextKey contextKey = "session"
)

// Authenticator checks credentials and rebuilds actors from session subjects.
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) (models.Actor, error)
	Resolve(ctx context.Context, workerID int64) (models.Actor, error)
}

// Handler issues and checks session cookies. A session is an HS256 signed
// token whose subject is the worker ID, so no session state is kept server
// side.
type Handler struct {
	authn         Authenticator
	sessionSecret []byte
	sessionTTL    time.Duration
	clock         func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(authn Authenticator, sessionSecret []byte, sessionTTL time.Duration) (*Handler, error) {
	if len(sessionSecret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}

	if sessionTTL <= 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0")
	}

	return &Handler{
		authn:         authn,
		sessionSecret: sessionSecret,
		sessionTTL:    sessionTTL,
		clock:         time.Now,
	}, nil
}

// createSessionToken signs a new session for the worker.
func (h *Handler) createSessionToken(workerID int64) (string, *models.Session, error) {
	sessionID, err := uuid.NewV7()
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session id: %w", err)
	}

	now := h.clock()
	session := &models.Session{
		SessionID: sessionID,
		WorkerID:  workerID,
		IssuedAt:  now,
		ExpiresAt: now.Add(h.sessionTTL),
	}

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(workerID, 10),
		ID:        sessionID.String(),
		IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.sessionSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, session, nil
}

// validateSessionToken checks the signature and expiry of a session token.
func (h *Handler) validateSessionToken(token string) (*models.Session, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return h.sessionSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.clock),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		log.Debug().Str("subject", claims.Subject).Msg("Session expired")
		return nil, ErrExpiredSession
	}
	if err != nil {
		log.Debug().Err(err).Msg("Session token validation failed")
		return nil, ErrInvalidSession
	}

	workerID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidSession
	}
	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, ErrInvalidSession
	}

	session := &models.Session{SessionID: sessionID, WorkerID: workerID}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	session.ExpiresAt = claims.ExpiresAt.Time
	return session, nil
}

// GetSession extracts and validates the session from a request
func (h *Handler) GetSession(r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrInvalidSession
	}

	return h.validateSessionToken(cookie.Value)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login accepts a JSON or form encoded email and password. The login
// "admin" selects the configured administrator.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		creds.Email = r.PostFormValue("email")
		creds.Password = r.PostFormValue("password")
	}

	actor, err := h.authn.Authenticate(r.Context(), creds.Email, creds.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusForbidden, "invalid credentials")
		return
	}
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Login failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, session, err := h.createSessionToken(actor.WorkerID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create session token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Ctx(r.Context()).Info().
		Int64("worker_id", actor.WorkerID).
		Bool("admin", actor.IsAdmin).
		Str("session_id", session.SessionID.String()).
		Msg("User logged in")

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessionTTL.Seconds()),
	})
	w.WriteHeader(http.StatusNoContent)
}

// Logout clears the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// RequireAuth rejects requests without a valid session with 401. The actor
// is rebuilt from the store on every request and added to the request
// context along with the session.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.GetSession(r)
		if err != nil {
			log.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected request without session")
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		actor, err := h.authn.Resolve(r.Context(), session.WorkerID)
		if errors.Is(err, auth.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Failed to resolve session")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger := zerolog.Ctx(r.Context()).With().Int64("actor", actor.WorkerID).Logger()
		ctx := logger.WithContext(r.Context())
		ctx = context.WithValue(ctx, sessionContextKey, session)
		ctx = context.WithValue(ctx, actorContextKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects actors without administrator capability with 403.
// It must run inside RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !actor.IsAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFromContext returns the actor added by RequireAuth.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(models.Actor)
	return actor, ok
}

// SessionFromContext returns the session added by RequireAuth.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*models.Session)
	return session, ok
}

// WithActor returns a context carrying actor, for handlers called outside
// RequireAuth such as in tests.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
