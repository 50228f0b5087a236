package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartmeals/smartmeals/internal/auth"
	"github.com/smartmeals/smartmeals/internal/config"
	"github.com/smartmeals/smartmeals/internal/domain/user"
	"github.com/smartmeals/smartmeals/internal/http/handlers"
	mongorepo "github.com/smartmeals/smartmeals/internal/repo/mongo"
	"github.com/smartmeals/smartmeals/internal/security"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testConfig() config.Config {
	return config.Config{Env: "test", JWTSecret: "test-secret"}
}

func testJWTManager() *auth.Manager {
	return auth.NewManager("test-secret", 15*time.Minute, 7*24*time.Hour)
}

// setupRouter mounts one unauthenticated handler, for the credential routes.
func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, h)
	return r
}

// Fake implementations of the auth handler's store interfaces

type fakeUsersRepo struct {
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	createFn     func(ctx context.Context, name, email, passwordHash string) (user.User, error)
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}

	return user.User{}, mongorepo.ErrUserNotFound
}

func (f *fakeUsersRepo) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, name, email, passwordHash)
	}

	return user.User{ID: primitive.NewObjectID(), Name: name, Email: email, PasswordHash: passwordHash}, nil
}

type fakeSessionsRepo struct {
	createFn func(ctx context.Context, row mongorepo.RefreshTokenRow) error
	getFn    func(ctx context.Context, id string) (mongorepo.RefreshTokenRow, error)
	revokeFn func(ctx context.Context, id string, replacedBy *string) error

	created []mongorepo.RefreshTokenRow
	revoked []string
}

func (f *fakeSessionsRepo) Create(ctx context.Context, row mongorepo.RefreshTokenRow) error {
	f.created = append(f.created, row)

	if f.createFn != nil {
		return f.createFn(ctx, row)
	}

	return nil
}

func (f *fakeSessionsRepo) Get(ctx context.Context, id string) (mongorepo.RefreshTokenRow, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return mongorepo.RefreshTokenRow{}, mongorepo.ErrRefreshTokenNotFound
}

func (f *fakeSessionsRepo) RevokeIfActive(ctx context.Context, id string, replacedBy *string) error {
	f.revoked = append(f.revoked, id)

	if f.revokeFn != nil {
		return f.revokeFn(ctx, id, replacedBy)
	}

	return nil
}

func (f *fakeSessionsRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return nil
}

func newAuthHandler(users *fakeUsersRepo, sessions *fakeSessionsRepo) *handlers.AuthHandler {
	return handlers.NewAuthHandler(users, users, testJWTManager(), sessions, testConfig(), testLogger(), nil)
}

// Register tests

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		repoSetup      func(*fakeUsersRepo)
		wantStatusCode int
	}{
		{
			name:           "success",
			body:           `{"name": "Ana", "email": "ana@example.com", "password": "correct horse"}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "validation_error_short_password",
			body:           `{"name": "Ana", "email": "ana@example.com", "password": "short"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "validation_error_bad_email",
			body:           `{"name": "Ana", "email": "not-an-email", "password": "correct horse"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "email_taken",
			body: `{"name": "Ana", "email": "ana@example.com", "password": "correct horse"}`,
			repoSetup: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, name, email, passwordHash string) (user.User, error) {
					return user.User{}, mongorepo.ErrEmailAlreadyUsed
				}
			},
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			users := &fakeUsersRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(users)
			}

			h := newAuthHandler(users, &fakeSessionsRepo{})
			r := setupRouter(http.MethodPost, "/auth/register", h.Register)

			req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode != http.StatusCreated {
				return
			}

			var resp struct {
				User struct {
					ID           string `json:"id"`
					Email        string `json:"email"`
					PasswordHash string `json:"passwordHash"`
				} `json:"user"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v body=%s", err, w.Body.String())
			}

			if resp.User.Email != "ana@example.com" || resp.User.ID == "" {
				t.Fatalf("unexpected user payload: %s", w.Body.String())
			}

			if resp.User.PasswordHash != "" || bytes.Contains(w.Body.Bytes(), []byte("passwordHash")) {
				t.Fatalf("password hash leaked into the response: %s", w.Body.String())
			}
		})
	}
}

// Login tests

func TestLoginHandler(t *testing.T) {
	hash, err := security.HashPassword("correct horse")

	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	storedUser := user.User{
		ID:           primitive.NewObjectID(),
		Name:         "Ana",
		Email:        "ana@example.com",
		PasswordHash: hash,
	}

	lookup := func(f *fakeUsersRepo) {
		f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
			if email == storedUser.Email {
				return storedUser, nil
			}

			return user.User{}, mongorepo.ErrUserNotFound
		}
	}

	tests := []struct {
		name           string
		body           string
		wantStatusCode int
		wantErrCode    string
	}{
		{
			name:           "success",
			body:           `{"email": "ana@example.com", "password": "correct horse"}`,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "unknown email",
			body:           `{"email": "nobody@example.com", "password": "correct horse"}`,
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "invalid_credentials",
		},
		{
			// same status and code as the unknown-email case so callers
			// cannot probe which emails exist
			name:           "wrong password",
			body:           `{"email": "ana@example.com", "password": "wrong horse"}`,
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "invalid_credentials",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			users := &fakeUsersRepo{}
			lookup(users)

			sessions := &fakeSessionsRepo{}

			h := newAuthHandler(users, sessions)
			r := setupRouter(http.MethodPost, "/auth/login", h.Login)

			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantErrCode != "" {
				var resp struct {
					Error handlers.APIError `json:"error"`
				}

				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal error: %v body=%s", err, w.Body.String())
				}

				if resp.Error.Code != tt.wantErrCode {
					t.Fatalf("got error code %q, want %q", resp.Error.Code, tt.wantErrCode)
				}

				return
			}

			// success: the access token must verify, the refresh token must
			// be stored hashed, and both cookies must be set

			var resp struct {
				AccessToken string `json:"accessToken"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v body=%s", err, w.Body.String())
			}

			claims, err := testJWTManager().VerifyAccessToken(resp.AccessToken)

			if err != nil {
				t.Fatalf("access token does not verify: %v", err)
			}

			if claims.UserID != storedUser.ID.Hex() {
				t.Fatalf("got sub=%q, want %q", claims.UserID, storedUser.ID.Hex())
			}

			if len(sessions.created) != 1 {
				t.Fatalf("expected one stored refresh token, got %d", len(sessions.created))
			}

			cookies := map[string]bool{}
			for _, c := range w.Result().Cookies() {
				cookies[c.Name] = true
			}

			if !cookies["access_token"] || !cookies["refresh_token"] {
				t.Fatalf("missing auth cookies, got %v", cookies)
			}
		})
	}
}

// Refresh tests

func TestRefreshHandler(t *testing.T) {
	manager := testJWTManager()
	principal := auth.Principal{UserID: testUserID, Name: "Ana", Email: "ana@example.com"}

	raw, jti, expiresAt, err := manager.GenerateRefreshToken(principal)

	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	activeRow := mongorepo.RefreshTokenRow{
		ID:        jti,
		UserID:    principal.UserID,
		TokenHash: manager.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	revokedAt := time.Now().UTC()

	tests := []struct {
		name           string
		cookie         string
		sessionsSetup  func(*fakeSessionsRepo)
		wantStatusCode int
	}{
		{
			name:   "success rotates the token",
			cookie: raw,
			sessionsSetup: func(f *fakeSessionsRepo) {
				f.getFn = func(ctx context.Context, id string) (mongorepo.RefreshTokenRow, error) {
					if id != jti {
						return mongorepo.RefreshTokenRow{}, mongorepo.ErrRefreshTokenNotFound
					}

					return activeRow, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing cookie",
			cookie:         "",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "garbage token",
			cookie:         "not-a-jwt",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:   "revoked token is rejected",
			cookie: raw,
			sessionsSetup: func(f *fakeSessionsRepo) {
				f.getFn = func(ctx context.Context, id string) (mongorepo.RefreshTokenRow, error) {
					row := activeRow
					row.RevokedAt = &revokedAt
					return row, nil
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:   "hash mismatch is rejected",
			cookie: raw,
			sessionsSetup: func(f *fakeSessionsRepo) {
				f.getFn = func(ctx context.Context, id string) (mongorepo.RefreshTokenRow, error) {
					row := activeRow
					row.TokenHash = "something else entirely"
					return row, nil
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			// a concurrent rotation already revoked this row between Get and
			// RevokeIfActive; the loser gets a 401
			name:   "lost rotation race",
			cookie: raw,
			sessionsSetup: func(f *fakeSessionsRepo) {
				f.getFn = func(ctx context.Context, id string) (mongorepo.RefreshTokenRow, error) {
					return activeRow, nil
				}
				f.revokeFn = func(ctx context.Context, id string, replacedBy *string) error {
					return mongorepo.ErrRefreshTokenNotFound
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessionsRepo{}

			if tt.sessionsSetup != nil {
				tt.sessionsSetup(sessions)
			}

			h := newAuthHandler(&fakeUsersRepo{}, sessions)
			r := setupRouter(http.MethodPost, "/auth/refresh", h.Refresh)

			req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)

			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "refresh_token", Value: tt.cookie})
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode != http.StatusOK {
				return
			}

			// the old token was revoked and a new row was stored with a
			// different JTI and hash

			if len(sessions.revoked) != 1 || sessions.revoked[0] != jti {
				t.Fatalf("expected old token %q revoked, got %v", jti, sessions.revoked)
			}

			if len(sessions.created) != 1 {
				t.Fatalf("expected one new refresh row, got %d", len(sessions.created))
			}

			newRow := sessions.created[0]

			if newRow.ID == jti || newRow.TokenHash == activeRow.TokenHash {
				t.Fatalf("rotation reused the old token")
			}

			if newRow.UserID != principal.UserID {
				t.Fatalf("new row has user %q, want %q", newRow.UserID, principal.UserID)
			}
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	manager := testJWTManager()
	raw, jti, _, err := manager.GenerateRefreshToken(auth.Principal{UserID: testUserID})

	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	tests := []struct {
		name       string
		cookie     string
		wantRevoke bool
	}{
		{name: "with valid refresh token", cookie: raw, wantRevoke: true},
		{name: "without cookie is still a 204", cookie: ""},
		{name: "garbage cookie is still a 204", cookie: "junk"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessionsRepo{}

			h := newAuthHandler(&fakeUsersRepo{}, sessions)
			r := setupRouter(http.MethodPost, "/auth/logout", h.Logout)

			req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)

			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "refresh_token", Value: tt.cookie})
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusNoContent {
				t.Fatalf("got status %d, want 204, body=%s", w.Code, w.Body.String())
			}

			if tt.wantRevoke {
				if len(sessions.revoked) != 1 || sessions.revoked[0] != jti {
					t.Fatalf("expected token %q revoked, got %v", jti, sessions.revoked)
				}
			} else if len(sessions.revoked) != 0 {
				t.Fatalf("unexpected revocations: %v", sessions.revoked)
			}

			// cookies are cleared either way
			cleared := 0
			for _, c := range w.Result().Cookies() {
				if c.MaxAge < 0 && c.Value == "" {
					cleared++
				}
			}

			if cleared != 2 {
				t.Fatalf("expected both auth cookies cleared, got %d", cleared)
			}
		})
	}
}
