package middlewares_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartmeals/smartmeals/internal/auth"
	"github.com/smartmeals/smartmeals/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testUserID = "66aa11bb22cc33dd44ee55ff"

func newManager(accessTTL time.Duration) *auth.Manager {
	return auth.NewManager("test-secret", accessTTL, 24*time.Hour)
}

func protectedRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw)
	r.GET("/protected", func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": id})
	})
	return r
}

func errCode(t *testing.T, body []byte) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to unmarshal error: %v body=%s", err, body)
	}

	return resp.Error.Code
}

func TestRequireAuth(t *testing.T) {
	manager := newManager(15 * time.Minute)

	validToken, _, err := manager.GenerateAccessToken(auth.Principal{UserID: testUserID, Email: "ana@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	expiredToken, _, err := newManager(-1*time.Minute).GenerateAccessToken(auth.Principal{UserID: testUserID})
	if err != nil {
		t.Fatal(err)
	}

	refreshToken, _, _, err := manager.GenerateRefreshToken(auth.Principal{UserID: testUserID})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name           string
		setup          func(req *http.Request)
		wantStatusCode int
		wantErrCode    string
	}{
		{
			name: "bearer header",
			setup: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+validToken)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "cookie fallback",
			setup: func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: middlewares.AccessTokenCookie, Value: validToken})
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "header wins over cookie",
			setup: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+validToken)
				req.AddCookie(&http.Cookie{Name: middlewares.AccessTokenCookie, Value: "garbage"})
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "no token",
			setup:          func(req *http.Request) {},
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "unauthorized",
		},
		{
			name: "garbage token",
			setup: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer not-a-jwt")
			},
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "unauthorized",
		},
		{
			name: "expired token has its own code",
			setup: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+expiredToken)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "token_expired",
		},
		{
			name: "refresh token rejected on api routes",
			setup: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+refreshToken)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "unauthorized",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := protectedRouter(middlewares.NewAuthMiddleware(manager).RequireAuth())

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.setup(req)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantErrCode != "" {
				if code := errCode(t, w.Body.Bytes()); code != tt.wantErrCode {
					t.Fatalf("got error code %q, want %q", code, tt.wantErrCode)
				}
				return
			}

			var resp struct {
				UserID string `json:"userId"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}

			if resp.UserID != testUserID {
				t.Fatalf("got userId %q, want %q", resp.UserID, testUserID)
			}
		})
	}
}

func TestRequireAuthOrRedirect(t *testing.T) {
	manager := newManager(15 * time.Minute)

	validToken, _, err := manager.GenerateAccessToken(auth.Principal{UserID: testUserID})
	if err != nil {
		t.Fatal(err)
	}

	mw := middlewares.NewAuthMiddleware(manager).RequireAuthOrRedirect("/login")

	t.Run("valid token passes through", func(t *testing.T) {
		r := protectedRouter(mw)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Accept", "text/html")
		req.AddCookie(&http.Cookie{Name: middlewares.AccessTokenCookie, Value: validToken})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("browser without token is redirected with callback", func(t *testing.T) {
		r := protectedRouter(mw)

		req := httptest.NewRequest(http.MethodGet, "/protected?date=2024-05-01", nil)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusFound {
			t.Fatalf("got status %d, want 302, body=%s", w.Code, w.Body.String())
		}

		loc := w.Header().Get("Location")

		if !strings.HasPrefix(loc, "/login?callbackUrl=") {
			t.Fatalf("got location %q", loc)
		}

		if !strings.Contains(loc, "%2Fprotected") {
			t.Fatalf("callback lost the original destination: %q", loc)
		}
	})

	t.Run("api client without token still gets a 401", func(t *testing.T) {
		r := protectedRouter(mw)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Accept", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
		}
	})
}
