package middlewares

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smartmeals/smartmeals/internal/auth"
)

// AccessTokenCookie is set at login so browser navigation works without a
// script attaching the Authorization header.
const AccessTokenCookie = "access_token"

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth gates API routes: Bearer header first, access cookie as a
// fallback; any failure is a 401.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)

		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{
						"code":    "token_expired",
						"message": "Access token expired",
					},
				})
				return
			}

			abortUnauthorized(c, "Invalid access token")
			return
		}

		setPrincipal(c, claims)

		c.Next()
	}
}

// RequireAuthOrRedirect gates browser-navigated pages. An HTML client
// without a valid token is sent to the login page carrying the original
// destination; everything else gets the plain 401.
func (m *AuthMiddleware) RequireAuthOrRedirect(loginPath string) gin.HandlerFunc {
	api := m.RequireAuth()

	return func(c *gin.Context) {
		raw := extractToken(c)

		if raw != "" {
			if claims, err := m.jwt.VerifyAccessToken(raw); err == nil {
				setPrincipal(c, claims)
				c.Next()
				return
			}
		}

		if acceptsHTML(c) {
			dest := loginPath + "?callbackUrl=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, dest)
			c.Abort()
			return
		}

		api(c)
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")

	if strings.HasPrefix(authHeader, "Bearer ") {
		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))

		if raw != "" {
			return raw
		}
	}

	cookie, err := c.Cookie(AccessTokenCookie)

	if err != nil {
		return ""
	}

	return cookie
}

func acceptsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

func setPrincipal(c *gin.Context, claims *auth.Claims) {
	c.Set(ctxUserIDKey, claims.UserID)
	c.Set(ctxEmailKey, claims.Email)
	c.Set(ctxNameKey, claims.Name)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// Helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func PrincipalFromContext(c *gin.Context) (auth.Principal, bool) {
	id, ok := UserIDFromContext(c)

	if !ok || id == "" {
		return auth.Principal{}, false
	}

	return auth.Principal{
		UserID: id,
		Name:   c.GetString(ctxNameKey),
		Email:  c.GetString(ctxEmailKey),
	}, true
}
