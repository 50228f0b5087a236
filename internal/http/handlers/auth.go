package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartmeals/smartmeals/internal/auth"
	"github.com/smartmeals/smartmeals/internal/config"
	"github.com/smartmeals/smartmeals/internal/domain/user"
	"github.com/smartmeals/smartmeals/internal/http/middlewares"
	mongorepo "github.com/smartmeals/smartmeals/internal/repo/mongo"
	"github.com/smartmeals/smartmeals/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, row mongorepo.RefreshTokenRow) error
	Get(ctx context.Context, id string) (mongorepo.RefreshTokenRow, error)
	RevokeIfActive(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// LoginRecorder counts login outcomes. Satisfied by observability.Prom's
// auth counter via the adapter in router.go; nil in tests.
type LoginRecorder func(outcome string)

type AuthHandler struct {
	users       UserReader
	userWriter  UserWriter
	jwt         *auth.Manager
	sessions    SessionStore
	cfg         config.Config
	log         *slog.Logger
	recordLogin LoginRecorder
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwtManager *auth.Manager, sessions SessionStore, cfg config.Config, log *slog.Logger, recordLogin LoginRecorder) *AuthHandler {
	return &AuthHandler{
		users:       users,
		userWriter:  userWriter,
		jwt:         jwtManager,
		sessions:    sessions,
		cfg:         cfg,
		log:         log,
		recordLogin: recordLogin,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.userWriter.Create(cctx, req.Name, req.Email, hash)

	if err != nil {
		if errors.Is(err, mongorepo.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "register failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user registered", "user_id", u.ID.Hex())

	ctx.JSON(http.StatusCreated, gin.H{"user": u.Public()})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, mongorepo.ErrUserNotFound) {
			// unknown email still pays for a hash comparison so both
			// rejection paths take the same time
			security.BurnComparison(req.Password)
			h.countLogin("rejected")
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}

		h.countLogin("error")
		RespondInternal(ctx, "Could not log in")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.countLogin("rejected")
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	principal := auth.Principal{
		UserID: foundUser.ID.Hex(),
		Name:   foundUser.Name,
		Email:  foundUser.Email,
	}

	accessToken, accessExpiry, err := h.jwt.GenerateAccessToken(principal)

	if err != nil {
		h.countLogin("error")
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	rawRefreshToken, jti, refreshExpiry, err := h.jwt.GenerateRefreshToken(principal)

	if err != nil {
		h.countLogin("error")
		RespondInternal(ctx, "Could not generate refresh token")
		return
	}

	if err := h.storeRefreshToken(cctx, principal.UserID, jti, rawRefreshToken, refreshExpiry); err != nil {
		h.countLogin("error")
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setAccessCookie(ctx, accessToken, accessExpiry)
	h.setRefreshCookie(ctx, rawRefreshToken, refreshExpiry)

	h.countLogin("ok")
	h.log.InfoContext(ctx.Request.Context(), "user logged in", "user_id", principal.UserID)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"expiresAt":   accessExpiry,
	})
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	row, err := h.sessions.Get(cctx, claims.JTI)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	if row.RevokedAt != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	if time.Now().UTC().After(row.ExpiresAt) {
		RespondUnAuthorized(ctx, "expired_refresh", "Refresh token expired.")
		return
	}

	// verify hash matches the presented token (prevents token substitution)

	if row.TokenHash != h.jwt.HashRefreshToken(raw) {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token.")
		return
	}

	principal := claims.Principal()

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(principal)
	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	// conditional revoke is the rotation race arbiter: a reused or
	// concurrently-rotated token loses here
	err = h.sessions.RevokeIfActive(cctx, row.ID, &newJTI)

	if err != nil {
		if errors.Is(err, mongorepo.ErrRefreshTokenNotFound) {
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token.")
			return
		}

		RespondInternal(ctx, "Could not refresh session")
		return
	}

	newRow := mongorepo.RefreshTokenRow{
		ID:        newJTI,
		UserID:    row.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now().UTC(),
	}

	err = h.sessions.Create(cctx, newRow)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	accessToken, accessExpiry, err := h.jwt.GenerateAccessToken(principal)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.setAccessCookie(ctx, accessToken, accessExpiry)
	h.setRefreshCookie(ctx, newRaw, newExpiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"expiresAt":   accessExpiry,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		// still clear cookies to be safe
		h.clearAuthCookies(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.clearAuthCookies(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// revoke that one token (idempotent)
	_ = h.sessions.RevokeIfActive(cctx, claims.JTI, nil)

	h.clearAuthCookies(ctx)
	ctx.Status(http.StatusNoContent)
}

// helpers

func (h *AuthHandler) countLogin(outcome string) {
	if h.recordLogin != nil {
		h.recordLogin(outcome)
	}
}

func (h *AuthHandler) storeRefreshToken(ctx context.Context, userID, jti, raw string, expiresAt time.Time) error {
	row := mongorepo.RefreshTokenRow{
		ID:        jti,
		UserID:    userID,
		TokenHash: h.jwt.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	return h.sessions.Create(ctx, row)
}

func (h *AuthHandler) refreshCookieName() string {
	return "refresh_token"
}

func (h *AuthHandler) setAccessCookie(ctx *gin.Context, token string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		middlewares.AccessTokenCookie,
		token,
		int(time.Until(expiresAt).Seconds()),
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.refreshCookieName(),
		raw,
		maxAge,
		"/auth",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearAuthCookies(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(middlewares.AccessTokenCookie, "", -1, "/", "", secure, true)
	ctx.SetCookie(h.refreshCookieName(), "", -1, "/auth", "", secure, true)
}
