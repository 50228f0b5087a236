package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartmeals/smartmeals/internal/actorctx"
	"github.com/smartmeals/smartmeals/internal/domain/meal"
	"github.com/smartmeals/smartmeals/internal/http/middlewares"
)

type MealsStore interface {
	Create(ctx context.Context, userID string, req meal.WriteRequest) (meal.Meal, error)
	List(ctx context.Context, userID string, filter meal.ListFilter) ([]meal.Meal, error)
	GetByID(ctx context.Context, userID, mealID string) (meal.Meal, error)
	Update(ctx context.Context, userID, mealID string, req meal.WriteRequest) (meal.Meal, error)
	Delete(ctx context.Context, userID, mealID string) error
	ToggleFavorite(ctx context.Context, userID, mealID string) (bool, error)
}

type MealsHandler struct {
	repo MealsStore
	log  *slog.Logger
}

func NewMealsHandler(repo MealsStore, log *slog.Logger) *MealsHandler {
	return &MealsHandler{repo: repo, log: log}
}

// requestContext scopes the storage call and stamps the acting user for
// downstream logging.
func requestContext(ctx *gin.Context, userID string) (context.Context, context.CancelFunc) {
	return context.WithTimeout(actorctx.WithUserID(ctx.Request.Context(), userID), 3*time.Second)
}

// parseListFilter reads the optional date, type and tz query params.
// The date window is interpreted in the caller's zone, not the server's.
func parseListFilter(ctx *gin.Context) (meal.ListFilter, bool) {
	var filter meal.ListFilter

	loc := time.UTC

	if tz := ctx.Query("tz"); tz != "" {
		parsed, err := time.LoadLocation(tz)

		if err != nil {
			RespondBadRequest(ctx, "Unknown timezone", gin.H{"tz": tz})
			return filter, false
		}

		loc = parsed
	}

	filter.Loc = loc

	if date := ctx.Query("date"); date != "" {
		if _, _, err := meal.DayWindow(date, loc); err != nil {
			RespondBadRequest(ctx, "Invalid date", gin.H{"date": date})
			return filter, false
		}

		filter.Date = &date
	}

	if t := ctx.Query("type"); t != "" {
		mealType := meal.Type(t)

		if !meal.ValidType(mealType) {
			RespondBadRequest(ctx, "Unknown meal type", gin.H{"type": t})
			return filter, false
		}

		filter.Type = &mealType
	}

	return filter, true
}

func (h *MealsHandler) CreateMeal(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req meal.WriteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, userID)

	defer cancel()

	m, err := h.repo.Create(cctx, userID, req)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "create meal failed", "err", err)
		RespondInternal(ctx, "Could not create meal")
		return
	}

	ctx.JSON(http.StatusCreated, m)
}

func (h *MealsHandler) ListMeals(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	filter, ok := parseListFilter(ctx)

	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx, userID)

	defer cancel()

	meals, err := h.repo.List(cctx, userID, filter)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list meals failed", "err", err)
		RespondInternal(ctx, "Could not list meals")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": meals,
		"count": len(meals),
	})
}

func (h *MealsHandler) GetMealById(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := requestContext(ctx, userID)

	defer cancel()

	m, err := h.repo.GetByID(cctx, userID, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, meal.ErrNotFound) {
			RespondNotFound(ctx, "Meal not found")
			return
		}
		RespondInternal(ctx, "Could not fetch meal")
		return
	}

	ctx.JSON(http.StatusOK, m)
}

func (h *MealsHandler) UpdateMeal(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req meal.WriteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, userID)

	defer cancel()

	m, err := h.repo.Update(cctx, userID, ctx.Param("id"), req)

	if err != nil {
		if errors.Is(err, meal.ErrNotFound) {
			RespondNotFound(ctx, "Meal not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "update meal failed", "err", err)
		RespondInternal(ctx, "Could not update meal")
		return
	}

	ctx.JSON(http.StatusOK, m)
}

func (h *MealsHandler) DeleteMeal(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := requestContext(ctx, userID)

	defer cancel()

	err := h.repo.Delete(cctx, userID, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, meal.ErrNotFound) {
			RespondNotFound(ctx, "Meal not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "delete meal failed", "err", err)
		RespondInternal(ctx, "Could not delete meal")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *MealsHandler) ToggleFavorite(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := requestContext(ctx, userID)

	defer cancel()

	isFavorite, err := h.repo.ToggleFavorite(cctx, userID, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, meal.ErrNotFound) {
			RespondNotFound(ctx, "Meal not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "toggle favorite failed", "err", err)
		RespondInternal(ctx, "Could not update favorite")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"isFavorite": isFavorite})
}
