package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smartmeals/smartmeals/internal/domain/goal"
	"github.com/smartmeals/smartmeals/internal/http/middlewares"
)

type GoalsStore interface {
	Upsert(ctx context.Context, userID, date string, calories int) (goal.DailyGoal, error)
	Get(ctx context.Context, userID, date string) (goal.DailyGoal, error)
}

type GoalsHandler struct {
	repo GoalsStore
	log  *slog.Logger
}

func NewGoalsHandler(repo GoalsStore, log *slog.Logger) *GoalsHandler {
	return &GoalsHandler{repo: repo, log: log}
}

type SetGoalRequest struct {
	Date     string `json:"date" binding:"required,datetime=2006-01-02"`
	Calories int    `json:"calories" binding:"required,gt=0"`
}

// GetGoal returns the stored goal for ?date=, or the 2000 kcal default when
// the user never set one.
func (h *GoalsHandler) GetGoal(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	date := ctx.Query("date")

	if date == "" {
		RespondBadRequest(ctx, "Missing date", nil)
		return
	}

	cctx, cancel := requestContext(ctx, userID)

	defer cancel()

	g, err := h.repo.Get(cctx, userID, date)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "get goal failed", "err", err)
		RespondInternal(ctx, "Could not fetch goal")
		return
	}

	ctx.JSON(http.StatusOK, g)
}

func (h *GoalsHandler) SetGoal(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req SetGoalRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, userID)

	defer cancel()

	g, err := h.repo.Upsert(cctx, userID, req.Date, req.Calories)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "set goal failed", "err", err)
		RespondInternal(ctx, "Could not save goal")
		return
	}

	ctx.JSON(http.StatusOK, g)
}
