package handlers

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smartmeals/smartmeals/internal/http/middlewares"
)

var exportHeader = []string{"Name", "Description", "Calories", "DateTime", "Type", "Favorite"}

// ExportHandler streams a day's meals as a CSV download.
type ExportHandler struct {
	meals MealsStore
	log   *slog.Logger
}

func NewExportHandler(meals MealsStore, log *slog.Logger) *ExportHandler {
	return &ExportHandler{meals: meals, log: log}
}

func (h *ExportHandler) ExportCSV(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	filter, ok := parseListFilter(ctx)

	if !ok {
		return
	}

	if filter.Date == nil {
		RespondBadRequest(ctx, "Missing date", nil)
		return
	}

	cctx, cancel := requestContext(ctx, userID)

	defer cancel()

	meals, err := h.meals.List(cctx, userID, filter)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "export failed", "err", err)
		RespondInternal(ctx, "Could not export meals")
		return
	}

	filename := fmt.Sprintf("meals_%s.csv", *filter.Date)

	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Status(http.StatusOK)

	w := csv.NewWriter(ctx.Writer)

	if err := w.Write(exportHeader); err != nil {
		return
	}

	for _, m := range meals {
		favorite := "No"
		if m.IsFavorite {
			favorite = "Yes"
		}

		record := []string{
			m.Name,
			m.Description,
			strconv.Itoa(m.Calories),
			m.DateTime.In(filter.Loc).Format("2006-01-02 15:04"),
			string(m.Type),
			favorite,
		}

		if err := w.Write(record); err != nil {
			return
		}
	}

	w.Flush()
}
