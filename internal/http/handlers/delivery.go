package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smartmeals/smartmeals/internal/delivery"
)

type DeliveryCatalog interface {
	Services() []delivery.Service
	SearchRestaurants(serviceID, query string) ([]delivery.Restaurant, error)
	Menu(serviceID, restaurantID string) ([]delivery.MenuItem, error)
}

type DeliveryHandler struct {
	catalog DeliveryCatalog
}

func NewDeliveryHandler(catalog DeliveryCatalog) *DeliveryHandler {
	return &DeliveryHandler{catalog: catalog}
}

func (h *DeliveryHandler) ListServices(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"items": h.catalog.Services()})
}

func (h *DeliveryHandler) SearchRestaurants(ctx *gin.Context) {
	serviceID := ctx.Query("service")

	if serviceID == "" {
		RespondBadRequest(ctx, "Missing service", nil)
		return
	}

	restaurants, err := h.catalog.SearchRestaurants(serviceID, ctx.Query("q"))

	if err != nil {
		if errors.Is(err, delivery.ErrUnknownService) {
			RespondNotFound(ctx, "Delivery service not found")
			return
		}

		RespondInternal(ctx, "Could not search restaurants")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": restaurants,
		"count": len(restaurants),
	})
}

func (h *DeliveryHandler) GetMenu(ctx *gin.Context) {
	serviceID := ctx.Query("service")

	if serviceID == "" {
		RespondBadRequest(ctx, "Missing service", nil)
		return
	}

	items, err := h.catalog.Menu(serviceID, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, delivery.ErrUnknownService) {
			RespondNotFound(ctx, "Delivery service not found")
			return
		}

		RespondInternal(ctx, "Could not fetch menu")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": items})
}
