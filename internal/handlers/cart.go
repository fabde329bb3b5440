package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"foodhub/internal/middleware"
	"foodhub/internal/models"
	"foodhub/internal/services"
)

type cartItemRequest struct {
	ItemID string `json:"itemId" binding:"required"`
}

func AddToCart(svc *services.CartService) gin.HandlerFunc {
	return cartMutation("POST /cart/add", svc.AddItem)
}

func RemoveFromCart(svc *services.CartService) gin.HandlerFunc {
	return cartMutation("POST /cart/remove", svc.RemoveItem)
}

func cartMutation(route string, apply func(ctx context.Context, userID, itemID string) (models.CartData, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		var req cartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		cart, err := apply(ctx, middleware.UserID(c), req.ItemID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cartData": cart})
	}
}

func GetCart(svc *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/get"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		cart, err := svc.GetCart(ctx, middleware.UserID(c))
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cartData": cart})
	}
}
