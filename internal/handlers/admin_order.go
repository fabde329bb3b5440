package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodhub/internal/services"
)

// ListOrders serves the back office order board. Orders are never deleted,
// so there is no delete route.
func ListOrders(svc *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /order/list"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		orders, total, err := svc.ListOrders(ctx, services.ListOrdersInput{Status: c.Query("status"), Page: page, Limit: limit})
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, paginated(orders, page, limit, total))
	}
}

func UpdateOrderStatus(svc *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /order/status"
		defer handlePanic(c, route)

		var req services.UpdateStatusInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.UpdateStatus(ctx, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Status updated", "order": order})
	}
}

func AssignBiker(svc *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /order/assign"
		defer handlePanic(c, route)

		var req services.AssignBikerInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.AssignBiker(ctx, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}
