package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodhub/internal/services"
)

func ListBikers(svc *services.BikerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /biker/list"
		defer handlePanic(c, route)

		activeOnly := false
		if raw := c.Query("active"); raw != "" {
			parsed, err := parseBoolValue(raw)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "active must be a boolean")
				return
			}
			activeOnly = parsed
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		bikers, err := svc.List(ctx, activeOnly)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": bikers})
	}
}

func AddBiker(svc *services.BikerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /biker/add"
		defer handlePanic(c, route)

		var req services.BikerInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		biker, err := svc.Add(ctx, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": biker})
	}
}

func UpdateBiker(svc *services.BikerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /biker/:id"
		defer handlePanic(c, route)

		var req services.BikerUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		biker, err := svc.Update(ctx, c.Param("id"), req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": biker})
	}
}

func RemoveBiker(svc *services.BikerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /biker/remove"
		defer handlePanic(c, route)

		var req idRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.Remove(ctx, req.ID); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Biker removed"})
	}
}
