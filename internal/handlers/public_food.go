package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodhub/internal/services"
	"foodhub/internal/store"
)

func ListFoods(svc *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /food/list"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		onOffer := false
		if raw := c.Query("onOffer"); raw != "" {
			onOffer, err = parseBoolValue(raw)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "onOffer must be a boolean")
				return
			}
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := svc.List(ctx, store.FoodFilter{
			Category: c.Query("category"),
			Search:   c.Query("search"),
			OnOffer:  onOffer,
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, paginated(result.Items, page, limit, result.Total))
	}
}

func GetFood(svc *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /food/:id"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		food, err := svc.Get(ctx, c.Param("id"))
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": food})
	}
}
