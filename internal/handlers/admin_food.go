package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodhub/internal/media"
	"foodhub/internal/models"
	"foodhub/internal/services"
)

type foodUpdateRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Price       *models.Money      `json:"price"`
	Category    *string            `json:"category"`
	Recipe      *models.StringList `json:"recipe"`
	IsOnOffer   *bool              `json:"isOnOffer"`
	OfferPrice  *models.Money      `json:"offerPrice"`
}

type foodOfferRequest struct {
	IsOnOffer  *bool         `json:"isOnOffer" binding:"required"`
	OfferPrice *models.Money `json:"offerPrice"`
}

type idRequest struct {
	ID string `json:"id" binding:"required"`
}

func AddFood(svc *services.CatalogService, images media.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /food/add"
		defer handlePanic(c, route)

		input, err := parseFoodForm(c, images)
		if err != nil {
			respondFormError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		food, err := svc.Create(ctx, input)
		if err != nil {
			for _, path := range input.Images {
				svc.DeleteImage(path)
			}
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Food added", "data": food})
	}
}

// UpdateFood accepts JSON for field edits or multipart when new images
// come along.
func UpdateFood(svc *services.CatalogService, images media.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /food/:id"
		defer handlePanic(c, route)

		var input services.FoodInput
		if isMultipart(c) {
			parsed, err := parseFoodForm(c, images)
			if err != nil {
				respondFormError(c, route, err)
				return
			}
			input = parsed
		} else {
			var req foodUpdateRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				respondValidationError(c, route, err)
				return
			}
			input = services.FoodInput{
				Name:        req.Name,
				Description: req.Description,
				Price:       req.Price,
				Category:    req.Category,
				Recipe:      req.Recipe,
				IsOnOffer:   req.IsOnOffer,
				OfferPrice:  req.OfferPrice,
			}
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		food, err := svc.Update(ctx, c.Param("id"), input)
		if err != nil {
			for _, path := range input.Images {
				svc.DeleteImage(path)
			}
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Food updated", "data": food})
	}
}

func SetFoodOffer(svc *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /food/:id/offer"
		defer handlePanic(c, route)

		var req foodOfferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		food, err := svc.SetOffer(ctx, c.Param("id"), *req.IsOnOffer, req.OfferPrice)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": food})
	}
}

func RemoveFood(svc *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /food/remove"
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
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Food removed"})
	}
}
