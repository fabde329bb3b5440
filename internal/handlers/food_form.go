package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"foodhub/internal/media"
	"foodhub/internal/models"
	"foodhub/internal/services"
)

const maxFormMemory = 32 << 20

/*
=======================
  FORM PARSER
=======================
*/

// parseFoodForm reads a multipart food form. Only fields present in the
// form are set. Uploaded images are saved before returning; the caller
// deletes the returned paths if the request fails later.
func parseFoodForm(c *gin.Context, store media.Store) (services.FoodInput, error) {
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
		return services.FoodInput{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	var input services.FoodInput

	// ---- TEXT FIELDS ----

	if value, ok := c.GetPostForm("name"); ok {
		input.Name = &value
	}
	if value, ok := c.GetPostForm("description"); ok {
		input.Description = &value
	}
	if value, ok := c.GetPostForm("category"); ok {
		input.Category = &value
	}
	if values := c.PostFormArray("recipe"); len(values) > 0 {
		recipe, err := parseRecipe(values)
		if err != nil {
			return services.FoodInput{}, err
		}
		input.Recipe = &recipe
	}

	// ---- MONEY FIELDS ----

	if value, ok := c.GetPostForm("price"); ok {
		price, err := models.ParseMoney(value)
		if err != nil {
			return services.FoodInput{}, fmt.Errorf("price: %w", err)
		}
		input.Price = &price
	}
	if value, ok := lastPostForm(c, "offerPrice"); ok && strings.TrimSpace(value) != "" {
		offer, err := models.ParseMoney(value)
		if err != nil {
			return services.FoodInput{}, fmt.Errorf("offerPrice: %w", err)
		}
		input.OfferPrice = &offer
	}

	// ---- BOOL FIELDS ----

	// checkbox forms send a hidden "false" followed by "true"; the last wins
	if value, ok := lastPostForm(c, "isOnOffer"); ok {
		parsed, err := parseBoolValue(value)
		if err != nil {
			return services.FoodInput{}, fmt.Errorf("isOnOffer: %w", err)
		}
		input.IsOnOffer = &parsed
	}

	// ---- IMAGE FILES ----

	files := formFiles(c.Request.MultipartForm, "images", "image")
	if len(files) > models.MaxFoodImages {
		return services.FoodInput{}, fmt.Errorf("at most %d images are allowed", models.MaxFoodImages)
	}
	if len(files) > 0 && store == nil {
		return services.FoodInput{}, errors.New("image uploads are not configured")
	}
	for _, file := range files {
		path, err := store.Save(file)
		if err != nil {
			discardImages(store, input.Images)
			return services.FoodInput{}, err
		}
		input.Images = append(input.Images, path)
	}

	return input, nil
}

/*
=======================
  HELPERS
=======================
*/

func formFiles(form *multipart.Form, fields ...string) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	var files []*multipart.FileHeader
	for _, field := range fields {
		files = append(files, form.File[field]...)
	}
	return files
}

func lastPostForm(c *gin.Context, key string) (string, bool) {
	values, ok := c.GetPostFormArray(key)
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

// parseRecipe accepts repeated fields, a single text block or a JSON array.
func parseRecipe(values []string) (models.StringList, error) {
	if len(values) == 1 {
		single := strings.TrimSpace(values[0])
		if strings.HasPrefix(single, "[") {
			var steps models.StringList
			if err := json.Unmarshal([]byte(single), &steps); err != nil {
				return nil, fmt.Errorf("recipe: %w", err)
			}
			return steps, nil
		}
	}
	steps := make(models.StringList, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			steps = append(steps, trimmed)
		}
	}
	return steps, nil
}

func parseBoolValue(value string) (bool, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "on" {
		return true, nil
	}
	return strconv.ParseBool(value)
}

func discardImages(store media.Store, paths []string) {
	for _, path := range paths {
		_ = store.Delete(path)
	}
}

func respondFormError(c *gin.Context, route string, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, media.ErrImageTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	respondWithError(c, status, route, err.Error())
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}
