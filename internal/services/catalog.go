package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/internal/apperr"
	"foodhub/internal/cache"
	"foodhub/internal/media"
	"foodhub/internal/models"
	"foodhub/internal/store"
)

type CatalogService struct {
	foods store.FoodStore
	media media.Store
	cache *cache.ListCache
	now   func() time.Time
}

// NewCatalogService accepts a nil media store (image deletes are skipped)
// and a nil or disabled cache.
func NewCatalogService(foods store.FoodStore, mediaStore media.Store, listCache *cache.ListCache) *CatalogService {
	return &CatalogService{foods: foods, media: mediaStore, cache: listCache, now: time.Now}
}

// FoodInput is shared by create and update. Nil fields are left unchanged
// on update. Images are already stored paths, newest first.
type FoodInput struct {
	Name        *string
	Description *string
	Price       *models.Money
	Category    *string
	Recipe      *models.StringList
	IsOnOffer   *bool
	OfferPrice  *models.Money
	Images      []string
}

func (s *CatalogService) Create(ctx context.Context, in FoodInput) (*models.Food, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	if in.Price == nil {
		return nil, apperr.Validation("price is required")
	}
	if in.Category == nil || strings.TrimSpace(*in.Category) == "" {
		return nil, apperr.Validation("category is required")
	}
	if len(in.Images) > models.MaxFoodImages {
		return nil, apperr.Validationf("At most %d images are allowed", models.MaxFoodImages)
	}

	now := s.now()
	food := &models.Food{
		ID:        primitive.NewObjectID(),
		Images:    append([]string{}, in.Images...),
		Recipe:    models.StringList{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyFoodInput(food, in); err != nil {
		return nil, err
	}

	if err := s.foods.CreateFood(ctx, food); err != nil {
		return nil, internal("FOOD", "create food", err)
	}
	s.cache.Invalidate(ctx)

	log.Println("[FOOD] [INFO] food created:", food.ID.Hex())
	return food, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, in FoodInput) (*models.Food, error) {
	food, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyFoodInput(food, in); err != nil {
		return nil, err
	}
	food.UpdatedAt = s.now()
	evicted := food.PrependImages(in.Images)

	if err := s.foods.ReplaceFood(ctx, food); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Food not found")
		}
		return nil, internal("FOOD", "update food", err)
	}
	for _, path := range evicted {
		s.DeleteImage(path)
	}
	s.cache.Invalidate(ctx)
	return food, nil
}

// applyFoodInput copies the set text and pricing fields onto food. Images
// are handled by the caller.
func applyFoodInput(food *models.Food, in FoodInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperr.Validation("name cannot be empty")
		}
		food.Name = name
	}
	if in.Description != nil {
		food.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if category == "" {
			return apperr.Validation("category cannot be empty")
		}
		food.Category = category
	}
	if in.Recipe != nil {
		food.Recipe = append(models.StringList{}, (*in.Recipe)...)
	}
	if err := resolveOfferUpdate(food, offerUpdate{Price: in.Price, IsOnOffer: in.IsOnOffer, OfferPrice: in.OfferPrice}); err != nil {
		return err
	}
	return nil
}

func (s *CatalogService) SetOffer(ctx context.Context, id string, isOnOffer bool, offerPrice *models.Money) (*models.Food, error) {
	return s.Update(ctx, id, FoodInput{IsOnOffer: &isOnOffer, OfferPrice: offerPrice})
}

func (s *CatalogService) Remove(ctx context.Context, id string) error {
	oid, err := parseObjectID(id, "food id")
	if err != nil {
		return err
	}
	food, err := s.foods.DeleteFood(ctx, oid)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Food not found")
	}
	if err != nil {
		return internal("FOOD", "delete food", err)
	}
	for _, path := range food.Images {
		s.DeleteImage(path)
	}
	s.cache.Invalidate(ctx)
	log.Println("[FOOD] [INFO] food removed:", oid.Hex())
	return nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Food, error) {
	return s.find(ctx, id)
}

type FoodPage struct {
	Items []models.Food `json:"items"`
	Total int64         `json:"total"`
}

func (s *CatalogService) List(ctx context.Context, filter store.FoodFilter) (*FoodPage, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Search = strings.TrimSpace(filter.Search)
	key := fmt.Sprintf("c=%s|s=%s|o=%t|p=%d|l=%d", filter.Category, filter.Search, filter.OnOffer, filter.Page, filter.Limit)

	if cached, ok := s.cache.Get(ctx, key); ok {
		var page FoodPage
		if err := json.Unmarshal(cached, &page); err == nil {
			return &page, nil
		}
	}

	items, total, err := s.foods.ListFoods(ctx, filter)
	if err != nil {
		return nil, internal("FOOD", "list foods", err)
	}
	if items == nil {
		items = []models.Food{}
	}
	page := &FoodPage{Items: items, Total: total}

	if s.cache.Enabled() {
		if payload, err := json.Marshal(page); err == nil {
			s.cache.Set(ctx, key, payload)
		}
	}
	return page, nil
}

// DeleteImage removes a stored upload, logging failures.
func (s *CatalogService) DeleteImage(path string) {
	if s.media == nil {
		return
	}
	if err := s.media.Delete(path); err != nil {
		log.Printf("[FOOD] [WARN] failed to delete image %s: %v", path, err)
	}
}

func (s *CatalogService) find(ctx context.Context, id string) (*models.Food, error) {
	oid, err := parseObjectID(id, "food id")
	if err != nil {
		return nil, err
	}
	food, err := s.foods.FindFoodByID(ctx, oid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Food not found")
	}
	if err != nil {
		return nil, internal("FOOD", "find food", err)
	}
	return food, nil
}
