package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/internal/apperr"
	"foodhub/internal/models"
	"foodhub/internal/store"
)

type CartService struct {
	carts store.CartStore
}

func NewCartService(carts store.CartStore) *CartService {
	return &CartService{carts: carts}
}

func (s *CartService) AddItem(ctx context.Context, userID, itemID string) (models.CartData, error) {
	id, err := s.validate(userID, itemID)
	if err != nil {
		return nil, err
	}
	cart, err := s.carts.AddCartItem(ctx, id, itemID)
	return s.result(cart, err, "add cart item")
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (models.CartData, error) {
	id, err := s.validate(userID, itemID)
	if err != nil {
		return nil, err
	}
	cart, err := s.carts.RemoveCartItem(ctx, id, itemID)
	return s.result(cart, err, "remove cart item")
}

func (s *CartService) GetCart(ctx context.Context, userID string) (models.CartData, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.NotFound("User not found")
	}
	cart, err := s.carts.GetCart(ctx, id)
	return s.result(cart, err, "get cart")
}

func (s *CartService) validate(userID, itemID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("User not found")
	}
	if err := models.ValidateCartItemID(itemID); err != nil {
		return primitive.NilObjectID, apperr.Validation("itemId is invalid")
	}
	return id, nil
}

func (s *CartService) result(cart models.CartData, err error, action string) (models.CartData, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, internal("CART", action, err)
	}
	return cart.Normalize(), nil
}
