package services

import (
	"foodhub/internal/apperr"
	"foodhub/internal/models"
)

// offerUpdate carries the pricing fields a request may change. Nil means
// unchanged.
type offerUpdate struct {
	Price      *models.Money
	IsOnOffer  *bool
	OfferPrice *models.Money
}

func validateOfferFields(price models.Money, offerPrice *models.Money) error {
	if price <= 0 {
		return apperr.Validation("price must be greater than 0")
	}
	if offerPrice != nil && *offerPrice <= 0 {
		return apperr.Validation("offerPrice must be greater than 0")
	}
	return nil
}

// resolveOfferUpdate applies input to food. Turning the offer off clears the
// offer price; an offer without a usable price falls back to the default
// discount.
func resolveOfferUpdate(food *models.Food, input offerUpdate) error {
	price := food.Price
	if input.Price != nil {
		price = *input.Price
	}
	if err := validateOfferFields(price, input.OfferPrice); err != nil {
		return err
	}

	food.Price = price
	if input.IsOnOffer != nil {
		food.IsOnOffer = *input.IsOnOffer
	}
	if input.OfferPrice != nil {
		offer := *input.OfferPrice
		food.OfferPrice = &offer
	}
	food.NormalizeOffer()
	return nil
}
