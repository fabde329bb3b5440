package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// MaxFoodImages caps the gallery of a catalog item.
	MaxFoodImages = 5
	// DefaultOfferPercent derives an offer price when none is usable.
	DefaultOfferPercent = 80
)

type Food struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Price       Money              `bson:"price" json:"price"`
	Category    string             `bson:"category" json:"category"`
	Images      []string           `bson:"images" json:"images"`
	IsOnOffer   bool               `bson:"isOnOffer" json:"isOnOffer"`
	OfferPrice  *Money             `bson:"offerPrice" json:"offerPrice"`
	Recipe      StringList         `bson:"recipe" json:"recipe"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeOffer clears the offer price when the item is not on offer and
// derives one when it is on offer without a price below the list price.
func (f *Food) NormalizeOffer() {
	if !f.IsOnOffer {
		f.OfferPrice = nil
		return
	}
	if f.OfferPrice == nil || *f.OfferPrice <= 0 || *f.OfferPrice >= f.Price {
		derived := f.Price.Percent(DefaultOfferPercent)
		f.OfferPrice = &derived
	}
}

// EffectivePrice is the unit price charged at checkout.
func (f Food) EffectivePrice() Money {
	if f.IsOnOffer && f.OfferPrice != nil && *f.OfferPrice > 0 && *f.OfferPrice < f.Price {
		return *f.OfferPrice
	}
	return f.Price
}

// PrependImages puts the newest images first and returns the ones pushed
// past MaxFoodImages so the caller can delete them from storage.
func (f *Food) PrependImages(images []string) []string {
	merged := make([]string, 0, len(images)+len(f.Images))
	merged = append(merged, images...)
	merged = append(merged, f.Images...)
	if len(merged) <= MaxFoodImages {
		f.Images = merged
		return nil
	}
	f.Images = merged[:MaxFoodImages]
	return append([]string(nil), merged[MaxFoodImages:]...)
}
