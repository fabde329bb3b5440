package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"foodhub/internal/models"
	"foodhub/internal/store"
)

// cartField assumes itemID already passed models.ValidateCartItemID.
func cartField(itemID string) string {
	return "cartData." + itemID
}

func (s *Store) AddCartItem(ctx context.Context, userID primitive.ObjectID, itemID string) (models.CartData, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user models.User
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$inc": bson.M{cartField(itemID): 1}},
		returnAfter().SetProjection(bson.M{"cartData": 1}),
	).Decode(&user)
	if err != nil {
		return nil, notFound(err)
	}
	return user.CartData.Normalize(), nil
}

// RemoveCartItem decrements when the quantity is above one and unsets the
// key otherwise. Each step is a conditional single-document update.
func (s *Store) RemoveCartItem(ctx context.Context, userID primitive.ObjectID, itemID string) (models.CartData, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	field := cartField(itemID)
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID, field: bson.M{"$gt": 1}},
		bson.M{"$inc": bson.M{field: -1}},
	)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		if _, err := s.users.UpdateOne(ctx,
			bson.M{"_id": userID, field: bson.M{"$exists": true}},
			bson.M{"$unset": bson.M{field: ""}},
		); err != nil {
			return nil, err
		}
	}
	return s.GetCart(ctx, userID)
}

func (s *Store) GetCart(ctx context.Context, userID primitive.ObjectID) (models.CartData, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user models.User
	err := s.users.FindOne(ctx,
		bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"cartData": 1}),
	).Decode(&user)
	if err != nil {
		return nil, notFound(err)
	}
	return user.CartData.Normalize(), nil
}

func (s *Store) ClearCart(ctx context.Context, userID primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"cartData": bson.M{}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
