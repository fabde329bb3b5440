package mongostore

import (
	"context"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/internal/models"
	"foodhub/internal/store"
)

func (s *Store) CreateFood(ctx context.Context, food *models.Food) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.foods.InsertOne(ctx, food)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		food.ID = id
	}
	return nil
}

func (s *Store) FindFoodByID(ctx context.Context, id primitive.ObjectID) (*models.Food, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var food models.Food
	if err := s.foods.FindOne(ctx, bson.M{"_id": id}).Decode(&food); err != nil {
		return nil, notFound(err)
	}
	return &food, nil
}

func (s *Store) FindFoodsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Food, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := s.foods.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	foods := []models.Food{}
	if err := cursor.All(ctx, &foods); err != nil {
		return nil, err
	}
	return foods, nil
}

func (s *Store) ListFoods(ctx context.Context, filter store.FoodFilter) ([]models.Food, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.OnOffer {
		query["isOnOffer"] = true
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := regexp.QuoteMeta(search)
		query["$or"] = []bson.M{
			{"name": bson.M{"$regex": pattern, "$options": "i"}},
			{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}

	total, err := s.foods.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := pageOptions(filter.Page, filter.Limit).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.foods.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	foods := []models.Food{}
	if err := cursor.All(ctx, &foods); err != nil {
		return nil, 0, err
	}
	return foods, total, nil
}

func (s *Store) ReplaceFood(ctx context.Context, food *models.Food) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.foods.ReplaceOne(ctx, bson.M{"_id": food.ID}, food)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteFood(ctx context.Context, id primitive.ObjectID) (*models.Food, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var food models.Food
	if err := s.foods.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&food); err != nil {
		return nil, notFound(err)
	}
	return &food, nil
}
