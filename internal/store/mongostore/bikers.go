package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"foodhub/internal/models"
	"foodhub/internal/store"
)

func (s *Store) CreateBiker(ctx context.Context, biker *models.Biker) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.bikers.InsertOne(ctx, biker)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		biker.ID = id
	}
	return nil
}

func (s *Store) FindBikerByID(ctx context.Context, id primitive.ObjectID) (*models.Biker, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var biker models.Biker
	if err := s.bikers.FindOne(ctx, bson.M{"_id": id}).Decode(&biker); err != nil {
		return nil, notFound(err)
	}
	return &biker, nil
}

func (s *Store) ListBikers(ctx context.Context, activeOnly bool) ([]models.Biker, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}

	cursor, err := s.bikers.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	bikers := []models.Biker{}
	if err := cursor.All(ctx, &bikers); err != nil {
		return nil, err
	}
	return bikers, nil
}

func (s *Store) ReplaceBiker(ctx context.Context, biker *models.Biker) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.bikers.ReplaceOne(ctx, bson.M{"_id": biker.ID}, biker)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
