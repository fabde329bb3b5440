package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "emailVerificationHash", Value: 1}},
			Options: options.Index().
				SetName("email_verification_hash").
				SetSparse(true),
		},
	}

	log.Println("[DB] [INFO] EnsureUserIndexes: creating email_unique, email_verification_hash")
	if _, err := indexes.CreateMany(ctx, models); err != nil {
		log.Println("[DB] [ERROR] EnsureUserIndexes:", err)
		return err
	}
	return nil
}

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("userId_date"),
		},
		{
			Keys: bson.D{{Key: "paymentRef", Value: 1}},
			Options: options.Index().
				SetName("paymentRef_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"paymentRef": bson.M{"$exists": true},
				}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("status_index"),
		},
	}

	log.Println("[DB] [INFO] EnsureOrderIndexes: creating userId_date, paymentRef_unique, status_index")
	if _, err := indexes.CreateMany(ctx, models); err != nil {
		log.Println("[DB] [ERROR] EnsureOrderIndexes:", err)
		return err
	}
	return nil
}

func EnsureFoodIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("foods").Indexes()

	categoryIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("category_createdAt"),
	}

	log.Println("[DB] [INFO] EnsureFoodIndexes: creating category_createdAt")
	if _, err := indexes.CreateOne(ctx, categoryIndex); err != nil {
		log.Println("[DB] [ERROR] EnsureFoodIndexes:", err)
		return err
	}
	return nil
}
