package database

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect dials MongoDB and verifies the primary is reachable.
func Connect(uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("MONGO_URI is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Println("[DB] [INFO] mongo connection established")
	return client, nil
}

// EnsureIndexes creates every index the stores rely on.
func EnsureIndexes(db *mongo.Database) {
	steps := []struct {
		name string
		fn   func(*mongo.Database) error
	}{
		{"user", EnsureUserIndexes},
		{"order", EnsureOrderIndexes},
		{"food", EnsureFoodIndexes},
	}
	for _, step := range steps {
		if err := step.fn(db); err != nil {
			log.Printf("[DB] [WARN] %s index warning: %v", step.name, err)
		}
	}
}
