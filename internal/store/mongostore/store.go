// Package mongostore implements store.Store on MongoDB. Counters and token
// lists are changed with single-document update operators so concurrent
// requests for the same user do not lose writes.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"foodhub/internal/store"
)

const opTimeout = 5 * time.Second

type Store struct {
	db     *mongo.Database
	users  *mongo.Collection
	foods  *mongo.Collection
	orders *mongo.Collection
	bikers *mongo.Collection
}

var _ store.Store = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{
		db:     db,
		users:  db.Collection("users"),
		foods:  db.Collection("foods"),
		orders: db.Collection("orders"),
		bikers: db.Collection("bikers"),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return s.db.Client().Ping(checkCtx, readpref.Primary())
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func returnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func pageOptions(page, limit int64) *options.FindOptions {
	opts := options.Find()
	if limit > 0 {
		if page < 1 {
			page = 1
		}
		opts.SetSkip((page - 1) * limit).SetLimit(limit)
	}
	return opts
}

func arrayFilter(filter bson.M) *options.UpdateOptions {
	return options.Update().SetArrayFilters(options.ArrayFilters{Filters: []interface{}{filter}})
}
