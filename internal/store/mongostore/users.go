package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"foodhub/internal/models"
	"foodhub/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if user.CartData == nil {
		user.CartData = models.CartData{}
	}
	if user.RefreshTokens == nil {
		user.RefreshTokens = []models.RefreshToken{}
	}

	res, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// RecordFailedLogin runs as one pipeline update: increment, then lock and
// reset when the new value reaches the threshold.
func (s *Store) RecordFailedLogin(ctx context.Context, id primitive.ObjectID, policy store.LockoutPolicy, now time.Time) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	reached := bson.M{"$gte": bson.A{"$loginAttempts", policy.Threshold}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"loginAttempts": bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$loginAttempts", 0}}, 1}},
			"updatedAt":     now,
		}}},
		{{Key: "$set", Value: bson.M{
			"lockUntil":     bson.M{"$cond": bson.A{reached, now.Add(policy.Duration), "$lockUntil"}},
			"loginAttempts": bson.M{"$cond": bson.A{reached, 0, "$loginAttempts"}},
		}}},
	}

	var user models.User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, returnAfter()).Decode(&user)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func usableTokensExpr(now time.Time) bson.M {
	return bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{"$refreshTokens", bson.A{}}},
		"as":    "t",
		"cond": bson.M{"$and": bson.A{
			bson.M{"$eq": bson.A{"$$t.isActive", true}},
			bson.M{"$gt": bson.A{"$$t.expiresAt", now}},
		}},
	}}
}

func (s *Store) RecordLogin(ctx context.Context, id primitive.ObjectID, token models.RefreshToken, now time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	entry := bson.M{
		"tokenHash": token.TokenHash,
		"createdAt": token.CreatedAt,
		"expiresAt": token.ExpiresAt,
		"isActive":  token.IsActive,
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"loginAttempts": 0,
			"lastLogin":     now,
			"updatedAt":     now,
			"refreshTokens": bson.M{"$concatArrays": bson.A{usableTokensExpr(now), bson.A{entry}}},
		}}},
		{{Key: "$unset", Value: "lockUntil"}},
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, pipeline)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) PruneRefreshTokens(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	update := bson.M{"$pull": bson.M{"refreshTokens": bson.M{"$or": bson.A{
		bson.M{"isActive": false},
		bson.M{"expiresAt": bson.M{"$lte": now}},
	}}}}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeactivateRefreshToken(ctx context.Context, id primitive.ObjectID, tokenHash string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id, "refreshTokens.tokenHash": tokenHash},
		bson.M{"$set": bson.M{"refreshTokens.$[t].isActive": false}},
		arrayFilter(bson.M{"t.tokenHash": tokenHash}),
	)
	return err
}

func (s *Store) DeactivateAllRefreshTokens(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"refreshTokens.$[].isActive": false}},
	)
	return err
}

func (s *Store) SetUserActive(ctx context.Context, id primitive.ObjectID, active bool, now time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{"isActive": active, "updatedAt": now}
	if !active {
		set["refreshTokens.$[].isActive"] = false
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetEmailVerification(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"emailVerificationHash":    tokenHash,
		"emailVerificationExpires": expires,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) MarkEmailVerified(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"emailVerificationHash":    tokenHash,
		"emailVerificationExpires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"emailVerified": true, "updatedAt": now},
		"$unset": bson.M{"emailVerificationHash": "", "emailVerificationExpires": ""},
	}

	var user models.User
	if err := s.users.FindOneAndUpdate(ctx, filter, update, returnAfter()).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}
