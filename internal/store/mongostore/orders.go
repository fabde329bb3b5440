package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"foodhub/internal/models"
	"foodhub/internal/store"
)

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.orders.InsertOne(ctx, order)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func (s *Store) FindOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var order models.Order
	if err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (s *Store) FindOrderByPaymentRef(ctx context.Context, ref string) (*models.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var order models.Order
	if err := s.orders.FindOne(ctx, bson.M{"paymentRef": ref}).Decode(&order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if filter.UserID != nil {
		query["userId"] = *filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	total, err := s.orders.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := pageOptions(filter.Page, filter.Limit).SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := s.orders.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func patchDocument(patch store.OrderPatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Payment != nil {
		set["payment"] = *patch.Payment
	}
	if patch.PaymentRef != nil {
		set["paymentRef"] = *patch.PaymentRef
	}
	if patch.StkPushDetails != nil {
		set["stkPushDetails"] = *patch.StkPushDetails
	}
	if patch.PaymentConfirmation != nil {
		set["paymentConfirmation"] = *patch.PaymentConfirmation
	}
	if patch.PaymentFailure != nil {
		set["paymentFailure"] = *patch.PaymentFailure
	}
	if patch.CancelledBy != nil {
		set["cancelledBy"] = *patch.CancelledBy
	}
	if patch.RefundDue != nil {
		set["refundDue"] = *patch.RefundDue
	}
	if patch.BikerID != nil {
		set["bikerId"] = *patch.BikerID
	}
	if patch.DeliveredAt != nil {
		set["deliveredAt"] = *patch.DeliveredAt
	}
	return bson.M{"$set": set}
}

func guardFilter(id primitive.ObjectID, guard store.OrderGuard) bson.M {
	filter := bson.M{"_id": id}
	switch {
	case guard.Status != "":
		filter["status"] = guard.Status
	case guard.NotTerminal:
		filter["status"] = bson.M{"$nin": bson.A{models.StatusDelivered, models.StatusCancelled}}
	}
	if guard.Unpaid {
		filter["payment"] = false
	}
	return filter
}

func (s *Store) UpdateOrder(ctx context.Context, id primitive.ObjectID, patch store.OrderPatch, guard store.OrderGuard, now time.Time) (*models.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var order models.Order
	err := s.orders.FindOneAndUpdate(ctx, guardFilter(id, guard), patchDocument(patch, now), returnAfter()).Decode(&order)
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	count, countErr := s.orders.CountDocuments(ctx, bson.M{"_id": id})
	if countErr != nil {
		return nil, countErr
	}
	if count == 0 {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrConflict
}
