package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/internal/models"
	"foodhub/internal/store"
)

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.CreateUser(ctx, &models.User{Email: "a@example.com"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(ctx, &models.User{Email: "a@example.com"}); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if err := s.CreateUser(ctx, &models.User{Email: "A@example.com"}); err != nil {
		t.Fatalf("emails are case-sensitive, got %v", err)
	}
}

func TestReturnedUsersAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := &models.User{Email: "a@example.com"}
	_ = s.CreateUser(ctx, user)

	loaded, _ := s.FindUserByID(ctx, user.ID)
	loaded.CartData.Add("x")
	loaded.Name = "changed"

	again, _ := s.FindUserByID(ctx, user.ID)
	if again.Name == "changed" || len(again.CartData) != 0 {
		t.Fatalf("store state leaked through returned value: %+v", again)
	}
}

func TestRecordFailedLoginLocksAtThreshold(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := &models.User{Email: "a@example.com"}
	_ = s.CreateUser(ctx, user)

	policy := store.LockoutPolicy{Threshold: 3, Duration: time.Hour}
	now := time.Now()
	var updated *models.User
	for i := 0; i < 3; i++ {
		updated, _ = s.RecordFailedLogin(ctx, user.ID, policy, now)
	}
	if updated.LoginAttempts != 0 || !updated.IsLocked(now) {
		t.Fatalf("expected lock with reset counter, got %+v", updated)
	}
	if _, err := s.RecordFailedLogin(ctx, primitive.NewObjectID(), policy, now); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateOrderHonoursGuard(t *testing.T) {
	s := New()
	ctx := context.Background()
	order := &models.Order{Status: models.StatusCancelled}
	_ = s.CreateOrder(ctx, order)

	status := models.StatusFoodProcessing
	_, err := s.UpdateOrder(ctx, order.ID, store.OrderPatch{Status: &status}, store.OrderGuard{NotTerminal: true}, time.Now())
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	updated, err := s.UpdateOrder(ctx, order.ID, store.OrderPatch{Status: &status}, store.OrderGuard{}, time.Now())
	if err != nil || updated.Status != status {
		t.Fatalf("expected unguarded update to apply, got %+v %v", updated, err)
	}
}

func TestListFoodsPaginatesNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		_ = s.CreateFood(ctx, &models.Food{Name: string(rune('a' + i)), Category: "Rolls", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	page, total, err := s.ListFoods(ctx, store.FoodFilter{Category: "Rolls", Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListFoods: %v", err)
	}
	if total != 5 || len(page) != 2 || page[0].Name != "e" {
		t.Fatalf("unexpected page total=%d items=%+v", total, page)
	}

	page, _, _ = s.ListFoods(ctx, store.FoodFilter{Page: 4, Limit: 2})
	if len(page) != 0 {
		t.Fatalf("expected empty page, got %d", len(page))
	}
}

func TestSetUserActiveRevokesTokens(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	user := &models.User{Email: "a@example.com", IsActive: true, RefreshTokens: []models.RefreshToken{
		{TokenHash: "h1", IsActive: true, ExpiresAt: now.Add(time.Hour)},
	}}
	_ = s.CreateUser(ctx, user)

	if err := s.SetUserActive(ctx, user.ID, false, now); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}
	loaded, _ := s.FindUserByID(ctx, user.ID)
	if loaded.IsActive || loaded.HasUsableRefreshToken("h1", now) {
		t.Fatalf("expected inactive user without sessions, got %+v", loaded)
	}
	if err := s.SetUserActive(ctx, primitive.NewObjectID(), true, now); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateOrderStatusGuard(t *testing.T) {
	s := New()
	ctx := context.Background()
	order := &models.Order{Status: models.StatusCancelled}
	_ = s.CreateOrder(ctx, order)

	processing := models.StatusFoodProcessing
	patch := store.OrderPatch{Status: &processing}
	if _, err := s.UpdateOrder(ctx, order.ID, patch, store.OrderGuard{Status: models.StatusPaymentFailed}, time.Now()); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for a status mismatch, got %v", err)
	}
	updated, err := s.UpdateOrder(ctx, order.ID, patch, store.OrderGuard{Status: models.StatusCancelled, Unpaid: true}, time.Now())
	if err != nil || updated.Status != models.StatusFoodProcessing {
		t.Fatalf("expected pinned update to apply, got %+v err=%v", updated, err)
	}
}
