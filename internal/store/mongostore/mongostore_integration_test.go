//go:build integration

package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/internal/database"
	"foodhub/internal/models"
	"foodhub/internal/store"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForLog("Waiting for connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start mongo container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client, err := database.Connect(fmt.Sprintf("mongodb://%s:%s", host, port.Port()))
	if err != nil {
		t.Fatalf("Failed to connect to mongo: %v", err)
	}
	db := client.Database("foodhub_test")
	database.EnsureIndexes(db)

	cleanup := func() {
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("Failed to disconnect: %v", err)
		}
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}
	return New(db), cleanup
}

func newUser(email string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		Name:         "Alice",
		Email:        email,
		PasswordHash: "hash",
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMongoStore(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("duplicate email", func(t *testing.T) {
		if err := s.CreateUser(ctx, newUser("dup@example.com")); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		err := s.CreateUser(ctx, newUser("dup@example.com"))
		if !errors.Is(err, store.ErrDuplicateEmail) {
			t.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}
	})

	t.Run("lockout counter", func(t *testing.T) {
		user := newUser("lock@example.com")
		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		policy := store.LockoutPolicy{Threshold: 5, Duration: 2 * time.Hour}
		now := time.Now().UTC()

		var updated *models.User
		var err error
		for i := 0; i < 4; i++ {
			updated, err = s.RecordFailedLogin(ctx, user.ID, policy, now)
			if err != nil {
				t.Fatalf("RecordFailedLogin: %v", err)
			}
		}
		if updated.LoginAttempts != 4 || updated.IsLocked(now) {
			t.Fatalf("expected 4 attempts and unlocked, got %+v", updated)
		}

		updated, err = s.RecordFailedLogin(ctx, user.ID, policy, now)
		if err != nil {
			t.Fatalf("RecordFailedLogin: %v", err)
		}
		if updated.LoginAttempts != 0 || !updated.IsLocked(now) {
			t.Fatalf("expected locked with counter reset, got %+v", updated)
		}

		token := models.RefreshToken{TokenHash: "h1", CreatedAt: now, ExpiresAt: now.Add(time.Hour), IsActive: true}
		if err := s.RecordLogin(ctx, user.ID, token, now); err != nil {
			t.Fatalf("RecordLogin: %v", err)
		}
		reloaded, _ := s.FindUserByID(ctx, user.ID)
		if reloaded.LockUntil != nil || reloaded.LoginAttempts != 0 || len(reloaded.RefreshTokens) != 1 {
			t.Fatalf("unexpected user after login: %+v", reloaded)
		}
	})

	t.Run("refresh token deactivation", func(t *testing.T) {
		user := newUser("tokens@example.com")
		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		now := time.Now().UTC()
		for _, hash := range []string{"a", "b"} {
			token := models.RefreshToken{TokenHash: hash, CreatedAt: now, ExpiresAt: now.Add(time.Hour), IsActive: true}
			if err := s.RecordLogin(ctx, user.ID, token, now); err != nil {
				t.Fatalf("RecordLogin: %v", err)
			}
		}
		if err := s.DeactivateRefreshToken(ctx, user.ID, "a"); err != nil {
			t.Fatalf("DeactivateRefreshToken: %v", err)
		}
		reloaded, _ := s.FindUserByID(ctx, user.ID)
		if reloaded.HasUsableRefreshToken("a", now) || !reloaded.HasUsableRefreshToken("b", now) {
			t.Fatalf("unexpected tokens %+v", reloaded.RefreshTokens)
		}
		if err := s.DeactivateAllRefreshTokens(ctx, user.ID); err != nil {
			t.Fatalf("DeactivateAllRefreshTokens: %v", err)
		}
		if err := s.PruneRefreshTokens(ctx, user.ID, now); err != nil {
			t.Fatalf("PruneRefreshTokens: %v", err)
		}
		reloaded, _ = s.FindUserByID(ctx, user.ID)
		if len(reloaded.RefreshTokens) != 0 {
			t.Fatalf("expected pruned tokens, got %+v", reloaded.RefreshTokens)
		}
	})

	t.Run("concurrent cart adds", func(t *testing.T) {
		user := newUser("cart@example.com")
		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.AddCartItem(ctx, user.ID, "food123"); err != nil {
					t.Errorf("AddCartItem: %v", err)
				}
			}()
		}
		wg.Wait()

		cart, err := s.GetCart(ctx, user.ID)
		if err != nil || cart["food123"] != 20 {
			t.Fatalf("expected 20, got %v %v", cart, err)
		}
		for i := 0; i < 25; i++ {
			if cart, err = s.RemoveCartItem(ctx, user.ID, "food123"); err != nil {
				t.Fatalf("RemoveCartItem: %v", err)
			}
		}
		if len(cart) != 0 {
			t.Fatalf("expected empty cart, got %v", cart)
		}
	})

	t.Run("order guard", func(t *testing.T) {
		order := &models.Order{
			UserID: primitive.NewObjectID(),
			Status: models.StatusFoodProcessing,
			Date:   time.Now().UTC(),
		}
		if err := s.CreateOrder(ctx, order); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		delivered := models.StatusDelivered
		guard := store.OrderGuard{NotTerminal: true}
		if _, err := s.UpdateOrder(ctx, order.ID, store.OrderPatch{Status: &delivered}, guard, time.Now()); err != nil {
			t.Fatalf("UpdateOrder: %v", err)
		}
		processing := models.StatusFoodProcessing
		_, err := s.UpdateOrder(ctx, order.ID, store.OrderPatch{Status: &processing}, guard, time.Now())
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		_, err = s.UpdateOrder(ctx, primitive.NewObjectID(), store.OrderPatch{Status: &processing}, guard, time.Now())
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("paid after checkout cancel", func(t *testing.T) {
		order := &models.Order{
			UserID:      primitive.NewObjectID(),
			Status:      models.StatusCancelled,
			CancelledBy: models.CancelledByPayment,
			PaymentRef:  "cs_cancelled",
			Date:        time.Now().UTC(),
		}
		if err := s.CreateOrder(ctx, order); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		paid := true
		processing := models.StatusFoodProcessing
		cleared := ""
		patch := store.OrderPatch{Payment: &paid, Status: &processing, CancelledBy: &cleared}

		_, err := s.UpdateOrder(ctx, order.ID, patch, store.OrderGuard{Unpaid: true, Status: models.StatusPaymentFailed}, time.Now())
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("expected ErrConflict for a status mismatch, got %v", err)
		}
		updated, err := s.UpdateOrder(ctx, order.ID, patch, store.OrderGuard{Unpaid: true, Status: models.StatusCancelled}, time.Now())
		if err != nil {
			t.Fatalf("UpdateOrder: %v", err)
		}
		if !updated.Payment || updated.Status != models.StatusFoodProcessing || updated.CancelledBy != "" {
			t.Fatalf("unexpected order %+v", updated)
		}
	})
}
