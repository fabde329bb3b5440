// Package store defines persistence for users, carts, catalog, orders and
// bikers. mongostore is the production implementation and memstore backs
// tests and local development.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrConflict means the document exists but a write guard did not hold.
	ErrConflict = errors.New("write precondition failed")
)

// LockoutPolicy controls failed login handling.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)

	// RecordFailedLogin increments the attempt counter and, once the
	// threshold is reached, locks the account and resets the counter in
	// the same write.
	RecordFailedLogin(ctx context.Context, id primitive.ObjectID, policy LockoutPolicy, now time.Time) (*models.User, error)
	// RecordLogin clears lockout state, sets lastLogin, prunes unusable
	// refresh tokens and appends token.
	RecordLogin(ctx context.Context, id primitive.ObjectID, token models.RefreshToken, now time.Time) error
	PruneRefreshTokens(ctx context.Context, id primitive.ObjectID, now time.Time) error
	DeactivateRefreshToken(ctx context.Context, id primitive.ObjectID, tokenHash string) error
	DeactivateAllRefreshTokens(ctx context.Context, id primitive.ObjectID) error

	// SetUserActive toggles the account. Deactivation also revokes every
	// refresh token.
	SetUserActive(ctx context.Context, id primitive.ObjectID, active bool, now time.Time) error

	SetEmailVerification(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error
	// MarkEmailVerified resolves the user by a pending verification hash.
	MarkEmailVerified(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
}

type CartStore interface {
	AddCartItem(ctx context.Context, userID primitive.ObjectID, itemID string) (models.CartData, error)
	RemoveCartItem(ctx context.Context, userID primitive.ObjectID, itemID string) (models.CartData, error)
	GetCart(ctx context.Context, userID primitive.ObjectID) (models.CartData, error)
	ClearCart(ctx context.Context, userID primitive.ObjectID) error
}

type FoodFilter struct {
	Category string
	Search   string
	OnOffer  bool
	Page     int64
	Limit    int64
}

type FoodStore interface {
	CreateFood(ctx context.Context, food *models.Food) error
	FindFoodByID(ctx context.Context, id primitive.ObjectID) (*models.Food, error)
	FindFoodsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Food, error)
	ListFoods(ctx context.Context, filter FoodFilter) ([]models.Food, int64, error)
	ReplaceFood(ctx context.Context, food *models.Food) error
	DeleteFood(ctx context.Context, id primitive.ObjectID) (*models.Food, error)
}

type OrderFilter struct {
	UserID *primitive.ObjectID
	Status models.OrderStatus
	Page   int64
	Limit  int64
}

// OrderPatch lists the fields a single update may set. Nil fields are left
// untouched.
type OrderPatch struct {
	Status              *models.OrderStatus
	Payment             *bool
	PaymentRef          *string
	StkPushDetails      *models.StkPush
	PaymentConfirmation *models.PaymentConfirmation
	PaymentFailure      *models.PaymentFailure
	CancelledBy         *string
	RefundDue           *bool
	BikerID             *primitive.ObjectID
	DeliveredAt         *time.Time
}

// OrderGuard is checked atomically with the update. Status, when set,
// pins the order to the status the caller decided on.
type OrderGuard struct {
	NotTerminal bool
	Unpaid      bool
	Status      models.OrderStatus
}

func (g OrderGuard) Allows(order models.Order) bool {
	if g.NotTerminal && order.Status.IsTerminal() {
		return false
	}
	if g.Status != "" && order.Status != g.Status {
		return false
	}
	if g.Unpaid && order.Payment {
		return false
	}
	return true
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindOrderByPaymentRef(ctx context.Context, ref string) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	// UpdateOrder returns ErrConflict when the order exists but guard fails.
	UpdateOrder(ctx context.Context, id primitive.ObjectID, patch OrderPatch, guard OrderGuard, now time.Time) (*models.Order, error)
}

type BikerStore interface {
	CreateBiker(ctx context.Context, biker *models.Biker) error
	FindBikerByID(ctx context.Context, id primitive.ObjectID) (*models.Biker, error)
	ListBikers(ctx context.Context, activeOnly bool) ([]models.Biker, error)
	ReplaceBiker(ctx context.Context, biker *models.Biker) error
}

// Store is everything the services need from persistence.
type Store interface {
	UserStore
	CartStore
	FoodStore
	OrderStore
	BikerStore
	Ping(ctx context.Context) error
}

// Apply copies the set fields of patch onto order.
func (p OrderPatch) Apply(order *models.Order) {
	if p.Status != nil {
		order.Status = *p.Status
	}
	if p.Payment != nil {
		order.Payment = *p.Payment
	}
	if p.PaymentRef != nil {
		order.PaymentRef = *p.PaymentRef
	}
	if p.StkPushDetails != nil {
		stk := *p.StkPushDetails
		order.StkPushDetails = &stk
	}
	if p.PaymentConfirmation != nil {
		conf := *p.PaymentConfirmation
		order.PaymentConfirmation = &conf
	}
	if p.PaymentFailure != nil {
		failure := *p.PaymentFailure
		order.PaymentFailure = &failure
	}
	if p.CancelledBy != nil {
		order.CancelledBy = *p.CancelledBy
	}
	if p.RefundDue != nil {
		order.RefundDue = *p.RefundDue
	}
	if p.BikerID != nil {
		id := *p.BikerID
		order.BikerID = &id
	}
	if p.DeliveredAt != nil {
		at := *p.DeliveredAt
		order.DeliveredAt = &at
	}
}
