// Package memstore keeps every collection in process memory behind one
// mutex. Values are copied on the way in and out so callers never share
// state with the store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/internal/models"
	"foodhub/internal/store"
)

type Store struct {
	mu     sync.Mutex
	users  map[primitive.ObjectID]*models.User
	foods  map[primitive.ObjectID]*models.Food
	orders map[primitive.ObjectID]*models.Order
	bikers map[primitive.ObjectID]*models.Biker
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:  map[primitive.ObjectID]*models.User{},
		foods:  map[primitive.ObjectID]*models.Food{},
		orders: map[primitive.ObjectID]*models.Order{},
		bikers: map[primitive.ObjectID]*models.Biker{},
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func copyUser(u *models.User) *models.User {
	out := *u
	out.CartData = u.CartData.Clone()
	out.RefreshTokens = append([]models.RefreshToken(nil), u.RefreshTokens...)
	return &out
}

func copyFood(f *models.Food) *models.Food {
	out := *f
	out.Images = append([]string(nil), f.Images...)
	out.Recipe = append(models.StringList(nil), f.Recipe...)
	if f.OfferPrice != nil {
		offer := *f.OfferPrice
		out.OfferPrice = &offer
	}
	return &out
}

func copyOrder(o *models.Order) *models.Order {
	out := *o
	out.Items = append([]models.OrderItem(nil), o.Items...)
	return &out
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrDuplicateEmail
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(user), nil
}

func (s *Store) RecordFailedLogin(ctx context.Context, id primitive.ObjectID, policy store.LockoutPolicy, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	user.LoginAttempts++
	if user.LoginAttempts >= policy.Threshold {
		until := now.Add(policy.Duration)
		user.LockUntil = &until
		user.LoginAttempts = 0
	}
	user.UpdatedAt = now
	return copyUser(user), nil
}

func (s *Store) RecordLogin(ctx context.Context, id primitive.ObjectID, token models.RefreshToken, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	lastLogin := now
	user.LastLogin = &lastLogin
	user.PruneRefreshTokens(now)
	user.RefreshTokens = append(user.RefreshTokens, token)
	user.UpdatedAt = now
	return nil
}

func (s *Store) PruneRefreshTokens(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PruneRefreshTokens(now)
	return nil
}

func (s *Store) DeactivateRefreshToken(ctx context.Context, id primitive.ObjectID, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.DeactivateRefreshToken(tokenHash)
	return nil
}

func (s *Store) DeactivateAllRefreshTokens(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.DeactivateAllRefreshTokens()
	return nil
}

func (s *Store) SetUserActive(ctx context.Context, id primitive.ObjectID, active bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.IsActive = active
	if !active {
		user.DeactivateAllRefreshTokens()
	}
	user.UpdatedAt = now
	return nil
}

func (s *Store) SetEmailVerification(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.EmailVerificationHash = tokenHash
	user.EmailVerificationExpires = &expires
	return nil
}

func (s *Store) MarkEmailVerified(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if tokenHash == "" || user.EmailVerificationHash != tokenHash {
			continue
		}
		if user.EmailVerificationExpires == nil || !user.EmailVerificationExpires.After(now) {
			return nil, store.ErrNotFound
		}
		user.EmailVerified = true
		user.EmailVerificationHash = ""
		user.EmailVerificationExpires = nil
		user.UpdatedAt = now
		return copyUser(user), nil
	}
	return nil, store.ErrNotFound
}

// ---- cart ----

func (s *Store) AddCartItem(ctx context.Context, userID primitive.ObjectID, itemID string) (models.CartData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	user.CartData.Add(itemID)
	return user.CartData.Normalize(), nil
}

func (s *Store) RemoveCartItem(ctx context.Context, userID primitive.ObjectID, itemID string) (models.CartData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	user.CartData.Remove(itemID)
	return user.CartData.Normalize(), nil
}

func (s *Store) GetCart(ctx context.Context, userID primitive.ObjectID) (models.CartData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user.CartData.Normalize(), nil
}

func (s *Store) ClearCart(ctx context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.CartData = models.CartData{}
	return nil
}

// ---- foods ----

func (s *Store) CreateFood(ctx context.Context, food *models.Food) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if food.ID.IsZero() {
		food.ID = primitive.NewObjectID()
	}
	s.foods[food.ID] = copyFood(food)
	return nil
}

func (s *Store) FindFoodByID(ctx context.Context, id primitive.ObjectID) (*models.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	food, ok := s.foods[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyFood(food), nil
}

func (s *Store) FindFoodsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Food, 0, len(ids))
	seen := map[primitive.ObjectID]struct{}{}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if food, ok := s.foods[id]; ok {
			out = append(out, *copyFood(food))
		}
	}
	return out, nil
}

func (s *Store) ListFoods(ctx context.Context, filter store.FoodFilter) ([]models.Food, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]models.Food, 0, len(s.foods))
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for _, food := range s.foods {
		if filter.Category != "" && food.Category != filter.Category {
			continue
		}
		if filter.OnOffer && !food.IsOnOffer {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(food.Name), search) &&
			!strings.Contains(strings.ToLower(food.Description), search) {
			continue
		}
		matched = append(matched, *copyFood(food))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

func (s *Store) ReplaceFood(ctx context.Context, food *models.Food) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.foods[food.ID]; !ok {
		return store.ErrNotFound
	}
	s.foods[food.ID] = copyFood(food)
	return nil
}

func (s *Store) DeleteFood(ctx context.Context, id primitive.ObjectID) (*models.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	food, ok := s.foods[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.foods, id)
	return food, nil
}

// ---- orders ----

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (s *Store) FindOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyOrder(order), nil
}

func (s *Store) FindOrderByPaymentRef(ctx context.Context, ref string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, order := range s.orders {
		if ref != "" && order.PaymentRef == ref {
			return copyOrder(order), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if filter.UserID != nil && order.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		matched = append(matched, *copyOrder(order))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date)
	})
	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

func (s *Store) UpdateOrder(ctx context.Context, id primitive.ObjectID, patch store.OrderPatch, guard store.OrderGuard, now time.Time) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !guard.Allows(*order) {
		return nil, store.ErrConflict
	}
	patch.Apply(order)
	order.UpdatedAt = now
	return copyOrder(order), nil
}

// ---- bikers ----

func (s *Store) CreateBiker(ctx context.Context, biker *models.Biker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if biker.ID.IsZero() {
		biker.ID = primitive.NewObjectID()
	}
	copied := *biker
	s.bikers[biker.ID] = &copied
	return nil
}

func (s *Store) FindBikerByID(ctx context.Context, id primitive.ObjectID) (*models.Biker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	biker, ok := s.bikers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *biker
	return &copied, nil
}

func (s *Store) ListBikers(ctx context.Context, activeOnly bool) ([]models.Biker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Biker, 0, len(s.bikers))
	for _, biker := range s.bikers {
		if activeOnly && !biker.IsActive {
			continue
		}
		out = append(out, *biker)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ReplaceBiker(ctx context.Context, biker *models.Biker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bikers[biker.ID]; !ok {
		return store.ErrNotFound
	}
	copied := *biker
	s.bikers[biker.ID] = &copied
	return nil
}

func paginate[T any](items []T, page, limit int64) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= int64(len(items)) {
		return []T{}
	}
	end := start + limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}
