package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/internal/apperr"
	"foodhub/internal/events"
	"foodhub/internal/models"
	"foodhub/internal/payments"
	"foodhub/internal/store"
)

const (
	DeliveryLineName = "Delivery Charges"
	// DefaultDeliveryFee is 100.00 in minor units.
	DefaultDeliveryFee models.Money = 10000
)

type OrderConfig struct {
	DeliveryFee models.Money
	// CallbackLookupAttempts and CallbackLookupDelay bound how long a
	// provider callback waits for its payment reference to be stored.
	CallbackLookupAttempts int
	CallbackLookupDelay    time.Duration
}

type OrderService struct {
	orders    store.OrderStore
	foods     store.FoodStore
	carts     store.CartStore
	bikers    store.BikerStore
	gateway   payments.Gateway
	publisher events.Publisher
	cfg       OrderConfig
	now       func() time.Time
}

func NewOrderService(orders store.OrderStore, foods store.FoodStore, carts store.CartStore, bikers store.BikerStore,
	gateway payments.Gateway, publisher events.Publisher, cfg OrderConfig) *OrderService {
	if cfg.DeliveryFee < 0 {
		cfg.DeliveryFee = DefaultDeliveryFee
	}
	if cfg.CallbackLookupAttempts <= 0 {
		cfg.CallbackLookupAttempts = 4
	}
	if cfg.CallbackLookupDelay <= 0 {
		cfg.CallbackLookupDelay = 500 * time.Millisecond
	}
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &OrderService{
		orders:    orders,
		foods:     foods,
		carts:     carts,
		bikers:    bikers,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

type PlaceOrderItem struct {
	ProductID string       `json:"productId" binding:"required"`
	Name      string       `json:"name"`
	Price     models.Money `json:"price"`
	Quantity  int          `json:"quantity" binding:"required,gt=0"`
}

type PlaceOrderInput struct {
	Items        []PlaceOrderItem     `json:"items" binding:"required,min=1,dive"`
	Amount       *models.Money        `json:"amount" binding:"required"`
	Address      *models.OrderAddress `json:"address" binding:"required"`
	MobileNumber string               `json:"mobileNumber"`
}

type PlaceOrderResult struct {
	Order      *models.Order   `json:"order"`
	PaymentURL string          `json:"paymentUrl,omitempty"`
	StkDetails *models.StkPush `json:"stkDetails,omitempty"`
}

// PlaceOrder snapshots catalog prices into a new order, empties the cart
// and starts payment. A failed payment start leaves the order in Payment
// Failed rather than deleting it.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, in PlaceOrderInput) (*PlaceOrderResult, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.Validation("userId is required")
	}
	if err := validate.Struct(in); err != nil {
		return nil, ValidationError(err)
	}

	items, err := s.snapshotItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	method := s.gateway.Method()
	mobile := strings.TrimSpace(in.MobileNumber)
	if method == models.PaymentMethodMpesa {
		if mobile == "" {
			return nil, apperr.Validation("mobileNumber is required for M-Pesa payments")
		}
		normalized, err := payments.NormalizePhone(mobile)
		if err != nil {
			return nil, apperr.Validation("mobileNumber is invalid")
		}
		mobile = normalized
	}

	now := s.now()
	order := &models.Order{
		ID:            primitive.NewObjectID(),
		UserID:        uid,
		Items:         items,
		DeliveryFee:   s.cfg.DeliveryFee,
		Address:       *in.Address,
		Status:        models.StatusFoodProcessing,
		Date:          now,
		Payment:       false,
		PaymentMethod: method,
		MobileNumber:  mobile,
		UpdatedAt:     now,
	}
	order.Amount = order.Subtotal() + order.DeliveryFee
	if *in.Amount != order.Amount {
		log.Printf("[ORDER] [WARN] client amount %s differs from computed %s for user %s", in.Amount.String(), order.Amount.String(), userID)
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, internal("ORDER", "create order", err)
	}
	if err := s.carts.ClearCart(ctx, uid); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Println("[ORDER] [ERROR] clear cart failed:", err)
	}
	s.publish(ctx, events.OrderPlaced, order)

	session, err := s.gateway.Initiate(ctx, s.paymentRequest(order))
	if err != nil {
		log.Printf("[PAYMENT] [ERROR] initiation failed for order %s: %v", order.ID.Hex(), err)
		s.markInitiationFailed(ctx, order, err)
		return nil, apperr.Wrap(apperr.KindInternal, "Payment initiation failed", err)
	}

	patch := store.OrderPatch{PaymentRef: &session.CorrelationID, StkPushDetails: session.StkPush}
	updated, err := s.orders.UpdateOrder(ctx, order.ID, patch, store.OrderGuard{}, s.now())
	if err != nil {
		return nil, internal("ORDER", "store payment reference", err)
	}

	log.Printf("[ORDER] [INFO] order %s placed via %s ref=%s", updated.ID.Hex(), method, session.CorrelationID)
	return &PlaceOrderResult{Order: updated, PaymentURL: session.RedirectURL, StkDetails: session.StkPush}, nil
}

func (s *OrderService) snapshotItems(ctx context.Context, in []PlaceOrderItem) ([]models.OrderItem, error) {
	ids := make([]primitive.ObjectID, 0, len(in))
	for _, item := range in {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(item.ProductID))
		if err != nil {
			return nil, apperr.Validationf("Invalid productId %q", item.ProductID)
		}
		ids = append(ids, id)
	}

	foods, err := s.foods.FindFoodsByIDs(ctx, ids)
	if err != nil {
		return nil, internal("ORDER", "load catalog items", err)
	}
	byID := make(map[primitive.ObjectID]models.Food, len(foods))
	for _, food := range foods {
		byID[food.ID] = food
	}

	items := make([]models.OrderItem, 0, len(in))
	for i, id := range ids {
		food, ok := byID[id]
		if !ok {
			return nil, apperr.Validationf("Food item %s is not available", id.Hex())
		}
		items = append(items, models.OrderItem{
			ProductID: id,
			Name:      food.Name,
			Price:     food.EffectivePrice(),
			Quantity:  in[i].Quantity,
		})
	}
	return items, nil
}

func (s *OrderService) paymentRequest(order *models.Order) payments.Request {
	lines := make([]payments.LineItem, 0, len(order.Items)+1)
	for _, item := range order.Items {
		lines = append(lines, payments.LineItem{Name: item.Name, UnitPrice: item.Price, Quantity: item.Quantity})
	}
	if order.DeliveryFee > 0 {
		lines = append(lines, payments.LineItem{Name: DeliveryLineName, UnitPrice: order.DeliveryFee, Quantity: 1})
	}
	return payments.Request{
		OrderID: order.ID.Hex(),
		Lines:   lines,
		Total:   order.Amount,
		Phone:   order.MobileNumber,
	}
}

func (s *OrderService) markInitiationFailed(ctx context.Context, order *models.Order, cause error) {
	status := models.StatusPaymentFailed
	failure := models.PaymentFailure{
		Provider:   order.PaymentMethod,
		ResultCode: -1,
		ResultDesc: "payment initiation failed: " + cause.Error(),
		FailedAt:   s.now(),
	}
	updated, err := s.orders.UpdateOrder(ctx, order.ID, store.OrderPatch{Status: &status, PaymentFailure: &failure}, store.OrderGuard{Unpaid: true}, s.now())
	if err != nil {
		log.Printf("[ORDER] [ERROR] failed to mark order %s as payment failed: %v", order.ID.Hex(), err)
		return
	}
	s.publish(ctx, events.OrderPaymentFailed, updated)
}

type VerifyPaymentInput struct {
	CorrelationID string `json:"correlationId" binding:"required"`
	Outcome       string `json:"outcome" binding:"required"`
}

// VerifyPayment applies an outcome reported by the client after a provider
// redirect. Providers that support lookups are asked directly and a
// claimed success they do not confirm is rejected.
func (s *OrderService) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (*models.Order, error) {
	if err := validate.Struct(in); err != nil {
		return nil, ValidationError(err)
	}
	claimed, err := payments.ParseOutcomeStatus(in.Outcome)
	if err != nil {
		return nil, apperr.Validation("outcome must be one of: success, failed, cancelled")
	}

	outcome := payments.Outcome{Provider: s.gateway.Method(), Status: claimed, ResultDesc: "reported by client"}
	if verifier, ok := s.gateway.(payments.Verifier); ok {
		confirmed, err := verifier.Verify(ctx, in.CorrelationID)
		if err != nil {
			return nil, internal("PAYMENT", "verify with provider", err)
		}
		switch {
		case confirmed.Status == payments.OutcomeSuccess:
			outcome = confirmed
		case claimed == payments.OutcomeSuccess:
			return nil, apperr.Conflict("Payment has not been completed")
		default:
			outcome.ResultDesc = confirmed.ResultDesc
		}
	} else if claimed == payments.OutcomeSuccess && s.gateway.Method() == models.PaymentMethodMpesa {
		return nil, apperr.Validation("M-Pesa payments are confirmed by the provider callback")
	}

	return s.ConfirmPayment(ctx, in.CorrelationID, outcome)
}

// ConfirmPayment settles the order behind correlationID. Orders are never
// deleted: success marks them paid, failure or cancellation records why.
// Failures arriving after a payment succeeded are ignored.
func (s *OrderService) ConfirmPayment(ctx context.Context, correlationID string, outcome payments.Outcome) (*models.Order, error) {
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return nil, apperr.Validation("correlationId is required")
	}

	order, err := s.orders.FindOrderByPaymentRef(ctx, correlationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, internal("ORDER", "find order by payment ref", err)
	}
	return s.applyOutcome(ctx, order, outcome)
}

// ConfirmProviderCallback applies a server-to-server notification from
// provider. A callback can beat the write of the payment reference after
// checkout starts, so an unknown reference is looked up again a few times
// before giving up.
func (s *OrderService) ConfirmProviderCallback(ctx context.Context, provider, correlationID string, outcome payments.Outcome) (*models.Order, error) {
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return nil, apperr.Validation("correlationId is required")
	}

	var order *models.Order
	var err error
	for attempt := 1; ; attempt++ {
		order, err = s.orders.FindOrderByPaymentRef(ctx, correlationID)
		if !errors.Is(err, store.ErrNotFound) || attempt >= s.cfg.CallbackLookupAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, internal("ORDER", "find order by payment ref", ctx.Err())
		case <-time.After(s.cfg.CallbackLookupDelay):
		}
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, internal("ORDER", "find order by payment ref", err)
	}
	if order.PaymentMethod != provider {
		log.Printf("[PAYMENT] [WARN] %s callback for order %s paid via %s", provider, order.ID.Hex(), order.PaymentMethod)
		return nil, apperr.Validation("Order is not paid through " + provider)
	}
	return s.applyOutcome(ctx, order, outcome)
}

func (s *OrderService) applyOutcome(ctx context.Context, order *models.Order, outcome payments.Outcome) (*models.Order, error) {
	now := s.now()
	if outcome.Status == payments.OutcomeSuccess {
		return s.markPaid(ctx, order, outcome, now)
	}

	if order.Payment || order.Status.IsTerminal() {
		log.Printf("[PAYMENT] [WARN] ignoring %s outcome for order %s (paid=%t status=%s)", outcome.Status, order.ID.Hex(), order.Payment, order.Status)
		return order, nil
	}

	status := models.StatusPaymentFailed
	patch := store.OrderPatch{Status: &status}
	if outcome.Status == payments.OutcomeCancelled {
		status = models.StatusCancelled
		by := models.CancelledByPayment
		patch.CancelledBy = &by
	}
	patch.PaymentFailure = &models.PaymentFailure{
		Provider:   outcome.Provider,
		ResultCode: outcome.ResultCode,
		ResultDesc: outcome.ResultDesc,
		FailedAt:   now,
	}
	updated, err := s.orders.UpdateOrder(ctx, order.ID, patch, store.OrderGuard{Unpaid: true, NotTerminal: true}, now)
	if errors.Is(err, store.ErrConflict) {
		log.Printf("[PAYMENT] [WARN] order %s changed before failure was recorded", order.ID.Hex())
		return s.reload(ctx, order.ID)
	}
	if err != nil {
		return nil, internal("ORDER", "record payment failure", err)
	}

	log.Printf("[PAYMENT] [INFO] order %s payment %s: %s", updated.ID.Hex(), outcome.Status, outcome.ResultDesc)
	s.publish(ctx, events.OrderPaymentFailed, updated)
	return updated, nil
}

// markPaid records a successful payment. Orders the payment flow left in
// Payment Pending, Payment Failed or Cancelled go back to Food Processing.
// An order staff cancelled stays cancelled and unpaid, flagged refundDue.
// The update is pinned to the status it was decided on and retried when the
// order moves underneath it.
func (s *OrderService) markPaid(ctx context.Context, order *models.Order, outcome payments.Outcome, now time.Time) (*models.Order, error) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if order.Payment || order.RefundDue {
			return order, nil
		}
		if outcome.Amount > 0 && outcome.Amount < order.Amount {
			return nil, s.recordUnderpayment(ctx, order, outcome, now)
		}

		patch, subject := s.paidPatch(order, outcome, now)
		updated, err := s.orders.UpdateOrder(ctx, order.ID, patch, store.OrderGuard{Unpaid: true, Status: order.Status}, now)
		if errors.Is(err, store.ErrConflict) {
			if order, err = s.reload(ctx, order.ID); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, internal("ORDER", "record payment", err)
		}

		if subject == events.OrderRefundDue {
			log.Printf("[PAYMENT] [ERROR] order %s was cancelled by staff before payment %s arrived, refund due", updated.ID.Hex(), outcome.ReceiptNumber)
		} else {
			log.Printf("[PAYMENT] [INFO] order %s paid via %s receipt=%s", updated.ID.Hex(), outcome.Provider, outcome.ReceiptNumber)
		}
		s.publish(ctx, subject, updated)
		return updated, nil
	}
	return nil, internal("ORDER", "record payment", fmt.Errorf("order %s kept changing", order.ID.Hex()))
}

func (s *OrderService) paidPatch(order *models.Order, outcome payments.Outcome, now time.Time) (store.OrderPatch, string) {
	amount := outcome.Amount
	if amount == 0 {
		amount = order.Amount
	}
	patch := store.OrderPatch{PaymentConfirmation: &models.PaymentConfirmation{
		Provider:        outcome.Provider,
		ReceiptNumber:   outcome.ReceiptNumber,
		Amount:          amount,
		PhoneNumber:     outcome.PhoneNumber,
		TransactionDate: outcome.TransactionDate,
		ConfirmedAt:     now,
	}}

	if order.Status == models.StatusCancelled && order.CancelledBy != models.CancelledByPayment {
		refund := true
		patch.RefundDue = &refund
		return patch, events.OrderRefundDue
	}

	paid := true
	patch.Payment = &paid
	switch order.Status {
	case models.StatusPaymentPending, models.StatusPaymentFailed, models.StatusCancelled:
		status := models.StatusFoodProcessing
		cleared := ""
		patch.Status = &status
		patch.CancelledBy = &cleared
	}
	return patch, events.OrderPaid
}

// recordUnderpayment keeps the order unpaid and notes what arrived.
func (s *OrderService) recordUnderpayment(ctx context.Context, order *models.Order, outcome payments.Outcome, now time.Time) error {
	failure := models.PaymentFailure{
		Provider:   outcome.Provider,
		ResultCode: outcome.ResultCode,
		ResultDesc: fmt.Sprintf("paid %s but order total is %s (receipt %s)", outcome.Amount.String(), order.Amount.String(), outcome.ReceiptNumber),
		FailedAt:   now,
	}
	log.Printf("[PAYMENT] [ERROR] order %s underpaid: %s", order.ID.Hex(), failure.ResultDesc)
	if _, err := s.orders.UpdateOrder(ctx, order.ID, store.OrderPatch{PaymentFailure: &failure}, store.OrderGuard{Unpaid: true}, now); err != nil && !errors.Is(err, store.ErrConflict) {
		return internal("ORDER", "record underpayment", err)
	}
	return apperr.Conflict("Paid amount is below the order total")
}

func (s *OrderService) reload(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.FindOrderByID(ctx, id)
	if err != nil {
		return nil, internal("ORDER", "reload order", err)
	}
	return order, nil
}

type UpdateStatusInput struct {
	OrderID string `json:"orderId" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

func (s *OrderService) UpdateStatus(ctx context.Context, in UpdateStatusInput) (*models.Order, error) {
	if err := validate.Struct(in); err != nil {
		return nil, ValidationError(err)
	}
	id, err := parseObjectID(in.OrderID, "orderId")
	if err != nil {
		return nil, err
	}
	status, err := models.ParseOrderStatus(strings.TrimSpace(in.Status))
	if err != nil {
		return nil, apperr.Validation("Invalid order status")
	}

	now := s.now()
	patch := store.OrderPatch{Status: &status}
	switch status {
	case models.StatusDelivered:
		patch.DeliveredAt = &now
	case models.StatusCancelled:
		by := models.CancelledByStaff
		patch.CancelledBy = &by
	}

	updated, err := s.orders.UpdateOrder(ctx, id, patch, store.OrderGuard{NotTerminal: true}, now)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("Order not found")
	case errors.Is(err, store.ErrConflict):
		return nil, apperr.Conflict("Order is already completed and cannot change status")
	case err != nil:
		return nil, internal("ORDER", "update status", err)
	}

	log.Printf("[ORDER] [INFO] order %s status -> %s", updated.ID.Hex(), updated.Status)
	s.publish(ctx, events.OrderStatusChanged, updated)
	return updated, nil
}

type AssignBikerInput struct {
	OrderID string `json:"orderId" binding:"required"`
	BikerID string `json:"bikerId" binding:"required"`
}

func (s *OrderService) AssignBiker(ctx context.Context, in AssignBikerInput) (*models.Order, error) {
	if err := validate.Struct(in); err != nil {
		return nil, ValidationError(err)
	}
	orderID, err := parseObjectID(in.OrderID, "orderId")
	if err != nil {
		return nil, err
	}
	bikerID, err := parseObjectID(in.BikerID, "bikerId")
	if err != nil {
		return nil, err
	}

	biker, err := s.bikers.FindBikerByID(ctx, bikerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Biker not found")
	}
	if err != nil {
		return nil, internal("ORDER", "find biker", err)
	}
	if !biker.IsActive {
		return nil, apperr.Validation("Biker is not active")
	}

	updated, err := s.orders.UpdateOrder(ctx, orderID, store.OrderPatch{BikerID: &bikerID}, store.OrderGuard{NotTerminal: true}, s.now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("Order not found")
	case errors.Is(err, store.ErrConflict):
		return nil, apperr.Conflict("Cannot assign a biker to a completed order")
	case err != nil:
		return nil, internal("ORDER", "assign biker", err)
	}

	log.Printf("[ORDER] [INFO] order %s assigned to biker %s", updated.ID.Hex(), bikerID.Hex())
	s.publish(ctx, events.OrderBikerAssigned, updated)
	return updated, nil
}

type ListOrdersInput struct {
	Status string
	Page   int64
	Limit  int64
}

func (s *OrderService) ListOrders(ctx context.Context, in ListOrdersInput) ([]models.Order, int64, error) {
	filter := store.OrderFilter{Page: in.Page, Limit: in.Limit}
	if raw := strings.TrimSpace(in.Status); raw != "" {
		status, err := models.ParseOrderStatus(raw)
		if err != nil {
			return nil, 0, apperr.Validation("Invalid order status")
		}
		filter.Status = status
	}
	orders, total, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, 0, internal("ORDER", "list orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, total, nil
}

// UserOrders returns every order of one customer, newest first.
func (s *OrderService) UserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.Validation("userId is required")
	}
	orders, _, err := s.orders.ListOrders(ctx, store.OrderFilter{UserID: &uid})
	if err != nil {
		return nil, internal("ORDER", "list user orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *OrderService) publish(ctx context.Context, subject string, order *models.Order) {
	event := events.OrderEvent{
		OrderID:    order.ID.Hex(),
		UserID:     order.UserID.Hex(),
		Status:     string(order.Status),
		Payment:    order.Payment,
		Amount:     order.Amount.String(),
		OccurredAt: s.now().UTC(),
	}
	if order.BikerID != nil {
		event.BikerID = order.BikerID.Hex()
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, subject, event); err != nil {
		log.Printf("[EVENTS] [WARN] publish %s for order %s failed: %v", subject, event.OrderID, err)
	}
}
