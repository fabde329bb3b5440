package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the closed set of states an order can be in.
type OrderStatus string

const (
	StatusPaymentPending   OrderStatus = "Payment Pending"
	StatusFoodProcessing   OrderStatus = "Food Processing"
	StatusReadyForDelivery OrderStatus = "Ready for Delivery"
	StatusOnTheWay         OrderStatus = "On the Way"
	StatusDelivered        OrderStatus = "Delivered"
	StatusCancelled        OrderStatus = "Cancelled"
	StatusPaymentFailed    OrderStatus = "Payment Failed"
)

var OrderStatuses = []OrderStatus{
	StatusPaymentPending,
	StatusFoodProcessing,
	StatusReadyForDelivery,
	StatusOnTheWay,
	StatusDelivered,
	StatusCancelled,
	StatusPaymentFailed,
}

// ParseOrderStatus is the only way a status string enters an order.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, status := range OrderStatuses {
		if string(status) == value {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

const (
	PaymentMethodStripe  = "stripe"
	PaymentMethodMpesa   = "mpesa"
	PaymentMethodOffline = "offline"
)

// Who moved an order to Cancelled. A late payment success revives only
// orders the payment flow itself cancelled.
const (
	CancelledByPayment = "payment"
	CancelledByStaff   = "staff"
)

// OrderItem is a price snapshot taken at checkout.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     Money              `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

func (i OrderItem) LineTotal() Money {
	return i.Price.Times(i.Quantity)
}

// OrderAddress captures delivery contact details for an order.
type OrderAddress struct {
	FirstName string `bson:"firstName" json:"firstName" binding:"required"`
	LastName  string `bson:"lastName" json:"lastName" binding:"required"`
	Email     string `bson:"email" json:"email" binding:"required,email"`
	Phone     string `bson:"phone" json:"phone" binding:"required"`
	Street    string `bson:"street" json:"street" binding:"required"`
	City      string `bson:"city" json:"city" binding:"required"`
	State     string `bson:"state,omitempty" json:"state,omitempty"`
	Zipcode   string `bson:"zipcode,omitempty" json:"zipcode,omitempty"`
	Country   string `bson:"country" json:"country" binding:"required"`
}

// StkPush echoes the mobile money push request acknowledgement.
type StkPush struct {
	MerchantRequestID   string `bson:"merchantRequestId" json:"merchantRequestId"`
	CheckoutRequestID   string `bson:"checkoutRequestId" json:"checkoutRequestId"`
	ResponseCode        string `bson:"responseCode" json:"responseCode"`
	ResponseDescription string `bson:"responseDescription" json:"responseDescription"`
	CustomerMessage     string `bson:"customerMessage" json:"customerMessage"`
}

type PaymentConfirmation struct {
	Provider        string    `bson:"provider" json:"provider"`
	ReceiptNumber   string    `bson:"receiptNumber,omitempty" json:"receiptNumber,omitempty"`
	Amount          Money     `bson:"amount" json:"amount"`
	PhoneNumber     string    `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	TransactionDate string    `bson:"transactionDate,omitempty" json:"transactionDate,omitempty"`
	ConfirmedAt     time.Time `bson:"confirmedAt" json:"confirmedAt"`
}

type PaymentFailure struct {
	Provider   string    `bson:"provider" json:"provider"`
	ResultCode int       `bson:"resultCode" json:"resultCode"`
	ResultDesc string    `bson:"resultDesc" json:"resultDesc"`
	FailedAt   time.Time `bson:"failedAt" json:"failedAt"`
}

// Order defines the persisted order document.
type Order struct {
	ID                  primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID              primitive.ObjectID   `bson:"userId" json:"userId"`
	Items               []OrderItem          `bson:"items" json:"items"`
	Amount              Money                `bson:"amount" json:"amount"`
	DeliveryFee         Money                `bson:"deliveryFee" json:"deliveryFee"`
	Address             OrderAddress         `bson:"address" json:"address"`
	Status              OrderStatus          `bson:"status" json:"status"`
	Date                time.Time            `bson:"date" json:"date"`
	Payment             bool                 `bson:"payment" json:"payment"`
	PaymentMethod       string               `bson:"paymentMethod" json:"paymentMethod"`
	PaymentRef          string               `bson:"paymentRef,omitempty" json:"paymentRef,omitempty"`
	MobileNumber        string               `bson:"mobileNumber,omitempty" json:"mobileNumber,omitempty"`
	StkPushDetails      *StkPush             `bson:"stkPushDetails,omitempty" json:"stkPushDetails,omitempty"`
	PaymentConfirmation *PaymentConfirmation `bson:"paymentConfirmation,omitempty" json:"paymentConfirmation,omitempty"`
	PaymentFailure      *PaymentFailure      `bson:"paymentFailure,omitempty" json:"paymentFailure,omitempty"`
	CancelledBy         string               `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	RefundDue           bool                 `bson:"refundDue,omitempty" json:"refundDue,omitempty"`
	BikerID             *primitive.ObjectID  `bson:"bikerId,omitempty" json:"bikerId,omitempty"`
	DeliveredAt         *time.Time           `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	UpdatedAt           time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Subtotal sums the snapshot lines without the delivery fee.
func (o Order) Subtotal() Money {
	var total Money
	for _, item := range o.Items {
		total += item.LineTotal()
	}
	return total
}
