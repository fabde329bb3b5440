package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"foodhub/internal/apperr"
	"foodhub/internal/middleware"
	"foodhub/internal/models"
	"foodhub/internal/payments"
	"foodhub/internal/services"
)

const maxCallbackBody = 64 << 10

/* =========================
   PLACE ORDER
========================= */

func PlaceOrder(svc *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /order/place"
		defer handlePanic(c, route)

		var req services.PlaceOrderInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := svc.PlaceOrder(ctx, middleware.UserID(c), req)
		if err != nil {
			respondError(c, route, err)
			return
		}

		body := gin.H{"success": true, "order": res.Order}
		if res.PaymentURL != "" {
			body["paymentUrl"] = res.PaymentURL
		}
		if res.StkDetails != nil {
			body["stkDetails"] = res.StkDetails
		}
		c.JSON(http.StatusOK, body)
	}
}

/* =========================
   PAYMENT CONFIRMATION
========================= */

func VerifyOrder(svc *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /order/verify"
		defer handlePanic(c, route)

		var req services.VerifyPaymentInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.VerifyPayment(ctx, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "payment": order.Payment, "status": order.Status})
	}
}

// MpesaCallback acknowledges every authentic, well-formed callback so the
// provider stops retrying; problems applying it are logged with the raw
// body for reconciliation. Requests without the shared callback token are
// rejected before the body is read.
func MpesaCallback(svc *services.OrderService, callbackToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /order/mpesa/callback"
		defer handlePanic(c, route)

		if !payments.CallbackTokenMatches(callbackToken, c.Query("token")) {
			log.Printf("[PAYMENT] [WARN] rejected mpesa callback without a valid token from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"ResultCode": 1, "ResultDesc": "Rejected"})
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBody))
		if err != nil {
			log.Printf("[%s] read body failed: %v", route, err)
			c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "Rejected"})
			return
		}

		correlationID, outcome, err := payments.ParseMpesaCallback(raw)
		if err != nil {
			log.Printf("[%s] invalid callback: %v", route, err)
			c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "Rejected"})
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := svc.ConfirmProviderCallback(ctx, models.PaymentMethodMpesa, correlationID, outcome); err != nil {
			log.Printf("[PAYMENT] [ERROR] callback for %s not applied: %s body=%s", correlationID, apperr.Message(err), raw)
		}
		c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
	}
}

/* =========================
   CUSTOMER ORDERS
========================= */

func UserOrders(svc *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /order/userorders"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		orders, err := svc.UserOrders(ctx, middleware.UserID(c))
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": orders})
	}
}
