package httpserver

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-core/internal/gateway"
	paymentsvc "storefront-core/internal/service/payment"
)

type createPaymentRequest struct {
	OrderID  string          `json:"orderId"`
	Amount   decimal.Decimal `json:"amount"`
	Customer struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
}

func createPaymentHandler(svc *paymentsvc.Service, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.OrderID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderId and amount are required"})
			return
		}

		customer := gateway.Customer{
			ID:    req.Customer.ID,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		}
		// The gateway requires customer details even for guest checkout.
		if customer.ID == "" {
			customer.ID = "guest-" + uuid.NewString()[:8]
		}
		if customer.Email == "" {
			customer.Email = customer.ID + "@example.com"
		}
		if customer.Phone == "" {
			customer.Phone = "9999999999"
		}

		sess, err := svc.CreateSession(c.Request.Context(), req.OrderID, req.Amount, customer)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

// paymentReturnHandler serves the client's return visit. Query parameters are
// never trusted as outcome: the gateway is re-queried before redirecting.
func paymentReturnHandler(svc *paymentsvc.Service, logger *log.Logger, successURL, failureURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderRef := c.Query("order_id")
		if orderRef == "" {
			c.Redirect(http.StatusFound, failureURL+"?error="+url.QueryEscape("missing order id"))
			return
		}

		disp, err := svc.ResolveReturn(c.Request.Context(), orderRef)
		if err != nil {
			logger.Printf("payment return for %s failed: %v", orderRef, err)
			c.Redirect(http.StatusFound, failureURL+"?order_id="+url.QueryEscape(orderRef)+"&error="+url.QueryEscape("verification failed"))
			return
		}

		if disp.Paid {
			c.Redirect(http.StatusFound, successURL+"?order_id="+url.QueryEscape(orderRef))
			return
		}
		c.Redirect(http.StatusFound, failureURL+"?order_id="+url.QueryEscape(orderRef)+"&error="+url.QueryEscape(disp.Reason))
	}
}

type createRefundRequest struct {
	PaymentID string          `json:"paymentId"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

func createRefundHandler(svc *paymentsvc.Service, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRefundRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PaymentID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paymentId and amount are required"})
			return
		}
		refund, err := svc.RequestRefund(c.Request.Context(), req.PaymentID, req.Amount, req.Reason)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"refund": refund})
	}
}
