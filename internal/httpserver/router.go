package httpserver

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-core/internal/hub"
	cartsvc "storefront-core/internal/service/cart"
	ordersvc "storefront-core/internal/service/order"
	paymentsvc "storefront-core/internal/service/payment"
)

// Deps carries the wired services for route handlers.
type Deps struct {
	CartSvc    *cartsvc.Service
	OrderSvc   *ordersvc.Service
	PaymentSvc *paymentsvc.Service
	Hub        *hub.Hub

	PaymentSuccessURL string
	PaymentFailureURL string
	StreamKeepalive   time.Duration
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	keepalive := deps.StreamKeepalive
	if keepalive <= 0 {
		keepalive = 25 * time.Second
	}

	cart := router.Group("/cart")
	{
		cart.POST("", createCartHandler(deps.CartSvc, logger))
		cart.GET("/:id", getCartHandler(deps.CartSvc, logger))
		cart.GET("/:id/stream", streamHandler(deps.Hub, keepalive))
		cart.PUT("/:id/items", putItemsHandler(deps.CartSvc, logger))
		cart.DELETE("/:id/items/:itemId", deleteItemHandler(deps.CartSvc, logger))
	}

	orders := router.Group("/orders")
	{
		orders.POST("", createOrderHandler(deps.OrderSvc, logger))
		orders.GET("/history", orderHistoryHandler(deps.OrderSvc, logger))
	}

	payments := router.Group("/payments")
	{
		payments.POST("", createPaymentHandler(deps.PaymentSvc, logger))
		payments.GET("/return", paymentReturnHandler(deps.PaymentSvc, logger, deps.PaymentSuccessURL, deps.PaymentFailureURL))
		payments.POST("/webhook", webhookHandler(deps.PaymentSvc, logger))
	}

	router.POST("/refunds", createRefundHandler(deps.PaymentSvc, logger))

	return router
}
