package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront-core/internal/config"
	"storefront-core/internal/db"
	"storefront-core/internal/gateway/cashfree"
	"storefront-core/internal/httpserver"
	"storefront-core/internal/hub"
	cartrepo "storefront-core/internal/repository/cart"
	orderrepo "storefront-core/internal/repository/order"
	paymentrepo "storefront-core/internal/repository/payment"
	productrepo "storefront-core/internal/repository/product"
	webhookrepo "storefront-core/internal/repository/webhooklog"
	cartsvc "storefront-core/internal/service/cart"
	ordersvc "storefront-core/internal/service/order"
	paymentsvc "storefront-core/internal/service/payment"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	cartHub := hub.New(logger)
	gatewayClient := cashfree.New(cfg.CashfreeBaseURL, cfg.CashfreeClientID, cfg.CashfreeClientSecret, logger)

	productRepo := productrepo.NewPostgres(dbpool)
	cartRepo := cartrepo.NewPostgres(dbpool)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	paymentRepo := paymentrepo.NewPostgres(dbpool, logger)
	webhookRepo := webhookrepo.NewPostgres(dbpool)

	cartService := cartsvc.New(cartRepo, productRepo, cartHub, logger)
	orderService := ordersvc.New(orderRepo)
	paymentService := paymentsvc.New(paymentRepo, orderRepo, gatewayClient, webhookRepo, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CartSvc:    cartService,
		OrderSvc:   orderService,
		PaymentSvc: paymentService,
		Hub:        cartHub,

		PaymentSuccessURL: cfg.PaymentSuccessURL,
		PaymentFailureURL: cfg.PaymentFailureURL,
		StreamKeepalive:   cfg.StreamKeepalive,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
