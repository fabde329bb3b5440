package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"foodhub/internal/auth"
	"foodhub/internal/cache"
	"foodhub/internal/config"
	"foodhub/internal/database"
	"foodhub/internal/events"
	"foodhub/internal/handlers"
	"foodhub/internal/mailer"
	"foodhub/internal/media"
	"foodhub/internal/middleware"
	"foodhub/internal/models"
	"foodhub/internal/payments"
	"foodhub/internal/services"
	"foodhub/internal/store"
	"foodhub/internal/store/memstore"
	"foodhub/internal/store/mongostore"
)

func main() {
	config.Load()
	cfg := config.AppEnv

	st, closeStore := openStore(cfg)
	defer closeStore()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		log.Fatal("[CONFIG] [ERROR] token service: ", err)
	}

	deliveryFee, err := models.ParseMoney(cfg.DeliveryFee)
	if err != nil || deliveryFee < 0 {
		log.Fatalf("[CONFIG] [ERROR] DELIVERY_FEE %q is invalid", cfg.DeliveryFee)
	}

	rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
	}

	publisher, err := events.New(cfg.EventBroker, cfg.NatsURL, cfg.RabbitMQURL)
	if err != nil {
		log.Printf("[EVENTS] [WARN] %s broker unavailable, logging events only: %v", cfg.EventBroker, err)
		publisher = events.LogPublisher{}
	}
	defer publisher.Close()

	gateway, err := payments.New(cfg.PaymentMode,
		payments.StripeConfig{SecretKey: cfg.StripeSecretKey, Currency: cfg.Currency, FrontendURL: cfg.FrontendURL},
		payments.MpesaConfig{
			BaseURL:        cfg.MpesaBaseURL,
			ConsumerKey:    cfg.MpesaConsumerKey,
			ConsumerSecret: cfg.MpesaConsumerSecret,
			ShortCode:      cfg.MpesaShortCode,
			Passkey:        cfg.MpesaPasskey,
			CallbackURL:    cfg.MpesaCallbackURL,
			CallbackToken:  cfg.MpesaCallbackToken,
		})
	if err != nil {
		log.Fatal("[CONFIG] [ERROR] payments: ", err)
	}
	log.Println("[PAYMENT] [INFO] payment mode:", gateway.Method())

	images := media.NewLocalStore(cfg.UploadDir, "foods")
	mail := mailer.New(cfg.MailerSendAPIKey, cfg.MailFromName, cfg.MailFromEmail)

	app := handlers.App{
		DB:     st,
		Redis:  rdb,
		Tokens: tokens,
		Auth: services.NewAuthService(st, tokens, auth.NewPasswordHasher(cfg.PasswordHasher, cfg.BcryptCost), mail, services.AuthConfig{
			Lockout:               store.LockoutPolicy{Threshold: cfg.LockoutThreshold, Duration: cfg.LockoutDuration},
			AllowPrivilegedSignup: cfg.AllowPrivilegedSignup,
			EmailVerificationTTL:  cfg.EmailVerificationTTL,
			PublicBaseURL:         cfg.PublicBaseURL,
		}),
		Carts:     services.NewCartService(st),
		Orders:    services.NewOrderService(st, st, st, st, gateway, publisher, services.OrderConfig{DeliveryFee: deliveryFee}),
		Catalog:   services.NewCatalogService(st, images, cache.NewListCache(rdb, "foods", cfg.CacheTTL)),
		Bikers:    services.NewBikerService(st),
		Media:     images,
		RateLimit: cfg.RateLimit,

		MpesaCallbackToken: cfg.MpesaCallbackToken,
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), gin.Logger(), gin.CustomRecovery(handlers.RecoveryHandler))
	r.Static("/uploads", cfg.UploadDir+"/uploads")
	handlers.SetupRoutes(r, app)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("[HTTP] [INFO] listening on", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("[HTTP] [ERROR] ", err)
		}
	}()

	<-ctx.Done()
	log.Println("[HTTP] [INFO] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("[HTTP] [ERROR] shutdown:", err)
	}
}

func openStore(cfg config.Config) (store.Store, func()) {
	if cfg.StoreDriver == "memory" {
		log.Println("[DB] [WARN] using in-memory store, data is lost on restart")
		return memstore.New(), func() {}
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal("[DB] [ERROR] ", err)
	}
	db := client.Database(cfg.DBName)
	log.Println("[DB] [INFO] MongoDB connected to:", db.Name())
	database.EnsureIndexes(db)

	return mongostore.New(db), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
}
