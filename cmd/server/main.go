package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/terminal-bench/lendvault/internal/config"
	"github.com/terminal-bench/lendvault/internal/handlers"
	"github.com/terminal-bench/lendvault/internal/middleware"
	"github.com/terminal-bench/lendvault/internal/repository"
	"github.com/terminal-bench/lendvault/internal/services/imagestore"
	"github.com/terminal-bench/lendvault/internal/services/ledger"
	"github.com/terminal-bench/lendvault/internal/services/notification"
	"github.com/terminal-bench/lendvault/internal/services/penalty"
	"github.com/terminal-bench/lendvault/internal/services/rental"
	"github.com/terminal-bench/lendvault/internal/services/reputation"
	"github.com/terminal-bench/lendvault/pkg/keylock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := repository.OpenDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	defer rdb.Close()

	images, err := imagestore.NewService(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to initialize image store", "error", err)
		os.Exit(1)
	}

	users := repository.NewUserRepository(db)
	items := repository.NewItemRepository(db)
	txs := repository.NewTransactionRepository(db)
	penalties := repository.NewPenaltyRepository(db)
	reviews := repository.NewReviewRepository(db)
	complaints := repository.NewComplaintRepository(db)
	messages := repository.NewMessageRepository(db)
	notifications := repository.NewNotificationRepository(db)

	notifier := notification.NewService(notifications, rdb, logger)

	// Ledger and penalty queue share one keyed mutex so all balance
	// writers for a user serialize on the same lock.
	balanceLocks := keylock.New()
	ledgerSvc := ledger.NewService(users, balanceLocks)
	penaltyQueue := penalty.NewQueue(penalties, txs, users, notifier, balanceLocks, logger)
	reputationSvc := reputation.NewService(users, reviews, txs)
	rentalSvc := rental.NewService(users, txs, items, ledgerSvc, penaltyQueue, reputationSvc, notifier, logger)

	router := setupRouter(cfg, routerDeps{
		users:      users,
		items:      items,
		txs:        txs,
		penalties:  penalties,
		reviews:    reviews,
		complaints: complaints,
		messages:   messages,
		notifier:   notifier,
		images:     images,
		rentals:    rentalSvc,
		queue:      penaltyQueue,
		reputation: reputationSvc,
		logger:     logger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}

type routerDeps struct {
	users      *repository.UserRepository
	items      *repository.ItemRepository
	txs        *repository.TransactionRepository
	penalties  *repository.PenaltyRepository
	reviews    *repository.ReviewRepository
	complaints *repository.ComplaintRepository
	messages   *repository.MessageRepository
	notifier   *notification.Service
	images     *imagestore.Service
	rentals    *rental.Service
	queue      *penalty.Queue
	reputation *reputation.Service
	logger     *slog.Logger
}

func setupRouter(cfg *config.Config, deps routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimit(cfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(cfg, deps.users, deps.txs, deps.items)
	itemHandler := handlers.NewItemHandler(deps.items, deps.txs)
	txHandler := handlers.NewTransactionHandler(deps.rentals, deps.txs)
	penaltyHandler := handlers.NewPenaltyHandler(deps.penalties, deps.queue)
	reviewHandler := handlers.NewReviewHandler(deps.reviews, deps.txs, deps.users, deps.reputation, deps.logger)
	complaintHandler := handlers.NewComplaintHandler(deps.complaints, deps.txs, deps.reputation, deps.notifier)
	messageHandler := handlers.NewMessageHandler(deps.messages, deps.txs, deps.notifier)
	notificationHandler := handlers.NewNotificationHandler(deps.notifier)
	imageHandler := handlers.NewImageHandler(cfg, deps.images)

	api := router.Group("/api/v1")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/items", itemHandler.List)
	api.GET("/items/categories", itemHandler.Categories)
	api.GET("/items/:id", itemHandler.Get)
	api.GET("/images/*key", imageHandler.Serve)

	// Protected routes
	auth := api.Group("")
	auth.Use(middleware.Auth(cfg))
	{
		auth.GET("/auth/me", authHandler.Me)
		auth.PUT("/auth/me", authHandler.UpdateProfile)
		auth.DELETE("/auth/me", authHandler.DeleteAccount)

		auth.POST("/items", itemHandler.Create)
		auth.GET("/items/mine", itemHandler.MyItems)
		auth.PUT("/items/:id", itemHandler.Update)
		auth.PATCH("/items/:id/availability", itemHandler.ToggleAvailability)
		auth.DELETE("/items/:id", itemHandler.Delete)
		auth.POST("/items/suggest-tokens", itemHandler.SuggestTokens)

		auth.POST("/transactions", txHandler.Request)
		auth.GET("/transactions/pending", txHandler.Pending)
		auth.GET("/transactions/my-activities", txHandler.MyActivities)
		auth.GET("/transactions/:id", txHandler.Get)
		auth.POST("/transactions/:id/approve", txHandler.Approve)
		auth.POST("/transactions/:id/reject", txHandler.Reject)
		auth.POST("/transactions/:id/confirm-delivery", txHandler.ConfirmDelivery)
		auth.POST("/transactions/:id/confirm-return", txHandler.ConfirmReturn)

		auth.GET("/penalties", penaltyHandler.List)
		auth.POST("/penalties/process-pending", penaltyHandler.ProcessPending)

		auth.POST("/reviews", reviewHandler.Create)
		auth.GET("/users/:id/reviews", reviewHandler.ForUser)
		auth.GET("/users/:id/profile", reviewHandler.UserProfile)

		auth.POST("/complaints", complaintHandler.Create)
		auth.GET("/users/:id/complaints", complaintHandler.AgainstUser)

		auth.POST("/messages", messageHandler.Send)
		auth.GET("/messages/chats", messageHandler.ChatList)
		auth.GET("/transactions/:id/messages", messageHandler.ForTransaction)

		auth.GET("/notifications", notificationHandler.List)
		auth.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
		auth.DELETE("/notifications/:id", notificationHandler.Delete)

		auth.POST("/images", imageHandler.Upload)
	}

	return router
}
