package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"billsplit-backend/config"
	"billsplit-backend/database"
	"billsplit-backend/handlers"
	"billsplit-backend/logging"
	"billsplit-backend/metrics"
	"billsplit-backend/middleware"
	"billsplit-backend/services"
	"billsplit-backend/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	// Redis is optional; a nil client just disables the summary cache.
	cache := database.ConnectRedis(cfg.RedisURL, logger)

	m := metrics.New(prometheus.DefaultRegisterer)
	jwtManager := utils.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)

	notifications := services.NewNotificationService(context.Background(), db, cfg, logger)
	defer notifications.Close()

	invitations := services.NewInvitationService(db, logger, notifications)
	bills := services.NewBillService(db, cache, logger, notifications, m)

	authHandler := handlers.NewAuthHandler(db, jwtManager, invitations, logger)
	userHandler := handlers.NewUserHandler(db)
	groupHandler := handlers.NewGroupHandler(db, invitations, notifications, logger)
	billHandler := handlers.NewBillHandler(bills)
	activityHandler := handlers.NewActivityHandler(db)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.AppName})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired(jwtManager))
	{
		// Users
		api.GET("/users/me", userHandler.GetProfile)
		api.PUT("/users/me", userHandler.UpdateProfile)
		api.PUT("/users/me/fcm-token", userHandler.UpdateFCMToken)
		api.POST("/users/search", userHandler.SearchUsers)

		// Groups
		api.POST("/groups", groupHandler.CreateGroup)
		api.GET("/groups", groupHandler.GetGroups)
		api.GET("/groups/:id", groupHandler.GetGroup)
		api.PUT("/groups/:id", groupHandler.UpdateGroup)
		api.POST("/groups/:id/members", groupHandler.AddMember)
		api.DELETE("/groups/:id/members/:uid", groupHandler.RemoveMember)
		api.POST("/groups/:id/invite", groupHandler.Invite)
		api.GET("/groups/:id/bills", billHandler.ListGroupBills)

		// Bills
		api.POST("/bills", billHandler.CreateBill)
		api.GET("/bills", billHandler.ListBills)
		api.GET("/bills/:id", billHandler.GetBill)
		api.PUT("/bills/:id", billHandler.UpdateBill)
		api.DELETE("/bills/:id", billHandler.DeleteBill)

		// Settlement on a bill's payment edges
		api.POST("/bills/:id/payments/:uid/mark-paid", billHandler.MarkPaid)
		api.POST("/bills/:id/payments/:uid/cancel", billHandler.CancelPayment)
		api.POST("/bills/:id/payments/:uid/confirm", billHandler.ConfirmPayment)
		api.POST("/bills/:id/payments/:uid/undo-confirm", billHandler.UndoConfirmation)

		// Ledger views
		api.GET("/summary", billHandler.GetSummary)
		api.GET("/balances", billHandler.GetFriendBalances)

		// Activity
		api.GET("/activity", activityHandler.GetActivity)
		api.GET("/groups/:id/activity", activityHandler.GetGroupActivity)
	}

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
