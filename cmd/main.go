package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"store_service/config"
	"store_service/internal/delivery"
	"store_service/internal/repository"
	"store_service/internal/usecase"
	"store_service/pkg/db"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig(logger)

	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
		logger.Warnf("Invalid LOG_LEVEL '%s', using default: %s", cfg.LogLevel, logLevel.String())
	}
	logger.SetLevel(logLevel)
	logger.Info("Starting Store Service...")

	// --- Database ---
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("FATAL: Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connection established.")

	if err := db.Migrate(database); err != nil {
		logger.Fatalf("FATAL: Failed to apply database migrations: %v", err)
	}
	logger.Info("Database schema is up to date.")

	// --- Dependency Injection ---
	productRepo := repository.NewPostgresProductRepository(database, logger)
	categoryRepo := repository.NewPostgresCategoryRepository(database, logger)
	cartRepo := repository.NewPostgresCartRepository(database, logger)
	billRepo := repository.NewPostgresBillRepository(database, logger)
	userRepo := repository.NewPostgresUserRepository(database, logger)
	sessionRepo := repository.NewPostgresSessionRepository(database, logger)
	txManager := repository.NewTxManager(database, logger)
	logger.Info("Repositories initialized.")

	productUseCase := usecase.NewProductUseCase(productRepo, categoryRepo, logger)
	categoryUseCase := usecase.NewCategoryUseCase(categoryRepo, txManager, cfg.FallbackCategoryID, logger)
	cartUseCase := usecase.NewCartUseCase(cartRepo, txManager, logger)
	billUseCase := usecase.NewBillUseCase(billRepo, txManager, logger)
	userUseCase := usecase.NewUserUseCase(userRepo, sessionRepo, time.Duration(cfg.SessionTTLHours)*time.Hour, logger)
	logger.Info("Use cases initialized.")

	authHandler := delivery.NewAuthHandler(userUseCase, logger)
	productHandler := delivery.NewProductHandler(productUseCase, logger)
	categoryHandler := delivery.NewCategoryHandler(categoryUseCase, logger)
	cartHandler := delivery.NewCartHandler(cartUseCase, logger)
	billHandler := delivery.NewBillHandler(billUseCase, logger)
	userHandler := delivery.NewUserHandler(userUseCase, logger)
	logger.Info("Handlers initialized.")

	// --- Router ---
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(delivery.RequestLogger(logger))
	router.RedirectTrailingSlash = false

	authHandler.RegisterRoutes(router)

	authed := router.Group("", delivery.AuthMiddleware(userUseCase, logger))
	admin := authed.Group("", delivery.RequireAdmin(logger))

	authHandler.RegisterProtectedRoutes(authed)
	productHandler.RegisterRoutes(authed, admin)
	categoryHandler.RegisterRoutes(authed, admin)
	cartHandler.RegisterRoutes(authed)
	billHandler.RegisterRoutes(authed, admin)
	userHandler.RegisterRoutes(admin)
	logger.Info("Routes registered.")

	// --- Start Server ---
	logger.Infof("Starting server on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		logger.Errorf("Failed to start server on port %s: %v", cfg.Port, err)
		os.Exit(1)
	}
}
