package router

import (
	"database/sql"

	"resto_backend/internal/handlers"
	"resto_backend/internal/middleware"
	"resto_backend/internal/repositories"
	"resto_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB) {
	// Initialize Repositories
	authRepo := repositories.NewAuthRepository(db)
	productRepo := repositories.NewProductRepository(db)
	stockMvRepo := repositories.NewStockMovementRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	txManager := repositories.NewSQLTxManager(db)

	// Initialize Services
	authService := services.NewAuthService(authRepo, txManager)
	productService := services.NewProductService(productRepo, stockMvRepo, txManager)
	orderService := services.NewOrderService(orderRepo, productRepo, stockMvRepo, paymentRepo, txManager)
	paymentService := services.NewPaymentService(paymentRepo, orderRepo, txManager)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	apiV1 := engine.Group("/api/v1")

	// Public routes: registration, login and menu browsing.
	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)
	SetupPublicProductRoutes(apiV1, productHandler)

	// Authenticated routes
	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)

		SetupOrderRoutes(authenticated, orderHandler)
		SetupKitchenRoutes(authenticated, orderHandler)
		SetupPaymentRoutes(authenticated, paymentHandler)
		SetupProductAdminRoutes(authenticated, productHandler)
		SetupStockMovementRoutes(authenticated, productHandler)
	}
}
