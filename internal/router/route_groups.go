package router

import (
	"resto_backend/internal/handlers"
	"resto_backend/internal/middleware"
	"resto_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupPublicAuthRoutes sets up the unauthenticated auth routes.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/register", authHandler.RegisterUser)
	group.POST("/login", authHandler.LoginUser)
}

// SetupAuthenticatedAuthRoutes sets up the auth routes that require a token.
func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.GET("/me", authHandler.GetCurrentUser)
}

// SetupPublicProductRoutes sets up menu browsing. The catalog is readable
// without an account so guests can see the menu before registering.
func SetupPublicProductRoutes(apiGroup *gin.RouterGroup, productHandler *handlers.ProductHandler) {
	apiGroup.GET("/products", productHandler.GetProducts)
	apiGroup.GET("/products/:id", productHandler.GetProductByID)
}

// SetupOrderRoutes sets up the order routes. Customers place and read
// orders; the kitchen and admins drive status changes.
func SetupOrderRoutes(authenticatedGroup *gin.RouterGroup, orderHandler *handlers.OrderHandler) {
	orderRoutes := authenticatedGroup.Group("/orders")
	{
		orderRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleUser), orderHandler.CreateOrder)
		orderRoutes.GET("", orderHandler.GetOrders)
		orderRoutes.GET("/:id", orderHandler.GetOrderByID)
		orderRoutes.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RoleKitchen, models.RoleAdmin), orderHandler.UpdateOrderStatus)
	}
}

// SetupKitchenRoutes sets up the kitchen work queue.
func SetupKitchenRoutes(authenticatedGroup *gin.RouterGroup, orderHandler *handlers.OrderHandler) {
	kitchenRoutes := authenticatedGroup.Group("/kitchen")
	kitchenRoutes.Use(middleware.RoleAuthMiddleware(models.RoleKitchen, models.RoleAdmin))
	{
		kitchenRoutes.GET("/orders", orderHandler.GetKitchenQueue)
	}
}

// SetupPaymentRoutes sets up the payment routes. Ownership of the order is
// checked in the service, not here.
func SetupPaymentRoutes(authenticatedGroup *gin.RouterGroup, paymentHandler *handlers.PaymentHandler) {
	paymentRoutes := authenticatedGroup.Group("/payments")
	{
		paymentRoutes.POST("", paymentHandler.CreatePayment)
	}
}

// SetupProductAdminRoutes sets up the catalog write routes, admin only.
func SetupProductAdminRoutes(authenticatedGroup *gin.RouterGroup, productHandler *handlers.ProductHandler) {
	productRoutes := authenticatedGroup.Group("/products")
	productRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		productRoutes.POST("", productHandler.CreateProduct)
		productRoutes.PUT("/:id", productHandler.UpdateProduct)
		productRoutes.DELETE("/:id", productHandler.DeleteProduct)
		productRoutes.POST("/:id/restock", productHandler.RestockProduct)
	}
}

// SetupStockMovementRoutes sets up the stock ledger listing, admin only.
func SetupStockMovementRoutes(authenticatedGroup *gin.RouterGroup, productHandler *handlers.ProductHandler) {
	stockMovementRoutes := authenticatedGroup.Group("/stock-movements")
	stockMovementRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		stockMovementRoutes.GET("", productHandler.GetStockMovements)
	}
}
