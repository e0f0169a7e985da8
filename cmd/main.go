package main

import (
	"net/http"

	"inventory-service/internal/handler"
	mid "inventory-service/internal/middleware"
	"inventory-service/internal/reconcile"
	"inventory-service/pkg/config"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting inventory-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port),
		zap.String("db_driver", appConfig.DB.Driver))

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	err = database.InitDB(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Build the stock reconciliation engine
	policy, err := reconcile.ParsePolicy(appConfig.Stock.Policy)
	if err != nil {
		log.Fatal("Invalid stock policy", zap.Error(err))
	}
	engine := reconcile.NewEngine(database.GetDB(), policy, log)
	orders := handler.NewOrderHandler(engine)
	log.Info("Stock reconciliation engine initialized", zap.String("stock_policy", string(policy)))

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Product API routes
	productAPI := e.Group("/api/products")
	productAPI.GET("", handler.ListProducts)
	productAPI.GET("/:id", handler.GetProduct)
	productAPI.POST("", handler.CreateProduct)
	productAPI.PUT("/:id", handler.UpdateProduct)
	productAPI.DELETE("/:id", handler.DeleteProduct)
	productAPI.POST("/bulk-delete", handler.DeleteProducts)

	// Category API routes
	categoryAPI := e.Group("/api/categories")
	categoryAPI.GET("", handler.ListCategories)
	categoryAPI.GET("/:id", handler.GetCategory)
	categoryAPI.POST("", handler.CreateCategory)
	categoryAPI.PUT("/:id", handler.UpdateCategory)
	categoryAPI.DELETE("/:id", handler.DeleteCategory)
	categoryAPI.POST("/bulk-delete", handler.DeleteCategories)

	// Supplier API routes
	supplierAPI := e.Group("/api/suppliers")
	supplierAPI.GET("", handler.ListSuppliers)
	supplierAPI.GET("/:id", handler.GetSupplier)
	supplierAPI.POST("", handler.CreateSupplier)
	supplierAPI.PUT("/:id", handler.UpdateSupplier)
	supplierAPI.DELETE("/:id", handler.DeleteSupplier)
	supplierAPI.POST("/bulk-delete", handler.DeleteSuppliers)

	// Customer API routes
	customerAPI := e.Group("/api/customers")
	customerAPI.GET("", handler.ListCustomers)
	customerAPI.GET("/:id", handler.GetCustomer)
	customerAPI.POST("", handler.CreateCustomer)
	customerAPI.PUT("/:id", handler.UpdateCustomer)
	customerAPI.DELETE("/:id", handler.DeleteCustomer)
	customerAPI.POST("/bulk-delete", handler.DeleteCustomers)

	// Purchase order API routes (stock reconciliation engine)
	purchaseAPI := e.Group("/api/purchase-orders")
	purchaseAPI.GET("", orders.ListPurchaseOrders)
	purchaseAPI.POST("", orders.CreatePurchaseOrder)
	purchaseAPI.PUT("/:id", orders.UpdatePurchaseOrder)
	purchaseAPI.DELETE("/:id", orders.DeletePurchaseOrder)
	purchaseAPI.POST("/bulk-delete", orders.DeletePurchaseOrders)

	// Sale order API routes (stock reconciliation engine)
	saleAPI := e.Group("/api/sale-orders")
	saleAPI.GET("", orders.ListSaleOrders)
	saleAPI.POST("", orders.CreateSaleOrder)
	saleAPI.PUT("/:id", orders.UpdateSaleOrder)
	saleAPI.DELETE("/:id", orders.DeleteSaleOrder)
	saleAPI.POST("/bulk-delete", orders.DeleteSaleOrders)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start("127.0.0.1:" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
