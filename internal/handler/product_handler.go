package handler

import (
	"net/http"
	"strconv"

	"inventory-service/internal/model"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductRequest defines the structure for product creation/update requests.
// StockQuantity here is the manual adjustment path used by the stocks screen;
// order-driven stock changes go through the reconciliation engine instead.
type ProductRequest struct {
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	UPC           string  `json:"upc"`
	CostPrice     float64 `json:"cost_price"`
	SellingPrice  float64 `json:"selling_price"`
	StockQuantity int     `json:"stock_quantity"`
	CategoryID    uint    `json:"category_id"`
}

// ListProducts handles retrieving all products with optional filtering
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)

	db := database.GetDB()
	var products []model.Product

	query := db

	// Filter by category if specified
	categoryID := c.QueryParam("category_id")
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	result := query.Order("id").Find(&products)
	if result.Error != nil {
		log.Error("Failed to list products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve products",
		})
	}

	log.Info("Products retrieved successfully", zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}

// GetProduct handles retrieving a single product by ID
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var product model.Product
	result := database.GetDB().First(&product, id)
	if result.Error != nil {
		log.Warn("Product not found", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Product not found",
		})
	}

	return c.JSON(http.StatusOK, product)
}

// CreateProduct handles creating a new product
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}
	if req.Name == "" || req.SKU == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "name and sku are required",
		})
	}

	// Check if product with SKU already exists
	var count int64
	database.GetDB().Model(&model.Product{}).Where("sku = ?", req.SKU).Count(&count)
	if count > 0 {
		log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Product with this SKU already exists",
		})
	}

	product := model.Product{
		Name:          req.Name,
		SKU:           req.SKU,
		UPC:           req.UPC,
		CostPrice:     req.CostPrice,
		SellingPrice:  req.SellingPrice,
		StockQuantity: req.StockQuantity,
		CategoryID:    req.CategoryID,
	}

	result := database.GetDB().Create(&product)
	if result.Error != nil {
		log.Error("Failed to create product",
			zap.String("name", req.Name),
			zap.String("sku", req.SKU),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create product",
		})
	}

	log.Info("Product created successfully",
		zap.String("product_id", strconv.FormatUint(uint64(product.ID), 10)),
		zap.String("name", product.Name),
		zap.String("sku", product.SKU))
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles updating an existing product
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	// Find existing product
	var product model.Product
	result := database.GetDB().First(&product, id)
	if result.Error != nil {
		log.Warn("Product not found for update",
			zap.String("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Product not found",
		})
	}

	// Check if SKU is changed and if new SKU already exists
	if req.SKU != product.SKU {
		var count int64
		database.GetDB().Model(&model.Product{}).Where("sku = ? AND id != ?", req.SKU, id).Count(&count)
		if count > 0 {
			log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Product with this SKU already exists",
			})
		}
	}

	// Update fields
	product.Name = req.Name
	product.SKU = req.SKU
	product.UPC = req.UPC
	product.CostPrice = req.CostPrice
	product.SellingPrice = req.SellingPrice
	product.StockQuantity = req.StockQuantity
	product.CategoryID = req.CategoryID

	result = database.GetDB().Save(&product)
	if result.Error != nil {
		log.Error("Failed to update product",
			zap.String("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update product",
		})
	}

	prometheus.UpdateProductInventory(id, float64(product.StockQuantity))
	log.Info("Product updated successfully",
		zap.String("product_id", id),
		zap.String("name", product.Name))
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct handles deleting a product (soft delete)
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	result := database.GetDB().Delete(&model.Product{}, id)
	if result.Error != nil {
		log.Error("Failed to delete product",
			zap.String("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete product",
		})
	}

	if result.RowsAffected == 0 {
		log.Warn("Product not found for deletion", zap.String("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Product not found",
		})
	}

	log.Info("Product deleted successfully", zap.String("product_id", id))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteProducts handles deleting multiple products at once
func DeleteProducts(c echo.Context) error {
	log := logger.FromContext(c)

	var req BulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	result := database.GetDB().Delete(&model.Product{}, req.IDs)
	if result.Error != nil {
		log.Error("Failed to delete products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete products",
		})
	}

	log.Info("Products deleted",
		zap.Int("requested", len(req.IDs)),
		zap.Int64("rows_affected", result.RowsAffected))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
