package handler

import (
	"net/http"
	"strconv"

	"inventory-service/internal/model"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CategoryRequest defines the structure for category creation/update requests
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListCategories retrieves all product categories
func ListCategories(c echo.Context) error {
	log := logger.FromContext(c)

	var categories []model.Category
	result := database.GetDB().Order("id").Find(&categories)
	if result.Error != nil {
		log.Error("Failed to retrieve categories", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve categories",
		})
	}

	log.Info("Categories retrieved successfully", zap.Int("count", len(categories)))
	return c.JSON(http.StatusOK, categories)
}

// GetCategory retrieves a specific category by ID
func GetCategory(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var category model.Category
	result := database.GetDB().First(&category, id)
	if result.Error != nil {
		log.Warn("Category not found", zap.String("category_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Category not found",
		})
	}

	return c.JSON(http.StatusOK, category)
}

// CreateCategory adds a new product category
func CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "name is required",
		})
	}

	// Check if category with same name exists
	var count int64
	database.GetDB().Model(&model.Category{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		log.Warn("Category with this name already exists", zap.String("name", req.Name))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Category with this name already exists",
		})
	}

	category := model.Category{
		Name:        req.Name,
		Description: req.Description,
	}

	result := database.GetDB().Create(&category)
	if result.Error != nil {
		log.Error("Failed to create category",
			zap.String("name", req.Name),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create category",
		})
	}

	log.Info("Category created successfully",
		zap.String("category_id", strconv.FormatUint(uint64(category.ID), 10)),
		zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, category)
}

// UpdateCategory updates an existing product category
func UpdateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("category_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	var category model.Category
	result := database.GetDB().First(&category, id)
	if result.Error != nil {
		log.Warn("Category not found", zap.String("category_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Category not found",
		})
	}

	// Check if name is changed and if new name already exists
	if req.Name != category.Name {
		var count int64
		database.GetDB().Model(&model.Category{}).
			Where("name = ? AND id != ?", req.Name, id).
			Count(&count)
		if count > 0 {
			log.Warn("Category with this name already exists", zap.String("name", req.Name))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Category with this name already exists",
			})
		}
	}

	category.Name = req.Name
	category.Description = req.Description

	result = database.GetDB().Save(&category)
	if result.Error != nil {
		log.Error("Failed to update category",
			zap.String("category_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update category",
		})
	}

	log.Info("Category updated successfully",
		zap.String("category_id", id),
		zap.String("name", category.Name))
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory handles deleting a product category (soft delete)
func DeleteCategory(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var category model.Category
	preResult := database.GetDB().First(&category, id)
	if preResult.Error != nil {
		log.Warn("Category not found for deletion", zap.String("category_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Category not found",
		})
	}

	// Check if any products are using this category
	var count int64
	database.GetDB().Model(&model.Product{}).Where("category_id = ?", id).Count(&count)
	if count > 0 {
		log.Warn("Cannot delete category that is being used by products",
			zap.String("category_id", id),
			zap.Int64("product_count", count))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Cannot delete category that is being used by products",
		})
	}

	result := database.GetDB().Delete(&category)
	if result.Error != nil {
		log.Error("Failed to delete category",
			zap.String("category_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete category",
		})
	}

	log.Info("Category deleted successfully", zap.String("category_id", id))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteCategories handles deleting multiple categories at once
func DeleteCategories(c echo.Context) error {
	log := logger.FromContext(c)

	var req BulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	// Refuse the batch when any member category is still referenced
	var count int64
	database.GetDB().Model(&model.Product{}).Where("category_id IN ?", req.IDs).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Cannot delete categories that are being used by products",
		})
	}

	result := database.GetDB().Delete(&model.Category{}, req.IDs)
	if result.Error != nil {
		log.Error("Failed to delete categories", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete categories",
		})
	}

	log.Info("Categories deleted",
		zap.Int("requested", len(req.IDs)),
		zap.Int64("rows_affected", result.RowsAffected))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
