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

// PartnerRequest covers supplier and customer creation/update requests, which
// share the same contact shape.
type PartnerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ListSuppliers retrieves all suppliers
func ListSuppliers(c echo.Context) error {
	log := logger.FromContext(c)

	var suppliers []model.Supplier
	if result := database.GetDB().Order("id").Find(&suppliers); result.Error != nil {
		log.Error("Failed to retrieve suppliers", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve suppliers"})
	}
	return c.JSON(http.StatusOK, suppliers)
}

// GetSupplier retrieves a single supplier by ID
func GetSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var supplier model.Supplier
	if result := database.GetDB().First(&supplier, id); result.Error != nil {
		log.Warn("Supplier not found", zap.String("supplier_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Supplier not found"})
	}
	return c.JSON(http.StatusOK, supplier)
}

// CreateSupplier creates a new supplier
func CreateSupplier(c echo.Context) error {
	log := logger.FromContext(c)

	var req PartnerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	supplier := model.Supplier{Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address}
	if result := database.GetDB().Create(&supplier); result.Error != nil {
		log.Error("Failed to create supplier", zap.String("name", req.Name), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create supplier"})
	}

	log.Info("Supplier created successfully",
		zap.String("supplier_id", strconv.FormatUint(uint64(supplier.ID), 10)),
		zap.String("name", supplier.Name))
	return c.JSON(http.StatusCreated, supplier)
}

// UpdateSupplier updates an existing supplier
func UpdateSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req PartnerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	var supplier model.Supplier
	if result := database.GetDB().First(&supplier, id); result.Error != nil {
		log.Warn("Supplier not found for update", zap.String("supplier_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Supplier not found"})
	}

	supplier.Name = req.Name
	supplier.Email = req.Email
	supplier.Phone = req.Phone
	supplier.Address = req.Address

	if result := database.GetDB().Save(&supplier); result.Error != nil {
		log.Error("Failed to update supplier", zap.String("supplier_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update supplier"})
	}

	log.Info("Supplier updated successfully", zap.String("supplier_id", id))
	return c.JSON(http.StatusOK, supplier)
}

// DeleteSupplier handles deleting a supplier (soft delete)
func DeleteSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	result := database.GetDB().Delete(&model.Supplier{}, id)
	if result.Error != nil {
		log.Error("Failed to delete supplier", zap.String("supplier_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete supplier"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Supplier not found"})
	}

	log.Info("Supplier deleted successfully", zap.String("supplier_id", id))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteSuppliers handles deleting multiple suppliers at once
func DeleteSuppliers(c echo.Context) error {
	log := logger.FromContext(c)

	var req BulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	result := database.GetDB().Delete(&model.Supplier{}, req.IDs)
	if result.Error != nil {
		log.Error("Failed to delete suppliers", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete suppliers"})
	}

	log.Info("Suppliers deleted", zap.Int64("rows_affected", result.RowsAffected))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ListCustomers retrieves all customers
func ListCustomers(c echo.Context) error {
	log := logger.FromContext(c)

	var customers []model.Customer
	if result := database.GetDB().Order("id").Find(&customers); result.Error != nil {
		log.Error("Failed to retrieve customers", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve customers"})
	}
	return c.JSON(http.StatusOK, customers)
}

// GetCustomer retrieves a single customer by ID
func GetCustomer(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var customer model.Customer
	if result := database.GetDB().First(&customer, id); result.Error != nil {
		log.Warn("Customer not found", zap.String("customer_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Customer not found"})
	}
	return c.JSON(http.StatusOK, customer)
}

// CreateCustomer creates a new customer
func CreateCustomer(c echo.Context) error {
	log := logger.FromContext(c)

	var req PartnerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	customer := model.Customer{Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address}
	if result := database.GetDB().Create(&customer); result.Error != nil {
		log.Error("Failed to create customer", zap.String("name", req.Name), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create customer"})
	}

	log.Info("Customer created successfully",
		zap.String("customer_id", strconv.FormatUint(uint64(customer.ID), 10)),
		zap.String("name", customer.Name))
	return c.JSON(http.StatusCreated, customer)
}

// UpdateCustomer updates an existing customer
func UpdateCustomer(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req PartnerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	var customer model.Customer
	if result := database.GetDB().First(&customer, id); result.Error != nil {
		log.Warn("Customer not found for update", zap.String("customer_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Customer not found"})
	}

	customer.Name = req.Name
	customer.Email = req.Email
	customer.Phone = req.Phone
	customer.Address = req.Address

	if result := database.GetDB().Save(&customer); result.Error != nil {
		log.Error("Failed to update customer", zap.String("customer_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update customer"})
	}

	log.Info("Customer updated successfully", zap.String("customer_id", id))
	return c.JSON(http.StatusOK, customer)
}

// DeleteCustomer handles deleting a customer (soft delete)
func DeleteCustomer(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	result := database.GetDB().Delete(&model.Customer{}, id)
	if result.Error != nil {
		log.Error("Failed to delete customer", zap.String("customer_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete customer"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Customer not found"})
	}

	log.Info("Customer deleted successfully", zap.String("customer_id", id))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteCustomers handles deleting multiple customers at once
func DeleteCustomers(c echo.Context) error {
	log := logger.FromContext(c)

	var req BulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	result := database.GetDB().Delete(&model.Customer{}, req.IDs)
	if result.Error != nil {
		log.Error("Failed to delete customers", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete customers"})
	}

	log.Info("Customers deleted", zap.Int64("rows_affected", result.RowsAffected))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
