package handler

import (
	"errors"
	"net/http"
	"strconv"

	"inventory-service/internal/reconcile"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// BulkDeleteRequest carries the id set for the delete-multiple operations.
type BulkDeleteRequest struct {
	IDs []uint `json:"ids"`
}

// OrderHandler exposes the stock reconciliation engine's order operations to
// the presentation layer.
type OrderHandler struct {
	engine *reconcile.Engine
}

// NewOrderHandler creates an OrderHandler around the given engine.
func NewOrderHandler(engine *reconcile.Engine) *OrderHandler {
	return &OrderHandler{engine: engine}
}

// validateLines checks the shape of requested order lines. An order holds at
// most one line per product, so a repeated product_id is rejected here rather
// than surfacing as a primary-key violation. Referential integrity of product
// ids is left to the engine's transaction.
func validateLines(lines []reconcile.LineInput) string {
	seen := make(map[uint]struct{}, len(lines))
	for _, line := range lines {
		if line.ProductID == 0 {
			return "each line requires a product_id"
		}
		if _, dup := seen[line.ProductID]; dup {
			return "lines contain a duplicate product_id; an order holds one line per product"
		}
		seen[line.ProductID] = struct{}{}
		if line.Quantity <= 0 {
			return "line quantity must be a positive integer"
		}
		if line.UnitPrice < 0 {
			return "line unit_price must not be negative"
		}
	}
	return ""
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

// orderMutationError maps engine failures onto boundary responses.
func orderMutationError(c echo.Context, log *zap.Logger, err error, fallback string) error {
	switch {
	case errors.Is(err, reconcile.ErrProductNotFound):
		log.Warn("Order line references a missing product", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, reconcile.ErrInsufficientStock):
		log.Warn("Order rejected by stock policy", zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		log.Error(fallback, zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
	}
}

// ListPurchaseOrders handles retrieving all purchase orders with their lines
func (h *OrderHandler) ListPurchaseOrders(c echo.Context) error {
	log := logger.FromContext(c)

	orders, err := h.engine.ListPurchaseOrders(c.Request().Context())
	if err != nil {
		log.Error("Failed to list purchase orders", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve purchase orders",
		})
	}

	log.Info("Purchase orders retrieved successfully", zap.Int("count", len(orders)))
	return c.JSON(http.StatusOK, orders)
}

// CreatePurchaseOrder handles creating a purchase order with its lines
func (h *OrderHandler) CreatePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("purchase", "create")

	var req reconcile.PurchaseOrderInput
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if msg := validateLines(req.Lines); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	order, err := h.engine.CreatePurchaseOrder(c.Request().Context(), req)
	if err != nil {
		return orderMutationError(c, log, err, "Failed to create purchase order")
	}

	return c.JSON(http.StatusCreated, order)
}

// UpdatePurchaseOrder handles editing a purchase order's header, status or lines
func (h *OrderHandler) UpdatePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("purchase", "update")

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid order id"})
	}

	var req reconcile.PurchaseOrderInput
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if msg := validateLines(req.Lines); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	if err := h.engine.UpdatePurchaseOrder(c.Request().Context(), id, req); err != nil {
		return orderMutationError(c, log, err, "Failed to update purchase order")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeletePurchaseOrder handles deleting one purchase order
func (h *OrderHandler) DeletePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("purchase", "delete")

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid order id"})
	}

	if err := h.engine.DeletePurchaseOrder(c.Request().Context(), id); err != nil {
		if errors.Is(err, reconcile.ErrOrderNotFound) {
			log.Warn("Purchase order not found for deletion", zap.Uint("order_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{
				"success": false,
				"error":   "Order not found",
			})
		}
		return orderMutationError(c, log, err, "Failed to delete purchase order")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeletePurchaseOrders handles deleting multiple purchase orders at once
func (h *OrderHandler) DeletePurchaseOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("purchase", "bulk_delete")

	var req BulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if err := h.engine.DeletePurchaseOrders(c.Request().Context(), req.IDs); err != nil {
		return orderMutationError(c, log, err, "Failed to delete purchase orders")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ListSaleOrders handles retrieving all sale orders with their lines
func (h *OrderHandler) ListSaleOrders(c echo.Context) error {
	log := logger.FromContext(c)

	orders, err := h.engine.ListSaleOrders(c.Request().Context())
	if err != nil {
		log.Error("Failed to list sale orders", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve sale orders",
		})
	}

	log.Info("Sale orders retrieved successfully", zap.Int("count", len(orders)))
	return c.JSON(http.StatusOK, orders)
}

// CreateSaleOrder handles creating a sale order with its lines
func (h *OrderHandler) CreateSaleOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("sale", "create")

	var req reconcile.SaleOrderInput
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if msg := validateLines(req.Lines); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	order, err := h.engine.CreateSaleOrder(c.Request().Context(), req)
	if err != nil {
		return orderMutationError(c, log, err, "Failed to create sale order")
	}

	return c.JSON(http.StatusCreated, order)
}

// UpdateSaleOrder handles editing a sale order's header, status or lines
func (h *OrderHandler) UpdateSaleOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("sale", "update")

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid order id"})
	}

	var req reconcile.SaleOrderInput
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if msg := validateLines(req.Lines); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	if err := h.engine.UpdateSaleOrder(c.Request().Context(), id, req); err != nil {
		return orderMutationError(c, log, err, "Failed to update sale order")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteSaleOrder handles deleting one sale order
func (h *OrderHandler) DeleteSaleOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("sale", "delete")

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid order id"})
	}

	if err := h.engine.DeleteSaleOrder(c.Request().Context(), id); err != nil {
		if errors.Is(err, reconcile.ErrOrderNotFound) {
			log.Warn("Sale order not found for deletion", zap.Uint("order_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{
				"success": false,
				"error":   "Order not found",
			})
		}
		return orderMutationError(c, log, err, "Failed to delete sale order")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteSaleOrders handles deleting multiple sale orders at once
func (h *OrderHandler) DeleteSaleOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("sale", "bulk_delete")

	var req BulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if err := h.engine.DeleteSaleOrders(c.Request().Context(), req.IDs); err != nil {
		return orderMutationError(c, log, err, "Failed to delete sale orders")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
