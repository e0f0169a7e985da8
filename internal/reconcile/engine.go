// Package reconcile implements the stock reconciliation engine: the order
// lifecycle operations that keep Product.StockQuantity consistent with
// purchase orders (supplier -> warehouse) and sale orders (warehouse ->
// customer) as those orders are created, edited and deleted. Every mutation
// persists the order header, its line set and the implied stock deltas inside
// one database transaction.
package reconcile

import (
	"errors"
	"fmt"
	"strconv"

	"inventory-service/internal/model"
	"inventory-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrOrderNotFound is returned by delete operations for an unknown order id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound is returned when a stock delta targets a missing product.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned under PolicyReject when a delta would
	// drive a product's stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockPolicy controls how the engine treats deltas that would make a
// product's stock negative.
type StockPolicy string

const (
	// PolicyAllow lets stock go negative. This matches the historical
	// behavior of the application and is the default.
	PolicyAllow StockPolicy = "allow"
	// PolicyClamp floors stock at zero.
	PolicyClamp StockPolicy = "clamp"
	// PolicyReject aborts the transaction instead of going negative.
	PolicyReject StockPolicy = "reject"
)

// ParsePolicy maps a configuration string to a StockPolicy.
func ParsePolicy(s string) (StockPolicy, error) {
	switch StockPolicy(s) {
	case PolicyAllow, PolicyClamp, PolicyReject:
		return StockPolicy(s), nil
	case "":
		return PolicyAllow, nil
	default:
		return "", fmt.Errorf("unknown stock policy %q (supported: allow, clamp, reject)", s)
	}
}

const (
	kindPurchase = "purchase"
	kindSale     = "sale"
)

// Engine is the single writer of Product.StockQuantity.
type Engine struct {
	db     *gorm.DB
	policy StockPolicy
	log    *zap.Logger
}

// NewEngine creates an engine on top of the given database handle.
func NewEngine(db *gorm.DB, policy StockPolicy, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{db: db, policy: policy, log: log}
}

// LineInput is one requested order line. ProductID must reference an existing
// product, Quantity must be positive and UnitPrice non-negative; the handlers
// validate the shape before the engine is invoked.
type LineInput struct {
	ProductID uint    `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// applyStockDelta is the single code path that mutates a product's stock
// counter. It runs inside the caller's transaction so a failed delta aborts
// the whole order mutation.
func (e *Engine) applyStockDelta(tx *gorm.DB, kind string, productID uint, delta int) error {
	if delta == 0 {
		return nil
	}

	if e.policy == PolicyReject && delta < 0 {
		var product model.Product
		if err := tx.Select("stock_quantity").First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
			}
			return err
		}
		if product.StockQuantity+delta < 0 {
			return fmt.Errorf("product %d: stock %d, delta %d: %w",
				productID, product.StockQuantity, delta, ErrInsufficientStock)
		}
	}

	expr := gorm.Expr("stock_quantity + ?", delta)
	if e.policy == PolicyClamp && delta < 0 {
		expr = gorm.Expr("CASE WHEN stock_quantity + ? < 0 THEN 0 ELSE stock_quantity + ? END", delta, delta)
	}

	result := tx.Model(&model.Product{}).Where("id = ?", productID).UpdateColumn("stock_quantity", expr)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	}

	prometheus.RecordStockMovement(kind, delta)
	return nil
}

// purchaseTransitionSign returns the multiplier applied to each existing line
// quantity when a purchase order's status changes. Leaving cancelled restores
// stock, entering cancelled removes it, and moving between pending and
// received adds or removes it accordingly.
func purchaseTransitionSign(from, to model.OrderStatus) int {
	if from == to {
		return 0
	}
	switch {
	case from == model.StatusCancelled:
		return 1
	case to == model.StatusCancelled:
		return -1
	case to == model.StatusReceived:
		return 1
	case from == model.StatusReceived:
		return -1
	default:
		return 0
	}
}

// saleTransitionSign is the sale mirror: only cancelled is significant, every
// non-cancelled status consumes stock. Transitions between two non-cancelled
// statuses (pending -> shipped) move nothing.
func saleTransitionSign(from, to model.OrderStatus) int {
	fromConsumes := from != model.StatusCancelled
	toConsumes := to != model.StatusCancelled
	switch {
	case fromConsumes && !toConsumes:
		return 1
	case !fromConsumes && toConsumes:
		return -1
	default:
		return 0
	}
}

// inputQuantities collapses requested lines into a product -> quantity map.
func inputQuantities(lines []LineInput) map[uint]int {
	quantities := make(map[uint]int, len(lines))
	for _, line := range lines {
		quantities[line.ProductID] += line.Quantity
	}
	return quantities
}

// diffQuantities reconciles two line sets keyed by product id and returns the
// net quantity change per product: matched products yield new-old, products
// only in the new set yield +new, products only in the old set yield -old.
func diffQuantities(oldQ, newQ map[uint]int) map[uint]int {
	deltas := make(map[uint]int, len(oldQ)+len(newQ))
	for productID, quantity := range newQ {
		deltas[productID] = quantity - oldQ[productID]
	}
	for productID, quantity := range oldQ {
		if _, ok := newQ[productID]; !ok {
			deltas[productID] = -quantity
		}
	}
	return deltas
}

// refreshInventory re-reads stock for the affected products after a commit
// and publishes the levels to the inventory gauge. Gauge updates are best
// effort and never fail the operation.
func (e *Engine) refreshInventory(productIDs []uint) {
	if len(productIDs) == 0 {
		return
	}
	var products []model.Product
	if err := e.db.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		e.log.Warn("Failed to refresh inventory gauge", zap.Error(err))
		return
	}
	for _, product := range products {
		prometheus.UpdateProductInventory(
			strconv.FormatUint(uint64(product.ID), 10),
			float64(product.StockQuantity),
		)
	}
}
