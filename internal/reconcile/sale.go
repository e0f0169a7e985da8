package reconcile

import (
	"context"
	"errors"
	"time"

	"inventory-service/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SaleOrderInput mirrors PurchaseOrderInput for outbound orders.
type SaleOrderInput struct {
	CustomerID  uint              `json:"customer_id"`
	OrderDate   time.Time         `json:"order_date"`
	TotalAmount float64           `json:"total_amount"`
	Status      model.OrderStatus `json:"status"`
	Lines       []LineInput       `json:"lines"`
}

// ListSaleOrders returns all sale orders with their line sets.
func (e *Engine) ListSaleOrders(ctx context.Context) ([]model.SaleOrder, error) {
	var orders []model.SaleOrder
	err := e.db.WithContext(ctx).Preload("Lines").Order("id").Find(&orders).Error
	return orders, err
}

// CreateSaleOrder inserts the order header and lines and, unless the order is
// created cancelled, consumes stock for each line quantity.
func (e *Engine) CreateSaleOrder(ctx context.Context, in SaleOrderInput) (*model.SaleOrder, error) {
	order := model.SaleOrder{
		CustomerID:  in.CustomerID,
		OrderDate:   in.OrderDate,
		TotalAmount: in.TotalAmount,
		Status:      in.Status,
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		lines := saleLines(order.ID, in.Lines)
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		order.Lines = lines

		if in.Status != model.StatusCancelled {
			for _, line := range lines {
				if err := e.applyStockDelta(tx, kindSale, line.ProductID, -line.Quantity); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("Sale order created",
		zap.Uint("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.Int("lines", len(order.Lines)))
	e.refreshInventory(lineProductIDs(in.Lines))
	return &order, nil
}

// UpdateSaleOrder mirrors UpdatePurchaseOrder with inverted sign: cancelling
// restores stock over the existing lines, un-cancelling consumes it, and
// transitions between two live statuses move nothing. A supplied line set
// replaces the old one with per-product net reconciliation.
func (e *Engine) UpdateSaleOrder(ctx context.Context, id uint, in SaleOrderInput) error {
	var affected []uint

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.SaleOrder
		err := tx.Preload("Lines").First(&existing, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Model(&model.SaleOrder{}).Where("id = ?", id).
				Updates(saleHeader(in)).Error
		}
		if err != nil {
			return err
		}

		// Updates with a map writes the values back onto existing, so the
		// prior status has to be captured before the header write.
		oldStatus := existing.Status

		if err := tx.Model(&existing).Updates(saleHeader(in)).Error; err != nil {
			return err
		}

		if in.Status != oldStatus {
			sign := saleTransitionSign(oldStatus, in.Status)
			for _, line := range existing.Lines {
				affected = append(affected, line.ProductID)
				if err := e.applyStockDelta(tx, kindSale, line.ProductID, sign*line.Quantity); err != nil {
					return err
				}
			}
			return nil
		}

		if in.Lines == nil {
			return nil
		}

		if err := tx.Where("sale_order_id = ?", id).Delete(&model.SaleOrderLine{}).Error; err != nil {
			return err
		}
		lines := saleLines(id, in.Lines)
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}

		// Selling more means less on hand, so the net change is inverted.
		deltas := diffQuantities(saleQuantities(existing.Lines), inputQuantities(in.Lines))
		for productID, delta := range deltas {
			affected = append(affected, productID)
			if err := e.applyStockDelta(tx, kindSale, productID, -delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info("Sale order updated", zap.Uint("order_id", id), zap.String("status", string(in.Status)))
	e.refreshInventory(affected)
	return nil
}

// DeleteSaleOrder restores the stock consumed by a live order, then removes
// its lines and header. A missing id yields ErrOrderNotFound.
func (e *Engine) DeleteSaleOrder(ctx context.Context, id uint) error {
	var affected []uint

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.SaleOrder
		if err := tx.Preload("Lines").First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if order.Status != model.StatusCancelled {
			for _, line := range order.Lines {
				affected = append(affected, line.ProductID)
				if err := e.applyStockDelta(tx, kindSale, line.ProductID, line.Quantity); err != nil {
					return err
				}
			}
		}

		if err := tx.Where("sale_order_id = ?", id).Delete(&model.SaleOrderLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.SaleOrder{}, id).Error
	})
	if err != nil {
		return err
	}

	e.log.Info("Sale order deleted", zap.Uint("order_id", id))
	e.refreshInventory(affected)
	return nil
}

// DeleteSaleOrders is the batched form of DeleteSaleOrder. Unknown ids in the
// set are skipped.
func (e *Engine) DeleteSaleOrders(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var affected []uint

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orders []model.SaleOrder
		if err := tx.Preload("Lines").Where("id IN ?", ids).Find(&orders).Error; err != nil {
			return err
		}

		for _, order := range orders {
			if order.Status == model.StatusCancelled {
				continue
			}
			for _, line := range order.Lines {
				affected = append(affected, line.ProductID)
				if err := e.applyStockDelta(tx, kindSale, line.ProductID, line.Quantity); err != nil {
					return err
				}
			}
		}

		if err := tx.Where("sale_order_id IN ?", ids).Delete(&model.SaleOrderLine{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&model.SaleOrder{}).Error
	})
	if err != nil {
		return err
	}

	e.log.Info("Sale orders deleted", zap.Int("count", len(ids)))
	e.refreshInventory(affected)
	return nil
}

func saleHeader(in SaleOrderInput) map[string]interface{} {
	return map[string]interface{}{
		"customer_id":  in.CustomerID,
		"order_date":   in.OrderDate,
		"total_amount": in.TotalAmount,
		"status":       in.Status,
	}
}

func saleLines(orderID uint, inputs []LineInput) []model.SaleOrderLine {
	lines := make([]model.SaleOrderLine, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, model.SaleOrderLine{
			SaleOrderID: orderID,
			ProductID:   in.ProductID,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
		})
	}
	return lines
}

func saleQuantities(lines []model.SaleOrderLine) map[uint]int {
	quantities := make(map[uint]int, len(lines))
	for _, line := range lines {
		quantities[line.ProductID] += line.Quantity
	}
	return quantities
}
