package reconcile

import (
	"context"
	"errors"
	"time"

	"inventory-service/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurchaseOrderInput carries the header fields and requested line set for a
// purchase order mutation. On update a nil Lines slice means "status-only
// edit": the existing line set is kept as the basis for any stock adjustment.
type PurchaseOrderInput struct {
	SupplierID  uint              `json:"supplier_id"`
	OrderDate   time.Time         `json:"order_date"`
	TotalAmount float64           `json:"total_amount"`
	Status      model.OrderStatus `json:"status"`
	Lines       []LineInput       `json:"lines"`
}

// ListPurchaseOrders returns all purchase orders with their line sets.
func (e *Engine) ListPurchaseOrders(ctx context.Context) ([]model.PurchaseOrder, error) {
	var orders []model.PurchaseOrder
	err := e.db.WithContext(ctx).Preload("Lines").Order("id").Find(&orders).Error
	return orders, err
}

// CreatePurchaseOrder inserts the order header and lines and, when the order
// arrives already received, adds each line quantity to the product's stock.
func (e *Engine) CreatePurchaseOrder(ctx context.Context, in PurchaseOrderInput) (*model.PurchaseOrder, error) {
	order := model.PurchaseOrder{
		SupplierID:  in.SupplierID,
		OrderDate:   in.OrderDate,
		TotalAmount: in.TotalAmount,
		Status:      in.Status,
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		lines := purchaseLines(order.ID, in.Lines)
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		order.Lines = lines

		if in.Status == model.StatusReceived {
			for _, line := range lines {
				if err := e.applyStockDelta(tx, kindPurchase, line.ProductID, line.Quantity); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("Purchase order created",
		zap.Uint("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.Int("lines", len(order.Lines)))
	e.refreshInventory(lineProductIDs(in.Lines))
	return &order, nil
}

// UpdatePurchaseOrder rewrites the header unconditionally. A status change is
// reconciled as one adjustment pass over the existing lines; otherwise a
// supplied line set replaces the old one and stock moves by the per-product
// net quantity change. Updating a missing order writes zero header rows and
// still reports success.
func (e *Engine) UpdatePurchaseOrder(ctx context.Context, id uint, in PurchaseOrderInput) error {
	var affected []uint

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PurchaseOrder
		err := tx.Preload("Lines").First(&existing, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Model(&model.PurchaseOrder{}).Where("id = ?", id).
				Updates(purchaseHeader(in)).Error
		}
		if err != nil {
			return err
		}

		// Updates with a map writes the values back onto existing, so the
		// prior status has to be captured before the header write.
		oldStatus := existing.Status

		if err := tx.Model(&existing).Updates(purchaseHeader(in)).Error; err != nil {
			return err
		}

		if in.Status != oldStatus {
			// Status-only edit: the prior line set is the basis for the
			// adjustment and is not replaced.
			sign := purchaseTransitionSign(oldStatus, in.Status)
			for _, line := range existing.Lines {
				affected = append(affected, line.ProductID)
				if err := e.applyStockDelta(tx, kindPurchase, line.ProductID, sign*line.Quantity); err != nil {
					return err
				}
			}
			return nil
		}

		if in.Lines == nil {
			return nil
		}

		// Replace the whole line set, then reconcile stock by the signed
		// per-product difference. Quantity edits move stock immediately
		// whatever the order status.
		if err := tx.Where("purchase_order_id = ?", id).Delete(&model.PurchaseOrderLine{}).Error; err != nil {
			return err
		}
		lines := purchaseLines(id, in.Lines)
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}

		deltas := diffQuantities(purchaseQuantities(existing.Lines), inputQuantities(in.Lines))
		for productID, delta := range deltas {
			affected = append(affected, productID)
			if err := e.applyStockDelta(tx, kindPurchase, productID, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info("Purchase order updated", zap.Uint("order_id", id), zap.String("status", string(in.Status)))
	e.refreshInventory(affected)
	return nil
}

// DeletePurchaseOrder reverses the stock effect of a received order, then
// removes its lines and header. A missing id yields ErrOrderNotFound.
func (e *Engine) DeletePurchaseOrder(ctx context.Context, id uint) error {
	var affected []uint

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.PurchaseOrder
		if err := tx.Preload("Lines").First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if order.Status == model.StatusReceived {
			for _, line := range order.Lines {
				affected = append(affected, line.ProductID)
				if err := e.applyStockDelta(tx, kindPurchase, line.ProductID, -line.Quantity); err != nil {
					return err
				}
			}
		}

		if err := tx.Where("purchase_order_id = ?", id).Delete(&model.PurchaseOrderLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PurchaseOrder{}, id).Error
	})
	if err != nil {
		return err
	}

	e.log.Info("Purchase order deleted", zap.Uint("order_id", id))
	e.refreshInventory(affected)
	return nil
}

// DeletePurchaseOrders is the batched form of DeletePurchaseOrder. Unknown
// ids in the set are skipped.
func (e *Engine) DeletePurchaseOrders(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var affected []uint

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orders []model.PurchaseOrder
		if err := tx.Preload("Lines").Where("id IN ?", ids).Find(&orders).Error; err != nil {
			return err
		}

		for _, order := range orders {
			if order.Status != model.StatusReceived {
				continue
			}
			for _, line := range order.Lines {
				affected = append(affected, line.ProductID)
				if err := e.applyStockDelta(tx, kindPurchase, line.ProductID, -line.Quantity); err != nil {
					return err
				}
			}
		}

		if err := tx.Where("purchase_order_id IN ?", ids).Delete(&model.PurchaseOrderLine{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&model.PurchaseOrder{}).Error
	})
	if err != nil {
		return err
	}

	e.log.Info("Purchase orders deleted", zap.Int("count", len(ids)))
	e.refreshInventory(affected)
	return nil
}

func purchaseHeader(in PurchaseOrderInput) map[string]interface{} {
	return map[string]interface{}{
		"supplier_id":  in.SupplierID,
		"order_date":   in.OrderDate,
		"total_amount": in.TotalAmount,
		"status":       in.Status,
	}
}

func purchaseLines(orderID uint, inputs []LineInput) []model.PurchaseOrderLine {
	lines := make([]model.PurchaseOrderLine, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, model.PurchaseOrderLine{
			PurchaseOrderID: orderID,
			ProductID:       in.ProductID,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
		})
	}
	return lines
}

func purchaseQuantities(lines []model.PurchaseOrderLine) map[uint]int {
	quantities := make(map[uint]int, len(lines))
	for _, line := range lines {
		quantities[line.ProductID] += line.Quantity
	}
	return quantities
}

func lineProductIDs(lines []LineInput) []uint {
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}
