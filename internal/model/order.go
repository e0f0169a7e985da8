package model

import "time"

// OrderStatus is an order lifecycle state. Purchase orders move between
// StatusPending, StatusReceived and StatusCancelled. Sale orders treat
// StatusCancelled as the only state that does not consume stock; any other
// label (pending, shipped, delivered, ...) is an ordinary live order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusReceived  OrderStatus = "received"
	StatusCancelled OrderStatus = "cancelled"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
)

// PurchaseOrder is an inbound order from a supplier. TotalAmount is supplied
// by the caller as the sum of line quantity*unit_price.
type PurchaseOrder struct {
	ID          uint                `json:"id" gorm:"primarykey"`
	SupplierID  uint                `json:"supplier_id" gorm:"not null;index"`
	OrderDate   time.Time           `json:"order_date" gorm:"not null"`
	TotalAmount float64             `json:"total_amount" gorm:"not null"`
	Status      OrderStatus         `json:"status" gorm:"type:varchar(20);not null"`
	Lines       []PurchaseOrderLine `json:"lines" gorm:"foreignKey:PurchaseOrderID"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// PurchaseOrderLine is one product row of a purchase order. An order holds at
// most one line per product, hence the composite primary key.
type PurchaseOrderLine struct {
	PurchaseOrderID uint    `json:"purchase_order_id" gorm:"primaryKey;autoIncrement:false"`
	ProductID       uint    `json:"product_id" gorm:"primaryKey;autoIncrement:false"`
	Quantity        int     `json:"quantity" gorm:"not null"`
	UnitPrice       float64 `json:"unit_price" gorm:"not null"`
}

// SaleOrder is an outbound order to a customer, the mirror of PurchaseOrder.
type SaleOrder struct {
	ID          uint            `json:"id" gorm:"primarykey"`
	CustomerID  uint            `json:"customer_id" gorm:"not null;index"`
	OrderDate   time.Time       `json:"order_date" gorm:"not null"`
	TotalAmount float64         `json:"total_amount" gorm:"not null"`
	Status      OrderStatus     `json:"status" gorm:"type:varchar(20);not null"`
	Lines       []SaleOrderLine `json:"lines" gorm:"foreignKey:SaleOrderID"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SaleOrderLine is one product row of a sale order.
type SaleOrderLine struct {
	SaleOrderID uint    `json:"sale_order_id" gorm:"primaryKey;autoIncrement:false"`
	ProductID   uint    `json:"product_id" gorm:"primaryKey;autoIncrement:false"`
	Quantity    int     `json:"quantity" gorm:"not null"`
	UnitPrice   float64 `json:"unit_price" gorm:"not null"`
}
