package model

import (
	"time"

	"gorm.io/gorm"
)

// Product represents the product master data. StockQuantity is the
// authoritative on-hand counter and is only ever mutated by the stock
// reconciliation engine alongside purchase/sale order changes.
type Product struct {
	ID            uint           `json:"id" gorm:"primarykey"`
	Name          string         `json:"name" gorm:"type:varchar(255);not null"`
	SKU           string         `json:"sku" gorm:"type:varchar(100);unique;not null"`
	UPC           string         `json:"upc" gorm:"type:varchar(100)"`
	CostPrice     float64        `json:"cost_price" gorm:"not null"`
	SellingPrice  float64        `json:"selling_price" gorm:"not null"`
	StockQuantity int            `json:"stock_quantity" gorm:"not null;default:0"`
	CategoryID    uint           `json:"category_id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Category represents product categories
type Category struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null;unique"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
