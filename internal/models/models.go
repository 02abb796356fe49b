package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	Name         string    `gorm:"not null"                 json:"name"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"     json:"id"`
	Name        string          `gorm:"not null"                     json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"  json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Cart is created lazily on first access and survives checkout empty.
type Cart struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null"     json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartItem is unique per (cart, product); adding the same product again
// increments the quantity instead of creating a second row.
type CartItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"              json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity  uint      `gorm:"not null;default:1;check:quantity>0"   json:"quantity"`
	AddedAt   time.Time `gorm:"autoCreateTime"                        json:"added_at"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further status transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusCancelled
}

type Order struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID    uint            `gorm:"index;not null"              json:"user_id"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Status    OrderStatus     `gorm:"not null"                    json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderItem snapshots product name and price at order creation time so later
// product changes never alter historical orders.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID      uint            `gorm:"index;not null"              json:"order_id"`
	ProductID    uint            `gorm:"not null"                    json:"product_id"`
	ProductName  string          `gorm:"not null"                    json:"product_name"`
	ProductPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"product_price"`
	Quantity     uint            `gorm:"not null"                    json:"quantity"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}
