package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openmart/shopcart/internal/apperr"
	"github.com/openmart/shopcart/internal/models"
)

// OrderService converts carts into immutable order snapshots and drives the
// pending -> confirmed / pending -> cancelled status machine.
type OrderService struct {
	DB *gorm.DB
}

type OrderItemView struct {
	ID           uint            `json:"id"`
	ProductID    uint            `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     uint            `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type OrderView struct {
	ID          uint               `json:"id"`
	UserID      uint               `json:"user_id"`
	Items       []OrderItemView    `json:"items"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Status      models.OrderStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
}

// CreateOrder snapshots the user's cart into a pending order and clears the
// cart, all in one transaction. Line prices and the total come from the same
// product reads, so they always sum up.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint) (*OrderView, error) {
	var view *OrderView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
			}
			return err
		}

		var cart models.Cart
		if err := lockForUpdate(tx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no cart: %w", apperr.ErrInvalidState)
			}
			return err
		}

		var items []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("empty cart: %w", apperr.ErrInvalidState)
		}

		total := decimal.Zero
		snapshots := make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			var product models.Product
			if err := tx.First(&product, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product %d: %w", it.ProductID, apperr.ErrNotFound)
				}
				return err
			}
			subtotal := product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
			snapshots = append(snapshots, models.OrderItem{
				ProductID:    product.ID,
				ProductName:  product.Name,
				ProductPrice: product.Price,
				Quantity:     it.Quantity,
				Subtotal:     subtotal,
			})
			total = total.Add(subtotal)
		}

		order := models.Order{
			UserID: userID,
			Total:  total,
			Status: models.OrderStatusPending,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for i := range snapshots {
			snapshots[i].OrderID = order.ID
			if err := tx.Create(&snapshots[i]).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := touchCart(tx, &cart); err != nil {
			return err
		}

		view = composeOrderView(&order, snapshots)
		return nil
	})
	return view, err
}

// GetUserOrders lists the user's orders, most recent first.
func (s *OrderService) GetUserOrders(ctx context.Context, userID uint) ([]OrderView, error) {
	tx := s.DB.WithContext(ctx)

	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
		}
		return nil, err
	}

	var orders []models.Order
	if err := tx.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orders[i].ID).Order("id ASC").Find(&items).Error; err != nil {
			return nil, err
		}
		views = append(views, *composeOrderView(&orders[i], items))
	}
	return views, nil
}

// CancelOrder moves a pending order to cancelled. Ownership is checked before
// state, so a foreign order reports forbidden, not invalid state.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uint) (*OrderView, error) {
	return s.transition(ctx, userID, orderID, models.OrderStatusCancelled)
}

// ConfirmOrder moves a pending order to confirmed.
func (s *OrderService) ConfirmOrder(ctx context.Context, userID, orderID uint) (*OrderView, error) {
	return s.transition(ctx, userID, orderID, models.OrderStatusConfirmed)
}

func (s *OrderService) transition(ctx context.Context, userID, orderID uint, to models.OrderStatus) (*OrderView, error) {
	var view *OrderView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := lockForUpdate(tx).First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order %d: %w", orderID, apperr.ErrNotFound)
			}
			return err
		}
		if order.UserID != userID {
			return fmt.Errorf("order %d belongs to another user: %w", orderID, apperr.ErrForbidden)
		}
		if order.Status != models.OrderStatusPending {
			return fmt.Errorf("order %d is %s: %w", orderID, order.Status, apperr.ErrInvalidState)
		}

		order.Status = to
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}
		view = composeOrderView(&order, items)
		return nil
	})
	return view, err
}

func composeOrderView(order *models.Order, items []models.OrderItem) *OrderView {
	view := &OrderView{
		ID:          order.ID,
		UserID:      order.UserID,
		Items:       make([]OrderItemView, 0, len(items)),
		TotalAmount: order.Total,
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
	}
	for _, it := range items {
		view.Items = append(view.Items, OrderItemView{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductPrice: it.ProductPrice,
			Quantity:     it.Quantity,
			Subtotal:     it.Subtotal,
		})
	}
	return view
}
