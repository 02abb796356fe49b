package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openmart/shopcart/internal/apperr"
	"github.com/openmart/shopcart/internal/models"
)

// CartService owns the single active cart per user. Every operation runs as
// one transaction so concurrent requests for the same user serialize on the
// cart row instead of losing updates.
type CartService struct {
	DB *gorm.DB
}

type CartItemView struct {
	ID           uint            `json:"id"`
	ProductID    uint            `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     uint            `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	ID          uint            `json:"id"`
	UserID      uint            `json:"user_id"`
	Items       []CartItemView  `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	var view *CartView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		view, err = buildCartView(tx, cart)
		return err
	})
	return view, err
}

// AddItem merges the product into the cart: an existing line for the same
// product gets its quantity incremented, otherwise a new line is appended.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", apperr.ErrValidation)
	}

	var view *CartView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %d: %w", productID, apperr.ErrNotFound)
			}
			return err
		}

		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var item models.CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		switch {
		case err == nil:
			item.Quantity += uint(quantity)
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  uint(quantity),
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if err := touchCart(tx, cart); err != nil {
			return err
		}
		view, err = buildCartView(tx, cart)
		return err
	})
	return view, err
}

// RemoveItem deletes the line for the product. Removing a product that is not
// in the cart is a no-op, the unchanged cart is returned.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) (*CartView, error) {
	var view *CartView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		res := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := touchCart(tx, cart); err != nil {
				return err
			}
		}

		view, err = buildCartView(tx, cart)
		return err
	})
	return view, err
}

// GetTotal recomputes the total from current product prices on every call;
// only checkout freezes prices into a snapshot.
func (s *CartService) GetTotal(ctx context.Context, userID uint) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		view, err := buildCartView(tx, cart)
		if err != nil {
			return err
		}
		total = view.TotalAmount
		return nil
	})
	return total, err
}

// ClearCart deletes all lines; the cart row itself persists for reuse.
func (s *CartService) ClearCart(ctx context.Context, userID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return touchCart(tx, cart)
	})
}

// getOrCreateCart resolves the user's cart inside tx, creating it on first
// access, and takes the row lock that serializes cart mutations per user.
func getOrCreateCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
		}
		return nil, err
	}

	var cart models.Cart
	err := lockForUpdate(tx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID}
		if err := tx.Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// lockForUpdate adds SELECT ... FOR UPDATE on dialects that support it.
// sqlite (used by the tests) serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func touchCart(tx *gorm.DB, cart *models.Cart) error {
	return tx.Model(cart).Update("updated_at", time.Now()).Error
}

func buildCartView(tx *gorm.DB, cart *models.Cart) (*CartView, error) {
	var items []models.CartItem
	if err := tx.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	view := &CartView{
		ID:          cart.ID,
		UserID:      cart.UserID,
		Items:       make([]CartItemView, 0, len(items)),
		TotalAmount: decimal.Zero,
		UpdatedAt:   cart.UpdatedAt,
	}
	for _, it := range items {
		var product models.Product
		if err := tx.First(&product, it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("product %d: %w", it.ProductID, apperr.ErrNotFound)
			}
			return nil, err
		}
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		view.Items = append(view.Items, CartItemView{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  product.Name,
			ProductPrice: product.Price,
			Quantity:     it.Quantity,
			Subtotal:     subtotal,
		})
		view.TotalAmount = view.TotalAmount.Add(subtotal)
	}
	return view, nil
}
