package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openmart/shopcart/internal/apperr"
	"github.com/openmart/shopcart/internal/mykafka"
	"github.com/openmart/shopcart/internal/service"
)

type CartHandler struct {
	Carts    *service.CartService
	Producer *mykafka.Producer
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}

	cart, err := h.Carts.GetCart(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, fmt.Errorf("invalid body: %w", apperr.ErrValidation))
	}
	if req.ProductID == 0 {
		return fail(c, fmt.Errorf("product_id is required: %w", apperr.ErrValidation))
	}

	cart, err := h.Carts.AddItem(c.Request().Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  req.Quantity,
	})
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		return fail(c, err)
	}

	cart, err := h.Carts.RemoveItem(c.Request().Context(), userID, productID)
	if err != nil {
		return fail(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": productID,
	})
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) GetTotal(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}

	total, err := h.Carts.GetTotal(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total})
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}

	if err := h.Carts.ClearCart(c.Request().Context(), userID); err != nil {
		return fail(c, err)
	}

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "cart cleared"})
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}
