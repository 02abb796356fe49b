package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openmart/shopcart/internal/mykafka"
	"github.com/openmart/shopcart/internal/service"
)

type OrderHandler struct {
	Orders   *service.OrderService
	Producer *mykafka.Producer
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}

	order, err := h.Orders.CreateOrder(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": order.ID,
		"total":   order.TotalAmount,
	})
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetUserOrders(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}

	orders, err := h.Orders.GetUserOrders(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) CancelOrder(c echo.Context) error {
	return h.transition(c, "order_cancelled", h.Orders.CancelOrder)
}

func (h *OrderHandler) ConfirmOrder(c echo.Context) error {
	return h.transition(c, "order_confirmed", h.Orders.ConfirmOrder)
}

func (h *OrderHandler) transition(c echo.Context, eventType string, op func(context.Context, uint, uint) (*service.OrderView, error)) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}
	orderID, err := pathID(c, "orderId")
	if err != nil {
		return fail(c, err)
	}

	order, err := op(c.Request().Context(), userID, orderID)
	if err != nil {
		return fail(c, err)
	}

	h.publish(c, map[string]any{
		"type":    eventType,
		"userID":  userID,
		"orderID": order.ID,
	})
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}
