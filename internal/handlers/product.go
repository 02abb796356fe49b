package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openmart/shopcart/internal/apperr"
	"github.com/openmart/shopcart/internal/models"
	"github.com/openmart/shopcart/internal/mykafka"
	"github.com/openmart/shopcart/internal/search"
	"github.com/openmart/shopcart/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	ES       *elasticsearch.Client
	Index    string
	Producer *mykafka.Producer
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
		return fail(c, err)
	}

	var items []models.Product
	if err := h.DB.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("product %d: %w", id, apperr.ErrNotFound))
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, fmt.Errorf("invalid body: %w", apperr.ErrValidation))
	}
	if req.Name == "" || req.Price.IsNegative() {
		return fail(c, fmt.Errorf("name required and price must not be negative: %w", apperr.ErrValidation))
	}

	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	}
	if err := h.DB.Create(&product).Error; err != nil {
		return fail(c, err)
	}

	h.index(c, product)
	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"name":      product.Name,
	})
	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, fmt.Errorf("invalid body: %w", apperr.ErrValidation))
	}
	if req.Price.IsNegative() {
		return fail(c, fmt.Errorf("price must not be negative: %w", apperr.ErrValidation))
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("product %d: %w", id, apperr.ErrNotFound))
		}
		return fail(c, err)
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	if err := h.DB.Save(&product).Error; err != nil {
		return fail(c, err)
	}

	h.index(c, product)
	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
		"name":      product.Name,
	})
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	if err := h.DB.Delete(&models.Product{}, id).Error; err != nil {
		return fail(c, err)
	}

	if h.ES != nil {
		if err := search.DeleteProduct(c.Request().Context(), h.ES, h.Index, id); err != nil {
			c.Logger().Errorf("es delete error: %v", err)
		}
	}
	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHandler) index(c echo.Context, product models.Product) {
	if h.ES == nil {
		return
	}
	if err := search.IndexProduct(c.Request().Context(), h.ES, h.Index, product); err != nil {
		c.Logger().Errorf("es index error: %v", err)
	}
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}
