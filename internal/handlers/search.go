package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/openmart/shopcart/internal/apperr"
	"github.com/openmart/shopcart/internal/search"
	"github.com/openmart/shopcart/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return fail(c, fmt.Errorf("query parameter q is required: %w", apperr.ErrValidation))
	}
	if h.ES == nil {
		return fail(c, fmt.Errorf("search backend is not configured"))
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, products, err := search.Products(c.Request().Context(), h.ES, h.Index, q, from, size)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}
