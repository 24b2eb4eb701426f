package handler

import (
	"net/http"

	"stockroom/internal/usecase"

	"github.com/labstack/echo/v4"
)

// POST /products の入力。price_centsは必須、stock_qtyは省略で0。
type ProductCreateRequest struct {
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	PriceCents *int64 `json:"price_cents"`
	StockQty   *int64 `json:"stock_qty"`
}

// PATCH /products/:id の入力（送られた項目だけ更新）
type ProductPatchRequest struct {
	PriceCents *int64 `json:"price_cents"`
	StockQty   *int64 `json:"stock_qty"`
}

// 商品の更新系。guardsはADMIN_JWT_SECRETがあるときだけ渡される。
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, guards ...echo.MiddlewareFunc) {
	//Groupにmiddlewareを付けると未定義パスまでguardを通るのでルート単位で付ける
	e.POST("/products", h.createProduct, guards...)
	e.PATCH("/products/:id", h.patchProduct, guards...)
	e.DELETE("/products/:id", h.deleteProduct, guards...)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req ProductCreateRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, bindError(err))
	}

	p, err := h.uc.CreateProduct(c.Request().Context(), usecase.CreateProductInput{
		Name:       req.Name,
		SKU:        req.SKU,
		PriceCents: req.PriceCents,
		StockQty:   req.StockQty,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, p)
}

func (h *AdminProductHandler) patchProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req ProductPatchRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, bindError(err))
	}

	p, err := h.uc.PatchProduct(c.Request().Context(), id, usecase.PatchProductInput{
		PriceCents: req.PriceCents,
		StockQty:   req.StockQty,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.DeleteProduct(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
