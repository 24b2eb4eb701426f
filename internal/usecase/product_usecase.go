package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"stockroom/internal/domain/model"
	repo "stockroom/internal/repository"
)

const maxSearchLength = 200

// 価格と在庫の上限。注文合計のオーバーフローはPlaceOrderで別に弾く。
const (
	MaxPriceCents int64 = 100_000_000_000 // 10億（通貨単位）
	MaxStockQty   int64 = 1_000_000_000
)

// ソートに使える列（これ以外はidに戻す）
var productSortColumns = map[string]string{
	"id":          "id",
	"name":        "name",
	"sku":         "sku",
	"price_cents": "price_cents",
	"stock_qty":   "stock_qty",
	"created_at":  "created_at",
}

type ProductUsecase struct {
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
	tx            repo.TransactionManager
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
	tx repo.TransactionManager,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		tx:            tx,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Search string
	Sort   string
	Order  string
}

// 許可リストにないsortはid、order=desc以外は昇順
func ResolveProductSort(sort string, order string) (column string, desc bool) {
	column, ok := productSortColumns[sort]
	if !ok {
		column = "id"
	}
	return column, strings.EqualFold(strings.TrimSpace(order), "desc")
}

func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) ([]model.Product, error) {
	search := strings.TrimSpace(in.Search)
	if utf8.RuneCountInString(search) > maxSearchLength {
		var fe fieldErrors
		fe.add("search", fmt.Sprintf("must be at most %d characters", maxSearchLength))
		return []model.Product{}, fe.err()
	}

	column, desc := ResolveProductSort(in.Sort, in.Order)
	products, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Search:     search,
		SortColumn: column,
		Desc:       desc,
	})
	if err != nil {
		return []model.Product{}, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if err := validateID("id", productID); err != nil {
		return model.Product{}, err
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("Product")
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}

// POST /products。stockは省略時0。
type CreateProductInput struct {
	Name       string
	SKU        string
	PriceCents *int64
	StockQty   *int64
}

func (u *ProductUsecase) CreateProduct(ctx context.Context, in CreateProductInput) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	sku := strings.TrimSpace(in.SKU)

	var fe fieldErrors
	if name == "" {
		fe.add("name", "must not be empty")
	}
	if sku == "" {
		fe.add("sku", "must not be empty")
	}
	if in.PriceCents == nil {
		fe.add("price_cents", "is required")
	} else {
		checkRange(&fe, "price_cents", *in.PriceCents, MaxPriceCents)
	}
	var stock int64
	if in.StockQty != nil {
		stock = *in.StockQty
		checkRange(&fe, "stock_qty", stock, MaxStockQty)
	}
	if err := fe.err(); err != nil {
		return model.Product{}, err
	}

	p, err := u.productRepo.Create(ctx, model.Product{
		Name:       name,
		SKU:        sku,
		PriceCents: *in.PriceCents,
		StockQty:   stock,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Product{}, NewHTTPError(http.StatusConflict, CodeDuplicateSKU,
			fmt.Sprintf("A product with SKU %q already exists", sku))
	}
	if errors.Is(err, repo.ErrCheckViolation) {
		return model.Product{}, NewValidationError([]FieldError{{Path: "product", Message: "violates a catalog constraint"}})
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// PATCH /products/:id。少なくとも1つは必要。
type PatchProductInput struct {
	PriceCents *int64
	StockQty   *int64
}

func (u *ProductUsecase) PatchProduct(ctx context.Context, productID int64, in PatchProductInput) (model.Product, error) {
	if err := validateID("id", productID); err != nil {
		return model.Product{}, err
	}
	if in.PriceCents == nil && in.StockQty == nil {
		return model.Product{}, &HTTPError{
			Status:  http.StatusBadRequest,
			Code:    CodeNoFieldsProvided,
			Message: "At least one of price_cents or stock_qty must be provided",
		}
	}

	var fe fieldErrors
	if in.PriceCents != nil {
		checkRange(&fe, "price_cents", *in.PriceCents, MaxPriceCents)
	}
	if in.StockQty != nil {
		checkRange(&fe, "stock_qty", *in.StockQty, MaxStockQty)
	}
	if err := fe.err(); err != nil {
		return model.Product{}, err
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//注文確定と直列になるよう行ロック
		locked, err := r.Products().LockByIDs(ctx, []int64{productID})
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}
		if len(locked) == 0 {
			return notFound("Product")
		}
		before := locked[0]

		if err := r.Products().Update(ctx, productID, repo.ProductPatch{
			PriceCents: in.PriceCents,
			StockQty:   in.StockQty,
		}); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("Product")
			}
			return fmt.Errorf("update product: %w", err)
		}

		//在庫が変わったときだけ履歴
		if in.StockQty != nil && *in.StockQty != before.StockQty {
			if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
				ProductID: productID,
				Delta:     *in.StockQty - before.StockQty,
				Reason:    model.AdjustmentReasonManual,
			}); err != nil {
				return fmt.Errorf("create adjustment: %w", err)
			}
		}

		out, err = r.Products().FindByID(ctx, productID)
		if err != nil {
			return fmt.Errorf("reload product: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

// 注文から参照されている商品は消せない（注文詳細で商品を表示できなくなるため）
func (u *ProductUsecase) DeleteProduct(ctx context.Context, productID int64) error {
	if err := validateID("id", productID); err != nil {
		return err
	}

	referenced := NewHTTPError(http.StatusConflict, CodeProductReferenced,
		"Cannot delete a product that is part of existing orders")

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		locked, err := r.Products().LockByIDs(ctx, []int64{productID})
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}
		if len(locked) == 0 {
			return notFound("Product")
		}

		used, err := r.OrderItems().ExistsByProductID(ctx, productID)
		if err != nil {
			return fmt.Errorf("check order references: %w", err)
		}
		if used {
			return referenced
		}

		err = r.Products().Delete(ctx, productID)
		switch {
		case errors.Is(err, repo.ErrReferenced):
			return referenced
		case errors.Is(err, repo.ErrNotFound):
			return notFound("Product")
		case err != nil:
			return fmt.Errorf("delete product: %w", err)
		}
		return nil
	})
}

// 在庫変動履歴（新しい順）
func (u *ProductUsecase) ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error) {
	if _, err := u.GetProduct(ctx, productID); err != nil {
		return []model.InventoryAdjustment{}, err
	}

	adjs, err := u.inventoryRepo.ListAdjustments(ctx, productID)
	if err != nil {
		return []model.InventoryAdjustment{}, fmt.Errorf("list adjustments: %w", err)
	}
	return adjs, nil
}

func checkRange(fe *fieldErrors, path string, v int64, limit int64) {
	switch {
	case v < 0:
		fe.add(path, "must be >= 0")
	case v > limit:
		fe.add(path, fmt.Sprintf("must be <= %d", limit))
	}
}

func validateID(path string, id int64) error {
	if id <= 0 {
		return NewValidationError([]FieldError{{Path: path, Message: "must be a positive integer"}})
	}
	return nil
}
