package repository

import (
	"context"

	"stockroom/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error

	// productsとJOINした明細（id昇順）
	ListLinesByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error)

	// 商品が1件でも注文明細から参照されているか
	ExistsByProductID(ctx context.Context, productID int64) (bool, error)
}
