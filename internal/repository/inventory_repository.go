package repository

import (
	"context"

	"stockroom/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error

	// 新しい順
	ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error)
}
