package repository

import (
	"context"

	"stockroom/internal/domain/model"
)

type OrderRepository interface {
	Create(ctx context.Context) (model.Order, error)
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	// 新しい順、合計と点数つき
	ListSummaries(ctx context.Context) ([]model.OrderSummary, error)
}
