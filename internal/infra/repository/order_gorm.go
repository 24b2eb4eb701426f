package repository

import (
	"context"

	"stockroom/internal/domain/model"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

// ヘッダーだけ作る（created_atはDB側で入る）
func (r *OrderGormRepository) Create(ctx context.Context) (model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Create(&o).Error; err != nil {
		return model.Order{}, translateError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error; err != nil {
		return model.Order{}, translateError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) ListSummaries(ctx context.Context) ([]model.OrderSummary, error) {
	summaries := []model.OrderSummary{}
	err := r.db.WithContext(ctx).
		Table("orders AS o").
		Select(`o.id,
			o.created_at,
			COALESCE(SUM(oi.qty * oi.price_at_purchase), 0)::bigint AS total_cents,
			COALESCE(SUM(oi.qty), 0)::bigint AS item_count`).
		Joins("LEFT JOIN order_items AS oi ON oi.order_id = o.id").
		Group("o.id").
		Order("o.created_at desc").
		Order("o.id desc").
		Scan(&summaries).Error
	if err != nil {
		return []model.OrderSummary{}, err
	}
	return summaries, nil
}
