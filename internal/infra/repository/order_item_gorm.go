package repository

import (
	"context"

	"stockroom/internal/domain/model"

	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

func (r *OrderItemGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *OrderItemGormRepository) ListLinesByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	lines := []model.OrderLine{}
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select(`oi.id,
			oi.product_id,
			p.name AS product_name,
			p.sku AS product_sku,
			oi.qty,
			oi.price_at_purchase`).
		Joins("JOIN products AS p ON p.id = oi.product_id").
		Where("oi.order_id = ?", orderID).
		Order("oi.id asc").
		Scan(&lines).Error
	if err != nil {
		return []model.OrderLine{}, err
	}
	return lines, nil
}

func (r *OrderItemGormRepository) ExistsByProductID(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := r.db.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id = ?)", productID).
		Scan(&exists).Error
	if err != nil {
		return false, err
	}
	return exists, nil
}
