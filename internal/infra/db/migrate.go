package db

import (
	"context"
	"fmt"

	"stockroom/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 複数プロセスが同時に起動してもmigrateは1つずつ
const migrateLockID int64 = 7310420001

// Migrate はテーブル・CHECK・UNIQUE・FK制約を作る。
func Migrate(ctx context.Context, gormDB *gorm.DB) error {
	return gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrateLockID).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		if err := tx.AutoMigrate(
			&model.Product{},
			&model.Order{},
			&model.OrderItem{},
			&model.InventoryAdjustment{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	})
}

// 初期カタログ
var seedProducts = []model.Product{
	{Name: "Wireless Noise-Cancelling Headphones", SKU: "ELEC-001", PriceCents: 29999, StockQty: 42},
	{Name: "Mechanical Keyboard - TKL", SKU: "ELEC-002", PriceCents: 8999, StockQty: 75},
	{Name: "USB-C Hub 7-in-1", SKU: "ELEC-003", PriceCents: 4999, StockQty: 120},
	{Name: `27" 4K Monitor`, SKU: "ELEC-004", PriceCents: 54999, StockQty: 18},
	{Name: "Ergonomic Office Chair", SKU: "FURN-001", PriceCents: 89999, StockQty: 10},
	{Name: "Standing Desk Converter", SKU: "FURN-002", PriceCents: 24999, StockQty: 30},
	{Name: "LED Desk Lamp with USB Charging", SKU: "FURN-003", PriceCents: 3999, StockQty: 85},
	{Name: "Webcam 1080p with Microphone", SKU: "ELEC-005", PriceCents: 7999, StockQty: 60},
	{Name: "Laptop Stand Aluminum", SKU: "ELEC-006", PriceCents: 2999, StockQty: 200},
	{Name: "Wireless Mouse - Ergonomic", SKU: "ELEC-007", PriceCents: 4499, StockQty: 95},
	{Name: "Cable Management Box", SKU: "FURN-004", PriceCents: 1999, StockQty: 150},
	{Name: "Monitor Light Bar", SKU: "ELEC-008", PriceCents: 3499, StockQty: 70},
}

// Seed は商品が空のときだけ初期カタログを入れる。入れた件数を返す。
func Seed(ctx context.Context, gormDB *gorm.DB) (int64, error) {
	var count int64
	if err := gormDB.WithContext(ctx).Model(&model.Product{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	rows := make([]model.Product, len(seedProducts))
	copy(rows, seedProducts)

	res := gormDB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "sku"}}, DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("seed products: %w", res.Error)
	}
	return res.RowsAffected, nil
}
