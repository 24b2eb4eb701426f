package model

import "time"

// 価格は最小通貨単位（セント）の整数で持つ。
// SKUとnameは作成後に変更しない。
type Product struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"type:text;not null;check:chk_products_name,char_length(name) > 0" json:"name"`
	SKU        string    `gorm:"column:sku;type:text;not null;uniqueIndex:uq_products_sku;check:chk_products_sku,char_length(sku) > 0" json:"sku"`
	PriceCents int64     `gorm:"not null;check:chk_products_price_cents,price_cents >= 0" json:"price_cents"`
	StockQty   int64     `gorm:"not null;default:0;check:chk_products_stock_qty,stock_qty >= 0" json:"stock_qty"`
	CreatedAt  time.Time `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
}
