package model

import "time"

// 注文ヘッダー。作成後は更新しない。
type Order struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
}

// 一覧用（合計と点数はorder_itemsから集計）
type OrderSummary struct {
	ID         int64     `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	TotalCents int64     `json:"total_cents"`
	ItemCount  int64     `json:"item_count"`
}
