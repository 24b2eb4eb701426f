package model

import "time"

type AdjustmentReason string

const (
	// 注文確定による減算
	AdjustmentReasonOrder AdjustmentReason = "order"
	// PATCHでの在庫変更
	AdjustmentReasonManual AdjustmentReason = "manual"
)

// 在庫変動の履歴。在庫が変わるたびに同じTx内で1件残す。
type InventoryAdjustment struct {
	ID        int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64            `gorm:"not null;index" json:"product_id"`
	OrderID   *int64           `gorm:"index" json:"order_id,omitempty"`
	Delta     int64            `gorm:"not null" json:"delta"`
	Reason    AdjustmentReason `gorm:"type:varchar(20);not null" json:"reason"`
	CreatedAt time.Time        `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`

	Product *Product `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Order   *Order   `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}
