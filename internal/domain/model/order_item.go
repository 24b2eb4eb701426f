package model

// 注文明細。PriceAtPurchaseは注文時点の価格スナップショットで、
// 後から商品価格を変えても変わらない。
type OrderItem struct {
	ID              int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID         int64 `gorm:"not null;index" json:"order_id"`
	ProductID       int64 `gorm:"not null;index" json:"product_id"`
	Qty             int64 `gorm:"not null;check:chk_order_items_qty,qty > 0" json:"qty"`
	PriceAtPurchase int64 `gorm:"not null;check:chk_order_items_price_at_purchase,price_at_purchase >= 0" json:"price_at_purchase"`

	// FK制約用。注文削除で明細も消える、商品は参照中なら消せない。
	Order   *Order   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Product *Product `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// 注文詳細の明細行（productsとJOINした形）
type OrderLine struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"product_id"`
	ProductName     string `json:"product_name"`
	ProductSKU      string `json:"product_sku"`
	Qty             int64  `json:"qty"`
	PriceAtPurchase int64  `json:"price_at_purchase"`
}
