package repository

import (
	"context"

	"stockroom/internal/domain/model"
)

// 一覧検索。SortColumnはusecaseで許可リストを通した列名だけが入る。
type ProductListQuery struct {
	Search     string
	SortColumn string
	Desc       bool
}

// 部分更新。nilは変更なし。
type ProductPatch struct {
	PriceCents *int64
	StockQty   *int64
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	// 行ロック（SELECT ... FOR UPDATE）。Tx内でのみ意味がある。
	// 存在しないIDは結果に含まれない。
	LockByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, id int64, patch ProductPatch) error
	Delete(ctx context.Context, id int64) error
}
