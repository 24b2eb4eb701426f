package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// 一意制約違反（SKU重複など）
	ErrDuplicate = errors.New("duplicate")

	// 外部キー違反（注文から参照されている商品の削除など）
	ErrReferenced = errors.New("referenced")

	// CHECK制約違反（負の在庫など）
	ErrCheckViolation = errors.New("check violation")
)
