package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, skip int, limit int) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
}

// 在庫のロックと減算をまとめた約束。
type InventoryRepository interface {
	// 指定した商品行を排他ロック付きで取得（SELECT ... FOR UPDATE）
	LockProducts(ctx context.Context, ids []int64) ([]model.Product, error)

	// 在庫減算（ロック取得後に呼ぶ）
	DecreaseStock(ctx context.Context, productID int64, qty int64) error
}
