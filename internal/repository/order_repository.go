package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	List(ctx context.Context, skip int, limit int) ([]model.Order, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	// status遷移（期待statusが一致したときだけ更新）
	UpdateStatusIf(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) (bool, error)

	// completedかつcutoffより古い注文を一括でarchivedにする
	ArchiveCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	ListIDsByUserID(ctx context.Context, userID int64) ([]int64, error)
	DeleteByUserID(ctx context.Context, userID int64) error
}
