package model

import "time"

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusArchived  OrderStatus = "archived"
)

type Order struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64       `gorm:"not null;index" json:"user_id"`
	Status    OrderStatus `gorm:"type:varchar(50);not null;index:ix_orders_status_created_at" json:"status"`
	CreatedAt time.Time   `gorm:"not null;autoCreateTime;index:ix_orders_status_created_at" json:"created_at"`
}
