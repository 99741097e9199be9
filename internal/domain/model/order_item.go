package model

import "time"

// 同じ注文に同じ商品は1行だけ（(order_id, product_id)ユニーク）
type OrderItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64     `gorm:"not null;index;uniqueIndex:ux_order_items_order_product" json:"order_id"`
	ProductID int64     `gorm:"not null;index;uniqueIndex:ux_order_items_order_product" json:"product_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
