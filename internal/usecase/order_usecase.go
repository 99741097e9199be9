package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 注文作成で商品が見つからなかった
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// 注文作成で在庫が足りなかった
type InsufficientStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type PlaceOrderItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type PlaceOrderInput struct {
	UserID int64                 `json:"user_id"`
	Items  []PlaceOrderItemInput `json:"items"`
}

type OrderItemOutput struct {
	ID        int64         `json:"id"`
	ProductID int64         `json:"product_id"`
	Quantity  int64         `json:"quantity"`
	Product   model.Product `json:"product"`
}

type OrderOutput struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"user_id"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Items     []OrderItemOutput `json:"items"`
}

// PlaceOrder は注文作成の中核。1トランザクションで
// 注文作成→対象商品の一括行ロック→在庫チェック＋減算→明細作成を行う。
// 途中で失敗したら全部rollback（部分的な注文は残さない）。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, in PlaceOrderInput) (OrderOutput, error) {
	if in.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid user_id")
	}
	if len(in.Items) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "items must not be empty")
	}

	//入力チェック＋重複商品は拒否（(order, product)ユニーク制約に当てる前に返す）
	seen := make(map[int64]struct{}, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if it.Quantity <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be positive")
		}
		if _, dup := seen[it.ProductID]; dup {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "duplicate product in items")
		}
		seen[it.ProductID] = struct{}{}
	}

	productIDs := make([]int64, 0, len(in.Items))
	for _, it := range in.Items {
		productIDs = append(productIDs, it.ProductID)
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ユーザー存在確認
		if _, err := r.Users().FindByID(ctx, in.UserID); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "user not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//注文行を先に作る（status=open）
		now := time.Now()
		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:    in.UserID,
			Status:    model.OrderStatusOpen,
			CreatedAt: now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//対象商品を1クエリでまとめて排他ロック。
		//ここで直列化しないと、並行注文が同じ在庫を二重に読んで売り越す。
		locked, err := r.Inventory().LockProducts(ctx, productIDs)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		products := make(map[int64]model.Product, len(locked))
		for _, p := range locked {
			products[p.ID] = p
		}

		//リクエスト順に在庫チェック→減算→明細を積む
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			p, ok := products[it.ProductID]
			if !ok {
				return &ProductNotFoundError{ProductID: it.ProductID}
			}
			if p.Stock < it.Quantity {
				return &InsufficientStockError{
					ProductID: p.ID,
					Requested: it.Quantity,
					Available: p.Stock,
				}
			}

			if err := r.Inventory().DecreaseStock(ctx, p.ID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			p.Stock -= it.Quantity
			products[p.ID] = p

			orderItems = append(orderItems, model.OrderItem{
				ProductID: p.ID,
				Quantity:  it.Quantity,
				CreatedAt: now,
			})
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		created := model.Order{
			ID:        orderID,
			UserID:    in.UserID,
			Status:    model.OrderStatusOpen,
			CreatedAt: now,
		}
		out = toOrderOutput(created, orderItems, products)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// CompleteOrder は open → completed の遷移だけを許す。
func (u *OrderUsecase) CompleteOrder(ctx context.Context, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.Status != model.OrderStatusOpen {
			return NewHTTPError(http.StatusBadRequest, "order not open")
		}

		//status条件付き更新（並行completeは片方だけ通る）
		updated, err := r.Orders().UpdateStatusIf(ctx, orderID, model.OrderStatusOpen, model.OrderStatusCompleted)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !updated {
			return NewHTTPError(http.StatusBadRequest, "order not open")
		}

		o.Status = model.OrderStatusCompleted
		loaded, err := u.loadOrder(ctx, r, o)
		if err != nil {
			return err
		}
		out = loaded
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// GetOrder は明細と商品まで組み立てて返す。
func (u *OrderUsecase) GetOrder(ctx context.Context, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		loaded, err := u.loadOrder(ctx, r, o)
		if err != nil {
			return err
		}
		out = loaded
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ListOrders はcreated_at降順でskip/limit分を組み立てて返す。
func (u *OrderUsecase) ListOrders(ctx context.Context, skip int, limit int) ([]OrderOutput, error) {
	if skip < 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid skip")
	}
	if limit < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if limit > 100 {
		limit = 100
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().List(ctx, skip, limit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		orderIDs := make([]int64, 0, len(orders))
		for _, o := range orders {
			orderIDs = append(orderIDs, o.ID)
		}

		items, err := r.OrderItems().ListByOrderIDs(ctx, orderIDs)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		products, err := loadProducts(ctx, r, items)
		if err != nil {
			return err
		}

		itemsByOrder := make(map[int64][]model.OrderItem, len(orders))
		for _, it := range items {
			itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			outs = append(outs, toOrderOutput(o, itemsByOrder[o.ID], products))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// 1注文の明細＋商品をまとめて取る
func (u *OrderUsecase) loadOrder(ctx context.Context, r repo.TxRepos, o model.Order) (OrderOutput, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	products, err := loadProducts(ctx, r, items)
	if err != nil {
		return OrderOutput{}, err
	}

	return toOrderOutput(o, items, products), nil
}

// 明細が参照する商品をまとめて引いてmap化
func loadProducts(ctx context.Context, r repo.TxRepos, items []model.OrderItem) (map[int64]model.Product, error) {
	idSet := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, ok := idSet[it.ProductID]; ok {
			continue
		}
		idSet[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}

	found, err := r.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	products := make(map[int64]model.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}
	return products, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem, products map[int64]model.Product) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Product:   products[it.ProductID],
		})
	}

	return OrderOutput{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		Items:     outItems,
	}
}
