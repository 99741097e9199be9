package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
)

// =====================
// インメモリストア（行ロック相当の直列化つき）
// =====================

// memStore は商品行ロックをmutexで模したインメモリ実装。
// LockProductsでrowLockを取り、トランザクション終了（commit/rollback）で離す。
type memStore struct {
	mu      sync.Mutex // map保護
	rowLock sync.Mutex // products行の排他ロック相当

	users    map[int64]model.User
	products map[int64]model.Product
	orders   map[int64]model.Order
	items    map[int64][]model.OrderItem

	nextOrderID int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]model.User{},
		products: map[int64]model.Product{},
		orders:   map[int64]model.Order{},
		items:    map[int64][]model.OrderItem{},
	}
}

type memTx struct {
	s      *memStore
	locked bool
	undo   []func() // rollback時に逆順で実行
}

type memTxManager struct {
	s *memStore
}

func (m *memTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	tx := &memTx{s: m.s}
	err := fn(&memTxRepos{tx: tx})

	if err != nil {
		m.s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		m.s.mu.Unlock()
	}

	//ロック解放はcommit/rollback後（待っている側は確定済みの在庫を見る）
	if tx.locked {
		m.s.rowLock.Unlock()
	}
	return err
}

type memTxRepos struct {
	tx *memTx
}

func (r *memTxRepos) Orders() repo.OrderRepository         { return &memOrders{tx: r.tx} }
func (r *memTxRepos) OrderItems() repo.OrderItemRepository { return &memOrderItems{tx: r.tx} }
func (r *memTxRepos) Products() repo.ProductRepository     { return &memProducts{tx: r.tx} }
func (r *memTxRepos) Inventory() repo.InventoryRepository  { return &memInventory{tx: r.tx} }
func (r *memTxRepos) Users() repo.UserRepository           { return &memUsers{tx: r.tx} }

type memOrders struct{ tx *memTx }

func (o *memOrders) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o.tx.s.mu.Lock()
	defer o.tx.s.mu.Unlock()
	ord, ok := o.tx.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return ord, nil
}

func (o *memOrders) List(ctx context.Context, skip int, limit int) ([]model.Order, error) {
	panic("not used in concurrency tests")
}

func (o *memOrders) Create(ctx context.Context, order model.Order) (int64, error) {
	o.tx.s.mu.Lock()
	defer o.tx.s.mu.Unlock()

	o.tx.s.nextOrderID++
	id := o.tx.s.nextOrderID
	order.ID = id
	o.tx.s.orders[id] = order

	o.tx.undo = append(o.tx.undo, func() {
		delete(o.tx.s.orders, id)
	})
	return id, nil
}

func (o *memOrders) UpdateStatusIf(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) (bool, error) {
	o.tx.s.mu.Lock()
	defer o.tx.s.mu.Unlock()
	ord, ok := o.tx.s.orders[orderID]
	if !ok || ord.Status != from {
		return false, nil
	}
	ord.Status = to
	o.tx.s.orders[orderID] = ord
	return true, nil
}

func (o *memOrders) ArchiveCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	panic("not used in concurrency tests")
}

func (o *memOrders) ListIDsByUserID(ctx context.Context, userID int64) ([]int64, error) {
	panic("not used in concurrency tests")
}

func (o *memOrders) DeleteByUserID(ctx context.Context, userID int64) error {
	panic("not used in concurrency tests")
}

type memOrderItems struct{ tx *memTx }

func (o *memOrderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	o.tx.s.mu.Lock()
	defer o.tx.s.mu.Unlock()

	staged := make([]model.OrderItem, len(items))
	copy(staged, items)
	for i := range staged {
		staged[i].OrderID = orderID
	}
	o.tx.s.items[orderID] = staged

	o.tx.undo = append(o.tx.undo, func() {
		delete(o.tx.s.items, orderID)
	})
	return nil
}

func (o *memOrderItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	o.tx.s.mu.Lock()
	defer o.tx.s.mu.Unlock()
	return o.tx.s.items[orderID], nil
}

func (o *memOrderItems) ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]model.OrderItem, error) {
	panic("not used in concurrency tests")
}

func (o *memOrderItems) DeleteByOrderIDs(ctx context.Context, orderIDs []int64) error {
	panic("not used in concurrency tests")
}

type memProducts struct{ tx *memTx }

func (p *memProducts) List(ctx context.Context, skip int, limit int) ([]model.Product, error) {
	panic("not used in concurrency tests")
}

func (p *memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p.tx.s.mu.Lock()
	defer p.tx.s.mu.Unlock()
	prod, ok := p.tx.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return prod, nil
}

func (p *memProducts) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	p.tx.s.mu.Lock()
	defer p.tx.s.mu.Unlock()
	found := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		if prod, ok := p.tx.s.products[id]; ok {
			found = append(found, prod)
		}
	}
	return found, nil
}

func (p *memProducts) Create(ctx context.Context, prod model.Product) (model.Product, error) {
	panic("not used in concurrency tests")
}

type memInventory struct{ tx *memTx }

// 対象行のロック取得を模す。先行トランザクションが終わるまでここでブロックする。
func (i *memInventory) LockProducts(ctx context.Context, ids []int64) ([]model.Product, error) {
	i.tx.s.rowLock.Lock()
	i.tx.locked = true

	i.tx.s.mu.Lock()
	defer i.tx.s.mu.Unlock()
	locked := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		if prod, ok := i.tx.s.products[id]; ok {
			locked = append(locked, prod)
		}
	}
	return locked, nil
}

func (i *memInventory) DecreaseStock(ctx context.Context, productID int64, qty int64) error {
	i.tx.s.mu.Lock()
	defer i.tx.s.mu.Unlock()

	prod, ok := i.tx.s.products[productID]
	if !ok || prod.Stock < qty {
		return repo.ErrNotFound
	}
	prod.Stock -= qty
	i.tx.s.products[productID] = prod

	i.tx.undo = append(i.tx.undo, func() {
		p := i.tx.s.products[productID]
		p.Stock += qty
		i.tx.s.products[productID] = p
	})
	return nil
}

type memUsers struct{ tx *memTx }

func (u *memUsers) FindByID(ctx context.Context, userID int64) (model.User, error) {
	u.tx.s.mu.Lock()
	defer u.tx.s.mu.Unlock()
	usr, ok := u.tx.s.users[userID]
	if !ok {
		return model.User{}, repo.ErrNotFound
	}
	return usr, nil
}

func (u *memUsers) List(ctx context.Context, skip int, limit int) ([]model.User, error) {
	panic("not used in concurrency tests")
}

func (u *memUsers) Create(ctx context.Context, usr model.User) (model.User, error) {
	panic("not used in concurrency tests")
}

func (u *memUsers) Delete(ctx context.Context, userID int64) error {
	panic("not used in concurrency tests")
}

// =====================
// 並行PlaceOrder
// =====================

// 在庫5の商品に数量3の注文を2本同時に流す。
// ちょうど1本だけ成功し、もう1本はInsufficientStock(3, 2)。在庫は2で止まる。
func TestOrderUsecase_PlaceOrder_ConcurrentSameProduct_ExactlyOneWins(t *testing.T) {
	store := newMemStore()
	store.users[1] = model.User{ID: 1, Username: "alice"}
	store.products[10] = model.Product{ID: 10, Name: "coffee", Price: 500, Stock: 5}

	uc := usecase.NewOrderUsecase(&memTxManager{s: store})

	in := usecase.PlaceOrderInput{
		UserID: 1,
		Items:  []usecase.PlaceOrderItemInput{{ProductID: 10, Quantity: 3}},
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.PlaceOrder(context.Background(), in)
		}(i)
	}
	wg.Wait()

	var okCount, insCount int
	for _, err := range errs {
		if err == nil {
			okCount++
			continue
		}
		var ins *usecase.InsufficientStockError
		if !errors.As(err, &ins) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		assert.Equal(t, int64(10), ins.ProductID)
		assert.Equal(t, int64(3), ins.Requested)
		assert.Equal(t, int64(2), ins.Available)
		insCount++
	}

	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, insCount)

	//在庫は5-3=2。負けた側の減算は一切残らない。
	assert.Equal(t, int64(2), store.products[10].Stock)

	//注文・明細が残るのは勝った1本だけ（rollbackで消える）
	assert.Equal(t, 1, len(store.orders))
	assert.Equal(t, 1, len(store.items))
}

// 在庫5に数量1×8本。成功はちょうど5本、在庫は0で止まり、負にはならない。
func TestOrderUsecase_PlaceOrder_ConcurrentHammer_NoOversell(t *testing.T) {
	store := newMemStore()
	store.users[1] = model.User{ID: 1, Username: "alice"}
	store.products[10] = model.Product{ID: 10, Name: "coffee", Price: 500, Stock: 5}

	uc := usecase.NewOrderUsecase(&memTxManager{s: store})

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
				UserID: 1,
				Items:  []usecase.PlaceOrderItemInput{{ProductID: 10, Quantity: 1}},
			})
		}(i)
	}
	wg.Wait()

	var okCount int
	for _, err := range errs {
		if err == nil {
			okCount++
			continue
		}
		var ins *usecase.InsufficientStockError
		if !errors.As(err, &ins) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
	}

	assert.Equal(t, 5, okCount)
	assert.Equal(t, int64(0), store.products[10].Stock)
	assert.GreaterOrEqual(t, store.products[10].Stock, int64(0))
	assert.Equal(t, 5, len(store.orders))
}
