package memstore

//テスト用のインメモリRepository。
//WithinTxは1本ずつ直列に実行し、fnがエラーならスナップショットに戻す（行ロック+ROLLBACK相当）。

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"stockroom/internal/domain/model"
	repo "stockroom/internal/repository"
)

type state struct {
	products    map[int64]model.Product
	orders      map[int64]model.Order
	items       []model.OrderItem
	adjustments []model.InventoryAdjustment

	nextProductID int64
	nextOrderID   int64
	nextItemID    int64
	nextAdjID     int64
}

func (s state) clone() state {
	c := s
	c.products = make(map[int64]model.Product, len(s.products))
	for k, v := range s.products {
		c.products[k] = v
	}
	c.orders = make(map[int64]model.Order, len(s.orders))
	for k, v := range s.orders {
		c.orders[k] = v
	}
	c.items = append([]model.OrderItem(nil), s.items...)
	c.adjustments = append([]model.InventoryAdjustment(nil), s.adjustments...)
	return c
}

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   state

	now   func() time.Time
	fails map[string]error
}

func New() *Store {
	return &Store{
		st: state{
			products: map[int64]model.Product{},
			orders:   map[int64]model.Order{},
		},
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		fails: map[string]error{},
	}
}

// 次のop呼び出し（"CreateBulk", "CreateAdjustment"など）でerrを返す
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[op] = err
}

func (s *Store) takeFail(op string) error {
	err, ok := s.fails[op]
	if !ok {
		return nil
	}
	delete(s.fails, op)
	return err
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()
	return fn(s)
}

func (s *Store) restore(snapshot state) {
	s.mu.Lock()
	s.st = snapshot
	s.mu.Unlock()
}

func (s *Store) Products() repo.ProductRepository     { return productRepo{s} }
func (s *Store) Inventory() repo.InventoryRepository  { return inventoryRepo{s} }
func (s *Store) Orders() repo.OrderRepository         { return orderRepo{s} }
func (s *Store) OrderItems() repo.OrderItemRepository { return orderItemRepo{s} }

// バリデーションを通さずに直接入れる
func (s *Store) AddProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.nextProductID++
	p.ID = s.st.nextProductID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.st.products[p.ID] = p
	return p
}

func (s *Store) Product(id int64) (model.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id]
	return p, ok
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) OrderItemsOf(orderID int64) []model.OrderItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OrderItem
	for _, it := range s.st.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out
}

type productRepo struct{ s *Store }

func (r productRepo) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	needle := strings.ToLower(q.Search)
	out := []model.Product{}
	for _, p := range r.s.st.products {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.SKU), needle) {
			continue
		}
		out = append(out, p)
	}

	less, err := productLess(q.SortColumn)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.Desc {
			a, b = b, a
		}
		if c := less(a, b); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return out, nil
}

func productLess(column string) (func(a, b model.Product) int, error) {
	switch column {
	case "", "id":
		return func(a, b model.Product) int { return cmpInt(a.ID, b.ID) }, nil
	case "name":
		return func(a, b model.Product) int { return strings.Compare(a.Name, b.Name) }, nil
	case "sku":
		return func(a, b model.Product) int { return strings.Compare(a.SKU, b.SKU) }, nil
	case "price_cents":
		return func(a, b model.Product) int { return cmpInt(a.PriceCents, b.PriceCents) }, nil
	case "stock_qty":
		return func(a, b model.Product) int { return cmpInt(a.StockQty, b.StockQty) }, nil
	case "created_at":
		return func(a, b model.Product) int { return a.CreatedAt.Compare(b.CreatedAt) }, nil
	}
	return nil, fmt.Errorf("memstore: unknown sort column %q", column)
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (r productRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r productRepo) LockByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFail("LockByIDs"); err != nil {
		return nil, err
	}
	out := []model.Product{}
	seen := map[int64]bool{}
	for _, id := range ids {
		if p, ok := r.s.st.products[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.st.products {
		if existing.SKU == p.SKU {
			return model.Product{}, repo.ErrDuplicate
		}
	}
	if p.Name == "" || p.SKU == "" || p.PriceCents < 0 || p.StockQty < 0 {
		return model.Product{}, repo.ErrCheckViolation
	}
	r.s.st.nextProductID++
	p.ID = r.s.st.nextProductID
	p.CreatedAt = r.s.now()
	r.s.st.products[p.ID] = p
	return p, nil
}

func (r productRepo) Update(ctx context.Context, id int64, patch repo.ProductPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return repo.ErrNotFound
	}
	if patch.PriceCents != nil {
		p.PriceCents = *patch.PriceCents
	}
	if patch.StockQty != nil {
		p.StockQty = *patch.StockQty
	}
	if p.PriceCents < 0 || p.StockQty < 0 {
		return repo.ErrCheckViolation
	}
	r.s.st.products[id] = p
	return nil
}

func (r productRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.products[id]; !ok {
		return repo.ErrNotFound
	}
	for _, it := range r.s.st.items {
		if it.ProductID == id {
			return repo.ErrReferenced
		}
	}
	delete(r.s.st.products, id)

	kept := r.s.st.adjustments[:0]
	for _, a := range r.s.st.adjustments {
		if a.ProductID != id {
			kept = append(kept, a)
		}
	}
	r.s.st.adjustments = kept
	return nil
}

type inventoryRepo struct{ s *Store }

func (r inventoryRepo) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFail("DecreaseStockIfEnough"); err != nil {
		return false, err
	}
	p, ok := r.s.st.products[productID]
	if !ok || p.StockQty < qty {
		return false, nil
	}
	p.StockQty -= qty
	r.s.st.products[productID] = p
	return true, nil
}

func (r inventoryRepo) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFail("CreateAdjustment"); err != nil {
		return err
	}
	r.s.st.nextAdjID++
	adj.ID = r.s.st.nextAdjID
	adj.CreatedAt = r.s.now()
	r.s.st.adjustments = append(r.s.st.adjustments, adj)
	return nil
}

func (r inventoryRepo) ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.InventoryAdjustment{}
	for i := len(r.s.st.adjustments) - 1; i >= 0; i-- {
		if a := r.s.st.adjustments[i]; a.ProductID == productID {
			out = append(out, a)
		}
	}
	return out, nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFail("CreateOrder"); err != nil {
		return model.Order{}, err
	}
	r.s.st.nextOrderID++
	o := model.Order{ID: r.s.st.nextOrderID, CreatedAt: r.s.now()}
	r.s.st.orders[o.ID] = o
	return o, nil
}

func (r orderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r orderRepo) ListSummaries(ctx context.Context) ([]model.OrderSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.OrderSummary, 0, len(r.s.st.orders))
	for _, o := range r.s.st.orders {
		sum := model.OrderSummary{ID: o.ID, CreatedAt: o.CreatedAt}
		for _, it := range r.s.st.items {
			if it.OrderID == o.ID {
				sum.TotalCents += it.Qty * it.PriceAtPurchase
				sum.ItemCount += it.Qty
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type orderItemRepo struct{ s *Store }

func (r orderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFail("CreateBulk"); err != nil {
		return err
	}
	if _, ok := r.s.st.orders[orderID]; !ok {
		return repo.ErrReferenced
	}
	for _, it := range items {
		if _, ok := r.s.st.products[it.ProductID]; !ok {
			return repo.ErrReferenced
		}
		if it.Qty <= 0 || it.PriceAtPurchase < 0 {
			return repo.ErrCheckViolation
		}
	}
	for _, it := range items {
		r.s.st.nextItemID++
		it.ID = r.s.st.nextItemID
		it.OrderID = orderID
		r.s.st.items = append(r.s.st.items, it)
	}
	return nil
}

func (r orderItemRepo) ListLinesByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.OrderLine{}
	for _, it := range r.s.st.items {
		if it.OrderID != orderID {
			continue
		}
		p := r.s.st.products[it.ProductID]
		out = append(out, model.OrderLine{
			ID:              it.ID,
			ProductID:       it.ProductID,
			ProductName:     p.Name,
			ProductSKU:      p.SKU,
			Qty:             it.Qty,
			PriceAtPurchase: it.PriceAtPurchase,
		})
	}
	return out, nil
}

func (r orderItemRepo) ExistsByProductID(ctx context.Context, productID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.st.items {
		if it.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

var (
	_ repo.TransactionManager = (*Store)(nil)
	_ repo.TxRepos            = (*Store)(nil)
)
