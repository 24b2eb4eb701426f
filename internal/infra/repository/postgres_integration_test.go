package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"stockroom/internal/domain/model"
	"stockroom/internal/infra/db"
	repo "stockroom/internal/repository"
	"stockroom/internal/testutil"
	"stockroom/internal/usecase"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type PostgresSuite struct {
	suite.Suite
	db   *gorm.DB
	tx   *TxManagerGorm
	ctx  context.Context
	repo repo.TxRepos
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.db = testutil.OpenPostgres(s.T())
	s.tx = NewTxManagerGorm(s.db)
	s.repo = NewRepos(s.db)
	s.ctx = context.Background()
}

func (s *PostgresSuite) SetupTest() {
	testutil.Truncate(s.T(), s.db)
}

func (s *PostgresSuite) addProduct(name, sku string, price, stock int64) model.Product {
	p, err := s.repo.Products().Create(s.ctx, model.Product{Name: name, SKU: sku, PriceCents: price, StockQty: stock})
	s.Require().NoError(err)
	return p
}

func (s *PostgresSuite) stock(id int64) int64 {
	p, err := s.repo.Products().FindByID(s.ctx, id)
	s.Require().NoError(err)
	return p.StockQty
}

func (s *PostgresSuite) TestProductConstraints() {
	p := s.addProduct("Desk", "FURN-002", 24999, 0)
	s.Positive(p.ID)
	s.False(p.CreatedAt.IsZero())

	_, err := s.repo.Products().Create(s.ctx, model.Product{Name: "Dup", SKU: "FURN-002", PriceCents: 1})
	s.ErrorIs(err, repo.ErrDuplicate)

	_, err = s.repo.Products().Create(s.ctx, model.Product{Name: "Neg", SKU: "NEG-1", PriceCents: -1})
	s.ErrorIs(err, repo.ErrCheckViolation)

	_, err = s.repo.Products().Create(s.ctx, model.Product{Name: "", SKU: "EMPTY-1", PriceCents: 1})
	s.ErrorIs(err, repo.ErrCheckViolation)

	neg := int64(-3)
	err = s.repo.Products().Update(s.ctx, p.ID, repo.ProductPatch{StockQty: &neg})
	s.ErrorIs(err, repo.ErrCheckViolation)

	one := int64(1)
	err = s.repo.Products().Update(s.ctx, p.ID+100, repo.ProductPatch{StockQty: &one})
	s.ErrorIs(err, repo.ErrNotFound)

	_, err = s.repo.Products().FindByID(s.ctx, p.ID+100)
	s.ErrorIs(err, repo.ErrNotFound)
}

func (s *PostgresSuite) TestListSearchIsLiteralAndSorted() {
	s.addProduct("100% Cotton Tee", "TEE-1", 1500, 1)
	s.addProduct("1000 Cotton Tee", "TEE-2", 900, 1)
	s.addProduct("Under_score", "US-1", 100, 1)
	s.addProduct("Underscore", "US-2", 100, 1)

	got, err := s.repo.Products().List(s.ctx, repo.ProductListQuery{Search: "0%", SortColumn: "id"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("TEE-1", got[0].SKU)

	got, err = s.repo.Products().List(s.ctx, repo.ProductListQuery{Search: "r_s"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("US-1", got[0].SKU)

	got, err = s.repo.Products().List(s.ctx, repo.ProductListQuery{Search: "tee", SortColumn: "price_cents", Desc: true})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("TEE-1", got[0].SKU)

	got, err = s.repo.Products().List(s.ctx, repo.ProductListQuery{Search: "nothing"})
	s.Require().NoError(err)
	s.NotNil(got)
	s.Empty(got)
}

func (s *PostgresSuite) TestPlaceOrderAndReadBack() {
	orders := usecase.NewOrderUsecase(s.tx)
	products := usecase.NewProductUsecase(s.repo.Products(), s.repo.Inventory(), s.tx)
	kb := s.addProduct("Keyboard", "ELEC-002", 8999, 10)
	hub := s.addProduct("Hub", "ELEC-003", 4999, 2)

	out, err := orders.PlaceOrder(s.ctx, usecase.PlaceOrderInput{Items: []usecase.OrderItemInput{
		{ProductID: hub.ID, Qty: 1},
		{ProductID: kb.ID, Qty: 2},
		{ProductID: hub.ID, Qty: 1},
	}})
	s.Require().NoError(err)
	s.Equal(int64(8), s.stock(kb.ID))
	s.Equal(int64(0), s.stock(hub.ID))

	price := int64(1)
	_, err = products.PatchProduct(s.ctx, kb.ID, usecase.PatchProductInput{PriceCents: &price})
	s.Require().NoError(err)

	detail, err := orders.GetOrder(s.ctx, out.ID)
	s.Require().NoError(err)
	s.Require().Len(detail.Items, 2)
	s.Equal(hub.ID, detail.Items[0].ProductID)
	s.Equal(int64(2), detail.Items[0].Qty)
	s.Equal("ELEC-002", detail.Items[1].ProductSKU)
	s.Equal(int64(8999), detail.Items[1].PriceAtPurchase)
	s.Equal(int64(2*4999+2*8999), detail.TotalCents)

	list, err := orders.ListOrders(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(detail.TotalCents, list[0].TotalCents)
	s.Equal(int64(4), list[0].ItemCount)

	adjs, err := s.repo.Inventory().ListAdjustments(s.ctx, hub.ID)
	s.Require().NoError(err)
	s.Require().Len(adjs, 1)
	s.Equal(int64(-2), adjs[0].Delta)
	s.Require().NotNil(adjs[0].OrderID)
	s.Equal(out.ID, *adjs[0].OrderID)
}

func (s *PostgresSuite) TestPlaceOrderFailureWritesNothing() {
	orders := usecase.NewOrderUsecase(s.tx)
	a := s.addProduct("A", "A-1", 100, 5)
	b := s.addProduct("B", "B-1", 100, 1)

	_, err := orders.PlaceOrder(s.ctx, usecase.PlaceOrderInput{Items: []usecase.OrderItemInput{
		{ProductID: a.ID, Qty: 2},
		{ProductID: b.ID, Qty: 2},
	}})
	s.True(usecase.HasCode(err, usecase.CodeInsufficientStock))

	_, err = orders.PlaceOrder(s.ctx, usecase.PlaceOrderInput{Items: []usecase.OrderItemInput{
		{ProductID: a.ID, Qty: 2},
		{ProductID: b.ID + 50, Qty: 1},
	}})
	s.True(usecase.HasCode(err, usecase.CodeProductNotFound))

	s.Equal(int64(5), s.stock(a.ID))
	s.Equal(int64(1), s.stock(b.ID))

	var count int64
	s.Require().NoError(s.db.Model(&model.Order{}).Count(&count).Error)
	s.Zero(count)
}

func (s *PostgresSuite) TestOrderTotalOverflowWritesNothing() {
	orders := usecase.NewOrderUsecase(s.tx)
	huge := s.addProduct("Huge", "HUGE-1", 1<<62, 10)

	_, err := orders.PlaceOrder(s.ctx, usecase.PlaceOrderInput{Items: []usecase.OrderItemInput{
		{ProductID: huge.ID, Qty: 4},
	}})
	s.True(usecase.HasCode(err, usecase.CodeValidation))
	s.Equal(int64(10), s.stock(huge.ID))

	list, err := orders.ListOrders(s.ctx)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *PostgresSuite) TestConcurrentOrdersNeverOversell() {
	orders := usecase.NewOrderUsecase(s.tx)
	p := s.addProduct("Webcam", "ELEC-005", 7999, 5)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
		other    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orders.PlaceOrder(s.ctx, usecase.PlaceOrderInput{Items: []usecase.OrderItemInput{
				{ProductID: p.ID, Qty: 3},
			}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case usecase.HasCode(err, usecase.CodeInsufficientStock):
				rejected++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	s.Empty(other)
	s.Equal(1, ok)
	s.Equal(workers-1, rejected)
	s.Equal(int64(2), s.stock(p.ID))
}

func (s *PostgresSuite) TestConcurrentOrdersOnOverlappingProductSets() {
	orders := usecase.NewOrderUsecase(s.tx)
	a := s.addProduct("A", "A-1", 100, 100)
	b := s.addProduct("B", "B-1", 100, 100)

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		items := []usecase.OrderItemInput{{ProductID: a.ID, Qty: 1}, {ProductID: b.ID, Qty: 1}}
		if i%2 == 1 {
			items[0], items[1] = items[1], items[0]
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = orders.PlaceOrder(s.ctx, usecase.PlaceOrderInput{Items: items})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}
	s.Equal(int64(80), s.stock(a.ID))
	s.Equal(int64(80), s.stock(b.ID))
}

func (s *PostgresSuite) TestDeleteGuard() {
	orders := usecase.NewOrderUsecase(s.tx)
	products := usecase.NewProductUsecase(s.repo.Products(), s.repo.Inventory(), s.tx)
	used := s.addProduct("Used", "U-1", 100, 5)
	unused := s.addProduct("Unused", "U-2", 100, 5)

	_, err := orders.PlaceOrder(s.ctx, usecase.PlaceOrderInput{Items: []usecase.OrderItemInput{{ProductID: used.ID, Qty: 1}}})
	s.Require().NoError(err)

	// FK (RESTRICT) 単体でも止まる
	s.ErrorIs(s.repo.Products().Delete(s.ctx, used.ID), repo.ErrReferenced)
	s.True(usecase.HasCode(products.DeleteProduct(s.ctx, used.ID), usecase.CodeProductReferenced))

	fresh := int64(9)
	_, err = products.PatchProduct(s.ctx, unused.ID, usecase.PatchProductInput{StockQty: &fresh})
	s.Require().NoError(err)
	s.Require().NoError(products.DeleteProduct(s.ctx, unused.ID))

	_, err = s.repo.Products().FindByID(s.ctx, unused.ID)
	s.ErrorIs(err, repo.ErrNotFound)
	adjs, err := s.repo.Inventory().ListAdjustments(s.ctx, unused.ID)
	s.Require().NoError(err)
	s.Empty(adjs)
}

func (s *PostgresSuite) TestWithinTxRollsBack() {
	boom := errors.New("boom")
	err := s.tx.WithinTx(s.ctx, func(r repo.TxRepos) error {
		if _, err := r.Products().Create(s.ctx, model.Product{Name: "Ghost", SKU: "G-1", PriceCents: 1}); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.repo.Products().List(s.ctx, repo.ProductListQuery{Search: "G-1"})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *PostgresSuite) TestSeedOnlyWhenEmpty() {
	n, err := db.Seed(s.ctx, s.db)
	s.Require().NoError(err)
	s.Equal(int64(12), n)

	n, err = db.Seed(s.ctx, s.db)
	s.Require().NoError(err)
	s.Zero(n)

	// 再実行してもmigrateは壊れない
	s.Require().NoError(db.Migrate(s.ctx, s.db))
}
