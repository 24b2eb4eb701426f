package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"stockroom/internal/domain/model"
	"stockroom/internal/domain/money"
	repo "stockroom/internal/repository"
)

type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type OrderItemInput struct {
	ProductID int64
	Qty       int64
}

type PlaceOrderInput struct {
	Items []OrderItemInput
}

type PlaceOrderOutput struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderDetailOutput struct {
	ID           int64             `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	Items        []model.OrderLine `json:"items"`
	TotalCents   int64             `json:"total_cents"`
	TotalDisplay string            `json:"total_display"`
}

type OrderSummaryOutput struct {
	model.OrderSummary
	TotalDisplay string `json:"total_display"`
}

// 注文確定。全部成功するか、何も変わらないかのどちらか。
//
// 同じ商品の重複は数量を合算してから、対象商品の行をまとめてロックし、
// 全商品の存在と在庫を確認してから書き込む。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlaceOrderOutput, error) {
	if err := validateOrderItems(in.Items); err != nil {
		return PlaceOrderOutput{}, err
	}

	items := MergeDuplicateItems(in.Items)
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	var out PlaceOrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//行ロック（他の注文はcommit/rollbackまで待つ）
		locked, err := r.Products().LockByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("lock products: %w", err)
		}
		byID := make(map[int64]model.Product, len(locked))
		for _, p := range locked {
			byID[p.ID] = p
		}

		//全部チェックしてから書く
		var total int64
		for _, it := range items {
			p, ok := byID[it.ProductID]
			if !ok {
				return NewHTTPError(http.StatusNotFound, CodeProductNotFound,
					fmt.Sprintf("Product %d not found", it.ProductID))
			}
			if p.StockQty < it.Qty {
				return insufficientStock(p)
			}
			if total, err = addLine(total, it.Qty, p.PriceCents); err != nil {
				return orderTotalTooLarge()
			}
		}

		order, err := r.Orders().Create(ctx)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		//スナップショット（現在価格を明細に固定）
		orderItems := make([]model.OrderItem, 0, len(items))
		for _, it := range items {
			orderItems = append(orderItems, model.OrderItem{
				ProductID:       it.ProductID,
				Qty:             it.Qty,
				PriceAtPurchase: byID[it.ProductID].PriceCents,
			})
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, orderItems); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		for _, it := range items {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Qty)
			if err != nil {
				return fmt.Errorf("decrease stock: %w", err)
			}
			if !ok {
				// ロック中なので通常は起きない
				return insufficientStock(byID[it.ProductID])
			}

			orderID := order.ID
			if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
				ProductID: it.ProductID,
				OrderID:   &orderID,
				Delta:     -it.Qty,
				Reason:    model.AdjustmentReasonOrder,
			}); err != nil {
				return fmt.Errorf("create adjustment: %w", err)
			}
		}

		out = PlaceOrderOutput{ID: order.ID, CreatedAt: order.CreatedAt}
		return nil
	})
	if err != nil {
		return PlaceOrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetOrder(ctx context.Context, orderID int64) (OrderDetailOutput, error) {
	if err := validateID("id", orderID); err != nil {
		return OrderDetailOutput{}, err
	}

	var out OrderDetailOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("Order")
		}
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}

		lines, err := r.OrderItems().ListLinesByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("list order lines: %w", err)
		}

		out, err = toOrderDetailOutput(o, lines)
		return err
	})
	if err != nil {
		return OrderDetailOutput{}, err
	}
	return out, nil
}

// 新しい順
func (u *OrderUsecase) ListOrders(ctx context.Context) ([]OrderSummaryOutput, error) {
	var outs []OrderSummaryOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		summaries, err := r.Orders().ListSummaries(ctx)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}

		outs = make([]OrderSummaryOutput, 0, len(summaries))
		for _, s := range summaries {
			outs = append(outs, OrderSummaryOutput{
				OrderSummary: s,
				TotalDisplay: money.Format(s.TotalCents),
			})
		}
		return nil
	})
	if err != nil {
		return []OrderSummaryOutput{}, err
	}
	return outs, nil
}

// 同じproduct_idの数量を合算する。順番は最初に出てきた順。
// 合算がint64を超える場合はMaxInt64で止める（在庫不足として弾かれる）。
func MergeDuplicateItems(items []OrderItemInput) []OrderItemInput {
	merged := make([]OrderItemInput, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			if merged[i].Qty > math.MaxInt64-it.Qty {
				merged[i].Qty = math.MaxInt64
			} else {
				merged[i].Qty += it.Qty
			}
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged
}

func validateOrderItems(items []OrderItemInput) error {
	var fe fieldErrors
	if len(items) == 0 {
		fe.add("items", "must contain at least 1 item")
	}
	for i, it := range items {
		if it.ProductID <= 0 {
			fe.add(fmt.Sprintf("items.%d.product_id", i), "must be a positive integer")
		}
		if it.Qty <= 0 {
			fe.add(fmt.Sprintf("items.%d.qty", i), "must be a positive integer")
		}
	}
	return fe.err()
}

func insufficientStock(p model.Product) error {
	return NewHTTPError(http.StatusConflict, CodeInsufficientStock,
		fmt.Sprintf("Insufficient stock for %q (available: %d)", p.Name, p.StockQty))
}

func orderTotalTooLarge() error {
	return NewValidationError([]FieldError{{Path: "items", Message: "order total exceeds the supported maximum"}})
}

// total + qty*単価（int64を超えたらmoney.ErrOverflow）
func addLine(total int64, qty int64, unit int64) (int64, error) {
	line, err := money.LineTotal(qty, unit)
	if err != nil {
		return 0, err
	}
	return money.Add(total, line)
}

func toOrderDetailOutput(o model.Order, lines []model.OrderLine) (OrderDetailOutput, error) {
	var total int64
	for _, l := range lines {
		var err error
		if total, err = addLine(total, l.Qty, l.PriceAtPurchase); err != nil {
			return OrderDetailOutput{}, fmt.Errorf("order %d total: %w", o.ID, err)
		}
	}

	return OrderDetailOutput{
		ID:           o.ID,
		CreatedAt:    o.CreatedAt,
		Items:        lines,
		TotalCents:   total,
		TotalDisplay: money.Format(total),
	}, nil
}
