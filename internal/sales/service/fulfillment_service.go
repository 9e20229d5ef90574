package service

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/repository"
)

// FulfillmentRow 履约行：某商品在销售订单上的 已订/已发/剩余 数量。
// 派生数据，不落库，每次读取重新聚合。
type FulfillmentRow struct {
	ProductID          string          `json:"product_id"`
	ProductName        string          `json:"product_name"`
	Unit               string          `json:"unit"`
	OrderedQty         decimal.Decimal `json:"ordered_qty"`
	DeliveredQty       decimal.Decimal `json:"delivered_qty"`
	RemainingQty       decimal.Decimal `json:"remaining_qty"`
	DeliveryPercentage float64         `json:"delivery_percentage"`
	FullyDelivered     bool            `json:"fully_delivered"`
}

// FulfillmentService 履约台账。基于销售订单明细与全部未取消发货单
// 读取时聚合，没有需要维护的累计值，也就没有漂移可言。
type FulfillmentService struct {
	soRepo *repository.SalesOrderRepository
	doRepo *repository.DeliveryOrderRepository
}

func NewFulfillmentService(soRepo *repository.SalesOrderRepository, doRepo *repository.DeliveryOrderRepository) *FulfillmentService {
	return &FulfillmentService{soRepo: soRepo, doRepo: doRepo}
}

// Summarize 汇总某销售订单的履约情况
func (s *FulfillmentService) Summarize(ctx context.Context, orgID, salesOrderID string) ([]FulfillmentRow, error) {
	so, err := s.soRepo.FindByID(ctx, salesOrderID)
	if err != nil {
		return nil, err
	}
	if so.OrgID != orgID {
		return nil, ErrForbidden
	}
	deliveries, err := s.doRepo.FindActiveBySalesOrder(ctx, so.ID)
	if err != nil {
		return nil, err
	}
	return aggregate(so, deliveries), nil
}

// SummarizeTx 在进行中的事务内汇总（发货建单前的余量复核用）。
// 调用方必须已对销售订单行加锁。
func (s *FulfillmentService) SummarizeTx(tx *gorm.DB, so *entity.SalesOrder) ([]FulfillmentRow, error) {
	deliveries, err := s.doRepo.FindActiveBySalesOrderTx(tx, so.ID)
	if err != nil {
		return nil, err
	}
	return aggregate(so, deliveries), nil
}

func aggregate(so *entity.SalesOrder, deliveries []entity.DeliveryOrder) []FulfillmentRow {
	rows := make([]FulfillmentRow, 0, len(so.Items))
	index := make(map[string]int, len(so.Items))
	for _, item := range so.Items {
		if i, ok := index[item.ProductID]; ok {
			rows[i].OrderedQty = rows[i].OrderedQty.Add(item.Quantity)
			continue
		}
		index[item.ProductID] = len(rows)
		rows = append(rows, FulfillmentRow{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Unit:        item.Unit,
			OrderedQty:  item.Quantity,
		})
	}

	for _, do := range deliveries {
		for _, item := range do.Items {
			if i, ok := index[item.ProductID]; ok {
				rows[i].DeliveredQty = rows[i].DeliveredQty.Add(item.Quantity)
			}
		}
	}

	for i := range rows {
		remaining := rows[i].OrderedQty.Sub(rows[i].DeliveredQty)
		// 并发竞态下可能出现超发：剩余量封底为0，已发数量保留真实值，
		// 差异通过超过100的履约百分比透出而不是悄悄抹平
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		rows[i].RemainingQty = remaining
		rows[i].FullyDelivered = remaining.IsZero()
		if rows[i].OrderedQty.IsPositive() {
			pct, _ := rows[i].DeliveredQty.Mul(hundred).Div(rows[i].OrderedQty).Round(2).Float64()
			rows[i].DeliveryPercentage = pct
		}
	}
	return rows
}
