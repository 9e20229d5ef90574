package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/testutil"
)

func seedSalesOrder(t *testing.T, svc *Services, orgID string, qty float64) *entity.SalesOrder {
	t.Helper()
	so, err := svc.SalesOrder.Create(context.Background(), orgID, "test-user-001", &CreateSalesOrderRequest{
		CustomerID:      "cust-001",
		CustomerName:    "测试客户",
		SalesPersonID:   "sp-001",
		SalesPersonName: "销售员A",
		Items: []LineItemInput{
			{ProductID: "prod-a", ProductName: "商品A", Unit: "pcs", Quantity: qty, UnitPrice: 100},
		},
	})
	if err != nil {
		t.Fatalf("seed sales order: %v", err)
	}
	return so
}

func TestFulfillmentLedgerAggregation(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	so := seedSalesOrder(t, svc, org, 10)

	// 发货 4 件
	if _, err := svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{
		SalesOrderID: &so.ID,
		Items:        []DeliveryItemInput{{ProductID: "prod-a", Quantity: 4}},
	}); err != nil {
		t.Fatalf("create delivery: %v", err)
	}

	// 再建一张 6 件的发货单然后取消，取消件数不计入已发
	cancelled, err := svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{
		SalesOrderID: &so.ID,
		Items:        []DeliveryItemInput{{ProductID: "prod-a", Quantity: 6}},
	})
	if err != nil {
		t.Fatalf("create second delivery: %v", err)
	}
	if _, err := svc.Delivery.UpdateStatus(ctx, org, cancelled.ID, entity.StatusKeyCancelled); err != nil {
		t.Fatalf("cancel delivery: %v", err)
	}

	rows, err := svc.Fulfillment.Summarize(ctx, org, so.ID)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 fulfillment row, got %d", len(rows))
	}
	row := rows[0]
	if !row.OrderedQty.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected ordered 10, got %s", row.OrderedQty)
	}
	if !row.DeliveredQty.Equal(decimal.NewFromInt(4)) {
		t.Errorf("Expected delivered 4, got %s", row.DeliveredQty)
	}
	if !row.RemainingQty.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Expected remaining 6, got %s", row.RemainingQty)
	}
	if row.DeliveryPercentage != 40 {
		t.Errorf("Expected 40%% delivered, got %v", row.DeliveryPercentage)
	}
	if row.FullyDelivered {
		t.Error("Order should not be fully delivered")
	}
}

func TestDeliveryRejectsOverDelivery(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	so := seedSalesOrder(t, svc, org, 10)
	if _, err := svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{
		SalesOrderID: &so.ID,
		Items:        []DeliveryItemInput{{ProductID: "prod-a", Quantity: 4}},
	}); err != nil {
		t.Fatalf("create delivery: %v", err)
	}

	// 剩余 6 件，再发 7 件必须被拒，错误信息给出余量上限
	_, err := svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{
		SalesOrderID: &so.ID,
		Items:        []DeliveryItemInput{{ProductID: "prod-a", Quantity: 7}},
	})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Expected precondition error for over-delivery, got %v", err)
	}
	if !strings.Contains(err.Error(), "6") {
		t.Errorf("Error should name the 6-unit remaining ceiling: %v", err)
	}

	// 正好发满 6 件可以通过
	if _, err := svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{
		SalesOrderID: &so.ID,
		Items:        []DeliveryItemInput{{ProductID: "prod-a", Quantity: 6}},
	}); err != nil {
		t.Fatalf("Exact remaining delivery failed: %v", err)
	}

	rows, err := svc.Fulfillment.Summarize(ctx, org, so.ID)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if !rows[0].FullyDelivered {
		t.Error("Order should be fully delivered")
	}

	// 发满之后整单发货被拒
	_, err = svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{
		SalesOrderID: &so.ID,
	})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Expected precondition error for fully delivered order, got %v", err)
	}
}

func TestDeliveryDefaultsToRemainingQuantities(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	so := seedSalesOrder(t, svc, org, 10)
	if _, err := svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{
		SalesOrderID: &so.ID,
		Items:        []DeliveryItemInput{{ProductID: "prod-a", Quantity: 3}},
	}); err != nil {
		t.Fatalf("partial delivery: %v", err)
	}

	// 不给明细：按剩余量整单发货
	do, err := svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{
		SalesOrderID: &so.ID,
	})
	if err != nil {
		t.Fatalf("remaining delivery: %v", err)
	}
	if len(do.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(do.Items))
	}
	if !do.Items[0].Quantity.Equal(decimal.NewFromInt(7)) {
		t.Errorf("Expected remaining quantity 7, got %s", do.Items[0].Quantity)
	}
	if do.CustomerID != so.CustomerID {
		t.Errorf("Customer not copied from sales order")
	}
	if do.AssigneeID != so.SalesPersonID || do.AssigneeName != so.SalesPersonName {
		t.Errorf("Assignee should default to the order's sales person, got %s/%s", do.AssigneeID, do.AssigneeName)
	}
	// 发货单不带价格
	if do.SalesOrderID == nil || *do.SalesOrderID != so.ID {
		t.Error("Delivery should reference source sales order")
	}
}

func TestDeliveryRejectsUnknownProduct(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	so := seedSalesOrder(t, svc, org, 5)
	_, err := svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{
		SalesOrderID: &so.ID,
		Items:        []DeliveryItemInput{{ProductID: "prod-nope", Quantity: 1}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected validation error for product not on order, got %v", err)
	}
}

func TestDeliveryRejectsCancelledSalesOrder(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	so := seedSalesOrder(t, svc, org, 5)
	if _, err := svc.SalesOrder.UpdateStatus(ctx, org, so.ID, entity.StatusKeyCancelled); err != nil {
		t.Fatalf("cancel sales order: %v", err)
	}

	_, err := svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{
		SalesOrderID: &so.ID,
	})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Expected precondition error for cancelled sales order, got %v", err)
	}
}
