package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/repository"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/testutil"
)

func newTestServices(t *testing.T) *Services {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewServices(repos, db, nil, nil, "")
}

func seedQuotation(t *testing.T, svc *Services, orgID string) *entity.Quotation {
	t.Helper()
	q, err := svc.Quotation.Create(context.Background(), orgID, "test-user-001", &CreateQuotationRequest{
		CustomerID:   "cust-001",
		CustomerName: "测试客户",
		Currency:     "IDR",
		Items: []LineItemInput{
			{ProductID: "prod-a", ProductName: "商品A", Unit: "pcs", Quantity: 2, UnitPrice: 10},
			{ProductID: "prod-b", ProductName: "商品B", Unit: "pcs", Quantity: 1, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("seed quotation: %v", err)
	}
	return q
}

func TestQuotationToSalesOrderConversion(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	q := seedQuotation(t, svc, org)
	if !q.Subtotal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("Expected quotation subtotal 40, got %s", q.Subtotal)
	}

	so, err := svc.SalesOrder.Create(ctx, org, "test-user-001", &CreateSalesOrderRequest{
		QuotationID: &q.ID,
	})
	if err != nil {
		t.Fatalf("Conversion failed: %v", err)
	}

	if so.QuotationID == nil || *so.QuotationID != q.ID {
		t.Error("Sales order should reference source quotation")
	}
	if so.CustomerID != q.CustomerID {
		t.Errorf("Customer not copied: %s", so.CustomerID)
	}
	if len(so.Items) != 2 {
		t.Fatalf("Expected 2 items copied, got %d", len(so.Items))
	}
	if !so.Subtotal.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected subtotal 40, got %s", so.Subtotal)
	}
	// 转换生成的订单一律落在初始状态
	if so.Status != "pending" {
		t.Errorf("Expected initial status pending, got %s", so.Status)
	}
	if so.Code == "" || so.Code == q.Code {
		t.Errorf("Sales order must mint its own code, got %q", so.Code)
	}
}

func TestConversionIgnoresRequestedStatus(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	q := seedQuotation(t, svc, org)
	so, err := svc.SalesOrder.Create(ctx, org, "test-user-001", &CreateSalesOrderRequest{
		QuotationID: &q.ID,
		Status:      "completed",
	})
	if err != nil {
		t.Fatalf("Conversion failed: %v", err)
	}
	if so.Status != "pending" {
		t.Errorf("Conversion must start at initial status, got %s", so.Status)
	}
}

func TestConversionRejectsCancelledQuotation(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	q := seedQuotation(t, svc, org)
	if _, err := svc.Quotation.UpdateStatus(ctx, org, q.ID, entity.StatusKeyCancelled); err != nil {
		t.Fatalf("cancel quotation: %v", err)
	}

	_, err := svc.SalesOrder.Create(ctx, org, "test-user-001", &CreateSalesOrderRequest{
		QuotationID: &q.ID,
	})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Expected precondition error for cancelled quotation, got %v", err)
	}
}

func TestQuotationCanConvertRepeatedly(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	q := seedQuotation(t, svc, org)
	for i := 0; i < 2; i++ {
		if _, err := svc.SalesOrder.Create(ctx, org, "test-user-001", &CreateSalesOrderRequest{
			QuotationID: &q.ID,
		}); err != nil {
			t.Fatalf("Conversion %d failed: %v", i+1, err)
		}
	}

	orders, err := svc.Quotation.ListSalesOrders(ctx, org, q.ID)
	if err != nil {
		t.Fatalf("ListSalesOrders failed: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("Expected 2 converted orders, got %d", len(orders))
	}
}

func TestSalesOrderCrossOrgAccessDenied(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	q := seedQuotation(t, svc, testutil.TestOrgID)
	so, err := svc.SalesOrder.Create(ctx, testutil.TestOrgID, "test-user-001", &CreateSalesOrderRequest{
		QuotationID: &q.ID,
	})
	if err != nil {
		t.Fatalf("Conversion failed: %v", err)
	}

	// 另一个组织拿着同一个ID访问
	if _, err := svc.SalesOrder.Get(ctx, "org-other", so.ID, svc.Fulfillment); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected forbidden for cross-org get, got %v", err)
	}
	if _, err := svc.SalesOrder.Create(ctx, "org-other", "u2", &CreateSalesOrderRequest{
		QuotationID: &q.ID,
	}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected forbidden for cross-org conversion, got %v", err)
	}
}

func TestSalesOrderCodesAreSequential(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	q := seedQuotation(t, svc, org)
	so1, err := svc.SalesOrder.Create(ctx, org, "u1", &CreateSalesOrderRequest{QuotationID: &q.ID})
	if err != nil {
		t.Fatalf("create 1: %v", err)
	}
	so2, err := svc.SalesOrder.Create(ctx, org, "u1", &CreateSalesOrderRequest{QuotationID: &q.ID})
	if err != nil {
		t.Fatalf("create 2: %v", err)
	}
	if so1.Code == so2.Code {
		t.Errorf("Codes must be unique: %s", so1.Code)
	}
}

func TestSalesOrderUpdateTaxRateRecomputesTotals(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	so := seedSalesOrder(t, svc, org, 10)
	if !so.TotalAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("Expected seeded total 1000, got %s", so.TotalAmount)
	}

	// 只改税率与整单折扣不带明细，总额必须按存量明细重算
	rate := 10.0
	discount := 100.0
	updated, err := svc.SalesOrder.Update(ctx, org, so.ID, &CreateSalesOrderRequest{
		TaxRate:       &rate,
		OrderDiscount: &discount,
	})
	if err != nil {
		t.Fatalf("update tax rate: %v", err)
	}
	if !updated.Subtotal.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected subtotal 1000, got %s", updated.Subtotal)
	}
	if !updated.TaxAmount.Equal(decimal.NewFromInt(90)) {
		t.Errorf("Expected tax 90 on discounted base, got %s", updated.TaxAmount)
	}
	if !updated.TotalAmount.Equal(decimal.NewFromInt(990)) {
		t.Errorf("Expected total 990, got %s", updated.TotalAmount)
	}
}
