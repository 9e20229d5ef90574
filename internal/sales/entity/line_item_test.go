package entity

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestComputeLineAmountsPercentOverridesAmount(t *testing.T) {
	// 10 × 100，百分比 10% 与折扣额 999 同时给出时百分比生效
	discount, subtotal := ComputeLineAmounts(d("10"), d("100"), d("10"), d("999"))
	if !discount.Equal(d("100")) {
		t.Errorf("Expected discount 100, got %s", discount)
	}
	if !subtotal.Equal(d("900")) {
		t.Errorf("Expected subtotal 900, got %s", subtotal)
	}
}

func TestComputeLineAmountsFixedDiscount(t *testing.T) {
	discount, subtotal := ComputeLineAmounts(d("2"), d("50"), decimal.Zero, d("15"))
	if !discount.Equal(d("15")) {
		t.Errorf("Expected discount 15, got %s", discount)
	}
	if !subtotal.Equal(d("85")) {
		t.Errorf("Expected subtotal 85, got %s", subtotal)
	}
}

func TestComputeLineAmountsNoDiscount(t *testing.T) {
	discount, subtotal := ComputeLineAmounts(d("3"), d("9.99"), decimal.Zero, decimal.Zero)
	if !discount.Equal(decimal.Zero) {
		t.Errorf("Expected zero discount, got %s", discount)
	}
	if !subtotal.Equal(d("29.97")) {
		t.Errorf("Expected subtotal 29.97, got %s", subtotal)
	}
}

func TestComputeDocTotals(t *testing.T) {
	// 行小计 100 + 50，整单折扣 50，税率 10% → 税 10，总额 110
	subtotal, tax, total := ComputeDocTotals(
		[]decimal.Decimal{d("100"), d("50")}, d("50"), d("10"))
	if !subtotal.Equal(d("150")) {
		t.Errorf("Expected subtotal 150, got %s", subtotal)
	}
	if !tax.Equal(d("10")) {
		t.Errorf("Expected tax 10, got %s", tax)
	}
	if !total.Equal(d("110")) {
		t.Errorf("Expected total 110, got %s", total)
	}
}

func TestComputeDocTotalsZeroTax(t *testing.T) {
	subtotal, tax, total := ComputeDocTotals(
		[]decimal.Decimal{d("20"), d("20")}, decimal.Zero, decimal.Zero)
	if !subtotal.Equal(d("40")) {
		t.Errorf("Expected subtotal 40, got %s", subtotal)
	}
	if !tax.Equal(decimal.Zero) {
		t.Errorf("Expected zero tax, got %s", tax)
	}
	if !total.Equal(d("40")) {
		t.Errorf("Expected total 40, got %s", total)
	}
}
