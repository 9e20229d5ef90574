package entity

import "github.com/shopspring/decimal"

var dHundred = decimal.NewFromInt(100)

// ComputeLineAmounts 计算行折扣与小计。
// 折扣百分比优先：给定百分比时折扣额按 折前小计×百分比/100 计算，覆盖传入的折扣额。
// 存储的折扣额/小计只是缓存，任何写入路径都必须经由本函数重算，不得信任客户端值。
func ComputeLineAmounts(quantity, unitPrice, discountPercent, discountAmount decimal.Decimal) (discount, subtotal decimal.Decimal) {
	gross := quantity.Mul(unitPrice)
	discount = discountAmount
	if discountPercent.IsPositive() {
		discount = gross.Mul(discountPercent).Div(dHundred)
	}
	return discount, gross.Sub(discount)
}

// ComputeDocTotals 计算单据汇总：行小计之和、整单折扣后的税额与总额。
// taxRate 为百分比（如 11 表示 11%）。
func ComputeDocTotals(lineSubtotals []decimal.Decimal, orderDiscount, taxRate decimal.Decimal) (subtotal, taxAmount, total decimal.Decimal) {
	for _, s := range lineSubtotals {
		subtotal = subtotal.Add(s)
	}
	taxable := subtotal.Sub(orderDiscount)
	taxAmount = taxable.Mul(taxRate).Div(dHundred)
	total = taxable.Add(taxAmount)
	return subtotal, taxAmount, total
}
