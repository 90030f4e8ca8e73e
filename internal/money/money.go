package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/quotemaker-dev/quotemaker/internal/model"
)

// CurrencySymbol prefixes every formatted amount.
const CurrencySymbol = "₩"

// MaxAmount bounds quantities, prices, line totals and the subtotal so that
// every derived amount fits in an int64.
const MaxAmount int64 = 1_000_000_000_000_000

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
	locale  = language.Korean
)

// Summary holds the derived totals of a document.
type Summary struct {
	Subtotal           int64
	Discount           int64
	DiscountedSubtotal int64
	Tax                int64
	Total              int64
}

// Subtotal sums quantity*unitPrice over all items, saturating at MaxAmount.
func Subtotal(items []model.LineItem) int64 {
	var sum int64
	for _, it := range items {
		sum += LineTotal(it.Quantity, it.UnitPrice)
		if sum >= MaxAmount {
			return MaxAmount
		}
	}
	return sum
}

// LineTotal returns quantity*unitPrice with negative inputs treated as 0 and
// the result saturating at MaxAmount.
func LineTotal(quantity, unitPrice int64) int64 {
	quantity, unitPrice = Bound(quantity), Bound(unitPrice)
	if quantity == 0 || unitPrice == 0 {
		return 0
	}
	if unitPrice > MaxAmount/quantity {
		return MaxAmount
	}
	return quantity * unitPrice
}

// Bound clamps n into [0, MaxAmount].
func Bound(n int64) int64 {
	switch {
	case n < 0:
		return 0
	case n > MaxAmount:
		return MaxAmount
	}
	return n
}

// Discount returns round(subtotal * ratePercent / 100). The rate is coerced
// into [0, 100].
func Discount(subtotal int64, ratePercent float64) int64 {
	rate := decimal.NewFromFloat(clamp(ratePercent, 100))
	return roundHalfUp(decimal.NewFromInt(subtotal).Mul(rate).Div(hundred))
}

// Tax returns round(discountedSubtotal * rate) where rate is a fraction
// coerced into [0, 1].
func Tax(discountedSubtotal int64, rate float64) int64 {
	r := decimal.NewFromFloat(clamp(rate, 1))
	return roundHalfUp(decimal.NewFromInt(discountedSubtotal).Mul(r))
}

// Total is the exact sum of the discounted subtotal and tax.
func Total(discountedSubtotal, tax int64) int64 {
	return discountedSubtotal + tax
}

// Summarize recomputes every derived amount of doc.
func Summarize(doc model.Document) Summary {
	s := Summary{Subtotal: Subtotal(doc.Items)}
	s.Discount = Discount(s.Subtotal, doc.DiscountRate)
	s.DiscountedSubtotal = s.Subtotal - s.Discount
	s.Tax = Tax(s.DiscountedSubtotal, doc.TaxRate)
	s.Total = Total(s.DiscountedSubtotal, s.Tax)
	return s
}

// FormatCurrency renders amount with locale digit grouping, e.g. "₩1,500,000".
func FormatCurrency(amount int64) string {
	return CurrencySymbol + FormatAmount(amount)
}

// FormatAmount renders amount with locale digit grouping and no symbol.
func FormatAmount(amount int64) string {
	return message.NewPrinter(locale).Sprintf("%d", amount)
}

// TaxPercent renders a tax fraction as a percentage, 0.1 -> "10".
func TaxPercent(rate float64) string {
	return decimal.NewFromFloat(clamp(rate, 1)).Mul(hundred).Round(2).String()
}

// DiscountPercent renders a discount rate already expressed in percent.
func DiscountPercent(rate float64) string {
	return decimal.NewFromFloat(clamp(rate, 100)).Round(2).String()
}

// ParseCurrency reverses FormatCurrency.
func ParseCurrency(s string) (int64, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(s), CurrencySymbol)
	digits = strings.ReplaceAll(digits, ",", "")
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return n, nil
}

// roundHalfUp rounds toward +Inf on .5, matching the display rounding.
func roundHalfUp(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

func clamp(v, upper float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > upper:
		return upper
	}
	return v
}
