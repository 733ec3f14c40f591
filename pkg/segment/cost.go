package segment

import "github.com/shopspring/decimal"

// PriceSource supplies the per-part price used by the cost calculator.
type PriceSource interface {
	UnitPrice() decimal.Decimal
	Currency() string
}

// Price is a fixed PriceSource.
type Price struct {
	Amount decimal.Decimal
	Code   string
}

func (p Price) UnitPrice() decimal.Decimal { return p.Amount }
func (p Price) Currency() string           { return p.Code }

// DefaultPrice is the reference rate: 0.025 USD per part.
var DefaultPrice = Price{Amount: decimal.New(25, -3), Code: "USD"}

// Cost multiplies parts by the unit price of src.
func Cost(src PriceSource, parts int) (decimal.Decimal, string) {
	return src.UnitPrice().Mul(decimal.NewFromInt(int64(parts))), src.Currency()
}

// FormatCost renders amount with three decimals, or with as many as the
// exact value needs when that is more.
func FormatCost(amount decimal.Decimal) string {
	places := int32(3)
	if exp := amount.Exponent(); exp < -places {
		places = -exp
	}
	return amount.StringFixed(places)
}
