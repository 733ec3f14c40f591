package segment

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Result describes how an alert will be billed and carried.
type Result struct {
	Parts      int             `json:"parts"`
	Cost       decimal.Decimal `json:"cost"`
	Currency   string          `json:"currency"`
	Encoding   Encoding        `json:"encoding"`
	Characters int             `json:"characters"`
	Message    string          `json:"message"`
}

// Assemble bundles the pipeline outputs into a Result.
func Assemble(message string, enc Encoding, symbols, parts int, cost decimal.Decimal, currency string) Result {
	return Result{
		Parts:      parts,
		Cost:       cost,
		Currency:   currency,
		Encoding:   enc,
		Characters: symbols,
		Message:    message,
	}
}

// MarshalJSON writes cost as a plain JSON number with fixed decimals.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Parts      int         `json:"parts"`
		Cost       json.Number `json:"cost"`
		Currency   string      `json:"currency"`
		Encoding   Encoding    `json:"encoding"`
		Characters int         `json:"characters"`
		Message    string      `json:"message"`
	}{
		Parts:      r.Parts,
		Cost:       json.Number(FormatCost(r.Cost)),
		Currency:   r.Currency,
		Encoding:   r.Encoding,
		Characters: r.Characters,
		Message:    r.Message,
	})
}

// Calculator runs the parts pipeline against a fixed price source.
type Calculator struct {
	price PriceSource
}

// NewCalculator returns a Calculator priced by src; nil means DefaultPrice.
func NewCalculator(src PriceSource) *Calculator {
	if src == nil {
		src = DefaultPrice
	}
	return &Calculator{price: src}
}

// CalculateParts composes, classifies, segments and prices alert.
func (c *Calculator) CalculateParts(alert string) Result {
	msg := Compose(alert)
	enc, symbols := Classify(msg)
	parts := Segment(enc, symbols)
	cost, currency := Cost(c.price, parts)
	return Assemble(msg, enc, symbols, parts, cost, currency)
}

var defaultCalculator = NewCalculator(DefaultPrice)

// CalculateParts prices alert at DefaultPrice.
func CalculateParts(alert string) Result {
	return defaultCalculator.CalculateParts(alert)
}
