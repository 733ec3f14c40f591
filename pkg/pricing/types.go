package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Plan is a named SMS rate: a fixed price per part in one currency.
// It satisfies segment.PriceSource.
type Plan struct {
	Name  string
	Price decimal.Decimal
	Code  string
}

// NewPlan validates and builds a plan. unitPrice is a decimal string such as "0.025".
func NewPlan(name, unitPrice, currency string) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("plan: missing name")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil, fmt.Errorf("plan %q: missing currency", name)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(unitPrice))
	if err != nil {
		return nil, fmt.Errorf("plan %q: invalid unit price %q: %w", name, unitPrice, err)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("plan %q: negative unit price %s", name, price)
	}
	return &Plan{Name: name, Price: price, Code: currency}, nil
}

func (p *Plan) UnitPrice() decimal.Decimal { return p.Price }
func (p *Plan) Currency() string           { return p.Code }

// planEntry is one plan as written in a YAML plans file.
type planEntry struct {
	Name      string `yaml:"name"`
	Currency  string `yaml:"currency"`
	UnitPrice string `yaml:"unit_price"`
}

// plansFile is the top-level layout of a YAML plans file.
type plansFile struct {
	Updated string      `yaml:"updated"`
	Plans   []planEntry `yaml:"plans"`
}
