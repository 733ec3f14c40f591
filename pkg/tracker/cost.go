package tracker

import (
	"fmt"

	"github.com/notifoxhq/notifox/pkg/pricing"
	"github.com/notifoxhq/notifox/pkg/segment"
)

// CostCalculator prices alerts against the plans in a registry.
type CostCalculator struct {
	registry *pricing.Registry
}

// NewCostCalculator creates a cost calculator backed by a plan registry.
func NewCostCalculator(registry *pricing.Registry) *CostCalculator {
	return &CostCalculator{registry: registry}
}

// Calculate runs the parts pipeline for alert under the named plan.
// An empty plan name selects the registry default.
func (c *CostCalculator) Calculate(plan, alert string) (segment.Result, error) {
	p, err := c.registry.Get(plan)
	if err != nil {
		return segment.Result{}, fmt.Errorf("cost calculation: %w", err)
	}
	return CalculateParts(p, alert), nil
}

// CalculateParts runs the parts pipeline for alert priced by p.
func CalculateParts(p *pricing.Plan, alert string) segment.Result {
	return segment.NewCalculator(p).CalculateParts(alert)
}
