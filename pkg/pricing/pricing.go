package pricing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPlans reads a YAML plans file.
func LoadPlans(path string) ([]*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans file %s: %w", path, err)
	}

	plans, err := LoadPlansFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("plans file %s: %w", path, err)
	}
	return plans, nil
}

// LoadPlansFromBytes parses YAML plan data from raw bytes.
func LoadPlansFromBytes(data []byte) ([]*Plan, error) {
	var f plansFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}
	if len(f.Plans) == 0 {
		return nil, fmt.Errorf("no plans defined")
	}

	seen := make(map[string]bool, len(f.Plans))
	plans := make([]*Plan, 0, len(f.Plans))
	for _, e := range f.Plans {
		p, err := NewPlan(e.Name, e.UnitPrice, e.Currency)
		if err != nil {
			return nil, err
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate plan %q", p.Name)
		}
		seen[p.Name] = true
		plans = append(plans, p)
	}
	return plans, nil
}
