package pricing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseOverrides parses a diamond price configuration from either a JSON
// object ({"lab grown": 15000, ...}) or flat "label:price,label:price" pairs.
// Both forms produce the same normalized map. Empty input yields nil.
func ParseOverrides(input string) (Overrides, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	if strings.HasPrefix(input, "{") {
		var raw map[string]float64
		if err := json.Unmarshal([]byte(input), &raw); err != nil {
			return nil, fmt.Errorf("invalid diamond config JSON: %w", err)
		}

		overrides := make(Overrides, len(raw))
		for label, price := range raw {
			overrides[NormalizeLabel(label)] = price
		}
		return overrides, nil
	}

	overrides := make(Overrides)
	for _, pair := range strings.Split(input, ",") {
		label, value, found := strings.Cut(pair, ":")
		if !found {
			continue
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid diamond price in %q: %w", strings.TrimSpace(pair), err)
		}
		overrides[NormalizeLabel(label)] = price
	}

	if len(overrides) == 0 {
		return nil, fmt.Errorf("no diamond prices parsed from %q", input)
	}
	return overrides, nil
}
