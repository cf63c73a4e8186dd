package party

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ParseTiers reads one "Name: price" pair per line. Blank lines are skipped.
// The last colon separates the price, so tier names may contain colons.
func ParseTiers(text string) ([]TierInput, error) {
	var tiers []TierInput
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			return nil, fmt.Errorf("price tier %q must look like \"Name: 15.00\"", line)
		}
		name := strings.TrimSpace(line[:idx])
		cents, err := ParsePrice(line[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("price tier %q has an invalid price", name)
		}
		tiers = append(tiers, TierInput{Name: name, PriceCents: cents})
	}
	if len(tiers) == 0 {
		return nil, errors.New("at least one price tier is required")
	}
	return tiers, nil
}

// ParsePrice reads a decimal amount like "15", "15.5" or "$15.50" as cents
func ParsePrice(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if s == "" {
		return 0, errors.New("empty price")
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("invalid price %q", s)
	}

	var cents int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("invalid price %q", s)
		}
		if len(frac) == 1 {
			frac += "0"
		}
		c, err := strconv.ParseInt(frac, 10, 64)
		if err != nil || c < 0 {
			return 0, fmt.Errorf("invalid price %q", s)
		}
		cents = c
	}
	return units*100 + cents, nil
}
