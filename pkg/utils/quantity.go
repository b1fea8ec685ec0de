package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"corenet/pkg/types"
)

// StackSize is the item count of one "stack" in quantity strings.
const StackSize = 64

var quantityPattern = regexp.MustCompile(`^([\d.]+)\s*([A-Za-z]*)$`)

// ParseQuantity parses human-friendly request quantities like "all", "64",
// "1.5k" or "2stacks". It supports:
// - all / * / empty for an unbounded request
// - k (thousands) and m (millions)
// - s / stack / stacks (64 items)
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "all", "*":
		return types.Unbounded, nil
	}

	if val, err := strconv.Atoi(s); err == nil {
		if val < 0 {
			return 0, fmt.Errorf("negative quantity: %s", s)
		}
		return val, nil
	}

	matches := quantityPattern.FindStringSubmatch(s)
	if len(matches) != 3 {
		return 0, fmt.Errorf("invalid quantity format: %s (expected format like '64', '1.5k', '2stacks', 'all')", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %s", matches[1])
	}

	multiplier := quantityMultiplier(matches[2])
	if multiplier == 0 {
		return 0, fmt.Errorf("unknown unit: %s (supported: k, m, stack)", matches[2])
	}

	total := value * float64(multiplier)
	if total >= math.MaxInt {
		return 0, fmt.Errorf("quantity out of range: %s", s)
	}
	return int(total), nil
}

// FormatQuantity formats an item count the way ParseQuantity reads it.
func FormatQuantity(q int) string {
	switch {
	case q < 0:
		return "all"
	case q < 1000:
		return strconv.Itoa(q)
	case q < 1000*1000:
		return trimDecimal(float64(q)/1000) + "k"
	default:
		return trimDecimal(float64(q)/(1000*1000)) + "m"
	}
}

func trimDecimal(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%.0f", v)
	}
	if v*10 == float64(int64(v*10)) {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func quantityMultiplier(unit string) int {
	switch unit {
	case "":
		return 1
	case "k":
		return 1000
	case "m":
		return 1000 * 1000
	case "s", "stack", "stacks":
		return StackSize
	default:
		return 0
	}
}
