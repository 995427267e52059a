package market

import "fmt"

// FormatLargeNumber renders a dollar amount with a T/B/M/K suffix.
func FormatLargeNumber(value *float64) string {
	if value == nil {
		return "N/A"
	}
	v := *value
	switch {
	case v >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.2fK", v/1e3)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

// FormatPrice renders a plain dollar price.
func FormatPrice(value *float64) string {
	if value == nil {
		return "N/A"
	}
	return fmt.Sprintf("$%.2f", *value)
}

// FormatPercent renders a signed percentage change.
func FormatPercent(value *float64) string {
	if value == nil {
		return "N/A"
	}
	return fmt.Sprintf("%+.2f%%", *value)
}
