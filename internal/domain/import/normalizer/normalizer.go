// Package normalizer handles locale-tolerant number parsing and the text
// normalisation used to join vendor exports that name the same entity
// differently.
package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Trailing ISO-4217 style code: "12.50 USD", "12.50eur".
	currencyCodePattern = regexp.MustCompile(`(?i)\s*[a-z]{3}$`)

	currencySymbols = strings.NewReplacer("$", "", "€", "", "£", "")

	// Plain decimal notation after stripping; rejects hex floats and underscores.
	decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

	// Thousand separators and stray spacing inside a number.
	separatorStripper = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "", "\t", "")
)

// NormalizeKey lowercases s and drops every character outside [a-z0-9].
// The result is the join key between spend and revenue sources; an empty
// key never joins.
func NormalizeKey(s string) string {
	if s == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.ToLower(s))
}

// NormalizeHeader trims and lowercases a header and turns spaces into
// underscores ("Campaign Name" -> "campaign_name").
func NormalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// ParseAmount parses a money string as found in ad platform exports.
// Supports accounting negatives "(1,234.50)", currency symbols, trailing
// currency codes and comma/space thousand separators.
// Returns nil when the value cannot be parsed.
func ParseAmount(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	s = currencySymbols.Replace(s)
	s = strings.TrimSpace(currencyCodePattern.ReplaceAllString(s, ""))

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	s = separatorStripper.Replace(s)
	if !decimalPattern.MatchString(s) {
		return nil
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return nil
	}
	if negative {
		val = -val
	}
	return &val
}

// ParseAmountValue is ParseAmount for values that may already be numeric.
func ParseAmountValue(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case string:
		return ParseAmount(n)
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return nil
	}
	return &f
}

// ParseCount parses an integer count such as "1,204". Returns nil when the
// value is not an integer.
func ParseCount(raw string) *int64 {
	s := separatorStripper.Replace(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
