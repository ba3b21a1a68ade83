package normalizer

import (
	"testing"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"Acme Co", "acmeco"},
		{"ACME-123!", "acme123"},
		{"acme 123", "acme123"},
		{"  Summer_Sale (US) ", "summersaleus"},
		{"Café", "caf"},
		{"---", ""},
	}

	for _, tc := range tests {
		got := NormalizeKey(tc.input)
		if got != tc.expected {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tc.input, got, tc.expected)
		}
		if again := NormalizeKey(got); again != got {
			t.Errorf("NormalizeKey not idempotent for %q: %q then %q", tc.input, got, again)
		}
	}

	if NormalizeKey("ACME-123!") != NormalizeKey("acme 123") {
		t.Error("expected punctuation and case to be ignored")
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Campaign", "campaign"},
		{" Campaign Name ", "campaign_name"},
		{"Account descriptive name", "account_descriptive_name"},
		{"leads", "leads"},
	}

	for _, tc := range tests {
		if got := NormalizeHeader(tc.input); got != tc.expected {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"45.23", 45.23},
		{"1,234.56", 1234.56},
		{"(1,234.50)", -1234.50},
		{"$1,234.50 USD", 1234.50},
		{"-29.99", -29.99},
		{"  12.00  ", 12},
		{"€ 45.23", 45.23},
		{"£7", 7},
		{"10 eur", 10},
		{"1 000 000", 1000000},
		{"2 500.10", 2500.10},
		{"($5.00)", -5},
		{"0", 0},
	}

	for _, tc := range tests {
		got := ParseAmount(tc.input)
		if got == nil {
			t.Errorf("ParseAmount(%q) = nil, want %v", tc.input, tc.expected)
			continue
		}
		if *got != tc.expected {
			t.Errorf("ParseAmount(%q) = %v, want %v", tc.input, *got, tc.expected)
		}
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "n/a", "--", "()", "NaN", "Inf", "12.3.4", "0x1p4", "0x10", "1_000"} {
		if got := ParseAmount(input); got != nil {
			t.Errorf("ParseAmount(%q) = %v, want nil", input, *got)
		}
	}
}

func TestParseAmountValue(t *testing.T) {
	if got := ParseAmountValue(12.5); got == nil || *got != 12.5 {
		t.Errorf("float passthrough failed: %v", got)
	}
	if got := ParseAmountValue(int64(3)); got == nil || *got != 3 {
		t.Errorf("int passthrough failed: %v", got)
	}
	if got := ParseAmountValue("(2.00)"); got == nil || *got != -2 {
		t.Errorf("string parse failed: %v", got)
	}
	if got := ParseAmountValue(nil); got != nil {
		t.Errorf("expected nil for nil input, got %v", *got)
	}
	if got := ParseAmountValue(true); got != nil {
		t.Errorf("expected nil for unsupported type, got %v", *got)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"3", 3},
		{"1,204", 1204},
		{" 12 ", 12},
		{"-2", -2},
	}

	for _, tc := range tests {
		got := ParseCount(tc.input)
		if got == nil || *got != tc.expected {
			t.Errorf("ParseCount(%q) = %v, want %d", tc.input, got, tc.expected)
		}
	}

	for _, input := range []string{"", "3.5", "many"} {
		if got := ParseCount(input); got != nil {
			t.Errorf("ParseCount(%q) = %d, want nil", input, *got)
		}
	}
}
