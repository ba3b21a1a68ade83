package sniffer

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Google Ads "Campaign report" export with title and date range preamble
const sampleGoogleCSV = `Campaign report
"January 6, 2025 - January 12, 2025"
Campaign,Account name,Cost,Currency code
Summer Sale,Main Account,"1,234.50",USD
Winter Promo,Main Account,99.10,USD
`

// Binom export, semicolon separated with quoted values
const sampleBinomCSV = `"Name";"Leads";"Revenue"
"Summer Sale";"3";"50,00"
"Winter Promo";"0";"0"
`

const sampleTSV = "Campaign\tCost\nBrand\t10.00\nGeneric\t2.50\n"

func readAll(t *testing.T, r *Reader) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		rows = append(rows, row)
	}
}

func TestNewReader_SkipsPreamble(t *testing.T) {
	data := "Revenue report\nGenerated 2025-01-13\nname,revenue\nA,10\nB,-5\n"

	r, err := NewReader(strings.NewReader(data), 0)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.Delimiter() != ',' {
		t.Errorf("Expected delimiter ',', got '%c'", r.Delimiter())
	}
	if r.SkipLines() != 2 {
		t.Errorf("Expected 2 skip lines, got %d", r.SkipLines())
	}

	rows := readAll(t, r)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	first := rows[0].Map()
	if len(first) != 2 || first["name"] != "A" || first["revenue"] != "10" {
		t.Errorf("unexpected first row: %v", first)
	}
	if v, _ := rows[1].Get("revenue"); v != "-5" {
		t.Errorf("unexpected second revenue: %q", v)
	}
}

func TestNewReader_GoogleExport(t *testing.T) {
	r, err := NewReader(strings.NewReader(sampleGoogleCSV), 0)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	expectedHeaders := []string{"campaign", "account_name", "cost", "currency_code"}
	if strings.Join(r.Header(), "|") != strings.Join(expectedHeaders, "|") {
		t.Errorf("Expected headers %v, got %v", expectedHeaders, r.Header())
	}

	rows := readAll(t, r)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if v, _ := rows[0].Get("cost"); v != "1,234.50" {
		t.Errorf("Expected quoted cost to survive, got %q", v)
	}
}

func TestNewReader_ExplicitSemicolon(t *testing.T) {
	r, err := NewReader(strings.NewReader(sampleBinomCSV), ';')
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	rows := readAll(t, r)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if v, _ := rows[0].Get("name"); v != "Summer Sale" {
		t.Errorf("unexpected name: %q", v)
	}
	if v, _ := rows[0].Get("revenue"); v != "50,00" {
		t.Errorf("unexpected revenue: %q", v)
	}
}

func TestNewReader_SniffsSemicolonAndTab(t *testing.T) {
	r, err := NewReader(strings.NewReader(sampleBinomCSV), 0)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.Delimiter() != ';' {
		t.Errorf("Expected delimiter ';', got '%c'", r.Delimiter())
	}

	r, err = NewReader(strings.NewReader(sampleTSV), 0)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.Delimiter() != '\t' {
		t.Errorf("Expected tab delimiter, got '%c'", r.Delimiter())
	}
	if rows := readAll(t, r); len(rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(rows))
	}
}

func TestNewReader_SkipsMalformedRows(t *testing.T) {
	data := "name,leads,revenue\nA,1,10\nB,2\nC,3,30,extra\nD,4,40\n"

	r, err := NewReader(strings.NewReader(data), 0)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	rows := readAll(t, r)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 well-formed rows, got %d", len(rows))
	}
	if v, _ := rows[1].Get("name"); v != "D" {
		t.Errorf("Expected row D after skipped rows, got %q", v)
	}
}

func TestNewReader_NoHeader(t *testing.T) {
	for _, data := range []string{"", "just a title\nand nothing else\n", "single\ncolumn\n"} {
		r, err := NewReader(strings.NewReader(data), 0)
		if err != nil {
			t.Fatalf("NewReader(%q) failed: %v", data, err)
		}
		if r.Header() != nil {
			t.Errorf("Expected no header for %q, got %v", data, r.Header())
		}
		if _, err := r.Next(); err != io.EOF {
			t.Errorf("Expected io.EOF for %q, got %v", data, err)
		}
	}
}

func TestNewReader_InvalidUTF8AndBOM(t *testing.T) {
	data := append([]byte("\xef\xbb\xbfCampaign,Cost\r\n"), []byte("Caf\xe9 Ads,1.00\r\n")...)

	r, err := NewReader(bytes.NewReader(data), 0)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.Header()[0] != "campaign" {
		t.Errorf("Expected BOM to be stripped, got %q", r.Header()[0])
	}

	rows := readAll(t, r)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if v, _ := rows[0].Get("campaign"); v != "Caf� Ads" {
		t.Errorf("Expected replacement character, got %q", v)
	}
	if v, _ := rows[0].Get("cost"); v != "1.00" {
		t.Errorf("Expected CRLF to be handled, got %q", v)
	}
}

func utf16LE(s string) []byte {
	out := []byte{0xff, 0xfe}
	for _, b := range []byte(s) {
		out = append(out, b, 0)
	}
	return out
}

func TestNewReader_UTF16BOM(t *testing.T) {
	r, err := NewReader(bytes.NewReader(utf16LE("Campaign,Cost\nSummer,2.50\n")), 0)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if got := strings.Join(r.Header(), ","); got != "campaign,cost" {
		t.Fatalf("Expected UTF-16 header to be decoded, got %q", got)
	}
	rows := readAll(t, r)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if v, _ := rows[0].Get("cost"); v != "2.50" {
		t.Errorf("Expected cost 2.50, got %q", v)
	}

	// A UTF-16 BOM in front of single-byte text decodes as UTF-16 too, so the
	// delimiter never appears and there is no header.
	r, err = NewReader(bytes.NewReader([]byte("\xff\xfename;x\n")), ';')
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.Header() != nil {
		t.Errorf("Expected no header, got %v", r.Header())
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestSniffDelimiter_DefaultsToComma(t *testing.T) {
	if d := SniffDelimiter([]string{"no delimiters here", "none here either"}); d != ',' {
		t.Errorf("Expected ',', got '%c'", d)
	}
	if d := SniffDelimiter(nil); d != ',' {
		t.Errorf("Expected ',' for empty input, got '%c'", d)
	}
}

func TestRow_Get(t *testing.T) {
	row := NewRow([]string{"name", "revenue", "name"}, []string{"A", "10", "B"})
	if v, ok := row.Get("name"); !ok || v != "A" {
		t.Errorf("Expected first duplicate column, got %q %v", v, ok)
	}
	if _, ok := row.Get("missing"); ok {
		t.Error("Expected missing column to report false")
	}
	if m := row.Map(); m["name"] != "A" || len(m) != 2 {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestNewXLSXReader(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells := [][]any{
		{"Campaign report"},
		{"January 6, 2025 - January 12, 2025"},
		{"Campaign", "Account name", "Cost"},
		{"Summer Sale", "Main Account", 1234.5},
		{},
		{"Winter Promo", "", 99.1},
	}
	for i, row := range cells {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	if !IsXLSX(buf.Bytes()) {
		t.Fatal("Expected workbook bytes to be detected as xlsx")
	}

	r, err := NewXLSXReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewXLSXReader failed: %v", err)
	}
	if r.SkipLines() != 2 {
		t.Errorf("Expected 2 skip lines, got %d", r.SkipLines())
	}

	rows := readAll(t, r)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if v, _ := rows[1].Get("campaign"); v != "Winter Promo" {
		t.Errorf("unexpected campaign: %q", v)
	}
	if v, ok := rows[1].Get("account_name"); !ok || v != "" {
		t.Errorf("Expected empty account cell, got %q %v", v, ok)
	}
	if v, _ := rows[0].Get("cost"); v != "1234.5" {
		t.Errorf("unexpected cost: %q", v)
	}
}
