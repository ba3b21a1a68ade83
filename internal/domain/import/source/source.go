// Package source describes the vendor exports the backend accepts: where each
// one is stored, how its file is read and how a raw row becomes a record.
package source

import (
	"fmt"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/sniffer"
)

// Source is one of the known upload sources.
type Source int

const (
	Google Source = iota + 1
	Rumble
	BinomRumble
	BinomGoogle
	RumbleCampaign
)

// Record is a typed row ready for insertion. Values are ordered like the
// source's Columns.
type Record interface {
	Values() []any
}

// Adapter maps a reader row to a record; false means skip the row.
type Adapter func(row sniffer.Row) (Record, bool)

type definition struct {
	id        string
	table     string
	keyColumn string
	columns   []string
	delimiter rune
	adapt     Adapter
	// logical field names reported when nothing could be read
	expected []string
	// header check for the field a row cannot be kept without
	required []alias
}

var definitions = map[Source]definition{
	Google: {
		id:        "google",
		table:     "google_data",
		keyColumn: "campaign",
		columns:   []string{"account_name", "campaign", "cost"},
		adapt:     adaptGoogle,
		expected:  []string{"campaign", "account_name", "cost"},
		required:  googleCampaignAliases,
	},
	Rumble: {
		id:        "rumble",
		table:     "rumble_data",
		keyColumn: "campaign",
		columns:   []string{"campaign", "spend", "cpm"},
	},
	BinomRumble: {
		id:        "binom-rumble",
		table:     "binom_rumble_spent_data",
		keyColumn: "name",
		columns:   []string{"name", "leads", "revenue"},
		delimiter: ';',
	},
	BinomGoogle: {
		id:        "binom-google",
		table:     "binom_google_spent_data",
		keyColumn: "name",
		columns:   []string{"name", "leads", "revenue"},
		delimiter: ';',
		adapt:     adaptBinom,
		expected:  []string{"name", "leads", "revenue"},
		required:  []alias{exact("name")},
	},
	RumbleCampaign: {
		id:        "rumble-campaign",
		table:     "rumble_campaign_data",
		keyColumn: "name",
		columns:   []string{"name", "cpm", "daily_limit"},
	},
}

var all = []Source{Google, Rumble, BinomRumble, BinomGoogle, RumbleCampaign}

// All returns every known source in a stable order.
func All() []Source {
	out := make([]Source, len(all))
	copy(out, all)
	return out
}

// Parse resolves an identifier such as "binom-google".
func Parse(id string) (Source, error) {
	for _, s := range all {
		if definitions[s].id == id {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", common.ErrInvalidSource, id)
}

func (s Source) String() string {
	if d, ok := definitions[s]; ok {
		return d.id
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// Table is the dataset table rows of this source are stored in.
func (s Source) Table() string { return definitions[s].table }

// KeyColumn is the column joined on when reconciling.
func (s Source) KeyColumn() string { return definitions[s].keyColumn }

// Columns lists the measure columns written on insert.
func (s Source) Columns() []string {
	cols := definitions[s].columns
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// Delimiter is the delimiter the vendor always uses; 0 means sniff.
func (s Source) Delimiter() rune { return definitions[s].delimiter }

// Supported reports whether rows of this source can be ingested yet.
func (s Source) Supported() bool { return definitions[s].adapt != nil }

// Adapter returns the row adapter, nil when the source is not supported.
func (s Source) Adapter() Adapter { return definitions[s].adapt }

// ExpectedFields names the logical fields an export of this source carries.
func (s Source) ExpectedFields() []string {
	exp := definitions[s].expected
	out := make([]string, len(exp))
	copy(out, exp)
	return out
}

// Matches reports whether a normalised header has a column the source's
// required field can be read from.
func (s Source) Matches(header []string) bool {
	req := definitions[s].required
	if len(req) == 0 {
		return len(header) > 0
	}
	for _, h := range header {
		for _, a := range req {
			if a.matches(h) {
				return true
			}
		}
	}
	return false
}
