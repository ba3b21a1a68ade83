package source

import (
	"strings"

	"github.com/FACorreiaa/adspend-reports/internal/domain/import/normalizer"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/sniffer"
)

// alias is one way of locating a logical field in a header: an exact
// column name or the first column containing a substring.
type alias struct {
	name     string
	contains bool
}

func exact(name string) alias { return alias{name: name} }
func containing(s string) alias { return alias{name: s, contains: true} }

func (a alias) matches(header string) bool {
	if a.contains {
		return strings.Contains(header, a.name)
	}
	return header == a.name
}

// resolve walks aliases in priority order and returns the first non-empty
// value. Substring aliases look at columns in file order.
func resolve(row sniffer.Row, aliases []alias) (string, bool) {
	for _, a := range aliases {
		if !a.contains {
			if v, ok := row.Get(a.name); ok && v != "" {
				return v, true
			}
			continue
		}
		for _, h := range row.Headers() {
			if !a.matches(h) {
				continue
			}
			if v, ok := row.Get(h); ok && v != "" {
				return v, true
			}
		}
	}
	return "", false
}

var (
	googleCampaignAliases = []alias{exact("campaign"), exact("campaign_name"), containing("campaign")}
	googleAccountAliases  = []alias{exact("account"), exact("account_name"), exact("account_descriptive_name")}
	googleCostAliases     = []alias{exact("cost"), containing("cost")}
)

// GoogleSpend is one Google Ads campaign line.
type GoogleSpend struct {
	AccountName *string
	Campaign    string
	Cost        *float64
}

func (g GoogleSpend) Values() []any {
	return []any{g.AccountName, g.Campaign, g.Cost}
}

func adaptGoogle(row sniffer.Row) (Record, bool) {
	campaign, ok := resolve(row, googleCampaignAliases)
	if !ok {
		return nil, false
	}

	rec := GoogleSpend{Campaign: campaign}
	if account, ok := resolve(row, googleAccountAliases); ok {
		rec.AccountName = &account
	}
	if cost, ok := resolve(row, googleCostAliases); ok {
		rec.Cost = normalizer.ParseAmount(cost)
	}
	return rec, true
}

// BinomRevenue is one Binom tracker line keyed by campaign name.
type BinomRevenue struct {
	Name    string
	Leads   *int64
	Revenue *float64
}

func (b BinomRevenue) Values() []any {
	return []any{b.Name, b.Leads, b.Revenue}
}

func adaptBinom(row sniffer.Row) (Record, bool) {
	name, ok := row.Get("name")
	if !ok || name == "" {
		return nil, false
	}

	rec := BinomRevenue{Name: name}
	if leads, ok := row.Get("leads"); ok {
		rec.Leads = normalizer.ParseCount(leads)
	}
	if revenue, ok := row.Get("revenue"); ok {
		rec.Revenue = normalizer.ParseAmount(revenue)
	}

	// placeholder rows with no conversions
	if rec.Revenue != nil && *rec.Revenue <= 0 {
		return nil, false
	}
	return rec, true
}
