// Package reconcile joins spend aggregates against revenue aggregates by
// normalised campaign name and derives profit and ROI.
//
// The join is anchored on spend: every spend key yields one row, revenue
// that found no spend is appended afterwards so totals still add up.
// Arithmetic is exact; values are rounded to cents only when emitted.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/adspend-reports/internal/domain/import/normalizer"
)

var hundred = decimal.NewFromInt(100)

// SpendAggregate is the summed spend of one raw campaign name.
type SpendAggregate struct {
	Name  string
	Spend float64
}

// RevenueAggregate is the summed revenue and leads of one raw name.
type RevenueAggregate struct {
	Name    string
	Revenue float64
	Leads   int64
}

// Row is one reconciled campaign.
type Row struct {
	// Campaign is the spend-side name, nil for revenue-only rows.
	Campaign *string  `json:"campaign"`
	Name     string   `json:"name"`
	Spend    float64  `json:"spend"`
	Revenue  float64  `json:"revenue"`
	PL       float64  `json:"pl"`
	ROI      *float64 `json:"roi"`
	Leads    int64    `json:"leads"`
	Key      string   `json:"-"`
}

// Summary holds the report totals.
type Summary struct {
	Spend   float64  `json:"spend"`
	Revenue float64  `json:"revenue"`
	PL      float64  `json:"pl"`
	ROI     *float64 `json:"roi"`
	ROILast *float64 `json:"roi_last"`
}

type Result struct {
	Rows    []Row
	Summary Summary
}

type spendEntry struct {
	name  string
	spend decimal.Decimal
}

type revenueEntry struct {
	name    string
	revenue decimal.Decimal
	leads   int64
}

// Reconcile is deterministic: rows follow the first appearance of each key
// in spend, then the first appearance of each unmatched key in revenue.
// Inputs whose name normalises to "" are dropped. Duplicate keys on one
// side are summed and keep the first raw name.
func Reconcile(spend []SpendAggregate, revenue []RevenueAggregate) Result {
	spendKeys, spendByKey := groupSpend(spend)
	revenueKeys, revenueByKey := groupRevenue(revenue)

	rows := make([]Row, 0, len(spendKeys)+len(revenueKeys))
	totalSpend, totalRevenue := decimal.Zero, decimal.Zero
	matched := make(map[string]bool, len(spendKeys))

	for _, key := range spendKeys {
		s := spendByKey[key]
		campaign := s.name
		row := Row{Campaign: &campaign, Name: s.name, Key: key}

		rev, leads := decimal.Zero, int64(0)
		if r, ok := revenueByKey[key]; ok {
			rev, leads = r.revenue, r.leads
			if r.name != "" {
				row.Name = r.name
			}
			matched[key] = true
		}

		row.Spend = money(s.spend)
		row.Revenue = money(rev)
		row.PL = money(rev.Sub(s.spend))
		row.ROI = rowROI(s.spend, rev)
		row.Leads = leads
		rows = append(rows, row)

		totalSpend = totalSpend.Add(s.spend)
		totalRevenue = totalRevenue.Add(rev)
	}

	for _, key := range revenueKeys {
		if matched[key] {
			continue
		}
		r := revenueByKey[key]
		rows = append(rows, Row{
			Name:    r.name,
			Spend:   0,
			Revenue: money(r.revenue),
			PL:      money(r.revenue),
			Leads:   r.leads,
			Key:     key,
		})
		totalRevenue = totalRevenue.Add(r.revenue)
	}

	return Result{
		Rows: rows,
		Summary: Summary{
			Spend:   money(totalSpend),
			Revenue: money(totalRevenue),
			PL:      money(totalRevenue.Sub(totalSpend)),
			ROI:     ROI(totalSpend, totalRevenue),
		},
	}
}

func groupSpend(in []SpendAggregate) ([]string, map[string]*spendEntry) {
	var keys []string
	byKey := make(map[string]*spendEntry, len(in))
	for _, s := range in {
		key := normalizer.NormalizeKey(s.Name)
		if key == "" {
			continue
		}
		e, ok := byKey[key]
		if !ok {
			e = &spendEntry{name: s.Name}
			byKey[key] = e
			keys = append(keys, key)
		}
		e.spend = e.spend.Add(decimal.NewFromFloat(s.Spend))
	}
	return keys, byKey
}

func groupRevenue(in []RevenueAggregate) ([]string, map[string]*revenueEntry) {
	var keys []string
	byKey := make(map[string]*revenueEntry, len(in))
	for _, r := range in {
		key := normalizer.NormalizeKey(r.Name)
		if key == "" {
			continue
		}
		e, ok := byKey[key]
		if !ok {
			e = &revenueEntry{name: r.Name}
			byKey[key] = e
			keys = append(keys, key)
		}
		e.revenue = e.revenue.Add(decimal.NewFromFloat(r.Revenue))
		e.leads += r.Leads
	}
	return keys, byKey
}

// rowROI: no spend means no ROI; spend without revenue is 0, not -100.
func rowROI(spend, revenue decimal.Decimal) *float64 {
	if spend.IsZero() {
		return nil
	}
	if revenue.IsZero() {
		zero := 0.0
		return &zero
	}
	return ROI(spend, revenue)
}

// ROI is revenue / spend * 100 rounded to cents, nil when spend is zero.
func ROI(spend, revenue decimal.Decimal) *float64 {
	if spend.IsZero() {
		return nil
	}
	v := money(revenue.Div(spend).Mul(hundred))
	return &v
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
