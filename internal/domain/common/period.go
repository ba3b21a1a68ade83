package common

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the ISO date layout used on the wire and in queries.
	DateLayout = "2006-01-02"

	DefaultReportType = "weekly"
	maxReportTypeLen  = 16
)

// Period identifies one reporting window: many dataset rows share it.
type Period struct {
	DateFrom   time.Time
	DateTo     time.Time
	ReportType string
}

// ParsePeriod validates raw request values. An empty report type falls back
// to DefaultReportType.
func ParsePeriod(dateFrom, dateTo, reportType string) (Period, error) {
	dateFrom = strings.TrimSpace(dateFrom)
	dateTo = strings.TrimSpace(dateTo)
	if dateFrom == "" || dateTo == "" {
		return Period{}, ErrMissingDates
	}

	from, err := time.Parse(DateLayout, dateFrom)
	if err != nil {
		return Period{}, fmt.Errorf("%w: date_from %q", ErrInvalidDate, dateFrom)
	}
	to, err := time.Parse(DateLayout, dateTo)
	if err != nil {
		return Period{}, fmt.Errorf("%w: date_to %q", ErrInvalidDate, dateTo)
	}
	if to.Before(from) {
		return Period{}, fmt.Errorf("%w: date_to is before date_from", ErrInvalidDate)
	}

	reportType = strings.TrimSpace(reportType)
	if reportType == "" {
		reportType = DefaultReportType
	}
	if len(reportType) > maxReportTypeLen {
		return Period{}, fmt.Errorf("%w: at most %d characters", ErrInvalidReportType, maxReportTypeLen)
	}

	return Period{DateFrom: from, DateTo: to, ReportType: reportType}, nil
}

func (p Period) From() string { return p.DateFrom.Format(DateLayout) }
func (p Period) To() string   { return p.DateTo.Format(DateLayout) }

// Previous returns the period immediately before p with the same report type.
// A period covering exactly one calendar month maps to the previous calendar
// month; anything else maps to the window of equal length ending the day
// before DateFrom.
func (p Period) Previous() Period {
	if isCalendarMonth(p.DateFrom, p.DateTo) {
		from := p.DateFrom.AddDate(0, -1, 0)
		return Period{
			DateFrom:   from,
			DateTo:     p.DateFrom.AddDate(0, 0, -1),
			ReportType: p.ReportType,
		}
	}

	days := int(p.DateTo.Sub(p.DateFrom).Hours() / 24)
	to := p.DateFrom.AddDate(0, 0, -1)
	return Period{
		DateFrom:   to.AddDate(0, 0, -days),
		DateTo:     to,
		ReportType: p.ReportType,
	}
}

func isCalendarMonth(from, to time.Time) bool {
	if from.Day() != 1 {
		return false
	}
	return to.Equal(from.AddDate(0, 1, -1))
}
