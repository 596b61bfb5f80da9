package format

import (
	"strconv"
	"strings"
	"time"
)

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

var isoLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Date formats an ISO date (YYYY-MM-DD or RFC 3339) as dd/mm/yyyy.
// Input that does not parse is returned unchanged.
func Date(iso string) string {
	s := strings.TrimSpace(iso)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return iso
}

// LongDate formats t as "18 octobre 2026".
func LongDate(t time.Time) string {
	return strconv.Itoa(t.Day()) + " " + frenchMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// French bundles the fr-FR formatters behind the notice.Formatter contract.
type French struct{}

func (French) Currency(amount float64, currency string) string { return Currency(amount, currency) }
func (French) Date(iso string) string { return Date(iso) }
func (French) LongDate(t time.Time) string { return LongDate(t) }
