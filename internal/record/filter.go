package record

import (
	"fmt"
	"strconv"
	"time"

	"github.com/upk240z/zipimport/pkg/zipimport"
)

// YearMonthOf returns t as YYYY*100+MM in t's location.
func YearMonthOf(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

// Filter drops rows whose validity ended before Threshold.
type Filter struct {
	// Threshold is YYYY*100+MM, fixed for the whole run.
	Threshold int
}

// NewFilter fixes the threshold from now.
func NewFilter(now time.Time) Filter {
	return Filter{Threshold: YearMonthOf(now)}
}

// Keep reports whether row is still valid at the threshold. A row whose end
// of validity is not an integer fails with zipimport.ErrMalformedRecord.
func (f Filter) Keep(row zipimport.Row) (bool, error) {
	end, err := strconv.Atoi(row.EndYM)
	if err != nil {
		return false, fmt.Errorf("end of validity %q is not a year-month: %w", row.EndYM, zipimport.ErrMalformedRecord)
	}
	return end >= f.Threshold, nil
}
