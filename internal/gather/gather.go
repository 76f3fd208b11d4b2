// Package gather defines the interface shared by market data gatherers and
// the date-range type they operate on.
package gather

import (
	"context"
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used in config files and flags.
const DateLayout = "2006-01-02"

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one gathering pass. It returns early if ctx is cancelled.
	Run(ctx context.Context) error
}

// DateRange represents an inclusive time range for data fetching. A zero End
// means "up to the latest available day".
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses YYYY-MM-DD bounds. An empty end leaves End zero.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return r, fmt.Errorf("parsing start date %q: %w", start, err)
	}
	r.Start = s
	if end != "" {
		e, err := time.Parse(DateLayout, end)
		if err != nil {
			return r, fmt.Errorf("parsing end date %q: %w", end, err)
		}
		r.End = e
	}
	if err := r.Validate(); err != nil {
		return r, err
	}
	return r, nil
}

// Validate reports an error when End is set and precedes Start.
func (r DateRange) Validate() error {
	if r.Start.IsZero() {
		return fmt.Errorf("date range has no start")
	}
	if !r.End.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("end %s before start %s", r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	return nil
}

// OpenEnded reports whether End still has to be resolved.
func (r DateRange) OpenEnded() bool { return r.End.IsZero() }

// String renders the range as "start..end".
func (r DateRange) String() string {
	end := "latest"
	if !r.End.IsZero() {
		end = r.End.Format(DateLayout)
	}
	return r.Start.Format(DateLayout) + ".." + end
}
