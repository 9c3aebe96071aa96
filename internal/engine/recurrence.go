package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"github.com/tartampluch/vcf2ics/internal/config"
)

// Projection is a birthday anchored on a yearly recurrence.
type Projection struct {
	AnchorMonth time.Month
	AnchorDay   int

	// Occurrence is the first instance of Rule on or after 1 January of the
	// reference year. It is a date (midnight UTC).
	Occurrence time.Time

	// Rule is FREQ=YEARLY;BYMONTH=<month>;BYMONTHDAY=<day>.
	Rule rrule.ROption
}

var errNoOccurrence = errors.New("no occurrence within horizon")

// Project anchors a birth date onto the year of reference.
//
// The recurrence rule, not a date shifted by N years, decides every future
// instance. For a Feb 29 birthday this means the event keeps
// BYMONTH=2;BYMONTHDAY=29 and its first occurrence is the next leap day on or
// after the start of the reference year, never Feb 28 or Mar 1.
func Project(birthDate, reference time.Time) (Projection, error) {
	month, day := birthDate.Month(), birthDate.Day()
	opt := rrule.ROption{
		Freq:       rrule.YEARLY,
		Bymonth:    []int{int(month)},
		Bymonthday: []int{day},
	}

	yearStart := time.Date(reference.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	seek := opt
	seek.Dtstart = yearStart
	seek.Until = yearStart.AddDate(config.ProjectionHorizonYears, 0, 0)

	r, err := rrule.NewRRule(seek)
	if err != nil {
		return Projection{}, fmt.Errorf("%s: %w", config.ErrRecurrence, err)
	}
	occ := r.After(yearStart, true)
	if occ.IsZero() {
		return Projection{}, fmt.Errorf("%s: %w", config.ErrRecurrence, errNoOccurrence)
	}

	return Projection{
		AnchorMonth: month,
		AnchorDay:   day,
		Occurrence:  occ,
		Rule:        opt,
	}, nil
}
