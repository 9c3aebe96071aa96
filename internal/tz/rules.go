package tz

import (
	"time"

	"github.com/teambition/rrule-go"
)

// Rule places a yearly transition: the Week-th Weekday of Month (Week -1 is
// the last one), at wall clock time At in the offset in force before it.
type Rule struct {
	Month   time.Month
	Week    int
	Weekday time.Weekday
	At      time.Duration
}

// date returns the wall clock instant of the rule in year y.
func (r Rule) date(year int) time.Time {
	var day time.Time
	if r.Week < 0 {
		last := time.Date(year, r.Month+1, 0, 0, 0, 0, 0, time.UTC)
		back := (int(last.Weekday()) - int(r.Weekday) + 7) % 7
		day = last.AddDate(0, 0, -back)
		day = day.AddDate(0, 0, 7*(r.Week+1))
	} else {
		first := time.Date(year, r.Month, 1, 0, 0, 0, 0, time.UTC)
		fwd := (int(r.Weekday) - int(first.Weekday()) + 7) % 7
		day = first.AddDate(0, 0, fwd+7*(r.Week-1))
	}
	return day.Add(r.At)
}

// recurrence expresses the rule as a yearly RRULE.
func (r Rule) recurrence() *rrule.ROption {
	day := weekdays[r.Weekday]
	return &rrule.ROption{
		Freq:      rrule.YEARLY,
		Bymonth:   []int{int(r.Month)},
		Byweekday: []rrule.Weekday{day.Nth(r.Week)},
	}
}

var weekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// RuleZone is a manually described timezone with at most one daylight
// saving period per year. A zero DSTStart month means no daylight time.
type RuleZone struct {
	Name      string
	Standard  Offset
	Daylight  Offset
	DSTStart  Rule
	DSTEnd    Rule
	ValidFrom int // First year the rules describe.
}

// ID returns the zone identifier.
func (z *RuleZone) ID() string { return z.Name }

func (z *RuleZone) hasDST() bool { return z.DSTStart.Month != 0 }

// transitions returns the UTC instants at which daylight time starts and
// ends in the given year.
func (z *RuleZone) transitions(year int) (start, end time.Time) {
	start = z.DSTStart.date(year).Add(-z.Standard.UTCOffset)
	end = z.DSTEnd.date(year).Add(-z.Daylight.UTCOffset)
	return start, end
}

// Lookup returns the offset in force at t.
func (z *RuleZone) Lookup(t time.Time) Offset {
	if !z.hasDST() {
		return z.Standard
	}
	t = t.UTC()
	year := t.Add(z.Standard.UTCOffset).Year()
	start, end := z.transitions(year)

	var dst bool
	if start.Before(end) {
		dst = !t.Before(start) && t.Before(end)
	} else {
		// Southern hemisphere: daylight time spans the new year.
		dst = !t.Before(start) || t.Before(end)
	}
	if dst {
		return z.Daylight
	}
	return z.Standard
}

// Resolve maps wall clock fields to an instant.
func (z *RuleZone) Resolve(wall time.Time) (time.Time, Offset) {
	w := wallClock(wall)
	before := z.Lookup(w.Add(-z.Standard.UTCOffset).Add(-24 * time.Hour))
	after := z.Lookup(w.Add(-z.Standard.UTCOffset).Add(24 * time.Hour))
	return resolveWall(z, w, before.UTCOffset, after.UTCOffset)
}

// Definition describes the zone with one STANDARD and one DAYLIGHT
// observance recurring yearly from ValidFrom. The window is irrelevant
// because the rules never change inside the modeled period.
func (z *RuleZone) Definition(_, _ time.Time) *Definition {
	if !z.hasDST() {
		return &Definition{
			TZID: z.Name,
			Rules: []TransitionRule{{
				EffectiveFrom: unixEpochWall,
				OffsetBefore:  z.Standard.UTCOffset,
				OffsetAfter:   z.Standard.UTCOffset,
				Abbreviation:  z.Standard.Abbreviation,
			}},
		}
	}

	daylight := TransitionRule{
		Daylight:      true,
		EffectiveFrom: z.DSTStart.date(z.ValidFrom),
		OffsetBefore:  z.Standard.UTCOffset,
		OffsetAfter:   z.Daylight.UTCOffset,
		Abbreviation:  z.Daylight.Abbreviation,
		Recurrence:    z.DSTStart.recurrence(),
	}
	standard := TransitionRule{
		EffectiveFrom: z.DSTEnd.date(z.ValidFrom),
		OffsetBefore:  z.Daylight.UTCOffset,
		OffsetAfter:   z.Standard.UTCOffset,
		Abbreviation:  z.Standard.Abbreviation,
		Recurrence:    z.DSTEnd.recurrence(),
	}

	rules := []TransitionRule{daylight, standard}
	if standard.EffectiveFrom.Before(daylight.EffectiveFrom) {
		rules = []TransitionRule{standard, daylight}
	}
	return &Definition{TZID: z.Name, Rules: rules}
}

// fixedZone is the UTC resolver. It never needs a VTIMEZONE.
type fixedZone struct {
	name   string
	offset Offset
}

// UTC is the resolver for Coordinated Universal Time.
var UTC Resolver = fixedZone{name: "UTC", offset: Offset{Abbreviation: "UTC"}}

func (f fixedZone) ID() string             { return f.name }
func (f fixedZone) Lookup(time.Time) Offset { return f.offset }

func (f fixedZone) Resolve(wall time.Time) (time.Time, Offset) {
	return wallClock(wall).Add(-f.offset.UTCOffset), f.offset
}

func (f fixedZone) Definition(_, _ time.Time) *Definition { return nil }

var (
	euStart = Rule{Month: time.March, Week: -1, Weekday: time.Sunday}
	euEnd   = Rule{Month: time.October, Week: -1, Weekday: time.Sunday}
)

// embedded is the manual transition table. Rules follow current law only:
// EU since 1996, US since 2007, New South Wales since 2008.
var embedded = map[string]RuleZone{
	"Europe/Berlin": {
		Name:      "Europe/Berlin",
		Standard:  Offset{UTCOffset: time.Hour, Abbreviation: "CET"},
		Daylight:  Offset{UTCOffset: 2 * time.Hour, Abbreviation: "CEST", DST: true},
		DSTStart:  withAt(euStart, 2*time.Hour),
		DSTEnd:    withAt(euEnd, 3*time.Hour),
		ValidFrom: 1996,
	},
	"Europe/London": {
		Name:      "Europe/London",
		Standard:  Offset{Abbreviation: "GMT"},
		Daylight:  Offset{UTCOffset: time.Hour, Abbreviation: "BST", DST: true},
		DSTStart:  withAt(euStart, time.Hour),
		DSTEnd:    withAt(euEnd, 2*time.Hour),
		ValidFrom: 1996,
	},
	"America/New_York": {
		Name:      "America/New_York",
		Standard:  Offset{UTCOffset: -5 * time.Hour, Abbreviation: "EST"},
		Daylight:  Offset{UTCOffset: -4 * time.Hour, Abbreviation: "EDT", DST: true},
		DSTStart:  Rule{Month: time.March, Week: 2, Weekday: time.Sunday, At: 2 * time.Hour},
		DSTEnd:    Rule{Month: time.November, Week: 1, Weekday: time.Sunday, At: 2 * time.Hour},
		ValidFrom: 2007,
	},
	"Australia/Sydney": {
		Name:      "Australia/Sydney",
		Standard:  Offset{UTCOffset: 10 * time.Hour, Abbreviation: "AEST"},
		Daylight:  Offset{UTCOffset: 11 * time.Hour, Abbreviation: "AEDT", DST: true},
		DSTStart:  Rule{Month: time.October, Week: 1, Weekday: time.Sunday, At: 2 * time.Hour},
		DSTEnd:    Rule{Month: time.April, Week: 1, Weekday: time.Sunday, At: 3 * time.Hour},
		ValidFrom: 2008,
	},
	"Asia/Tokyo": {
		Name:      "Asia/Tokyo",
		Standard:  Offset{UTCOffset: 9 * time.Hour, Abbreviation: "JST"},
		ValidFrom: 1952,
	},
}

func withAt(r Rule, at time.Duration) Rule {
	r.At = at
	return r
}

// Embedded returns a copy of the manual rules for id.
func Embedded(id string) (*RuleZone, bool) {
	z, ok := embedded[id]
	if !ok {
		return nil, false
	}
	return &z, true
}

// EmbeddedIDs lists the identifiers of the manual table.
func EmbeddedIDs() []string {
	ids := make([]string, 0, len(embedded))
	for id := range embedded {
		ids = append(ids, id)
	}
	return ids
}
