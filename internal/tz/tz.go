// Package tz resolves civil time for reminder alarms.
//
// Two strategies are available behind the Resolver interface: Zone delegates
// to the IANA database shipped with Go (embedded via time/tzdata), RuleZone
// models a region with one fixed standard/daylight rule pair. RuleZone is only
// correct for the period its rules describe; it does not follow law changes.
package tz

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Zone must not depend on the host's zoneinfo files.

	"github.com/teambition/rrule-go"
	"github.com/tartampluch/vcf2ics/internal/config"
)

// ErrUnknownZone is returned when a timezone identifier cannot be resolved.
var ErrUnknownZone = errors.New(config.ErrUnknownZone)

// Offset describes the civil time in force at an instant.
type Offset struct {
	UTCOffset    time.Duration
	Abbreviation string
	DST          bool
}

// Resolver supplies UTC offsets for a named timezone.
// Implementations are pure: the same inputs always give the same outputs.
type Resolver interface {
	// ID returns the timezone identifier used as TZID.
	ID() string

	// Lookup returns the offset in force at instant t.
	Lookup(t time.Time) Offset

	// Resolve interprets the wall clock fields of wall (its location is
	// ignored) in this zone and returns the matching instant in UTC.
	// A wall time inside a spring-forward gap is shifted forward by the gap;
	// a wall time inside a fall-back overlap resolves to the earlier instant.
	Resolve(wall time.Time) (time.Time, Offset)

	// Definition returns the transition rules needed to interpret any wall
	// time between from and to, or nil for UTC.
	Definition(from, to time.Time) *Definition
}

// TransitionRule is one observance of a timezone definition.
type TransitionRule struct {
	Daylight      bool
	EffectiveFrom time.Time // Wall clock in OffsetBefore, carried in UTC.
	OffsetBefore  time.Duration
	OffsetAfter   time.Duration
	Abbreviation  string

	// Recurrence, when set, repeats the transition yearly.
	Recurrence *rrule.ROption
}

// Definition is a self-described timezone (VTIMEZONE).
type Definition struct {
	TZID  string
	Rules []TransitionRule // Ordered by EffectiveFrom.
}

// Load returns the resolver for id using the given source
// (config.TZSourceSystem or config.TZSourceEmbedded).
func Load(id, source string) (Resolver, error) {
	if strings.EqualFold(id, config.UTCZoneID) || id == "" {
		return UTC, nil
	}
	switch source {
	case config.TZSourceEmbedded:
		z, ok := Embedded(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q (embedded table)", ErrUnknownZone, id)
		}
		return z, nil
	case config.TZSourceSystem, "":
		return LoadZone(id)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrTZSource, source)
	}
}

// wallClock strips the location of t, keeping its calendar fields.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// FormatOffset renders an offset as the iCalendar UTC-OFFSET value (+hhmm).
func FormatOffset(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	s := int((d % time.Minute) / time.Second)
	if s != 0 {
		return fmt.Sprintf("%s%02d%02d%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%s%02d%02d", sign, h, m)
}
