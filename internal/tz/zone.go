package tz

import (
	"fmt"
	"time"
)

// unixEpochWall is the conventional DTSTART of an observance with no known start.
var unixEpochWall = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Zone resolves civil time through the IANA database.
type Zone struct {
	loc *time.Location
}

// LoadZone loads an IANA zone such as "Europe/Berlin".
func LoadZone(id string) (*Zone, error) {
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownZone, id, err)
	}
	return &Zone{loc: loc}, nil
}

// ID returns the IANA identifier.
func (z *Zone) ID() string { return z.loc.String() }

// Lookup returns the offset in force at t.
func (z *Zone) Lookup(t time.Time) Offset {
	local := t.In(z.loc)
	name, secs := local.Zone()
	return Offset{
		UTCOffset:    time.Duration(secs) * time.Second,
		Abbreviation: name,
		DST:          local.IsDST(),
	}
}

// Resolve maps wall clock fields to an instant.
func (z *Zone) Resolve(wall time.Time) (time.Time, Offset) {
	w := wallClock(wall)
	// Probe both offsets around the wall time; this keeps gap and overlap
	// handling identical to RuleZone instead of relying on time.Date.
	before := z.Lookup(w.Add(-24 * time.Hour))
	after := z.Lookup(w.Add(24 * time.Hour))
	return resolveWall(z, w, before.UTCOffset, after.UTCOffset)
}

// Definition lists the concrete transitions that apply between from and to.
func (z *Zone) Definition(from, to time.Time) *Definition {
	def := &Definition{TZID: z.ID()}

	t := from.In(z.loc)
	first := true
	for {
		start, end := t.ZoneBounds()
		cur := z.Lookup(t)

		if first || !start.IsZero() {
			rule := TransitionRule{
				Daylight:     cur.DST,
				OffsetAfter:  cur.UTCOffset,
				Abbreviation: cur.Abbreviation,
			}
			if start.IsZero() {
				// Zone without transitions (or before the first one).
				rule.EffectiveFrom = unixEpochWall
				rule.OffsetBefore = cur.UTCOffset
			} else {
				prev := z.Lookup(start.Add(-time.Second))
				rule.OffsetBefore = prev.UTCOffset
				rule.EffectiveFrom = wallClock(start.UTC().Add(prev.UTCOffset))
			}
			def.Rules = append(def.Rules, rule)
		}
		first = false

		if end.IsZero() || end.After(to) {
			break
		}
		t = end
	}
	return def
}

// resolveWall implements Resolve for any resolver given the offsets that
// surround the wall time.
func resolveWall(r Resolver, w time.Time, offBefore, offAfter time.Duration) (time.Time, Offset) {
	// Earlier instant first: the larger offset gives the earlier UTC time.
	candidates := []time.Duration{offBefore, offAfter}
	if offAfter > offBefore {
		candidates = []time.Duration{offAfter, offBefore}
	}
	for _, off := range candidates {
		inst := w.Add(-off)
		if got := r.Lookup(inst); got.UTCOffset == off {
			return inst, got
		}
	}
	// Gap: the wall time does not exist. Interpreting it with the offset in
	// force before the transition moves it forward by the gap length.
	inst := w.Add(-offBefore)
	return inst, r.Lookup(inst)
}
