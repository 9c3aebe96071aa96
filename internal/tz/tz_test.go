package tz_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/vcf2ics/internal/config"
	"github.com/tartampluch/vcf2ics/internal/tz"
)

func mustZone(t *testing.T, id string) *tz.Zone {
	t.Helper()
	z, err := tz.LoadZone(id)
	require.NoError(t, err)
	return z
}

func mustEmbedded(t *testing.T, id string) *tz.RuleZone {
	t.Helper()
	z, ok := tz.Embedded(id)
	require.True(t, ok, "zone %s should be in the embedded table", id)
	return z
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		source  string
		wantID  string
		wantErr bool
	}{
		{"UTCSystem", "UTC", config.TZSourceSystem, "UTC", false},
		{"UTCEmbeddedCaseInsensitive", "utc", config.TZSourceEmbedded, "UTC", false},
		{"EmptyIsUTC", "", config.TZSourceSystem, "UTC", false},
		{"IANA", "Europe/Berlin", config.TZSourceSystem, "Europe/Berlin", false},
		{"Embedded", "America/New_York", config.TZSourceEmbedded, "America/New_York", false},
		{"UnknownIANA", "Mars/Olympus_Mons", config.TZSourceSystem, "", true},
		{"NotInEmbeddedTable", "Europe/Paris", config.TZSourceEmbedded, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tz.Load(tt.id, tt.source)
			if tt.wantErr {
				assert.ErrorIs(t, err, tz.ErrUnknownZone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, r.ID())
		})
	}
}

// TestResolvers_AgreeWithIANA checks the manual table against the IANA
// database hour by hour across 2024, including both transitions.
func TestResolvers_AgreeWithIANA(t *testing.T) {
	for _, id := range tz.EmbeddedIDs() {
		t.Run(id, func(t *testing.T) {
			manual := mustEmbedded(t, id)
			iana := mustZone(t, id)

			start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			for ts := start; ts.Before(end); ts = ts.Add(time.Hour) {
				want := iana.Lookup(ts)
				got := manual.Lookup(ts)
				if !assert.Equal(t, want.UTCOffset, got.UTCOffset, "offset mismatch at %s", ts) {
					return
				}
				assert.Equal(t, want.DST, got.DST, "DST flag mismatch at %s", ts)
			}
		})
	}
}

func TestResolve_AroundTransitions(t *testing.T) {
	resolvers := map[string]tz.Resolver{
		"system":   mustZone(t, "Europe/Berlin"),
		"embedded": mustEmbedded(t, "Europe/Berlin"),
	}

	tests := []struct {
		name     string
		wall     time.Time
		wantUTC  time.Time
		wantAbbr string
	}{
		{
			name:     "WinterBeforeSpringForward",
			wall:     time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC),
			wantUTC:  time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC),
			wantAbbr: "CET",
		},
		{
			name:     "SummerAfterSpringForward",
			wall:     time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC),
			wantUTC:  time.Date(2024, 4, 10, 7, 0, 0, 0, time.UTC),
			wantAbbr: "CEST",
		},
		{
			name:     "GapShiftsForward",
			wall:     time.Date(2024, 3, 31, 2, 30, 0, 0, time.UTC),
			wantUTC:  time.Date(2024, 3, 31, 1, 30, 0, 0, time.UTC),
			wantAbbr: "CEST",
		},
		{
			name:     "OverlapTakesEarlierInstant",
			wall:     time.Date(2024, 10, 27, 2, 30, 0, 0, time.UTC),
			wantUTC:  time.Date(2024, 10, 27, 0, 30, 0, 0, time.UTC),
			wantAbbr: "CEST",
		},
	}

	for source, r := range resolvers {
		for _, tt := range tests {
			t.Run(source+"/"+tt.name, func(t *testing.T) {
				got, off := r.Resolve(tt.wall)
				assert.Equal(t, tt.wantUTC, got)
				assert.Equal(t, tt.wantAbbr, off.Abbreviation)
			})
		}
	}
}

func TestResolve_IgnoresWallLocation(t *testing.T) {
	z := mustZone(t, "America/New_York")
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	a, _ := z.Resolve(time.Date(2024, 7, 4, 9, 0, 0, 0, time.UTC))
	b, _ := z.Resolve(time.Date(2024, 7, 4, 9, 0, 0, 0, tokyo))
	assert.Equal(t, a, b)
	assert.Equal(t, time.Date(2024, 7, 4, 13, 0, 0, 0, time.UTC), a)
}

func TestResolve_IsReferentiallyTransparent(t *testing.T) {
	z := mustZone(t, "Australia/Sydney")
	wall := time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC)

	first, _ := z.Resolve(wall)
	_, _ = z.Resolve(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	second, _ := z.Resolve(wall)
	assert.Equal(t, first, second)
}

func TestUTC(t *testing.T) {
	inst, off := tz.UTC.Resolve(time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC), inst)
	assert.Equal(t, time.Duration(0), off.UTCOffset)
	assert.Nil(t, tz.UTC.Definition(inst, inst))
}

func TestZoneDefinition_CoversWindow(t *testing.T) {
	z := mustZone(t, "Europe/Berlin")
	from := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC)

	def := z.Definition(from, to)
	require.NotNil(t, def)
	assert.Equal(t, "Europe/Berlin", def.TZID)
	require.Len(t, def.Rules, 3, "winter in force, spring forward, fall back")

	winter, spring, autumn := def.Rules[0], def.Rules[1], def.Rules[2]
	assert.False(t, winter.Daylight)
	assert.Equal(t, time.Date(2023, 10, 29, 3, 0, 0, 0, time.UTC), winter.EffectiveFrom)

	assert.True(t, spring.Daylight)
	assert.Equal(t, time.Date(2024, 3, 31, 2, 0, 0, 0, time.UTC), spring.EffectiveFrom)
	assert.Equal(t, time.Hour, spring.OffsetBefore)
	assert.Equal(t, 2*time.Hour, spring.OffsetAfter)
	assert.Equal(t, "CEST", spring.Abbreviation)

	assert.False(t, autumn.Daylight)
	assert.Equal(t, time.Date(2024, 10, 27, 3, 0, 0, 0, time.UTC), autumn.EffectiveFrom)
	assert.Equal(t, "CET", autumn.Abbreviation)

	for i := 1; i < len(def.Rules); i++ {
		assert.True(t, def.Rules[i-1].EffectiveFrom.Before(def.Rules[i].EffectiveFrom), "rules must be ordered")
	}
}

func TestRuleZoneDefinition_Recurring(t *testing.T) {
	def := mustEmbedded(t, "America/New_York").Definition(time.Time{}, time.Time{})
	require.Len(t, def.Rules, 2)

	daylight, standard := def.Rules[0], def.Rules[1]
	require.True(t, daylight.Daylight)
	assert.Equal(t, time.Date(2007, 3, 11, 2, 0, 0, 0, time.UTC), daylight.EffectiveFrom)
	require.NotNil(t, daylight.Recurrence)
	rule := daylight.Recurrence.RRuleString()
	assert.True(t, strings.HasPrefix(rule, "FREQ=YEARLY"), rule)
	assert.Contains(t, rule, "BYMONTH=3")

	assert.False(t, standard.Daylight)
	assert.Equal(t, time.Date(2007, 11, 4, 2, 0, 0, 0, time.UTC), standard.EffectiveFrom)
	assert.Equal(t, "EST", standard.Abbreviation)
}

func TestRuleZoneDefinition_SouthernHemisphereOrder(t *testing.T) {
	def := mustEmbedded(t, "Australia/Sydney").Definition(time.Time{}, time.Time{})
	require.Len(t, def.Rules, 2)
	assert.False(t, def.Rules[0].Daylight, "April fall-back precedes October spring-forward")
	assert.True(t, def.Rules[1].Daylight)
}

func TestFixedRuleZone(t *testing.T) {
	z := mustEmbedded(t, "Asia/Tokyo")
	off := z.Lookup(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 9*time.Hour, off.UTCOffset)
	assert.False(t, off.DST)

	def := z.Definition(time.Time{}, time.Time{})
	require.Len(t, def.Rules, 1)
	assert.Nil(t, def.Rules[0].Recurrence)
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "+0000", tz.FormatOffset(0))
	assert.Equal(t, "+0200", tz.FormatOffset(2*time.Hour))
	assert.Equal(t, "-0500", tz.FormatOffset(-5*time.Hour))
	assert.Equal(t, "+0530", tz.FormatOffset(5*time.Hour+30*time.Minute))
	assert.Equal(t, "+005328", tz.FormatOffset(53*time.Minute+28*time.Second))
}
