package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/tartampluch/vcf2ics/internal/config"
	"github.com/tartampluch/vcf2ics/internal/tz"
)

// AlarmMode selects how reminder triggers are expressed.
type AlarmMode int

const (
	// AlarmAbsolute fires at occurrence date + reminder time, local to the
	// configured timezone, written as a DATE-TIME trigger.
	AlarmAbsolute AlarmMode = iota

	// AlarmRelative fires at a duration after the event start. All-day
	// events start at floating midnight of their date, so the offset equals
	// the reminder clock time in whatever zone the client runs in.
	AlarmRelative
)

// ParseAlarmMode maps a config value onto an AlarmMode.
func ParseAlarmMode(value string) (AlarmMode, error) {
	switch strings.ToLower(value) {
	case config.AlarmModeAbsolute, "":
		return AlarmAbsolute, nil
	case config.AlarmModeRelative:
		return AlarmRelative, nil
	default:
		return 0, fmt.Errorf("%w: %q", config.ErrInvalidAlarmMode, value)
	}
}

// String returns the config name of the mode.
func (m AlarmMode) String() string {
	if m == AlarmRelative {
		return config.AlarmModeRelative
	}
	return config.AlarmModeAbsolute
}

// ReminderAlarm is the single display alarm of a birthday event.
type ReminderAlarm struct {
	Mode        AlarmMode
	DisplayText string

	// Absolute mode.
	Local   time.Time // Wall clock, carried in UTC.
	Instant time.Time // UTC instant the alarm fires at.
	TZID    string
	Offset  tz.Offset

	// Relative mode: duration after the event start.
	Delay time.Duration
}

// BuildAlarm creates the reminder for one occurrence date.
func BuildAlarm(occurrence time.Time, reminder config.ReminderTime, zone tz.Resolver, mode AlarmMode, text string) ReminderAlarm {
	if mode == AlarmRelative {
		return ReminderAlarm{
			Mode:        AlarmRelative,
			DisplayText: text,
			Delay:       reminder.Duration(),
		}
	}

	local := time.Date(occurrence.Year(), occurrence.Month(), occurrence.Day(),
		reminder.Hour, reminder.Minute, 0, 0, time.UTC)
	instant, offset := zone.Resolve(local)

	return ReminderAlarm{
		Mode:        AlarmAbsolute,
		DisplayText: text,
		Local:       local,
		Instant:     instant.UTC(),
		TZID:        zone.ID(),
		Offset:      offset,
	}
}

// formatRelativeTrigger renders a delay as an iCalendar DURATION value.
func formatRelativeTrigger(d time.Duration) string {
	if d == 0 {
		return config.ISOZeroTime
	}
	prefix := config.ISOPeriodPrefix
	if d < 0 {
		prefix = config.ISONegativePrefix
		d = -d
	}
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(config.ISOTimePrefix)
	if h := int(d / time.Hour); h > 0 {
		fmt.Fprintf(&b, "%d%s", h, config.ISOHour)
	}
	if m := int((d % time.Hour) / time.Minute); m > 0 {
		fmt.Fprintf(&b, "%d%s", m, config.ISOMinute)
	}
	return b.String()
}
