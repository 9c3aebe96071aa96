package engine

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/vcf2ics/internal/config"
	"github.com/tartampluch/vcf2ics/internal/tz"
)

// BirthdayEvent is one yearly all-day event with its reminder.
type BirthdayEvent struct {
	Projection

	UID         string
	SubjectName string
	Description string
	BirthDate   time.Time
	Alarm       ReminderAlarm
}

// CalendarOptions carries the document-wide values of the assembler.
type CalendarOptions struct {
	Name        string
	Stamp       time.Time
	UTCTriggers bool
}

// Assemble composes the calendar document. A non-nil timezone definition is
// emitted before every event that may reference it.
func Assemble(events []BirthdayEvent, def *tz.Definition, opts CalendarOptions) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	name := opts.Name
	if name == "" {
		name = config.ICalCalName
	}
	setExtensionText(cal.Props, config.PropXWRCalName, name)

	// RFC 7986: suggest how often subscribers poll the feed.
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	refreshProp.Params.Set(config.ParamValue, config.ValueDuration)
	cal.Props.Set(refreshProp)

	if def != nil {
		setExtensionText(cal.Props, config.PropXWRTimezone, def.TZID)
		cal.Children = append(cal.Children, timezoneComponent(def))
	}

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(opts.Stamp.UTC())

	for _, e := range events {
		event := eventComponent(e, opts.UTCTriggers)
		event.Props.Set(dtStampProp)
		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

// EncodeCalendar serializes the document. A calendar without events is
// replaced by a minimal valid VCALENDAR so subscribers do not flag the feed.
func EncodeCalendar(cal *ical.Calendar) ([]byte, error) {
	if !hasEvents(cal) {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

// setExtensionText sets an X- text property. SetText would add VALUE=TEXT
// since such properties have no default type.
func setExtensionText(props ical.Props, name, value string) {
	prop := ical.NewProp(name)
	prop.SetText(value)
	delete(prop.Params, config.ParamValue)
	props.Set(prop)
}

func hasEvents(cal *ical.Calendar) bool {
	for _, c := range cal.Children {
		if c.Name == ical.CompEvent {
			return true
		}
	}
	return false
}

func eventComponent(e BirthdayEvent, utcTriggers bool) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, e.UID)
	event.Props.SetText(config.PropSummary, e.SubjectName)
	event.Props.SetText(config.PropDescription, e.Description)

	// All-day: DATE values, end exclusive.
	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(e.Occurrence)
	event.Props.Set(dtStartProp)

	dtEndProp := ical.NewProp(config.PropDTEnd)
	dtEndProp.SetDate(e.Occurrence.AddDate(0, 0, 1))
	event.Props.Set(dtEndProp)

	rruleProp := ical.NewProp(config.PropRRule)
	rruleProp.Value = e.Rule.RRuleString()
	event.Props.Set(rruleProp)

	event.Props.SetText(config.PropTransp, config.ICalTransp)

	event.Children = append(event.Children, alarmComponent(e.Alarm, utcTriggers))
	return event
}

// alarmComponent builds the DISPLAY alarm.
func alarmComponent(a ReminderAlarm, utcTriggers bool) *ical.Component {
	alarm := ical.NewComponent(config.CompAlarm)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, a.DisplayText)

	// Trigger values are set by hand: TRIGGER defaults to DURATION and the
	// DATE-TIME form needs explicit parameters.
	trigger := ical.NewProp(config.PropTrigger)
	switch {
	case a.Mode == AlarmRelative:
		trigger.Value = formatRelativeTrigger(a.Delay)
	case utcTriggers || a.TZID == config.UTCZoneID:
		trigger.Params.Set(config.ParamValue, config.ValueDateTime)
		trigger.Value = a.Instant.UTC().Format(config.ICalDateTimeUTC)
	default:
		trigger.Params.Set(config.ParamValue, config.ValueDateTime)
		trigger.Params.Set(config.ParamTZID, a.TZID)
		trigger.Value = a.Local.Format(config.ICalDateTimeLocal)
	}
	alarm.Props.Set(trigger)
	return alarm
}

// timezoneComponent renders a Definition as VTIMEZONE.
func timezoneComponent(def *tz.Definition) *ical.Component {
	comp := ical.NewComponent(config.CompTimezone)
	tzidProp := ical.NewProp(config.PropTZID)
	tzidProp.Value = def.TZID
	comp.Props.Set(tzidProp)

	for _, rule := range def.Rules {
		name := config.CompStandard
		if rule.Daylight {
			name = config.CompDaylight
		}
		obs := ical.NewComponent(name)

		start := ical.NewProp(config.PropDTStart)
		start.Value = rule.EffectiveFrom.Format(config.ICalDateTimeLocal)
		obs.Props.Set(start)

		from := ical.NewProp(config.PropTZOffsetFrom)
		from.Value = tz.FormatOffset(rule.OffsetBefore)
		obs.Props.Set(from)

		to := ical.NewProp(config.PropTZOffsetTo)
		to.Value = tz.FormatOffset(rule.OffsetAfter)
		obs.Props.Set(to)

		if rule.Abbreviation != "" {
			obs.Props.SetText(config.PropTZName, rule.Abbreviation)
		}
		if rule.Recurrence != nil {
			rr := ical.NewProp(config.PropRRule)
			rr.Value = rule.Recurrence.RRuleString()
			obs.Props.Set(rr)
		}
		comp.Children = append(comp.Children, obs)
	}
	return comp
}
