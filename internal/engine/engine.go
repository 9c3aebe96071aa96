package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tartampluch/vcf2ics/internal/config"
	"github.com/tartampluch/vcf2ics/internal/tz"
)

// Texts supplies the human-readable strings of generated events.
// The i18n package provides localized implementations.
type Texts interface {
	Description(birthDate string) string
	AlarmText(name string) string
	CalendarName() string
}

// ConvertConfig contains all parameters of one conversion run.
// It is read-only for the duration of the run.
type ConvertConfig struct {
	Sources []Source

	// ReferenceDate picks the year birthdays are projected onto.
	// Zero means the run's stamp.
	ReferenceDate time.Time

	// Stamp is the DTSTAMP of the document. Zero means the Generator's clock.
	Stamp time.Time

	Zone        tz.Resolver
	Reminder    config.ReminderTime
	AlarmMode   AlarmMode
	UTCTriggers bool
}

// Stats summarizes a conversion run.
type Stats struct {
	Contacts  int
	Birthdays int
	Skipped   int
}

// Generator is the core service responsible for reading contacts and
// converting them into a birthday calendar.
//
// Standard input can only be consumed once, so the first run that reads it
// keeps the bytes and later runs replay them.
type Generator struct {
	Clock   Clock     // Interface for time mocking.
	Fetcher Fetcher   // Interface for network abstraction.
	Texts   Texts     // Optional; English fallbacks are used when nil.
	Stdin   io.Reader // Optional; defaults to os.Stdin.

	stdinOnce sync.Once
	stdinData []byte
	stdinErr  error
}

// Convert runs the whole pipeline and returns the encoded calendar.
// Sources are read in order and the first unreadable one aborts the run, so
// a calendar is either complete or not produced at all.
func (g *Generator) Convert(ctx context.Context, cfg ConvertConfig) ([]byte, Stats, error) {
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyMode, cfg.AlarmMode.String(),
	)
	log.InfoContext(ctx, config.MsgConvertStart)

	records, err := g.LoadContacts(ctx, cfg.Sources)
	if err != nil {
		return nil, Stats{}, err
	}

	events, stats, err := g.BuildEvents(records, cfg)
	if err != nil {
		return nil, stats, err
	}

	ics, err := g.RenderCalendar(events, cfg)
	if err != nil {
		return nil, stats, err
	}

	g.logSuccess(stats)
	log.Debug("Conversion finished", config.LogKeyDuration, time.Since(start).Milliseconds())
	return ics, stats, nil
}

// LoadContacts reads every source sequentially and concatenates the records
// in source order.
func (g *Generator) LoadContacts(ctx context.Context, sources []Source) ([]ContactRecord, error) {
	var all []ContactRecord
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slog.Debug(config.MsgReadSource,
			config.LogKeyComponent, config.CompEngine,
			config.LogKeySource, src.Location)

		records, err := g.readSource(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func (g *Generator) readSource(ctx context.Context, src Source) ([]ContactRecord, error) {
	reader, err := g.acquireStream(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", config.ErrSourceOpen, src.Location, err)
	}
	// Best effort close. Errors in Close() for read-only streams are rarely actionable here.
	defer func() { _ = reader.Close() }()

	records, err := ReadContacts(ctx, reader)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			return nil, err
		}
		return nil, fmt.Errorf("%s %q: %w", config.ErrSourceRead, src.Location, err)
	}
	return records, nil
}

// acquireStream opens the appropriate data source.
func (g *Generator) acquireStream(ctx context.Context, src Source) (io.ReadCloser, error) {
	switch {
	case src.IsStdin():
		data, err := g.stdin()
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	case src.IsRemote():
		if g.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return g.Fetcher.Fetch(ctx, src)
	default:
		return os.Open(src.Location)
	}
}

func (g *Generator) stdin() ([]byte, error) {
	g.stdinOnce.Do(func() {
		in := g.Stdin
		if in == nil {
			in = os.Stdin
		}
		g.stdinData, g.stdinErr = io.ReadAll(in)
	})
	return g.stdinData, g.stdinErr
}

// BuildEvents turns records with a valid birthday into events. Records
// without one are counted as skipped, never reported as errors.
func (g *Generator) BuildEvents(records []ContactRecord, cfg ConvertConfig) ([]BirthdayEvent, Stats, error) {
	stats := Stats{Contacts: len(records)}
	reference := cfg.ReferenceDate
	if reference.IsZero() {
		reference = g.stamp(cfg)
	}
	zone := cfg.Zone
	if zone == nil {
		zone = tz.UTC
	}

	events := make([]BirthdayEvent, 0, len(records))
	for _, rec := range records {
		if !rec.HasBirthday() {
			stats.Skipped++
			msg := config.MsgNoBirthday
			if rec.RawBirthday != "" {
				msg = config.MsgSkippedDate
			}
			slog.Debug(msg,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyName, rec.DisplayName,
				config.LogKeyValue, rec.RawBirthday)
			continue
		}

		event, err := g.buildEvent(rec, reference, zone, cfg)
		if err != nil {
			return nil, stats, err
		}
		events = append(events, event)
		stats.Birthdays++
	}
	return events, stats, nil
}

func (g *Generator) buildEvent(rec ContactRecord, reference time.Time, zone tz.Resolver, cfg ConvertConfig) (BirthdayEvent, error) {
	birth := *rec.BirthDate
	proj, err := Project(birth, reference)
	if err != nil {
		return BirthdayEvent{}, err
	}

	isoDate := birth.Format(config.DateFormatFullDash)
	description := g.description(isoDate)
	if note := strings.TrimSpace(rec.Note); note != "" {
		description += config.TextNewline + note
	}

	return BirthdayEvent{
		Projection:  proj,
		UID:         EventUID(rec.DisplayName, birth),
		SubjectName: rec.DisplayName,
		Description: description,
		BirthDate:   birth,
		Alarm:       BuildAlarm(proj.Occurrence, cfg.Reminder, zone, cfg.AlarmMode, g.alarmText(rec.DisplayName)),
	}, nil
}

// RenderCalendar assembles and encodes events. Absolute local triggers get a
// VTIMEZONE covering every alarm instant of the document.
func (g *Generator) RenderCalendar(events []BirthdayEvent, cfg ConvertConfig) ([]byte, error) {
	var def *tz.Definition
	if cfg.Zone != nil && cfg.AlarmMode == AlarmAbsolute && !cfg.UTCTriggers && len(events) > 0 {
		from, to := alarmWindow(events)
		def = cfg.Zone.Definition(from, to)
	}

	name := config.ICalCalName
	if g.Texts != nil {
		name = g.Texts.CalendarName()
	}

	cal := Assemble(events, def, CalendarOptions{
		Name:        name,
		Stamp:       g.stamp(cfg),
		UTCTriggers: cfg.UTCTriggers,
	})
	return EncodeCalendar(cal)
}

// alarmWindow returns the earliest and latest alarm instants.
func alarmWindow(events []BirthdayEvent) (time.Time, time.Time) {
	from, to := events[0].Alarm.Instant, events[0].Alarm.Instant
	for _, e := range events[1:] {
		if e.Alarm.Instant.Before(from) {
			from = e.Alarm.Instant
		}
		if e.Alarm.Instant.After(to) {
			to = e.Alarm.Instant
		}
	}
	return from, to
}

func (g *Generator) stamp(cfg ConvertConfig) time.Time {
	if !cfg.Stamp.IsZero() {
		return cfg.Stamp
	}
	if g.Clock == nil {
		return time.Now()
	}
	return g.Clock.Now()
}

func (g *Generator) description(isoDate string) string {
	if g.Texts != nil {
		return g.Texts.Description(isoDate)
	}
	return fmt.Sprintf(config.FallbackDescription, isoDate)
}

func (g *Generator) alarmText(name string) string {
	if g.Texts != nil {
		return g.Texts.AlarmText(name)
	}
	return fmt.Sprintf(config.FallbackAlarmText, name)
}

// logSuccess logs the final statistics of the generation process.
func (g *Generator) logSuccess(stats Stats) {
	slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompEngine,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.Contacts),
			slog.Int(config.LogKeyFound, stats.Birthdays),
			slog.Int(config.LogKeySkipped, stats.Skipped),
		),
	)
}
