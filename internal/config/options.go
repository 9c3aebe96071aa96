package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Options is the user-facing configuration of a conversion run.
// Values come from an optional YAML file and are then overridden by flags
// or environment variables in the CLI layer.
type Options struct {
	Inputs        []string `yaml:"inputs"`
	Output        string   `yaml:"output"`
	ReferenceDate string   `yaml:"reference_date"`
	Timezone      string   `yaml:"timezone"`
	TZSource      string   `yaml:"tz_source"`
	ReminderTime  string   `yaml:"reminder_time"`
	AlarmMode     string   `yaml:"alarm_mode"`
	UTCTriggers   bool     `yaml:"utc_triggers"`
	Language      string   `yaml:"lang"`
	User          string   `yaml:"user"`
	Password      string   `yaml:"password"`
	Listen        string   `yaml:"listen"`
	Refresh       string   `yaml:"refresh"`
}

// ReminderTime is a local clock time (hour and minute).
type ReminderTime struct {
	Hour   int
	Minute int
}

// Duration returns the offset of the clock time from midnight.
func (r ReminderTime) Duration() time.Duration {
	return time.Duration(r.Hour)*time.Hour + time.Duration(r.Minute)*time.Minute
}

// String formats the clock time as HH:MM.
func (r ReminderTime) String() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

// Settings is the validated, typed form of Options.
type Settings struct {
	Inputs        []string
	Output        string
	ReferenceDate time.Time // Zero means "today" at run time.
	Timezone      string
	TZSource      string
	Reminder      ReminderTime
	AlarmMode     string
	UTCTriggers   bool
	Language      string
	User          string
	Password      string
	Listen        string
	Refresh       string
}

// Sentinel configuration errors, usable with errors.Is.
var (
	ErrInvalidReminderTime  = errors.New(ErrReminderTime)
	ErrInvalidReferenceDate = errors.New(ErrReferenceDate)
	ErrInvalidAlarmMode     = errors.New(ErrAlarmMode)
	ErrInvalidTZSource      = errors.New(ErrTZSource)
	ErrInvalidLanguage      = errors.New(ErrLanguage)
	ErrMissingInput         = errors.New(ErrNoInput)
)

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{
		Output:       StdStream,
		Timezone:     DefaultTimezone,
		TZSource:     DefaultTZSource,
		ReminderTime: DefaultReminderTime,
		AlarmMode:    DefaultAlarmMode,
		Language:     DefaultLanguage,
		Listen:       DefaultListen,
		Refresh:      DefaultRefresh,
	}
}

// LoadFile reads a YAML options file on top of the defaults.
// An empty path returns the defaults.
func LoadFile(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("%s %q: %w", ErrConfigRead, path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("%s %q: %w", ErrConfigParse, path, err)
	}
	opts.Normalize()
	return opts, nil
}

// Normalize fills in empty values with defaults so that partially-filled
// files still behave correctly.
func (o *Options) Normalize() {
	def := DefaultOptions()
	if o.Output == "" {
		o.Output = def.Output
	}
	if o.Timezone == "" {
		o.Timezone = def.Timezone
	}
	if o.TZSource == "" {
		o.TZSource = def.TZSource
	}
	if o.ReminderTime == "" {
		o.ReminderTime = def.ReminderTime
	}
	if o.AlarmMode == "" {
		o.AlarmMode = def.AlarmMode
	}
	if o.Language == "" {
		o.Language = def.Language
	}
	if o.Listen == "" {
		o.Listen = def.Listen
	}
	if o.Refresh == "" {
		o.Refresh = def.Refresh
	}
}

// Validate checks every option and returns the typed settings.
// It never touches the filesystem, so configuration errors surface before
// any input is read or output written. Timezone identifiers are checked by
// the tz package, which owns the zone tables.
func (o Options) Validate() (Settings, error) {
	o.Normalize()

	if len(o.Inputs) == 0 {
		return Settings{}, ErrMissingInput
	}

	reminder, err := ParseReminderTime(o.ReminderTime)
	if err != nil {
		return Settings{}, err
	}

	var ref time.Time
	if o.ReferenceDate != "" {
		ref, err = time.Parse(DateFormatReference, strings.TrimSpace(o.ReferenceDate))
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %q", ErrInvalidReferenceDate, o.ReferenceDate)
		}
	}

	mode := strings.ToLower(o.AlarmMode)
	if mode != AlarmModeAbsolute && mode != AlarmModeRelative {
		return Settings{}, fmt.Errorf("%w: %q", ErrInvalidAlarmMode, o.AlarmMode)
	}

	source := strings.ToLower(o.TZSource)
	if source != TZSourceSystem && source != TZSourceEmbedded {
		return Settings{}, fmt.Errorf("%w: %q", ErrInvalidTZSource, o.TZSource)
	}

	lang := strings.ToLower(o.Language)
	if !slices.Contains(SupportedLanguages, lang) {
		return Settings{}, fmt.Errorf("%w: %q", ErrInvalidLanguage, o.Language)
	}

	return Settings{
		Inputs:        o.Inputs,
		Output:        o.Output,
		ReferenceDate: ref,
		Timezone:      o.Timezone,
		TZSource:      source,
		Reminder:      reminder,
		AlarmMode:     mode,
		UTCTriggers:   o.UTCTriggers,
		Language:      lang,
		User:          o.User,
		Password:      o.Password,
		Listen:        o.Listen,
		Refresh:       o.Refresh,
	}, nil
}

// ParseReminderTime parses a strict HH:MM clock time (00:00 to 23:59).
func ParseReminderTime(value string) (ReminderTime, error) {
	value = strings.TrimSpace(value)
	if len(value) != len(ReminderTimeLayout) {
		return ReminderTime{}, fmt.Errorf("%w: %q", ErrInvalidReminderTime, value)
	}
	t, err := time.Parse(ReminderTimeLayout, value)
	if err != nil {
		return ReminderTime{}, fmt.Errorf("%w: %q", ErrInvalidReminderTime, value)
	}
	return ReminderTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}
