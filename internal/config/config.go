package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "vcf2ics/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName        = "vcf2ics"
	AppUsage       = "Turn vCard contacts into a birthday calendar or an Outlook CSV"
	AppID          = "com.github.tartampluch.vcf2ics"
	KeyringService = "com.github.tartampluch.vcf2ics"
	LogFileName    = "vcf2ics.log"
	StdStream      = "-" // Input/output placeholder for stdin/stdout
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs.
	FilePermUserRW fs.FileMode = 0600

	// FilePermOutput represents -rw-r--r--, used for generated ICS/CSV files.
	FilePermOutput fs.FileMode = 0644

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Environment Variables
// -----------------------------------------------------------------------------

const (
	CmdICS   = "ics"
	CmdCSV   = "csv"
	CmdServe = "serve"
	CmdLogin = "login"

	CmdDescICS   = "Generate a yearly birthday calendar (iCalendar)"
	CmdDescCSV   = "Export contacts using the Outlook CSV import template"
	CmdDescServe = "Serve the birthday calendar over HTTP and refresh it periodically"
	CmdDescLogin = "Store the password used for URL sources in the OS keyring"

	FlagDebug         = "debug"
	FlagConfig        = "config"
	FlagInput         = "input"
	FlagOutput        = "output"
	FlagReferenceDate = "reference-date"
	FlagTimezone      = "timezone"
	FlagTZSource      = "tz-source"
	FlagReminderTime  = "reminder-time"
	FlagAlarmMode     = "alarm-mode"
	FlagUTCTriggers   = "utc-triggers"
	FlagLang          = "lang"
	FlagUser          = "user"
	FlagPassword      = "password"
	FlagListen        = "listen"
	FlagRefresh       = "refresh"

	FlagAliasInput  = "i"
	FlagAliasOutput = "o"

	FlagDescDebug         = "Enable debug logging"
	FlagDescConfig        = "Path to a YAML options file"
	FlagDescInput         = "vCard file, URL or - for stdin (repeatable)"
	FlagDescOutput        = "Output file, - for stdout"
	FlagDescReferenceDate = "Date the conversion runs at (YYYY-MM-DD), defaults to today"
	FlagDescTimezone      = "IANA timezone of the reminder clock time"
	FlagDescTZSource      = "Timezone rules: system (IANA database) or embedded (fixed rule table)"
	FlagDescReminderTime  = "Local reminder clock time HH:MM"
	FlagDescAlarmMode     = "Alarm trigger mode: absolute or relative"
	FlagDescUTCTriggers   = "Write absolute triggers as UTC instants instead of local time with TZID"
	FlagDescLang          = "Language of generated texts"
	FlagDescUser          = "Basic auth user for URL sources"
	FlagDescPassword      = "Basic auth password for URL sources (falls back to the OS keyring)"
	FlagDescListen        = "Address the calendar feed listens on"
	FlagDescRefresh       = "Cron schedule for rebuilding the served calendar"

	EnvOutput        = "VCF2ICS_OUTPUT"
	EnvConfig        = "VCF2ICS_CONFIG"
	EnvReferenceDate = "VCF2ICS_REFERENCE_DATE"
	EnvTimezone      = "VCF2ICS_TIMEZONE"
	EnvTZSource      = "VCF2ICS_TZ_SOURCE"
	EnvReminderTime  = "VCF2ICS_REMINDER_TIME"
	EnvAlarmMode     = "VCF2ICS_ALARM_MODE"
	EnvUTCTriggers   = "VCF2ICS_UTC_TRIGGERS"
	EnvLang          = "VCF2ICS_LANG"
	EnvUser          = "VCF2ICS_USER"
	EnvPassword      = "VCF2ICS_PASSWORD"
	EnvListen        = "VCF2ICS_LISTEN"
	EnvRefresh       = "VCF2ICS_REFRESH"
	EnvDebug         = "VCF2ICS_DEBUG"

	MsgPasswordPrompt = "Password for %s: "
	MsgPasswordSaved  = "Password stored in the OS keyring"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultTimezone     = "UTC"
	DefaultTZSource     = TZSourceSystem
	DefaultReminderTime = "09:00"
	DefaultAlarmMode    = AlarmModeAbsolute
	DefaultLanguage     = "en"
	DefaultListen       = "127.0.0.1:18080"
	DefaultRefresh      = "@every 1h"

	TZSourceSystem   = "system"
	TZSourceEmbedded = "embedded"

	AlarmModeAbsolute = "absolute"
	AlarmModeRelative = "relative"

	// UTCZoneID names the zone whose absolute triggers need no VTIMEZONE.
	UTCZoneID = "UTC"

	// ReminderTimeLayout is the accepted reminder clock time syntax.
	ReminderTimeLayout = "15:04"

	// ProjectionHorizonYears bounds the Feb 29 search for the next leap year.
	ProjectionHorizonYears = 8
)

// SupportedLanguages defines the list of available text languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// ISO8601 Duration Components for relative reminders
const (
	ISOPeriodPrefix   = "P"
	ISONegativePrefix = "-P"
	ISOTimePrefix     = "T"
	ISOHour           = "H"
	ISOMinute         = "M"
	ISOZeroTime       = "PT0S"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//vcf2ics//Birthday Calendar//EN"
	ICalCalName   = "Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalAction    = "DISPLAY"
	ICalTransp    = "TRANSPARENT"
	ICalUIDPrefix = "birthday-"
	ICalUIDDomain = "@local"

	// iCal Components
	CompAlarm    = "VALARM"
	CompTimezone = "VTIMEZONE"
	CompStandard = "STANDARD"
	CompDaylight = "DAYLIGHT"

	// iCal Fields
	PropUID          = "UID"
	PropSummary      = "SUMMARY"
	PropDTStart      = "DTSTART"
	PropDTEnd        = "DTEND"
	PropDTStamp      = "DTSTAMP"
	PropRRule        = "RRULE"
	PropTransp       = "TRANSP"
	PropRefresh      = "REFRESH-INTERVAL"
	PropAction       = "ACTION"
	PropDescription  = "DESCRIPTION"
	PropTrigger      = "TRIGGER"
	PropVersion      = "VERSION"
	PropProdid       = "PRODID"
	PropXWRCalName   = "X-WR-CALNAME"
	PropXWRTimezone  = "X-WR-TIMEZONE"
	PropCalScale     = "CALSCALE"
	PropMethod       = "METHOD"
	PropTZID         = "TZID"
	PropTZOffsetFrom = "TZOFFSETFROM"
	PropTZOffsetTo   = "TZOFFSETTO"
	PropTZName       = "TZNAME"

	// iCal Parameters
	ParamValue    = "VALUE"
	ParamTZID     = "TZID"
	ValueDateTime = "DATE-TIME"
	ValueDuration = "DURATION"

	// iCal value layouts
	ICalDateTimeUTC   = "20060102T150405Z"
	ICalDateTimeLocal = "20060102T150405"

	DefaultICalRefresh = 24 * time.Hour
)

// -----------------------------------------------------------------------------
// Data Formats & Separators
// -----------------------------------------------------------------------------

const (
	// Date layouts accepted for vCard BDAY fields, in priority order.
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"

	// DateFormatReference is the syntax of the reference date option.
	DateFormatReference = "2006-01-02"

	// DateFormatOutlook is the birthday layout expected by Outlook imports.
	DateFormatOutlook = "01/02/2006"

	// UID hash input: name + separator + ISO date.
	UIDSeparator = "-"

	NameSeparator = " "
	OrgSeparator  = ";"
	TextNewline   = "\n"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 256 * 1024 * 1024 // 256MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	SchemeSeparator     = "://"
	RouteRoot           = "/"
	RouteStatus         = "/status"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
	HeaderCacheControl       = "Cache-Control"
	HeaderETag               = "ETag"
	HeaderLastModified       = "Last-Modified"
	HeaderRetryAfter         = "Retry-After"
	HeaderAllow              = "Allow"
	HeaderXContentType       = "X-Content-Type-Options"
	HeaderUserAgent          = "User-Agent"
	HeaderIfNoneMatch        = "If-None-Match"
	HeaderIfModifiedSince    = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	MimeJSON            = "application/json"
	CacheControlPrivate = "private, no-cache"
	DispositionICS      = `inline; filename="birthdays.ics"`

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrNoInput          = "configuration error: at least one input is required"
	ErrReminderTime     = "configuration error: reminder time must be HH:MM"
	ErrReferenceDate    = "configuration error: reference date must be YYYY-MM-DD"
	ErrAlarmMode        = "configuration error: unsupported alarm mode"
	ErrTZSource         = "configuration error: unsupported timezone source"
	ErrUnknownZone      = "configuration error: unknown timezone"
	ErrLanguage         = "configuration error: unsupported language"
	ErrRefreshSchedule  = "configuration error: invalid refresh schedule"
	ErrConfigRead       = "failed to read options file"
	ErrConfigParse      = "failed to parse options file"
	ErrSourceOpen       = "failed to open input"
	ErrSourceRead       = "failed to read input"
	ErrResponseTooLarge = "response exceeds size limit"
	ErrOutputWrite      = "failed to write output"
	ErrFetcherMissing   = "internal error: network fetcher is not initialized"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrCSVEncode        = "failed to encode CSV data"
	ErrRecurrence       = "failed to project yearly recurrence"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrListenRequired   = "server listen address is required"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrCreateDir        = "could not create app cache dir"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrKeyringSave      = "failed to store password in keyring"
	ErrRefreshFailed    = "calendar refresh failed"
	ErrUserRequired     = "a user name is required"
	ErrPasswordRequired = "a password is required"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults
// -----------------------------------------------------------------------------

const (
	FallbackName        = "Unknown"
	FallbackDescription = "Birthday: %s"
	FallbackAlarmText   = "Birthday: %s"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:" + ICalVersion + "\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	MsgSkippedCard   = "Skipping malformed vCard"
	MsgSkippedDate   = "Skipping invalid birthday"
	MsgNoBirthday    = "Contact has no birthday"
	MsgGenSuccess    = "Calendar generation successful"
	MsgCSVSuccess    = "CSV export successful"
	MsgReadSource    = "Reading contacts"
	MsgConvertStart  = "Conversion started"
	MsgOutputWritten = "Output written"
	MsgAppStarting   = "Starting application"
	MsgAppStop       = "Application stopped"
	MsgServerListen  = "HTTP server listening"
	MsgServerStop    = "Shutting down HTTP server..."
	MsgCacheUpdated  = "Calendar cache updated"
	MsgFeedUnchanged = "Calendar content unchanged, keeping validators"
	MsgRefreshRun    = "Calendar refresh scheduled"
	MsgLocaleSkip    = "Skipping non-locale file"
	MsgLocaleBadName = "Skipping malformed locale filename"
	MsgLocaleLoaded  = "Locale loaded successfully"
	MsgTransMissing  = "Missing translation key"
	MsgPassFail      = "Password retrieval failed (might be empty)"
	MsgLogWarning    = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyEvtDescription = "event_description" // Requires Date
	TKeyAlarmText      = "alarm_text"        // Requires Name
	TKeyCalName        = "calendar_name"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeySource    = "source"
	LogKeyOutput    = "output"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyListen    = "listen"
	LogKeyMode      = "mode"
	LogKeyTimezone  = "timezone"
	LogKeySchedule  = "schedule"
	LogKeyUser      = "user"
	LogKeyTotal     = "total_cards"
	LogKeyFound     = "birthdays_found"
	LogKeySkipped   = "birthdays_skipped"
	LogKeyRows      = "rows"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyEvents    = "events"
	LogKeyNext      = "next"
	LogKeyStamp     = "stamp"
	LogKeyFailures  = "consecutive_failures"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyName      = "name"
	LogKeyDuration  = "duration_ms"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompEngine  = "engine"
	CompServer  = "server"
	CompFetcher = "fetcher"
	CompWorker  = "worker"
	CompMain    = "main"
	CompI18n    = "i18n"
	CompOutlook = "outlook"
	CompKeyring = "keyring"
)
