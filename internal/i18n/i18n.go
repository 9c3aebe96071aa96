// Package i18n provides the localized texts of generated calendars.
package i18n

import (
	"embed"
	"encoding/json"
	"log/slog"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/vcf2ics/internal/config"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const (
	localeDir    = "locales"
	localePrefix = "active."
	localeSuffix = ".json"
)

// Translator renders event texts in one language.
// It satisfies engine.Texts.
type Translator struct {
	localizer *goi18n.Localizer
	languages []string
}

// New loads the embedded locales and selects lang. Unknown languages fall
// back to English through the bundle's default.
func New(lang string) *Translator {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{}

	entries, err := localeFS.ReadDir(localeDir)
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, localePrefix) || !strings.HasSuffix(name, localeSuffix) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, localePrefix), localeSuffix)
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, localeDir+"/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		t.languages = append(t.languages, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
		)
	}

	if lang == "" {
		lang = config.DefaultLanguage
	}
	t.localizer = goi18n.NewLocalizer(bundle, lang)
	return t
}

// Languages lists the languages found in the embedded locales.
func (t *Translator) Languages() []string {
	return t.languages
}

// Description is the event body for a birth date in ISO form.
func (t *Translator) Description(birthDate string) string {
	return t.msg(config.TKeyEvtDescription, map[string]string{"Date": birthDate})
}

// AlarmText is the reminder text for a contact.
func (t *Translator) AlarmText(name string) string {
	return t.msg(config.TKeyAlarmText, map[string]string{"Name": name})
}

// CalendarName is the X-WR-CALNAME of the document.
func (t *Translator) CalendarName() string {
	return t.msg(config.TKeyCalName, nil)
}

// msg translates a key and returns the key itself when it is missing.
func (t *Translator) msg(key string, data map[string]string) string {
	out, err := t.localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return out
}
