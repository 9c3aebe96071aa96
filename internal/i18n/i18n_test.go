package i18n_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/vcf2ics/internal/config"
	"github.com/tartampluch/vcf2ics/internal/engine"
	"github.com/tartampluch/vcf2ics/internal/i18n"
)

var _ engine.Texts = (*i18n.Translator)(nil)

func TestTranslator_English(t *testing.T) {
	tr := i18n.New("en")

	assert.Equal(t, "Birthday: 1815-12-10", tr.Description("1815-12-10"))
	assert.Equal(t, "Birthday of Ada Lovelace", tr.AlarmText("Ada Lovelace"))
	assert.Equal(t, "Birthdays", tr.CalendarName())
}

func TestTranslator_French(t *testing.T) {
	tr := i18n.New("fr")

	assert.Equal(t, "Anniversaire : 1815-12-10", tr.Description("1815-12-10"))
	assert.Equal(t, "Anniversaire de Ada Lovelace", tr.AlarmText("Ada Lovelace"))
	assert.Equal(t, "Anniversaires", tr.CalendarName())
}

func TestTranslator_UnknownLanguageFallsBack(t *testing.T) {
	tr := i18n.New("xx")
	assert.Equal(t, "Birthday: 2000-02-29", tr.Description("2000-02-29"))

	tr = i18n.New("")
	assert.Equal(t, "Birthdays", tr.CalendarName())
}

func TestTranslator_EnglishMatchesFallbacks(t *testing.T) {
	tr := i18n.New("en")
	assert.Equal(t, "Birthday: 1990-01-01", tr.Description("1990-01-01"))
	assert.Equal(t, config.ICalCalName, tr.CalendarName())
}

func TestTranslator_Languages(t *testing.T) {
	assert.ElementsMatch(t, config.SupportedLanguages, i18n.New("en").Languages(),
		"Every supported language ships a locale file")
}

// TestI18nIntegrity ensures every translation key in config exists in every
// locale file.
func TestI18nIntegrity(t *testing.T) {
	keys := []string{
		config.TKeyEvtDescription,
		config.TKeyAlarmText,
		config.TKeyCalName,
	}

	for _, lang := range config.SupportedLanguages {
		t.Run(lang, func(t *testing.T) {
			content, err := os.ReadFile(filepath.Join("locales", "active."+lang+".json"))
			require.NoError(t, err)

			var messages map[string]string
			require.NoError(t, json.Unmarshal(content, &messages))

			for _, k := range keys {
				assert.NotEmpty(t, messages[k], "missing key %q", k)
			}
			assert.Len(t, messages, len(keys), "Locale file has orphan keys")
		})
	}
}
