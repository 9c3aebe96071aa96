package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/vcf2ics/internal/config"
	"github.com/tartampluch/vcf2ics/internal/tz"
	"github.com/zalando/go-keyring"
)

const adaVCF = "BEGIN:VCARD\r\nVERSION:3.0\r\nN:Lovelace;Ada;;;\r\nFN:Ada Lovelace\r\nBDAY:1815-12-10\r\nEND:VCARD\r\n"

// runApp executes the CLI with args and returns what it wrote to stdout.
func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	var closer io.Closer
	app := newApp(&closer)
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)

	err := app.RunContext(context.Background(), append([]string{config.AppName}, args...))
	if closer != nil {
		_ = closer.Close()
	}
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestICS_ToFile(t *testing.T) {
	input := writeFile(t, "contacts.vcf", adaVCF)
	output := filepath.Join(t.TempDir(), "birthdays.ics")

	_, err := runApp(t, "", config.CmdICS, "-i", input, "-o", output, "--reference-date", "2024-03-01")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	ics := string(data)
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20241210")
	assert.Contains(t, ics, "TRIGGER;VALUE=DATE-TIME:20241210T090000Z")
}

func TestICS_StdinToStdout(t *testing.T) {
	out, err := runApp(t, adaVCF, config.CmdICS, "--reference-date", "2024-03-01", "--lang", "fr", config.StdStream)
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "DESCRIPTION:Anniversaire : 1815-12-10")
}

func TestICS_RelativeMode(t *testing.T) {
	input := writeFile(t, "contacts.vcf", adaVCF)
	out, err := runApp(t, "", config.CmdICS, "--alarm-mode", "relative", "--reminder-time", "08:15", input)
	require.NoError(t, err)
	assert.Contains(t, out, "TRIGGER:PT8H15M")
}

func TestICS_ConfigErrorsBeforeIO(t *testing.T) {
	output := filepath.Join(t.TempDir(), "never.ics")
	missing := filepath.Join(t.TempDir(), "missing.vcf")

	tests := []struct {
		name string
		args []string
	}{
		{"Reminder", []string{"--reminder-time", "9am"}},
		{"Mode", []string{"--alarm-mode", "sometimes"}},
		{"Reference", []string{"--reference-date", "03/01/2024"}},
		{"Language", []string{"--lang", "xx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{config.CmdICS, "-o", output}, tt.args...)
			_, err := runApp(t, "", append(args, missing)...)
			require.Error(t, err)
			assert.NotContains(t, err.Error(), missing, "Configuration fails before the input is opened")
			assert.NoFileExists(t, output)
		})
	}
}

func TestICS_UnknownTimezone(t *testing.T) {
	input := writeFile(t, "contacts.vcf", adaVCF)
	_, err := runApp(t, "", config.CmdICS, "--timezone", "Mars/Olympus_Mons", input)
	assert.ErrorIs(t, err, tz.ErrUnknownZone)
}

func TestICS_OptionsFile(t *testing.T) {
	input := writeFile(t, "contacts.vcf", adaVCF)
	cfg := writeFile(t, "vcf2ics.yaml", strings.Join([]string{
		"inputs: [" + input + "]",
		"reference_date: \"2024-03-01\"",
		"timezone: Europe/Berlin",
		"reminder_time: \"10:30\"",
		"utc_triggers: true",
	}, "\n"))

	out, err := runApp(t, "", config.CmdICS, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "TRIGGER;VALUE=DATE-TIME:20241210T093000Z", "10:30 CET is 09:30 UTC")

	// Flags override the file.
	out, err = runApp(t, "", config.CmdICS, "--config", cfg, "--reminder-time", "11:00")
	require.NoError(t, err)
	assert.Contains(t, out, "TRIGGER;VALUE=DATE-TIME:20241210T100000Z")
}

func TestCSV_Export(t *testing.T) {
	input := writeFile(t, "contacts.vcf", adaVCF+"BEGIN:VCARD\r\nVERSION:3.0\r\nN:Doe;John;;;\r\nEND:VCARD\r\n")
	out, err := runApp(t, "", config.CmdCSV, input)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "\ufeffTitle,First Name"))
	assert.Contains(t, out, "12/10/1815")
	assert.Equal(t, 3, strings.Count(out, "\r\n"), "Header plus one row per contact")
}

func TestLogin_StoresPassword(t *testing.T) {
	keyring.MockInit()

	_, err := runApp(t, "s3cret\n", config.CmdLogin, "--user", "ada")
	require.NoError(t, err)

	stored, err := keyring.Get(config.KeyringService, "ada")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", stored)
}

func TestLogin_EmptyPassword(t *testing.T) {
	keyring.MockInit()

	_, err := runApp(t, "\n", config.CmdLogin, "--user", "ada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrPasswordRequired)
}

func TestServe_InvalidSchedule(t *testing.T) {
	input := writeFile(t, "contacts.vcf", adaVCF)
	_, err := runApp(t, "", config.CmdServe, "--refresh", "whenever", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrRefreshSchedule)
}
