package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tartampluch/vcf2ics/internal/config"
	"github.com/tartampluch/vcf2ics/internal/credentials"
	"github.com/tartampluch/vcf2ics/internal/engine"
	"github.com/tartampluch/vcf2ics/internal/i18n"
	"github.com/tartampluch/vcf2ics/internal/outlook"
	"github.com/tartampluch/vcf2ics/internal/server"
	"github.com/tartampluch/vcf2ics/internal/tz"
	"github.com/urfave/cli/v2"
)

// main delegates to runMain so deferred calls (closing the log file) run
// before the process exits.
func main() {
	os.Exit(runMain(os.Args))
}

func runMain(args []string) int {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var logCloser io.Closer
	defer func() {
		if logCloser != nil {
			_ = logCloser.Close() // Best effort close
		}
	}()

	if err := newApp(&logCloser).RunContext(ctx, args); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}
	return config.ExitCodeSuccess
}

func newApp(logCloser *io.Closer) *cli.App {
	return &cli.App{
		Name:    config.AppName,
		Usage:   config.AppUsage,
		Version: config.Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: config.FlagDebug, Usage: config.FlagDescDebug, EnvVars: []string{config.EnvDebug}},
		},
		Before: func(c *cli.Context) error {
			*logCloser = setupLogging(c.Bool(config.FlagDebug), c.App.ErrWriter)
			logStartupInfo()
			return nil
		},
		Commands: []*cli.Command{
			icsCommand(),
			csvCommand(),
			serveCommand(),
			loginCommand(),
		},
	}
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

func icsCommand() *cli.Command {
	return &cli.Command{
		Name:      config.CmdICS,
		Usage:     config.CmdDescICS,
		ArgsUsage: "[input...]",
		Flags:     conversionFlags(),
		Action: func(c *cli.Context) error {
			run, err := prepare(c)
			if err != nil {
				return err
			}
			data, _, err := run.generator.Convert(c.Context, run.convert)
			if err != nil {
				return err
			}
			return writeOutput(run.settings.Output, data, c.App.Writer)
		},
	}
}

func csvCommand() *cli.Command {
	return &cli.Command{
		Name:      config.CmdCSV,
		Usage:     config.CmdDescCSV,
		ArgsUsage: "[input...]",
		Flags:     conversionFlags(),
		Action: func(c *cli.Context) error {
			run, err := prepare(c)
			if err != nil {
				return err
			}
			records, err := run.generator.LoadContacts(c.Context, run.convert.Sources)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if _, err := outlook.Write(&buf, records); err != nil {
				return err
			}
			return writeOutput(run.settings.Output, buf.Bytes(), c.App.Writer)
		},
	}
}

func serveCommand() *cli.Command {
	flags := append(conversionFlags(),
		&cli.StringFlag{Name: config.FlagListen, Usage: config.FlagDescListen, EnvVars: []string{config.EnvListen}},
		&cli.StringFlag{Name: config.FlagRefresh, Usage: config.FlagDescRefresh, EnvVars: []string{config.EnvRefresh}},
	)
	return &cli.Command{
		Name:      config.CmdServe,
		Usage:     config.CmdDescServe,
		ArgsUsage: "[input...]",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			run, err := prepare(c)
			if err != nil {
				return err
			}

			feed := server.NewFeed()
			refresher, err := server.NewRefresher(feed, run.settings.Refresh, func(ctx context.Context, stamp time.Time) (server.Build, error) {
				cfg := run.convert
				cfg.Stamp = stamp
				data, stats, err := run.generator.Convert(ctx, cfg)
				return server.Build{Data: data, Events: stats.Birthdays}, err
			})
			if err != nil {
				return err
			}

			// The first calendar must build; later failures keep the last one online.
			if err := refresher.Refresh(c.Context); err != nil {
				return err
			}
			go refresher.Run(c.Context)

			return feed.ListenAndServe(c.Context, run.settings.Listen)
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  config.CmdLogin,
		Usage: config.CmdDescLogin,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: config.FlagUser, Usage: config.FlagDescUser, EnvVars: []string{config.EnvUser}, Required: true},
			&cli.StringFlag{Name: config.FlagPassword, Usage: config.FlagDescPassword, EnvVars: []string{config.EnvPassword}},
		},
		Action: func(c *cli.Context) error {
			user := c.String(config.FlagUser)
			password := c.String(config.FlagPassword)
			if password == "" {
				fmt.Fprintf(c.App.ErrWriter, config.MsgPasswordPrompt, user)
				line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("%s: %w", config.ErrPasswordRequired, err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New(config.ErrPasswordRequired)
			}
			return credentials.Store(user, password)
		},
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

func conversionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: config.FlagConfig, Usage: config.FlagDescConfig, EnvVars: []string{config.EnvConfig}},
		&cli.StringSliceFlag{Name: config.FlagInput, Aliases: []string{config.FlagAliasInput}, Usage: config.FlagDescInput},
		&cli.StringFlag{Name: config.FlagOutput, Aliases: []string{config.FlagAliasOutput}, Usage: config.FlagDescOutput, EnvVars: []string{config.EnvOutput}},
		&cli.StringFlag{Name: config.FlagReferenceDate, Usage: config.FlagDescReferenceDate, EnvVars: []string{config.EnvReferenceDate}},
		&cli.StringFlag{Name: config.FlagTimezone, Usage: config.FlagDescTimezone, EnvVars: []string{config.EnvTimezone}},
		&cli.StringFlag{Name: config.FlagTZSource, Usage: config.FlagDescTZSource, EnvVars: []string{config.EnvTZSource}},
		&cli.StringFlag{Name: config.FlagReminderTime, Usage: config.FlagDescReminderTime, EnvVars: []string{config.EnvReminderTime}},
		&cli.StringFlag{Name: config.FlagAlarmMode, Usage: config.FlagDescAlarmMode, EnvVars: []string{config.EnvAlarmMode}},
		&cli.BoolFlag{Name: config.FlagUTCTriggers, Usage: config.FlagDescUTCTriggers, EnvVars: []string{config.EnvUTCTriggers}},
		&cli.StringFlag{Name: config.FlagLang, Usage: config.FlagDescLang, EnvVars: []string{config.EnvLang}},
		&cli.StringFlag{Name: config.FlagUser, Usage: config.FlagDescUser, EnvVars: []string{config.EnvUser}},
		&cli.StringFlag{Name: config.FlagPassword, Usage: config.FlagDescPassword, EnvVars: []string{config.EnvPassword}},
	}
}

// loadOptions layers flags and environment over the options file.
func loadOptions(c *cli.Context) (config.Options, error) {
	opts, err := config.LoadFile(c.String(config.FlagConfig))
	if err != nil {
		return opts, err
	}

	inputs := append(c.StringSlice(config.FlagInput), c.Args().Slice()...)
	if len(inputs) > 0 {
		opts.Inputs = inputs
	}

	override := func(flag string, dst *string) {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	override(config.FlagOutput, &opts.Output)
	override(config.FlagReferenceDate, &opts.ReferenceDate)
	override(config.FlagTimezone, &opts.Timezone)
	override(config.FlagTZSource, &opts.TZSource)
	override(config.FlagReminderTime, &opts.ReminderTime)
	override(config.FlagAlarmMode, &opts.AlarmMode)
	override(config.FlagLang, &opts.Language)
	override(config.FlagUser, &opts.User)
	override(config.FlagPassword, &opts.Password)
	override(config.FlagListen, &opts.Listen)
	override(config.FlagRefresh, &opts.Refresh)
	if c.IsSet(config.FlagUTCTriggers) {
		opts.UTCTriggers = c.Bool(config.FlagUTCTriggers)
	}
	return opts, nil
}

// runContext is a validated, fully wired conversion run.
type runContext struct {
	settings  config.Settings
	convert   engine.ConvertConfig
	generator *engine.Generator
}

// prepare validates every option before any input is read or output written.
func prepare(c *cli.Context) (*runContext, error) {
	opts, err := loadOptions(c)
	if err != nil {
		return nil, err
	}
	settings, err := opts.Validate()
	if err != nil {
		return nil, err
	}
	zone, err := tz.Load(settings.Timezone, settings.TZSource)
	if err != nil {
		return nil, err
	}
	mode, err := engine.ParseAlarmMode(settings.AlarmMode)
	if err != nil {
		return nil, err
	}

	slog.Debug("Configuration resolved",
		config.LogKeyComponent, config.CompMain,
		config.LogKeyTimezone, zone.ID(),
		config.LogKeyMode, mode.String(),
		config.LogKeyLang, settings.Language,
	)

	password := credentials.Resolve(settings.User, settings.Password)
	return &runContext{
		settings: settings,
		convert: engine.ConvertConfig{
			Sources:       engine.NewSources(settings.Inputs, settings.User, password),
			ReferenceDate: settings.ReferenceDate,
			Zone:          zone,
			Reminder:      settings.Reminder,
			AlarmMode:     mode,
			UTCTriggers:   settings.UTCTriggers,
		},
		generator: &engine.Generator{
			Clock:   engine.RealClock{},
			Fetcher: engine.NewHTTPFetcher(),
			Texts:   i18n.New(settings.Language),
			Stdin:   c.App.Reader,
		},
	}, nil
}

// writeOutput writes data to path, or to stdout for config.StdStream.
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == config.StdStream {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("%s: %w", config.ErrOutputWrite, err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, config.FilePermOutput); err != nil {
		return fmt.Errorf("%s %q: %w", config.ErrOutputWrite, path, err)
	}
	slog.Info(config.MsgOutputWritten,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyOutput, path,
		config.LogKeySizeBytes, len(data),
	)
	return nil
}

// -----------------------------------------------------------------------------
// Logging
// -----------------------------------------------------------------------------

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Debug(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger. Logs go to stderr since
// stdout may carry the generated document.
func setupLogging(debugMode bool, stderr io.Writer) io.Closer {
	writers := []io.Writer{stderr}
	var logFile *os.File

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on every run to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts)))

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return filepath.Join(appDir, config.LogFileName), nil
}
