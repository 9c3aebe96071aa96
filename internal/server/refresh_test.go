package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/vcf2ics/internal/config"
	"github.com/tartampluch/vcf2ics/internal/engine"
	"github.com/tartampluch/vcf2ics/internal/tz"
)

// steppingClock advances by an hour on every reading.
func steppingClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Hour)
		return now
	}
}

func TestNewRefresher_InvalidSchedule(t *testing.T) {
	_, err := NewRefresher(NewFeed(), "every now and then", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrRefreshSchedule)
}

func TestRefresher_StampReachesRendererAndFeed(t *testing.T) {
	feed := NewFeed()
	var rendered time.Time
	r, err := NewRefresher(feed, "@every 1h", func(_ context.Context, stamp time.Time) (Build, error) {
		rendered = stamp
		return calendar(stamp, "Ada Lovelace"), nil
	})
	require.NoError(t, err)
	r.now = func() time.Time { return firstBuild.Add(750 * time.Millisecond) }

	require.NoError(t, r.Refresh(context.Background()))

	assert.Equal(t, firstBuild, rendered, "Sub-second precision is dropped like DTSTAMP does")
	st := feed.Status()
	assert.True(t, st.Ready)
	assert.Equal(t, firstBuild, st.LastModified)
	assert.Equal(t, firstBuild, st.LastAttempt)
	assert.Equal(t, firstBuild.Add(time.Hour), st.NextRefresh)
	assert.Empty(t, st.LastError)
}

func TestRefresher_FailureKeepsPreviousCalendar(t *testing.T) {
	feed := NewFeed()
	var failing atomic.Bool
	r, err := NewRefresher(feed, config.DefaultRefresh, func(_ context.Context, stamp time.Time) (Build, error) {
		if failing.Load() {
			return Build{}, errors.New("source unreachable")
		}
		return calendar(stamp, "Ada Lovelace"), nil
	})
	require.NoError(t, err)
	r.now = steppingClock(firstBuild)

	require.NoError(t, r.Refresh(context.Background()))
	published := feed.Status()

	failing.Store(true)
	for range 2 {
		err = r.Refresh(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), config.ErrRefreshFailed)
	}

	st := feed.Status()
	assert.Equal(t, published.ETag, st.ETag, "Subscribers keep the last good calendar")
	assert.Equal(t, firstBuild, st.LastModified)
	assert.Equal(t, 2, st.Failures)
	assert.Equal(t, "source unreachable", st.LastError)

	failing.Store(false)
	require.NoError(t, r.Refresh(context.Background()))
	st = feed.Status()
	assert.Zero(t, st.Failures)
	assert.Empty(t, st.LastError)
}

// TestRefresher_PipedContactsSurviveRebuilds rebuilds a feed fed from
// standard input, which can only be read once.
func TestRefresher_PipedContactsSurviveRebuilds(t *testing.T) {
	gen := &engine.Generator{
		Stdin: strings.NewReader("BEGIN:VCARD\r\nVERSION:3.0\r\nN:Lovelace;Ada;;;\r\nBDAY:1815-12-10\r\nEND:VCARD\r\n"),
	}
	cfg := engine.ConvertConfig{
		Sources:  engine.NewSources([]string{config.StdStream}, "", ""),
		Zone:     tz.UTC,
		Reminder: config.ReminderTime{Hour: 9},
	}

	feed := NewFeed()
	r, err := NewRefresher(feed, config.DefaultRefresh, func(ctx context.Context, stamp time.Time) (Build, error) {
		run := cfg
		run.Stamp = stamp
		data, stats, err := gen.Convert(ctx, run)
		return Build{Data: data, Events: stats.Birthdays}, err
	})
	require.NoError(t, err)
	r.now = steppingClock(firstBuild)

	for range 3 {
		require.NoError(t, r.Refresh(context.Background()))
		assert.Equal(t, 1, feed.Status().Events)
	}
	assert.Equal(t, firstBuild, feed.Status().LastModified, "Same contacts, same edition")

	resp := get(t, feed.Handler(), http.MethodGet, config.RouteRoot, nil)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "SUMMARY:Ada Lovelace")
}

func TestRefresher_RunsOnSchedule(t *testing.T) {
	var calls atomic.Int32
	feed := NewFeed()
	r, err := NewRefresher(feed, "@every 1s", func(_ context.Context, stamp time.Time) (Build, error) {
		calls.Add(1)
		return calendar(stamp, "Ada Lovelace"), nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	assert.True(t, feed.Status().Ready)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
