package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tartampluch/vcf2ics/internal/config"
)

// Build is one rendered calendar document.
type Build struct {
	Data   []byte
	Events int
}

// edition is the calendar currently handed to subscribers.
type edition struct {
	data     []byte
	etag     string
	modified time.Time
	events   int
}

// Status reports the feed state on config.RouteStatus.
type Status struct {
	Ready        bool      `json:"ready"`
	Events       int       `json:"events"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified,omitzero"`
	LastAttempt  time.Time `json:"last_attempt,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
	Failures     int       `json:"consecutive_failures"`
	NextRefresh  time.Time `json:"next_refresh,omitzero"`
}

// attempt is the outcome of the latest rebuild.
type attempt struct {
	at       time.Time
	next     time.Time
	err      error
	failures int
}

// Feed serves the latest birthday calendar to subscribed clients.
//
// Validators follow the calendar content, not the rebuild cadence: a rebuild
// that only moves DTSTAMP keeps the previous edition, so clients polling with
// If-None-Match or If-Modified-Since keep getting 304.
type Feed struct {
	current atomic.Pointer[edition]

	mu   sync.Mutex
	last attempt
}

// NewFeed returns an empty feed; it answers 503 until the first Publish.
func NewFeed() *Feed {
	return &Feed{}
}

// Publish makes b the served calendar, stamped with the DTSTAMP it was
// rendered with. It reports false when b only differs from the served
// edition by its DTSTAMP.
func (f *Feed) Publish(b Build, stamp time.Time) bool {
	etag := fingerprint(b.Data)
	if cur := f.current.Load(); cur != nil && cur.etag == etag {
		slog.Debug(config.MsgFeedUnchanged,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyETag, etag)
		return false
	}

	f.current.Store(&edition{
		data:     b.Data,
		etag:     etag,
		modified: stamp.UTC().Truncate(time.Second),
		events:   b.Events,
	})
	slog.Info(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyEvents, b.Events,
		config.LogKeySizeBytes, len(b.Data),
		config.LogKeyETag, etag,
		config.LogKeyStamp, stamp.UTC().Format(time.RFC3339))
	return true
}

// fingerprint hashes the document without its DTSTAMP lines.
func fingerprint(data []byte) string {
	h := sha256.New()
	for line := range bytes.Lines(data) {
		if bytes.HasPrefix(line, []byte(config.PropDTStamp)) {
			continue
		}
		h.Write(line)
	}
	return fmt.Sprintf(config.FormatETag, hex.EncodeToString(h.Sum(nil)))
}

func (f *Feed) record(at, next time.Time, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	failures := 0
	if err != nil {
		failures = f.last.failures + 1
	}
	f.last = attempt{at: at, next: next, err: err, failures: failures}
}

// Status returns a consistent view of the served edition and the latest rebuild.
func (f *Feed) Status() Status {
	f.mu.Lock()
	last := f.last
	f.mu.Unlock()

	st := Status{
		LastAttempt: last.at,
		NextRefresh: last.next,
		Failures:    last.failures,
	}
	if last.err != nil {
		st.LastError = last.err.Error()
	}
	if cur := f.current.Load(); cur != nil {
		st.Ready = true
		st.Events = cur.events
		st.ETag = cur.etag
		st.LastModified = cur.modified
	}
	return st
}

// Handler routes the calendar and the status document.
func (f *Feed) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteStatus, f.serveStatus)
	mux.HandleFunc(config.RouteRoot, f.serveCalendar)
	return mux
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (f *Feed) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New(config.ErrListenRequired)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
	return f.Serve(ctx, ln)
}

// Serve answers on ln until ctx is cancelled, then shuts down gracefully.
func (f *Feed) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      f.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)
	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyListen, ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil
	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// serveCalendar leaves conditional requests and HEAD to http.ServeContent,
// which compares against the ETag set here and the edition's DTSTAMP.
func (f *Feed) serveCalendar(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r) {
		return
	}

	cur := f.current.Load()
	if cur == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	h := w.Header()
	h.Set(config.HeaderContentType, config.MimeTextCalendar)
	h.Set(config.HeaderXContentType, config.MimeNoSniff)
	h.Set(config.HeaderContentDisposition, config.DispositionICS)
	h.Set(config.HeaderCacheControl, config.CacheControlPrivate)
	h.Set(config.HeaderETag, cur.etag)
	http.ServeContent(w, r, "", cur.modified, bytes.NewReader(cur.data))
}

func (f *Feed) serveStatus(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r) {
		return
	}
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	if r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(f.Status()); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err)
	}
}

func allowed(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set(config.HeaderAllow, config.AllowedMethods)
	http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
	return false
}
