package engine

import (
	"strings"

	"github.com/tartampluch/vcf2ics/internal/config"
)

// Source is one address book to read: a file path, config.StdStream for
// standard input, or an http(s) URL.
type Source struct {
	Location string
	User     string
	Password string
}

// IsRemote reports whether the source is fetched over HTTP.
func (s Source) IsRemote() bool {
	loc := strings.ToLower(s.Location)
	return strings.HasPrefix(loc, config.SchemeHTTP+config.SchemeSeparator) ||
		strings.HasPrefix(loc, config.SchemeHTTPS+config.SchemeSeparator)
}

// IsStdin reports whether the source is standard input.
func (s Source) IsStdin() bool {
	return s.Location == config.StdStream
}

// NewSources builds sources in argument order; credentials only apply to
// remote ones.
func NewSources(locations []string, user, password string) []Source {
	sources := make([]Source, 0, len(locations))
	for _, loc := range locations {
		src := Source{Location: strings.TrimSpace(loc)}
		if src.IsRemote() {
			src.User, src.Password = user, password
		}
		sources = append(sources, src)
	}
	return sources
}
