package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/vcf2ics/internal/config"
)

// maxConsecutiveDecodeErrors stops decoding a stream that is not vCard at all.
const maxConsecutiveDecodeErrors = 64

// textUnescaper undoes the TEXT escapes go-vcard leaves in place.
var textUnescaper = strings.NewReplacer(`\;`, ";", `\,`, ",")

// streamReader remembers the first I/O failure of the source so it can be
// told apart from a malformed card.
type streamReader struct {
	r   io.Reader
	err error
}

func (s *streamReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && s.err == nil {
		s.err = err
	}
	return n, err
}

// ReadContacts decodes every vCard of r into contact records.
// Malformed cards are logged and skipped so one bad entry does not cost the
// rest of the address book. A failing stream aborts the whole read.
func ReadContacts(ctx context.Context, r io.Reader) ([]ContactRecord, error) {
	stream := &streamReader{r: r}
	decoder := vcard.NewDecoder(stream)
	var (
		records  []ContactRecord
		failures int
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if stream.err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrSourceRead, stream.err)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			failures++
			if failures >= maxConsecutiveDecodeErrors {
				return nil, fmt.Errorf("%s: %w", config.ErrSourceRead, err)
			}
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyError, err)
			continue
		}
		failures = 0

		records = append(records, NewContactRecord(card))
	}
	return records, nil
}

// NewContactRecord maps a decoded card onto the normalized model.
func NewContactRecord(card vcard.Card) ContactRecord {
	rec := ContactRecord{
		JobTitle: strings.TrimSpace(card.Value(vcard.FieldTitle)),
		Note:     textUnescaper.Replace(card.Value(vcard.FieldNote)),
	}

	if n := card.Name(); n != nil {
		rec.GivenName = strings.TrimSpace(n.GivenName)
		rec.FamilyName = strings.TrimSpace(n.FamilyName)
	}
	rec.DisplayName = displayName(rec.GivenName, rec.FamilyName, card.Value(vcard.FieldFormattedName))

	if org := card.Value(vcard.FieldOrganization); org != "" {
		rec.Organization = joinNonEmpty(strings.Split(org, config.OrgSeparator))
	}

	for _, f := range card[vcard.FieldEmail] {
		if v := strings.TrimSpace(f.Value); v != "" {
			rec.Emails = append(rec.Emails, v)
		}
	}

	// Later numbers of a category replace earlier ones.
	for _, f := range card[vcard.FieldTelephone] {
		switch {
		case hasType(f, vcard.TypeCell):
			rec.Phones.Mobile = f.Value
		case hasType(f, vcard.TypeWork):
			rec.Phones.Work = f.Value
		case hasType(f, vcard.TypeHome):
			rec.Phones.Home = f.Value
		}
	}

	if bday := card.Get(vcard.FieldBirthday); bday != nil {
		rec.RawBirthday = strings.TrimSpace(bday.Value)
		if d, ok := ExtractDate(rec.RawBirthday); ok {
			rec.BirthDate = &d
		}
	}
	return rec
}

func displayName(given, family, formatted string) string {
	if name := joinNonEmpty([]string{given, family}); name != "" {
		return name
	}
	if formatted = strings.TrimSpace(formatted); formatted != "" {
		return formatted
	}
	return config.FallbackName
}

func joinNonEmpty(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, config.NameSeparator)
}

// hasType reports whether a field carries the given TYPE, accepting both
// TYPE=cell,voice lists and vCard 2.1 bare parameters (TEL;CELL:...).
func hasType(f *vcard.Field, want string) bool {
	for _, t := range f.Params.Types() {
		for _, part := range strings.Split(t, ",") {
			if strings.EqualFold(strings.TrimSpace(part), want) {
				return true
			}
		}
	}
	for key := range f.Params {
		if strings.EqualFold(key, want) {
			return true
		}
	}
	return false
}
