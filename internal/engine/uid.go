package engine

import (
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/tartampluch/vcf2ics/internal/config"
	"golang.org/x/text/unicode/norm"
)

// EventUID derives the event identifier of a birthday.
// The same name and date always give the same UID, so re-importing a
// regenerated calendar updates events instead of duplicating them.
// Names are NFC-normalized first: composed and decomposed spellings of the
// same name must not produce two events.
func EventUID(name string, birthDate time.Time) string {
	input := norm.NFC.String(name) + config.UIDSeparator + birthDate.Format(config.DateFormatFullDash)
	sum := sha1.Sum([]byte(input))
	return config.ICalUIDPrefix + hex.EncodeToString(sum[:]) + config.ICalUIDDomain
}
