package engine

import (
	"strings"
	"time"

	"github.com/tartampluch/vcf2ics/internal/config"
)

// birthdayLayouts lists the accepted BDAY encodings, tried in order.
var birthdayLayouts = []string{
	config.DateFormatFullDash,
	config.DateFormatFullBasic,
}

// ExtractDate parses a vCard birthday value.
// It returns false for empty or malformed values; a bad birthday only means
// the contact has no birthday, so this never fails.
func ExtractDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range birthdayLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
