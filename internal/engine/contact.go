package engine

import "time"

// Phones groups telephone numbers by usage category.
type Phones struct {
	Mobile string
	Work   string
	Home   string
}

// ContactRecord is the normalized form of one parsed vCard.
// It is shared by the calendar pipeline and the CSV export.
type ContactRecord struct {
	// DisplayName is given + family name, then FN, then config.FallbackName.
	DisplayName string

	GivenName    string
	FamilyName   string
	Organization string
	JobTitle     string
	Emails       []string
	Phones       Phones
	Note         string

	// RawBirthday is the literal BDAY value, empty when the card has none.
	RawBirthday string

	// BirthDate is nil when the card has no birthday or it cannot be parsed.
	BirthDate *time.Time
}

// HasBirthday reports whether the record carries a valid birth date.
func (c ContactRecord) HasBirthday() bool {
	return c.BirthDate != nil
}
