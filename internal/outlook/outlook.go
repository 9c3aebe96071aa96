// Package outlook exports contacts using the Outlook CSV import template.
package outlook

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tartampluch/vcf2ics/internal/config"
	"github.com/tartampluch/vcf2ics/internal/engine"
)

// utf8BOM lets Excel and Outlook detect the encoding.
const utf8BOM = "\ufeff"

// Headers is the column set of the Microsoft import template, in its order.
var Headers = []string{
	"Title", "First Name", "Middle Name", "Last Name", "Suffix", "Company", "Department",
	"Job Title", "Business Street", "Business Street 2", "Business Street 3",
	"Business City", "Business State", "Business Postal Code", "Business Country/Region",
	"Home Street", "Home Street 2", "Home Street 3", "Home City", "Home State",
	"Home Postal Code", "Home Country/Region",
	"Other Street", "Other Street 2", "Other Street 3", "Other City", "Other State",
	"Other Postal Code", "Other Country/Region",
	"Assistant's Phone", "Business Fax", "Business Phone", "Business Phone 2", "Callback",
	"Car Phone", "Company Main Phone", "Home Fax", "Home Phone", "Home Phone 2", "ISDN",
	"Mobile Phone", "Other Fax", "Other Phone", "Pager", "Primary Phone", "Radio Phone",
	"TTY/TDD Phone", "Telex", "Account", "Anniversary", "Assistant's Name",
	"Billing Information", "Birthday", "Business Address PO Box", "Categories", "Children",
	"Directory Server", "E-mail Address", "E-mail Type", "E-mail Display Name",
	"E-mail 2 Address", "E-mail 2 Type", "E-mail 2 Display Name",
	"E-mail 3 Address", "E-mail 3 Type", "E-mail 3 Display Name",
	"Gender", "Government ID Number", "Hobby", "Home Address PO Box", "Initials",
	"Internet Free Busy", "Keywords", "Language", "Location", "Manager's Name", "Mileage",
	"Notes", "Office Location", "Organizational ID Number", "Other Address PO Box",
	"Priority", "Private", "Profession", "Referred By", "Sensitivity", "Spouse",
	"User 1", "User 2", "User 3", "User 4", "Web Page",
}

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(Headers))
	for i, h := range Headers {
		m[h] = i
	}
	return m
}()

// Row maps a contact onto the template columns. Unmapped columns stay empty.
func Row(rec engine.ContactRecord) []string {
	row := make([]string, len(Headers))
	set := func(column, value string) {
		row[columnIndex[column]] = value
	}

	set("First Name", rec.GivenName)
	set("Last Name", rec.FamilyName)
	set("Company", rec.Organization)
	set("Job Title", rec.JobTitle)
	if len(rec.Emails) > 0 {
		set("E-mail Address", rec.Emails[0])
	}
	set("Mobile Phone", rec.Phones.Mobile)
	set("Business Phone", rec.Phones.Work)
	set("Home Phone", rec.Phones.Home)
	if rec.HasBirthday() {
		set("Birthday", rec.BirthDate.Format(config.DateFormatOutlook))
	}
	set("Notes", flatten(rec.Note))
	return row
}

// flatten puts a multi-line note on one line.
func flatten(note string) string {
	return strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(note))
}

// Write emits the BOM, the header and one CRLF-terminated row per contact,
// birthday or not. It returns the number of data rows written.
func Write(w io.Writer, records []engine.ContactRecord) (int, error) {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrCSVEncode, err)
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(Headers); err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrCSVEncode, err)
	}
	for _, rec := range records {
		if err := cw.Write(Row(rec)); err != nil {
			return 0, fmt.Errorf("%s: %w", config.ErrCSVEncode, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrCSVEncode, err)
	}

	slog.Info(config.MsgCSVSuccess,
		config.LogKeyComponent, config.CompOutlook,
		config.LogKeyRows, len(records))
	return len(records), nil
}
