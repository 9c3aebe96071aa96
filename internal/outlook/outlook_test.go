package outlook_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/vcf2ics/internal/config"
	"github.com/tartampluch/vcf2ics/internal/engine"
	"github.com/tartampluch/vcf2ics/internal/outlook"
)

func column(t *testing.T, row []string, name string) string {
	t.Helper()
	for i, h := range outlook.Headers {
		if h == name {
			return row[i]
		}
	}
	t.Fatalf("unknown column %q", name)
	return ""
}

func TestHeaders_MicrosoftOrder(t *testing.T) {
	require.Len(t, outlook.Headers, 92)
	assert.Equal(t, "Title", outlook.Headers[0])
	assert.Equal(t, "First Name", outlook.Headers[1])
	assert.Equal(t, "Last Name", outlook.Headers[3])
	assert.Equal(t, "Birthday", outlook.Headers[52])
	assert.Equal(t, "E-mail Address", outlook.Headers[57])
	assert.Equal(t, "Notes", outlook.Headers[77])
	assert.Equal(t, "Web Page", outlook.Headers[len(outlook.Headers)-1])
}

func TestRow_FieldMapping(t *testing.T) {
	birth := time.Date(1815, time.December, 10, 0, 0, 0, 0, time.UTC)
	rec := engine.ContactRecord{
		GivenName:    "Ada",
		FamilyName:   "Lovelace",
		Organization: "Analytical Engines Research",
		JobTitle:     "Mathematician",
		Emails:       []string{"ada@example.com", "other@example.com"},
		Phones:       engine.Phones{Mobile: "+44 1", Work: "+44 2", Home: "+44 3"},
		Note:         "First line\nsecond line\r\nthird ",
		BirthDate:    &birth,
	}

	row := outlook.Row(rec)
	require.Len(t, row, len(outlook.Headers))

	assert.Equal(t, "Ada", column(t, row, "First Name"))
	assert.Equal(t, "Lovelace", column(t, row, "Last Name"))
	assert.Equal(t, "Analytical Engines Research", column(t, row, "Company"))
	assert.Equal(t, "Mathematician", column(t, row, "Job Title"))
	assert.Equal(t, "ada@example.com", column(t, row, "E-mail Address"))
	assert.Empty(t, column(t, row, "E-mail 2 Address"))
	assert.Equal(t, "+44 1", column(t, row, "Mobile Phone"))
	assert.Equal(t, "+44 2", column(t, row, "Business Phone"))
	assert.Equal(t, "+44 3", column(t, row, "Home Phone"))
	assert.Equal(t, "12/10/1815", column(t, row, "Birthday"))
	assert.Equal(t, "First line second line third", column(t, row, "Notes"))
}

func TestWrite_Document(t *testing.T) {
	birth := time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC)
	records := []engine.ContactRecord{
		{GivenName: "Jane", FamilyName: "Doe", Organization: "Acme, Inc", BirthDate: &birth},
		{GivenName: "No", FamilyName: "Birthday"},
	}

	var buf bytes.Buffer
	n, err := outlook.Write(&buf, records)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "Contacts without a birthday still get a row")

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"), "UTF-8 BOM")
	assert.Contains(t, out, "\r\n")

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, outlook.Headers, rows[0])
	assert.Equal(t, "Acme, Inc", column(t, rows[1], "Company"), "Commas are quoted")
	assert.Equal(t, "05/17/1990", column(t, rows[1], "Birthday"))
	assert.Empty(t, column(t, rows[2], "Birthday"))
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := outlook.Write(&buf, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "\ufeff"+strings.Join(outlook.Headers, ",")+"\r\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_Error(t *testing.T) {
	_, err := outlook.Write(failingWriter{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrCSVEncode)
}
