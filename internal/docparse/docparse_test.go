package docparse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePassportUsesMRZName(t *testing.T) {
	rawText := "PASSPORT\nUnited Kingdom of Great Britain\nP<GBRDOE<<JANE<ELIZABETH<<<<<<<<<<<<<<<<<<<<\nDate of birth 02/05/1999\n"

	fields := Parse(rawText, DocumentPassport)

	require.Equal(t, "JANE ELIZABETH DOE", fields.Name)
	require.Equal(t, "1999-05-02", fields.DOB)
	require.Equal(t, rawText, fields.RawText)
}

func TestParseFallsBackToNameLine(t *testing.T) {
	rawText := "NATIONAL IDENTITY CARD\nDate of Birth\nJane Elizabeth Doe\n12/03/1990\n"

	fields := Parse(rawText, DocumentNationalID)

	require.Equal(t, "Jane Elizabeth Doe", fields.Name)
	require.Equal(t, "1990-03-12", fields.DOB)
}

func TestParseEmptyText(t *testing.T) {
	fields := Parse("   \n  ", DocumentPassport)

	require.Empty(t, fields.Name)
	require.Empty(t, fields.DOB)
}

func TestParseSkipsBoilerplateLines(t *testing.T) {
	// Two-token lines made of document boilerplate must not be mistaken
	// for a name.
	rawText := "DRIVING LICENCE\nDate Birth\nIssue Authority\n"

	fields := Parse(rawText, DocumentDrivingLicence)

	require.Empty(t, fields.Name)
}

func TestNormalizeDOB(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"1999-05-02", "1999-05-02", true},
		{"02/05/1999", "1999-05-02", true},
		{"02-05-1999", "1999-05-02", true},
		{"1999/05/02", "1999-05-02", true},
		{"not a date", "", false},
		{"02/13/1999", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeDOB(tt.input)
		require.Equal(t, tt.ok, ok, "input %q", tt.input)
		require.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestContainsName(t *testing.T) {
	rawText := "REPUBLIC OF EXAMPLE\nJANE ELIZABETH DOE\nDate of birth 02/05/1999"

	// A middle name in the text defeats plain containment.
	require.False(t, ContainsName(rawText, "Jane Doe"))
	require.True(t, ContainsName(rawText, "jane elizabeth doe"))
	require.True(t, ContainsName(rawText, "Elizabeth Doe"))
	require.True(t, ContainsName(rawText, "JANEELIZABETH"))
	require.False(t, ContainsName(rawText, ""))
	require.False(t, ContainsName("", "Jane Doe"))
}

func TestContainsNameIgnoresDiacritics(t *testing.T) {
	require.True(t, ContainsName("JOSÉ GARCÍA", "Jose Garcia"))
}

func TestContainsDOBAcrossFormats(t *testing.T) {
	require.True(t, ContainsDOB("DOB: 02/05/1999", "1999-05-02"))
	require.True(t, ContainsDOB("DOB: 1999-05-02", "02/05/1999"))
	require.True(t, ContainsDOB("born 02.05.1999", "1999-05-02"))
	require.False(t, ContainsDOB("DOB: 03/05/1999", "1999-05-02"))
	require.False(t, ContainsDOB("", "1999-05-02"))
	require.False(t, ContainsDOB("no digits here", "1999-05-02"))
}

func TestNamesMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"John A. Smith", "John Smith", true},
		{"JANE DOE", "jane elizabeth doe", true},
		{"John Smith", "Jane Doe", false},
		{"", "John", false},
		{"John", "", false},
		{"A. B.", "John Smith", false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, NamesMatch(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestValidDocumentType(t *testing.T) {
	require.True(t, ValidDocumentType(DocumentPassport))
	require.True(t, ValidDocumentType(DocumentInstitutionCard))
	require.False(t, ValidDocumentType(DocumentType("selfie")))
	require.False(t, ValidDocumentType(DocumentType("")))
}
