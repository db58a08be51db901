package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTag_WildcardInputs(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "asterisk", input: "*"},
		{name: "whitespace only", input: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Tag(tt.input)
			assert.True(t, f.IsAny())
			assert.Equal(t, "*", f.String())
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		stored string
		want   bool
	}{
		{name: "exact match", filter: "en", stored: "en", want: true},
		{name: "case insensitive", filter: "en-GB", stored: "EN-gb", want: true},
		{name: "filter is prefix of stored", filter: "en", stored: "en-GB", want: true},
		{name: "stored is prefix of filter", filter: "en-GB", stored: "en", want: true},
		{name: "different languages", filter: "en", stored: "fr", want: false},
		{name: "prefix must be dash delimited", filter: "en", stored: "eng", want: false},
		{name: "no partial region match", filter: "en-GB", stored: "en-US", want: false},
		{name: "three part tag", filter: "zh", stored: "zh-Hans-CN", want: true},
		{name: "stored with surrounding space", filter: "fr", stored: " fr-FR ", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tag(tt.filter).Matches(tt.stored)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAny_MatchesEverything(t *testing.T) {
	f := Any()
	assert.True(t, f.Matches("en"))
	assert.True(t, f.Matches("fr-FR"))
	assert.True(t, f.Matches(""))
}

func TestFilter_SQL(t *testing.T) {
	clause, args := Tag("en-GB").SQL("source_locale")
	assert.Contains(t, clause, "LOWER(source_locale)")
	assert.Len(t, args, 3)
	assert.Equal(t, "en-gb", args[0])
	assert.Equal(t, "en-gb-%", args[1])

	clause, args = Any().SQL("source_locale")
	assert.Empty(t, clause)
	assert.Nil(t, args)
}
