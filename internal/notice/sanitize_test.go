package notice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii untouched", "Facture n 42", "Facture n 42"},
		{"latin-1 kept", "Date d'échéance : à régler", "Date d'échéance : à régler"},
		{"space variants", "1\u202f500,50\u00a0€", "1 500,50 ?"},
		{"figure and thin spaces", "a\u2007b\u2009c\u200ad", "a b c d"},
		{"control characters", "ligne\nsuivante\t", "ligne?suivante?"},
		{"outside latin-1", "Łódź", "?ód?"},
		{"astral counts twice", "ok 👍", "ok ??"},
		{"invalid utf-8", "a\xffb", "a?b"},
		{"windows-1252 extras replaced", "“citation”", "?citation?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_OutputStaysInDrawableRange(t *testing.T) {
	inputs := []string{
		"Ça coûte 1\u202f234,00\u00a0€ — merci",
		"\u00a0\u0000\u007f\u0080\u009f\u2009ÿĀ",
		"日本語テキスト",
	}
	for _, in := range inputs {
		for _, r := range Sanitize(in) {
			assert.True(t, isLatin1Printable(r), "rune %U survived sanitising %q", r, in)
			assert.NotContains(t, []rune{0x00a0, 0x202f, 0x2007, 0x2009, 0x200a}, r)
		}
	}
}

func TestFirstUnencodable(t *testing.T) {
	_, bad := firstUnencodable("Tél : 01 23 45 67 89")
	assert.False(t, bad)

	_, bad = firstUnencodable("Œuvre “cité” – 10 €")
	assert.False(t, bad)

	r, bad := firstUnencodable("Łukasz")
	assert.True(t, bad)
	assert.Equal(t, 'Ł', r)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "mise-en-demeure-Jean-Dupont.pdf", Filename("Jean Dupont"))
	assert.Equal(t, "mise-en-demeure-document.pdf", Filename(""))
	assert.Equal(t, "mise-en-demeure-SARL-Les-Trois-Chênes.pdf", Filename("SARL \u00a0Les\tTrois Chênes"))
	assert.Equal(t, "mise-en-demeure--.pdf", Filename(" "))
}
