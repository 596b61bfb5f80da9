package notice

import "strings"

var spaceVariants = strings.NewReplacer(
	"\u00a0", " ",
	"\u202f", " ",
	"\u2007", " ",
	"\u2009", " ",
	"\u200a", " ",
)

// Sanitize makes a body line drawable with a Latin-1 font: no-break and thin
// space variants become plain spaces, then every character outside 0x20-0x7E
// and 0xA0-0xFF becomes '?'. Characters outside the BMP count as two, so an
// emoji turns into "??".
func Sanitize(s string) string {
	s = spaceVariants.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case isLatin1Printable(r):
			b.WriteRune(r)
		case r > 0xffff:
			b.WriteString("??")
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

func isLatin1Printable(r rune) bool {
	return (r >= 0x20 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff)
}

// runes that Windows-1252 adds over Latin-1 in the 0x80-0x9F range
var winAnsiExtras = map[rune]bool{
	'\u20ac': true, '\u201a': true, '\u0192': true, '\u201e': true, '\u2026': true,
	'\u2020': true, '\u2021': true, '\u02c6': true, '\u2030': true, '\u0160': true,
	'\u2039': true, '\u0152': true, '\u017d': true, '\u2018': true, '\u2019': true,
	'\u201c': true, '\u201d': true, '\u2022': true, '\u2013': true, '\u2014': true,
	'\u02dc': true, '\u2122': true, '\u0161': true, '\u203a': true, '\u0153': true,
	'\u017e': true, '\u0178': true,
}

// firstUnencodable returns the first rune of s the standard fonts cannot
// encode, and false when every rune is encodable.
func firstUnencodable(s string) (rune, bool) {
	for _, r := range s {
		if isLatin1Printable(r) || winAnsiExtras[r] {
			continue
		}
		return r, true
	}
	return 0, false
}
