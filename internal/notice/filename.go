package notice

import "regexp"

// whitespace as browsers define \s, not only ASCII
var whitespaceRun = regexp.MustCompile(`[\s\p{Zs}\x{feff}\x{2028}\x{2029}]+`)

// Filename is the attachment name of a notice addressed to debtorName.
func Filename(debtorName string) string {
	slug := whitespaceRun.ReplaceAllString(debtorName, "-")
	if slug == "" {
		slug = "document"
	}
	return "mise-en-demeure-" + slug + ".pdf"
}
