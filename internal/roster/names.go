package roster

import (
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleCase normalises a department label, "ANTHROPOLOGY DEPT" becomes
// "Anthropology Dept".
func TitleCase(s string) string {
	// a Caser keeps state so one is made per call
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// Slug returns the URL slug for a name.
func Slug(s string) string {
	return slug.Make(s)
}

// FullName builds the dedup key for a worker, "Last,First Middle".
func FullName(last, first, middle string) string {
	name := strings.TrimSpace(last) + "," + strings.TrimSpace(first)
	if m := strings.TrimSpace(middle); m != "" {
		name += " " + m
	}
	return name
}
