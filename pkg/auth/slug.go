package auth

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

const (
	maxSlugBase   = 40
	slugSuffixLen = 6
)

// Slugify lowercases s and collapses every run of other characters to a
// single hyphen.
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugBase {
		slug = strings.TrimRight(slug[:maxSlugBase], "-")
	}
	return slug
}

// CompanySlug builds a company slug: <slugified-name>-<6 random chars>.
// Example: "Acme Corp" becomes acme-corp-x7k2q9.
func CompanySlug(name string) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = "company"
	}
	suffix, err := randomString(slugSuffixLen)
	if err != nil {
		return "", err
	}
	return base + "-" + suffix, nil
}
