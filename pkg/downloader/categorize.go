package downloader

import "strings"

// CategoryOther is the catch-all for filings no pattern matches
const CategoryOther = "other"

// filingCategories maps category directories to the filing type codes and
// description fragments that belong in them. Order matters: the first
// matching category wins.
var filingCategories = []struct {
	name     string
	patterns []string
}{
	{"accounts", []string{"aa", "ac", "annual return", "annual accounts", "accounts"}},
	{"confirmations", []string{"cs01", "confirmation statement", "confirmation"}},
	{"incorporation", []string{"in01", "incorporation", "articles", "certificate"}},
	{"changes", []string{"ch01", "ch02", "ch03", "tm01", "tm02", "ap01", "change"}},
	{"mortgages", []string{"mr01", "mr02", "mr04", "mortgage", "charge"}},
	{"dissolutions", []string{"ds01", "ds02", "dissolution"}},
}

// CategoryNames lists every category directory in display order
var CategoryNames = []string{
	"accounts",
	"confirmations",
	"incorporation",
	"changes",
	"mortgages",
	"dissolutions",
	CategoryOther,
}

// Categorize maps a filing type code or description to its category
// directory. Matching is case-insensitive substring; anything unmatched
// lands in "other".
func Categorize(filingType string) string {
	lower := strings.ToLower(filingType)

	for _, category := range filingCategories {
		for _, pattern := range category.patterns {
			if strings.Contains(lower, pattern) {
				return category.name
			}
		}
	}

	return CategoryOther
}

// IsKnownCategory reports whether name is one of the category directories
func IsKnownCategory(name string) bool {
	for _, c := range CategoryNames {
		if c == name {
			return true
		}
	}
	return false
}
