package domain

import (
	"fmt"
	"strings"
)

// Category is the closed set of thread categories.
type Category string

const (
	CategoryPersonal     Category = "PERSONAL"
	CategoryWork         Category = "WORK"
	CategoryNewsletter   Category = "NEWSLETTER"
	CategoryAnnouncement Category = "ANNOUNCEMENT"
	CategoryPromotion    Category = "PROMOTION"
	CategoryNotification Category = "NOTIFICATION"
	CategorySystem       Category = "SYSTEM"
	CategorySpamRisk     Category = "SPAM_RISK"
)

// Categories lists every valid category in declaration order.
var Categories = []Category{
	CategoryPersonal,
	CategoryWork,
	CategoryNewsletter,
	CategoryAnnouncement,
	CategoryPromotion,
	CategoryNotification,
	CategorySystem,
	CategorySpamRisk,
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory parses s case-insensitively. Unknown values are rejected.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// CategoryNames returns the category names as plain strings, e.g. for JSON schema enums.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}
