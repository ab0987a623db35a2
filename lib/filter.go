package lib

import (
	"strings"

	"github.com/lofwen/reddalert/lib/models"
)

// Keyword groups behind the named filter kinds. Matching is a plain
// substring test, so "2sheep" hits "2sheep" but not "2 sheep".
var namedFilterKeywords = map[models.FilterKind][]string{
	models.FilterCatan:    {"catan", "settlers"},
	models.FilterTwoSheep: {"twosheep", "2sheep"},
}

// Matches reports whether a post passes the given filter kind. The custom
// keyword set is only consulted for FilterCustom; an empty custom set never
// matches. Unknown kinds fail closed.
func Matches(post *models.Post, kind models.FilterKind, custom []string) bool {
	switch kind {
	case models.FilterAll:
		return true
	case models.FilterNone:
		return false
	case models.FilterCustom:
		return len(matchedKeywords(post, custom)) > 0
	default:
		keywords, ok := namedFilterKeywords[kind]
		if !ok {
			return false
		}
		return len(matchedKeywords(post, keywords)) > 0
	}
}

// MatchedKeywords lists which of the filter's keywords occur in the post,
// for notification titles. Nil for the all/none kinds.
func MatchedKeywords(post *models.Post, kind models.FilterKind, custom []string) []string {
	switch kind {
	case models.FilterAll, models.FilterNone:
		return nil
	case models.FilterCustom:
		return matchedKeywords(post, custom)
	default:
		return matchedKeywords(post, namedFilterKeywords[kind])
	}
}

func matchedKeywords(post *models.Post, keywords []string) []string {
	haystack := strings.ToLower(post.Title + " " + post.Content)

	var matched []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}
