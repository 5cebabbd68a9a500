package services

import (
	"path"
	"regexp"
	"strings"
)

// dimensionPattern matches texture/sprite dimensions like 512x512 or 1280x720.
var dimensionPattern = regexp.MustCompile(`(?i)\d{2,4}x\d{2,4}`)

var tagStopWords = map[string]struct{}{
	"a": {}, "the": {}, "and": {}, "or": {}, "to": {}, "of": {}, "for": {},
}

// DeriveTags turns a file name or archive-internal path into browsable tag
// candidates: the full stem, its delimiter-separated tokens, and any
// dimension patterns found in the stem or the full path. Dimension matches
// also contribute their width/height components as plain tokens. Output is
// deduplicated; order follows discovery and carries no meaning.
func DeriveTags(pathOrName string) []string {
	normalized := strings.ReplaceAll(pathOrName, "\\", "/")
	base := path.Base(normalized)
	stem := strings.TrimSuffix(base, path.Ext(base))

	seen := make(map[string]struct{})
	var tags []string
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	addToken := func(token string) {
		token = strings.TrimSpace(token)
		if token == "" {
			return
		}
		if isNumeric(token) && len(token) < 3 {
			return
		}
		if _, stop := tagStopWords[strings.ToLower(token)]; stop {
			return
		}
		add(token)
	}

	if strings.TrimSpace(stem) != "" {
		add(stem)
	}

	for _, token := range strings.FieldsFunc(stem, func(r rune) bool { return r == '_' || r == '-' }) {
		addToken(token)
	}

	for _, match := range dimensionPattern.FindAllString(stem+" "+pathOrName, -1) {
		add(match)
		for _, side := range strings.FieldsFunc(match, func(r rune) bool { return r == 'x' || r == 'X' }) {
			addToken(side)
		}
	}

	return tags
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
