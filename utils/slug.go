package utils

import (
	"path"
	"strings"
)

// SlugToTitle derives a human-readable title from the last path element
// of a URL or file path: "la-prensa-del-pueblo.txt" -> "La Prensa Del Pueblo".
func SlugToTitle(p string) string {
	slug := strings.TrimSuffix(path.Base(strings.TrimRight(p, "/")), path.Ext(p))
	slug = strings.NewReplacer("-", " ", "_", " ").Replace(slug)

	words := strings.Fields(slug)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
