// Package names turns human-entered save names into stable registry keys and
// resolves fuzzy user input against a set of keys.
package names

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/savesync/savesync/internal/apperr"
)

const keySep = "_"

// Tokens returns the lowercased alphanumeric words of name. "&" counts as "and".
func Tokens(name string) []string {
	name = strings.ReplaceAll(name, "&", " and ")
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// Normalize returns the registry key for a display name.
//
//	Normalize("Pascal's Wager") == "pascal_s_wager"
//	Normalize("Tom & Jerry")    == "tom_and_jerry"
func Normalize(name string) string {
	return strings.Join(Tokens(name), keySep)
}

// Search returns the keys matching query. An exact key match wins outright,
// otherwise every key containing the query words in order is returned, sorted.
func Search(keys []string, query string) []string {
	tokens := Tokens(query)
	exact := strings.Join(tokens, keySep)
	if slices.Contains(keys, exact) {
		return []string{exact}
	}

	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re := regexp.MustCompile(strings.Join(quoted, ".*?"))

	var matches []string
	for _, key := range keys {
		if re.MatchString(key) {
			matches = append(matches, key)
		}
	}
	slices.Sort(matches)
	return matches
}

// Find resolves query to exactly one key. displayName maps a key to the name
// reported in an ambiguity error; nil reports the keys themselves.
func Find(keys []string, query string, displayName func(key string) string) (string, error) {
	matches := Search(keys, query)
	switch len(matches) {
	case 0:
		return "", apperr.NotFound(query)
	case 1:
		return matches[0], nil
	}

	names := make([]string, len(matches))
	for i, key := range matches {
		if displayName != nil {
			names[i] = displayName(key)
		} else {
			names[i] = key
		}
	}
	return "", &apperr.AmbiguousError{Query: query, Names: names}
}
