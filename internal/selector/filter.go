package selector

import (
	"path/filepath"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	tokenSep     = ","
	excludeMark  = "!"
	wildcard     = '*'
	lazyAnyChars = ".*?"
)

var filterCache, _ = lru.New[string, *Filter](128)

// Filter is a compiled filter expression. The zero value selects everything.
type Filter struct {
	expr    string
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// Compile parses a comma separated filter expression such as "*dat, !*save1*".
// Tokens starting with "!" exclude, all others include. Every include token must
// match the whole relative path and no exclude token may match it.
func Compile(expr string) *Filter {
	if f, ok := filterCache.Get(expr); ok {
		return f
	}

	f := &Filter{expr: expr}
	for _, token := range strings.Split(expr, tokenSep) {
		token = strings.TrimSpace(token)
		exclude := strings.HasPrefix(token, excludeMark)
		if exclude {
			token = strings.TrimSpace(strings.TrimPrefix(token, excludeMark))
		}
		if token == "" {
			continue
		}

		re := compileGlob(token)
		if exclude {
			f.exclude = append(f.exclude, re)
		} else {
			f.include = append(f.include, re)
		}
	}

	filterCache.Add(expr, f)
	return f
}

// compileGlob anchors the glob to the full path. Both slash styles become the
// host separator and "*" may cross directory boundaries.
func compileGlob(glob string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("^(?:")
	for _, r := range glob {
		switch r {
		case wildcard:
			sb.WriteString(lazyAnyChars)
		case '/', '\\':
			sb.WriteString(regexp.QuoteMeta(string(filepath.Separator)))
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString(")$")
	return regexp.MustCompile(sb.String())
}

// Match reports whether relPath, relative to the save root and using the host
// separator, is selected.
func (f *Filter) Match(relPath string) bool {
	if f == nil {
		return true
	}
	for _, re := range f.include {
		if !re.MatchString(relPath) {
			return false
		}
	}
	for _, re := range f.exclude {
		if re.MatchString(relPath) {
			return false
		}
	}
	return true
}

// SelectsAll reports whether the filter has no rules at all.
func (f *Filter) SelectsAll() bool {
	return f == nil || (len(f.include) == 0 && len(f.exclude) == 0)
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}
