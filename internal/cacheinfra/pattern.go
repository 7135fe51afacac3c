package cacheinfra

import (
	"regexp"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// maxCompiledPatterns caps the matcher memo. When it is full the memo is
// reset, so ad hoc patterns such as "clients:id:123" cannot pile up.
const maxCompiledPatterns = 256

// compiledPatterns memoizes glob matchers, mostly the rule table patterns.
var compiledPatterns = xsync.NewMapOf[string, *regexp.Regexp]()

// CompilePattern turns a glob into an anchored matcher. `*` matches any
// (possibly empty) run of characters; everything else is literal.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := compiledPatterns.Load(pattern); ok {
		return re, nil
	}

	quoted := regexp.QuoteMeta(pattern)
	expr := "(?s)^" + strings.ReplaceAll(quoted, `\*`, ".*") + "$"

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &ConfigError{Field: "pattern", Message: err.Error()}
	}

	if compiledPatterns.Size() >= maxCompiledPatterns {
		compiledPatterns.Clear()
	}
	compiledPatterns.Store(pattern, re)
	return re, nil
}

// MatchPattern reports whether key matches the glob pattern.
func MatchPattern(pattern, key string) (bool, error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(key), nil
}
