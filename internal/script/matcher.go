package script

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// Matcher is the "what" half of a locator: either a literal string compared
// by equality or a pattern tested with a regular expression search.
//
// Patterns use ECMAScript syntax because they are evaluated by the host's
// RegExp engine. They are compiled locally first so malformed patterns fail
// before anything is sent.
type Matcher struct {
	literal string
	source  string
	flags   string
	re      *regexp2.Regexp
}

// Literal matches values equal to s.
func Literal(s string) Matcher {
	return Matcher{literal: s}
}

// Pattern matches values containing a match for the ECMAScript regular
// expression src.
func Pattern(src string) (Matcher, error) {
	return compile(src, "")
}

// PatternFold is Pattern with case-insensitive matching.
func PatternFold(src string) (Matcher, error) {
	return compile(src, "i")
}

// MustPattern is like Pattern but panics if src does not compile.
func MustPattern(src string) Matcher {
	m, err := Pattern(src)
	if err != nil {
		panic(err)
	}
	return m
}

func compile(src, flags string) (Matcher, error) {
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	if flags == "i" {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(src, opts)
	if err != nil {
		return Matcher{}, fmt.Errorf("invalid pattern %q: %w", src, err)
	}
	return Matcher{source: src, flags: flags, re: re}, nil
}

// IsPattern reports whether m is a pattern rather than a literal.
func (m Matcher) IsPattern() bool {
	return m.re != nil
}

// Source returns the literal value or the pattern source.
func (m Matcher) Source() string {
	if m.re != nil {
		return m.source
	}
	return m.literal
}

// String formats m for messages: quoted for literals, /src/flags for patterns.
func (m Matcher) String() string {
	if m.re != nil {
		return "/" + m.source + "/" + m.flags
	}
	return fmt.Sprintf("%q", m.literal)
}

// Match applies m to s locally.
func (m Matcher) Match(s string) bool {
	if m.re == nil {
		return s == m.literal
	}
	ok, err := m.re.MatchString(s)
	return err == nil && ok
}

// JS returns a JavaScript boolean expression applying m to the value of
// expr, which must be an expression yielding a string.
func (m Matcher) JS(expr string) string {
	if m.re == nil {
		return "(" + expr + " == " + String(m.literal) + ")"
	}
	return "new RegExp(" + String(m.source) + ", " + String(m.flags) + ").test(" + expr + ")"
}
