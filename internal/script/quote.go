// Package script builds JavaScript fragments for the remote shell.
//
// Values supplied by callers (URLs, XPath expressions, attribute values,
// pattern sources) are always embedded as string literals produced by
// String, never spliced into the generated source as raw text.
package script

import (
	"encoding/json"
	"strconv"
)

// String returns s as a JavaScript string literal.
//
// encoding/json escapes quotes, backslashes, control characters (including
// newlines), U+2028/U+2029 and HTML-significant characters, so the result is
// a single-line literal that cannot terminate the surrounding expression.
func String(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshal of a string cannot fail.
		panic(err)
	}
	return string(b)
}

// Int returns n as a JavaScript number literal.
func Int(n int) string {
	return strconv.Itoa(n)
}

// Bool returns b as a JavaScript boolean literal.
func Bool(b bool) string {
	return strconv.FormatBool(b)
}
