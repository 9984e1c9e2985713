package jssh

import (
	"errors"
	"fmt"
	"strings"
)

// Errors
var (
	ErrHostUnavailable  = errors.New("host unavailable")
	ErrConnectionClosed = errors.New("connection closed")
	ErrScript           = errors.New("script error")
)

// HostUnavailableError is returned by Dial once every connection attempt
// has failed.
type HostUnavailableError struct {
	Host     string
	Port     int
	Attempts int
	Err      error
}

func (e *HostUnavailableError) Error() string {
	return fmt.Sprintf("unable to connect to %s:%d after %d attempts: %v", e.Host, e.Port, e.Attempts, e.Err)
}

func (e *HostUnavailableError) Unwrap() []error {
	return []error{ErrHostUnavailable, e.Err}
}

// ScriptError is an exception raised by the host while evaluating a script.
// The channel remains usable after one.
type ScriptError struct {
	Name    string // e.g. "TypeError"
	Message string
}

func (e *ScriptError) Error() string {
	return e.Name + ": " + e.Message
}

func (e *ScriptError) Unwrap() error {
	return ErrScript
}

// parseScriptError recognises responses of the form "<Name>Error: <message>".
func parseScriptError(resp string) (*ScriptError, bool) {
	i := strings.Index(resp, ": ")
	if i <= 0 {
		return nil, false
	}
	name := resp[:i]
	if !strings.HasSuffix(name, "Error") || !isIdentifier(name) {
		return nil, false
	}
	return &ScriptError{Name: name, Message: strings.TrimSpace(resp[i+2:])}, true
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '_', r == '$':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}
