package firefox

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomyan/foxcap/internal/script"
)

// --- Errors ---

// Errors
var (
	ErrNavigationTimeout  = errors.New("navigation timeout")
	ErrNoMatchingWindow   = errors.New("no matching window")
	ErrUnknownElement     = errors.New("unknown element")
	ErrUnsupportedLocator = errors.New("unsupported locator")
	ErrNoBrowserWindow    = errors.New("no browser window")
	ErrOpenWindow         = errors.New("unable to open window")
	ErrWindowNotClosed    = errors.New("window not closed")
	ErrCheckerFailed      = errors.New("error checker failed")
)

// NavigationTimeoutError is returned when the host keeps reporting a
// document load for longer than the wait ceiling.
type NavigationTimeoutError struct {
	Elapsed time.Duration
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("page load timeout after %s", e.Elapsed.Round(time.Millisecond))
}

func (e *NavigationTimeoutError) Unwrap() error {
	return ErrNavigationTimeout
}

// NoMatchingWindowError names the predicate that matched no window.
type NoMatchingWindowError struct {
	How  WindowHow
	What script.Matcher
}

func (e *NoMatchingWindowError) Error() string {
	return fmt.Sprintf("unable to locate a window with %s %s", e.How, e.What)
}

func (e *NoMatchingWindowError) Unwrap() error {
	return ErrNoMatchingWindow
}

// UnknownElementError is returned when a locator resolves to nothing.
type UnknownElementError struct {
	Locator Locator
}

func (e *UnknownElementError) Error() string {
	return fmt.Sprintf("unable to locate element using %s", e.Locator)
}

func (e *UnknownElementError) Unwrap() error {
	return ErrUnknownElement
}

// UnsupportedLocatorError is returned for a "how" the caller cannot use.
type UnsupportedLocatorError struct {
	How string
}

func (e *UnsupportedLocatorError) Error() string {
	return fmt.Sprintf("unsupported locator %q", e.How)
}

func (e *UnsupportedLocatorError) Unwrap() error {
	return ErrUnsupportedLocator
}

// --- Windows ---

// NoWindow and NotFound are sentinel window indexes.
const (
	NoWindow = -1
	NotFound = -1
)

// WindowHow selects the attribute a window is matched on.
type WindowHow string

const (
	ByURL   WindowHow = "url"
	ByTitle WindowHow = "title"
)

// ParseWindowHow converts a user-supplied name into a WindowHow.
func ParseWindowHow(s string) (WindowHow, error) {
	switch WindowHow(s) {
	case ByURL, ByTitle:
		return WindowHow(s), nil
	}
	return "", &UnsupportedLocatorError{How: s}
}

// Window is a logical reference to a host window. It is only an index plus
// the URL and title last read from it.
type Window struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// --- Elements ---

// Locator is an element query: either an XPath expression or a tag name
// with a (how, what) predicate.
type Locator struct {
	XPath string
	Tag   string
	How   string
	What  script.Matcher
}

// ByXPath returns an XPath locator.
func ByXPath(xpath string) Locator {
	return Locator{XPath: xpath}
}

// ByAttribute returns a tag locator.
func ByAttribute(tag, how string, what script.Matcher) Locator {
	return Locator{Tag: tag, How: how, What: what}
}

func (l Locator) String() string {
	if l.XPath != "" {
		return fmt.Sprintf("xpath %q", l.XPath)
	}
	return fmt.Sprintf("%s %s %s", l.Tag, l.How, l.What)
}

// Kind is the variant of a classified element.
type Kind string

const (
	Button         Kind = "Button"
	CheckBox       Kind = "CheckBox"
	Radio          Kind = "Radio"
	TextField      Kind = "TextField"
	FileField      Kind = "FileField"
	SelectList     Kind = "SelectList"
	Div            Kind = "Div"
	Frame          Kind = "Frame"
	Span           Kind = "Span"
	Paragraph      Kind = "Paragraph"
	Label          Kind = "Label"
	Form           Kind = "Form"
	Image          Kind = "Image"
	Table          Kind = "Table"
	TableRow       Kind = "TableRow"
	TableCell      Kind = "TableCell"
	Link           Kind = "Link"
	GenericElement Kind = "GenericElement"
)

// Element is a classified handle to a remote node. Name is the session
// scoped remote variable holding the node.
type Element struct {
	Name           string   `json:"name"`
	Kind           Kind     `json:"kind"`
	Interface      string   `json:"interface"`
	InputType      string   `json:"inputType,omitempty"`
	Discriminators []string `json:"discriminators,omitempty"`
}

// --- Remote names ---

// Names are the remote variables a session declares in the host. They are
// prefixed with the session ID so sessions sharing a host never collide.
type Names struct {
	Prefix   string
	Win      string
	Browser  string
	Doc      string
	Body     string
	Listener string
	Popup    string
}

func newNames(id uuid.UUID) Names {
	p := "fx" + id.String()[:8]
	return Names{
		Prefix:   p,
		Win:      p + "_win",
		Browser:  p + "_browser",
		Doc:      p + "_doc",
		Body:     p + "_body",
		Listener: p + "_listener",
		Popup:    p + "_popup",
	}
}

func (n Names) element(i int) string {
	return fmt.Sprintf("%s_el%d", n.Prefix, i)
}

func (n Names) elements(i int) string {
	return fmt.Sprintf("%s_els%d", n.Prefix, i)
}

// expand substitutes this session's variable names for the $win, $browser,
// $doc, $body, $listener and $popup tokens in a script template.
func (n Names) expand(tmpl string) string {
	return strings.NewReplacer(
		"$win", n.Win,
		"$browser", n.Browser,
		"$doc", n.Doc,
		"$body", n.Body,
		"$listener", n.Listener,
		"$popup", n.Popup,
	).Replace(tmpl)
}
