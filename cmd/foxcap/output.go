package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tomyan/foxcap/internal/firefox"
)

// NavResult is printed after a navigating command settles.
type NavResult struct {
	Window int    `json:"window"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

// WindowsResult lists the browser windows.
type WindowsResult struct {
	Windows []firefox.Window `json:"windows"`
}

// FindWindowResult is the index of a matching window, or -1.
type FindWindowResult struct {
	Index int  `json:"index"`
	Found bool `json:"found"`
}

// URLResult is the current document URL.
type URLResult struct {
	URL string `json:"url"`
}

// TitleResult is the current document title.
type TitleResult struct {
	Title string `json:"title"`
}

// StatusResult is the window status text.
type StatusResult struct {
	Status string `json:"status"`
}

// HTMLResult is the document markup.
type HTMLResult struct {
	HTML string `json:"html"`
}

// TextResult is the body text.
type TextResult struct {
	Text string `json:"text"`
}

// ContainsResult reports whether the body text matched.
type ContainsResult struct {
	Contains bool `json:"contains"`
}

// EvalResult is the raw result of a script.
type EvalResult struct {
	Value string `json:"value"`
}

// ElementsResult lists resolved elements.
type ElementsResult struct {
	Count    int                `json:"count"`
	Elements []*firefox.Element `json:"elements"`
}

// PopupResult confirms an installed popup responder.
type PopupResult struct {
	Button string `json:"button"`
	Text   string `json:"text,omitempty"`
}

// ClosedResult confirms a close.
type ClosedResult struct {
	Closed bool `json:"closed"`
}

// LaunchResult describes a launched or reused host.
type LaunchResult struct {
	Launched bool   `json:"launched"`
	PID      int    `json:"pid,omitempty"`
	Path     string `json:"path,omitempty"`
	URL      string `json:"url"`
	Title    string `json:"title"`
}

// TextValuer is implemented by result types that have an obvious plain-text representation.
type TextValuer interface {
	TextValue() string
}

func (r URLResult) TextValue() string      { return r.URL }
func (r TitleResult) TextValue() string    { return r.Title }
func (r StatusResult) TextValue() string   { return r.Status }
func (r HTMLResult) TextValue() string     { return r.HTML }
func (r TextResult) TextValue() string     { return r.Text }
func (r EvalResult) TextValue() string     { return r.Value }
func (r ContainsResult) TextValue() string { return fmt.Sprintf("%t", r.Contains) }
func (r NavResult) TextValue() string      { return r.URL }
func (r FindWindowResult) TextValue() string {
	return fmt.Sprintf("%d", r.Index)
}

func (r WindowsResult) TextValue() string {
	var b strings.Builder
	for i, w := range r.Windows {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d\t%s\t%s", w.Index, w.URL, w.Title)
	}
	return b.String()
}

func (r ElementsResult) TextValue() string {
	var b strings.Builder
	for i, el := range r.Elements {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\t%s", el.Kind, el.Name)
	}
	return b.String()
}

func outputResult(cfg *Config, v interface{}) int {
	switch cfg.Output {
	case "json":
		enc := json.NewEncoder(cfg.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "ndjson":
		enc := json.NewEncoder(cfg.Stdout)
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "text":
		if tv, ok := v.(TextValuer); ok {
			fmt.Fprintln(cfg.Stdout, tv.TextValue())
		} else {
			// Fall back to JSON for complex types
			enc := json.NewEncoder(cfg.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
				return ExitError
			}
		}
	default:
		fmt.Fprintf(cfg.Stderr, "error: unknown output format: %s\n", cfg.Output)
		return ExitError
	}
	return ExitSuccess
}
