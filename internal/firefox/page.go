package firefox

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tomyan/foxcap/internal/script"
)

// Goto loads url in the most recent browser window and waits for it.
func (s *Session) Goto(ctx context.Context, url string) error {
	idx, err := s.count(ctx)
	if err != nil {
		return err
	}
	if err := s.bind(ctx, idx); err != nil {
		return err
	}

	s.logger.Info("navigating", zap.String("url", url), zap.Int("window", idx))
	if _, err := s.ev.Eval(ctx, s.names.Browser+".loadURI("+script.String(url)+")"); err != nil {
		return fmt.Errorf("loading %s: %w", url, err)
	}
	return s.Wait(ctx)
}

// Back goes back in history, if possible, and waits.
func (s *Session) Back(ctx context.Context) error {
	if _, err := s.ev.Eval(ctx, s.names.expand("if ($browser.canGoBack) { $browser.goBack(); } true")); err != nil {
		return fmt.Errorf("going back: %w", err)
	}
	return s.Wait(ctx)
}

// Forward goes forward in history, if possible, and waits.
func (s *Session) Forward(ctx context.Context) error {
	if _, err := s.ev.Eval(ctx, s.names.expand("if ($browser.canGoForward) { $browser.goForward(); } true")); err != nil {
		return fmt.Errorf("going forward: %w", err)
	}
	return s.Wait(ctx)
}

// Refresh reloads the current page and waits.
func (s *Session) Refresh(ctx context.Context) error {
	if _, err := s.ev.Eval(ctx, s.names.Browser+".reload()"); err != nil {
		return fmt.Errorf("reloading: %w", err)
	}
	return s.Wait(ctx)
}

// Execute evaluates src in the host and then waits for any navigation it
// started. Script can refer to the session variables through Names.
func (s *Session) Execute(ctx context.Context, src string) (string, error) {
	out, err := s.ev.Eval(ctx, src)
	if err != nil {
		return "", err
	}
	return out, s.Wait(ctx)
}

// URL returns the URL of the current document.
func (s *Session) URL(ctx context.Context) (string, error) {
	url, err := s.evalString(ctx, s.names.Doc+".URL")
	if err != nil {
		return "", fmt.Errorf("reading URL: %w", err)
	}
	s.url = url
	return url, nil
}

// Title returns the title of the current document.
func (s *Session) Title(ctx context.Context) (string, error) {
	title, err := s.evalString(ctx, s.names.Doc+".title")
	if err != nil {
		return "", fmt.Errorf("reading title: %w", err)
	}
	s.title = title
	return title, nil
}

// Status returns the window status text, falling back to the browser
// status bar. It can be empty.
func (s *Session) Status(ctx context.Context) (string, error) {
	status, err := s.evalString(ctx, s.names.Win+".status")
	if err != nil {
		return "", fmt.Errorf("reading status: %w", err)
	}
	if status != "" {
		return status, nil
	}
	status, err = s.evalString(ctx, s.names.Win+".XULBrowserWindow.statusText")
	if err != nil {
		return "", fmt.Errorf("reading status text: %w", err)
	}
	return status, nil
}

// HTML returns the markup of the current document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	inner, err := s.evalString(ctx, s.names.Doc+".getElementsByTagName('html')[0].innerHTML")
	if err != nil {
		return "", fmt.Errorf("reading HTML: %w", err)
	}
	return "<html>\n" + inner + "\n</html>", nil
}

// Text returns the text content of the document body, trimmed.
func (s *Session) Text(ctx context.Context) (string, error) {
	text, err := s.evalString(ctx, s.names.Body+".textContent")
	if err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// ContainsText reports whether the body text contains what: a literal as
// a substring, a pattern by search.
func (s *Session) ContainsText(ctx context.Context, what script.Matcher) (bool, error) {
	text, err := s.Text(ctx)
	if err != nil {
		return false, err
	}
	if what.IsPattern() {
		return what.Match(text), nil
	}
	return strings.Contains(text, what.Source()), nil
}

// Maximize maximizes the active window.
func (s *Session) Maximize(ctx context.Context) error {
	_, err := s.ev.Eval(ctx, s.names.Win+".maximize()")
	return err
}

// Minimize minimizes the active window.
func (s *Session) Minimize(ctx context.Context) error {
	_, err := s.ev.Eval(ctx, s.names.Win+".minimize()")
	return err
}
