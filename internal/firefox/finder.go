package firefox

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tomyan/foxcap/internal/script"
)

// findWindowTemplate walks windows newest first, skipping those without
// browser control. %s is the attribute expression, %s the predicate.
const findWindowTemplate = `(function() {
  var ws = getWindows();
  for (var i = ws.length - 1; i >= 0; i--) {
    if (typeof ws[i].getBrowser != 'function') continue;
    var b = ws[i].getBrowser();
    if (!b) continue;
    var attribute = %s;
    if (%s) return i;
  }
  return -1;
})()`

func windowAttribute(how WindowHow) (string, error) {
	switch how {
	case ByURL:
		return "b.contentDocument.URL", nil
	case ByTitle:
		return "b.contentDocument.title", nil
	}
	return "", &UnsupportedLocatorError{How: string(how)}
}

// FindWindow returns the index of the most recently opened browser window
// whose URL or title matches what, or NotFound. A literal matches by
// equality and a pattern by search.
func (s *Session) FindWindow(ctx context.Context, how WindowHow, what script.Matcher) (int, error) {
	attr, err := windowAttribute(how)
	if err != nil {
		return NotFound, err
	}
	out, err := s.ev.Eval(ctx, fmt.Sprintf(findWindowTemplate, attr, what.JS("attribute")))
	if err != nil {
		return NotFound, fmt.Errorf("finding window: %w", err)
	}
	idx, err := parseInt(out)
	if err != nil {
		return NotFound, fmt.Errorf("finding window: %w", err)
	}
	if idx < 0 {
		return NotFound, nil
	}
	return idx, nil
}

// Attach makes the most recent window matching the predicate the active
// window and binds to it.
func (s *Session) Attach(ctx context.Context, how WindowHow, what script.Matcher) error {
	ctx, span := s.tracer.Start(ctx, "Session.Attach")
	defer span.End()
	span.SetAttributes(
		attribute.String("foxcap.attach.how", string(how)),
		attribute.String("foxcap.attach.what", what.String()),
	)

	idx, err := s.FindWindow(ctx, how, what)
	if err != nil {
		return err
	}
	if idx == NotFound {
		return &NoMatchingWindowError{How: how, What: what}
	}
	if err := s.bind(ctx, idx); err != nil {
		return err
	}
	s.logger.Info("attached", zap.Int("window", idx), zap.String("url", s.url))
	return nil
}
