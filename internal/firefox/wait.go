package firefox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tomyan/foxcap/internal/jssh"
)

const loadingTemplate = `$browser = $win.getBrowser(); $browser.webProgress.isLoadingDocument`

// refreshTemplate returns the delay of the first meta refresh whose target
// is not already the current document, or -1.
const refreshTemplate = `(function() {
  var doc = $browser.contentDocument;
  var metas = doc.getElementsByTagName('meta');
  for (var i = 0; i < metas.length; i++) {
    if (!/^refresh$/i.test(metas[i].httpEquiv)) continue;
    var parts = String(metas[i].content).split(';');
    if (parts.length < 2) continue;
    var target = parts.slice(1).join(';').replace(/^\s*url\s*=\s*/i, '').replace(/^['"]|['"]$/g, '');
    if (target == '') continue;
    var url = String(doc.URL);
    if (url.length >= target.length && url.substr(url.length - target.length) == target) continue;
    var delay = parseInt(parts[0], 10);
    return isNaN(delay) ? 0 : delay;
  }
  return -1;
})()`

// Wait blocks until the active window has finished loading, follows
// client-side meta refresh redirects, rebinds the document and runs the
// error checkers.
func (s *Session) Wait(ctx context.Context) error {
	return s.WaitFrom(ctx, "")
}

// WaitFrom is Wait for a caller that has already seen previousURL settle.
// If the loaded document still has that URL no meta refresh is followed.
func (s *Session) WaitFrom(ctx context.Context, previousURL string) error {
	ctx, span := s.tracer.Start(ctx, "Session.Wait")
	defer span.End()

	iterations, err := s.waitFrom(ctx, previousURL)
	span.SetAttributes(attribute.Int("foxcap.wait.iterations", iterations))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// waitFrom runs the wait loop with lastURL as the previously seen URL and
// returns how many load-polling phases it went through.
func (s *Session) waitFrom(ctx context.Context, lastURL string) (int, error) {
	start := time.Now()
	limiter := rate.NewLimiter(rate.Every(s.opts.PollInterval), 1)

	prev, havePrev := lastURL, lastURL != ""
	iterations := 0

	for {
		iterations++
		if err := s.pollLoaded(ctx, limiter); err != nil {
			var te *NavigationTimeoutError
			s.metrics.RecordWait(time.Since(start), errors.As(err, &te))
			return iterations, err
		}

		url, err := s.evalString(ctx, s.names.Browser+".contentDocument.URL")
		if err != nil {
			if !errors.Is(err, jssh.ErrScript) {
				return iterations, fmt.Errorf("reading URL: %w", err)
			}
			s.logger.Debug("reading URL after load failed", zap.Error(err))
			break
		}

		// A navigation that leaves the URL unchanged (a download, say)
		// would otherwise check the same refresh forever.
		if havePrev && url == prev {
			break
		}

		delay, ok := s.refreshDelay(ctx)
		if !ok || delay < 0 {
			break
		}
		if iterations > s.opts.MaxRedirects {
			s.logger.Warn("meta refresh hop limit reached",
				zap.Int("limit", s.opts.MaxRedirects),
				zap.String("url", url))
			break
		}

		s.logger.Info("following meta refresh", zap.String("from", url), zap.Int("delay", delay))
		s.metrics.RecordRedirectHop()
		if err := sleepCtx(ctx, time.Duration(delay)*time.Second); err != nil {
			return iterations, err
		}
		if _, err := s.ev.Eval(ctx, s.names.expand("$browser = $win.getBrowser()")); err != nil {
			if !errors.Is(err, jssh.ErrScript) {
				return iterations, fmt.Errorf("rebinding browser: %w", err)
			}
			s.logger.Debug("rebinding browser after refresh failed", zap.Error(err))
		}
		prev, havePrev = url, true
	}

	s.metrics.RecordWait(time.Since(start), false)

	if err := s.bind(ctx, s.window); err != nil {
		return iterations, err
	}
	if err := s.runCheckers(ctx); err != nil {
		return iterations, err
	}
	s.logger.Debug("navigation settled",
		zap.String("url", s.url),
		zap.Int("iterations", iterations))
	return iterations, nil
}

// pollLoaded polls the loading flag until it reports false. Script errors
// are transient while a document is being replaced; channel errors are not.
func (s *Session) pollLoaded(ctx context.Context, limiter *rate.Limiter) error {
	script := s.names.expand(loadingTemplate)
	deadline := time.Now().Add(s.opts.WaitTimeout)
	start := time.Now()

	for {
		if time.Now().After(deadline) {
			return &NavigationTimeoutError{Elapsed: time.Since(start)}
		}
		if err := limiter.Wait(ctx); err != nil {
			// The deadline falls before the next poll slot.
			<-ctx.Done()
			return ctx.Err()
		}

		out, err := s.ev.Eval(ctx, script)
		if err != nil {
			if errors.Is(err, jssh.ErrScript) {
				s.logger.Debug("load poll failed", zap.Error(err))
				continue
			}
			return fmt.Errorf("polling load state: %w", err)
		}
		if strings.TrimSpace(out) == "false" {
			return nil
		}
	}
}

// refreshDelay checks for a pending meta refresh. Check failures count as
// no refresh.
func (s *Session) refreshDelay(ctx context.Context) (int, bool) {
	out, err := s.ev.Eval(ctx, s.names.expand(refreshTemplate))
	if err != nil {
		s.logger.Debug("meta refresh check failed", zap.Error(err))
		return -1, false
	}
	delay, err := parseInt(out)
	if err != nil {
		s.logger.Debug("meta refresh check returned junk", zap.String("result", out))
		return -1, false
	}
	return delay, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
