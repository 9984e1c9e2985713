package firefox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tomyan/foxcap/internal/firefox/launcher"
	"github.com/tomyan/foxcap/internal/jssh"
	"github.com/tomyan/foxcap/internal/script"
)

func windowURLScript(i int) string {
	return fmt.Sprintf("getWindows()[%d].getBrowser().contentDocument.URL", i)
}

func closeWindowScript(i int) string {
	return fmt.Sprintf("getWindows()[%d].close()", i)
}

// Close closes the session's window and then the channel. When it is the
// host's last window and this session launched the host, the application
// is quit as well. Close must not be called while a Wait is in progress.
func (s *Session) Close(ctx context.Context) error {
	defer s.ev.Close()

	n, err := s.windowCount(ctx)
	if err != nil {
		return err
	}
	if n == 1 {
		if err := s.closeWindow(ctx, 0, n); err != nil {
			return err
		}
		return s.quitLaunched()
	}

	// Windows may have closed since the last bind and shifted the index,
	// so only trust the active index if it still shows our URL.
	idx := s.window
	if url, err := s.evalString(ctx, windowURLScript(idx)); err != nil || url != s.url {
		if err != nil && !errors.Is(err, jssh.ErrScript) {
			return fmt.Errorf("reading URL: %w", err)
		}
		idx, err = s.FindWindow(ctx, ByURL, script.Literal(s.url))
		if err != nil {
			return err
		}
		if idx == NotFound {
			s.logger.Debug("window already closed", zap.String("url", s.url))
			return nil
		}
	}
	return s.closeWindow(ctx, idx, n)
}

// closeWindow closes window idx and waits for the window count to drop
// below before. Losing the channel after closing the last window counts as
// success.
func (s *Session) closeWindow(ctx context.Context, idx, before int) error {
	lastWindow := before == 1
	if _, err := s.ev.Eval(ctx, closeWindowScript(idx)); err != nil {
		if lastWindow && errors.Is(err, jssh.ErrConnectionClosed) {
			return nil
		}
		return fmt.Errorf("closing window %d: %w", idx, err)
	}

	deadline := time.Now().Add(s.opts.CloseTimeout)
	for {
		n, err := s.windowCount(ctx)
		if err != nil {
			if lastWindow && errors.Is(err, jssh.ErrConnectionClosed) {
				return nil
			}
			return err
		}
		if n < before {
			s.logger.Info("closed window", zap.Int("window", idx))
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("window %d: %w", idx, ErrWindowNotClosed)
		}
		if err := sleepCtx(ctx, s.opts.PollInterval); err != nil {
			return err
		}
	}
}

// CloseAll closes every host window, newest first, quits a host this
// session launched, and closes the channel.
func (s *Session) CloseAll(ctx context.Context) error {
	defer s.ev.Close()

	n, err := s.windowCount(ctx)
	if err != nil {
		return err
	}
	for i := n - 1; i >= 0; i-- {
		if _, err := s.ev.Eval(ctx, closeWindowScript(i)); err != nil {
			if i == 0 && errors.Is(err, jssh.ErrConnectionClosed) {
				break
			}
			return fmt.Errorf("closing window %d: %w", i, err)
		}
	}
	return s.quitLaunched()
}

// Disconnect closes the channel and leaves the host windows open.
func (s *Session) Disconnect() error {
	return s.ev.Close()
}

func (s *Session) quitLaunched() error {
	if s.launched == nil {
		return nil
	}
	if err := launcher.Quit(s.opts.QuitRunner, s.opts.GOOS); err != nil {
		s.logger.Warn("quitting Firefox failed", zap.Error(err))
	}
	err := s.launched.Stop()
	s.launched = nil
	return err
}
