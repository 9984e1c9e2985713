package firefox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tomyan/foxcap/internal/jssh"
)

const windowCountScript = "getWindows().length"

// openWindowScript opens a browser window from the first host window and
// returns the index of the newest window.
const openWindowScript = "getWindows()[0].open(); getWindows().length - 1"

// listWindowsScript returns the browser-capable windows as JSON.
const listWindowsScript = `(function() {
  var ws = getWindows();
  var out = [];
  for (var i = 0; i < ws.length; i++) {
    if (typeof ws[i].getBrowser != 'function') continue;
    var b = ws[i].getBrowser();
    if (!b) continue;
    out.push({index: i, url: b.contentDocument.URL, title: b.contentDocument.title});
  }
  return JSON.stringify(out);
})()`

func hasBrowserScript(i int) string {
	return fmt.Sprintf("typeof getWindows()[%d].getBrowser == 'function' && getWindows()[%d].getBrowser() != null", i, i)
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("unexpected result %q", s)
	}
	return n, nil
}

func (s *Session) windowCount(ctx context.Context) (int, error) {
	out, err := s.ev.Eval(ctx, windowCountScript)
	if err != nil {
		return 0, fmt.Errorf("counting windows: %w", err)
	}
	return parseInt(out)
}

// hasBrowser reports whether window i exposes browser control. Utility
// windows such as the download manager do not.
func (s *Session) hasBrowser(ctx context.Context, i int) (bool, error) {
	out, err := s.ev.Eval(ctx, hasBrowserScript(i))
	if err != nil {
		if errors.Is(err, jssh.ErrScript) {
			return false, nil
		}
		return false, fmt.Errorf("probing window %d: %w", i, err)
	}
	return strings.TrimSpace(out) == "true", nil
}

// lastBrowserWindow walks the window list backward and returns the first
// index with browser control, or NoWindow.
func (s *Session) lastBrowserWindow(ctx context.Context) (int, error) {
	n, err := s.windowCount(ctx)
	if err != nil {
		return NoWindow, err
	}
	for i := n - 1; i >= 0; i-- {
		ok, err := s.hasBrowser(ctx, i)
		if err != nil {
			return NoWindow, err
		}
		if ok {
			return i, nil
		}
	}
	return NoWindow, nil
}

// count selects the most recently opened browser window as the active
// window, opening one if the host has none.
func (s *Session) count(ctx context.Context) (int, error) {
	idx, err := s.lastBrowserWindow(ctx)
	if err != nil {
		return NoWindow, err
	}
	if idx == NoWindow {
		s.logger.Info("no browser window, opening one")
		if _, err := s.OpenWindow(ctx); err != nil && !errors.Is(err, ErrOpenWindow) {
			return NoWindow, err
		}
		idx, err = s.lastBrowserWindow(ctx)
		if err != nil {
			return NoWindow, err
		}
		if idx == NoWindow {
			return NoWindow, ErrNoBrowserWindow
		}
	}
	s.window = idx
	return idx, nil
}

// OpenWindow opens a new host window and returns its index. A session opens
// at most one window; later calls return the cached index.
func (s *Session) OpenWindow(ctx context.Context) (int, error) {
	if s.opened != NoWindow {
		return s.opened, nil
	}

	out, err := s.ev.Eval(ctx, openWindowScript)
	if err != nil {
		if errors.Is(err, jssh.ErrScript) {
			return NoWindow, fmt.Errorf("%w: %w", ErrOpenWindow, err)
		}
		return NoWindow, fmt.Errorf("opening window: %w", err)
	}
	n, err := parseInt(out)
	if err != nil || n < 0 {
		return NoWindow, fmt.Errorf("%w: host returned %q", ErrOpenWindow, out)
	}

	s.opened = n
	s.logger.Info("opened window", zap.Int("window", n))
	return n, nil
}

// Windows lists the browser-capable host windows.
func (s *Session) Windows(ctx context.Context) ([]Window, error) {
	out, err := s.ev.Eval(ctx, listWindowsScript)
	if err != nil {
		return nil, fmt.Errorf("listing windows: %w", err)
	}
	var windows []Window
	if err := json.Unmarshal([]byte(out), &windows); err != nil {
		return nil, fmt.Errorf("parsing window list: %w", err)
	}
	return windows, nil
}

// SelectWindow makes window index the active window and binds to it.
func (s *Session) SelectWindow(ctx context.Context, index int) error {
	ok, err := s.hasBrowser(ctx, index)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("window %d: %w", index, ErrNoBrowserWindow)
	}
	return s.bind(ctx, index)
}
