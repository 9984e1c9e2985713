package main

import (
	"context"
	"fmt"

	"github.com/tomyan/foxcap/internal/firefox"
)

func cmdWindows(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		windows, err := s.Windows(ctx)
		if err != nil {
			return nil, err
		}
		return WindowsResult{Windows: windows}, nil
	})
}

// parseWindowHow parses the "url" or "title" argument of attach and
// find-window.
func parseWindowHow(how string) (firefox.WindowHow, error) {
	h, err := firefox.ParseWindowHow(how)
	if err != nil {
		return "", fmt.Errorf("%w (want url or title)", err)
	}
	return h, nil
}

func cmdAttach(cfg *Config, how, what string) int {
	h, err := parseWindowHow(how)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	m, err := parseMatcher(what)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		if err := s.Attach(ctx, h, m); err != nil {
			return nil, err
		}
		return navResult(s), nil
	})
}

func cmdFindWindow(cfg *Config, how, what string) int {
	h, err := parseWindowHow(how)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	m, err := parseMatcher(what)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		idx, err := s.FindWindow(ctx, h, m)
		if err != nil {
			return nil, err
		}
		return FindWindowResult{Index: idx, Found: idx != firefox.NotFound}, nil
	})
}

// cmdOpen opens a browser window and makes it the active window.
func cmdOpen(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		idx, err := s.OpenWindow(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.SelectWindow(ctx, idx); err != nil {
			return nil, err
		}
		return navResult(s), nil
	})
}

func cmdClose(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		defer func() { cfg.session = nil }()
		if err := s.Close(ctx); err != nil {
			return nil, err
		}
		return ClosedResult{Closed: true}, nil
	})
}

func cmdCloseAll(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		defer func() { cfg.session = nil }()
		if err := s.CloseAll(ctx); err != nil {
			return nil, err
		}
		return ClosedResult{Closed: true}, nil
	})
}

func cmdMaximize(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		if err := s.Maximize(ctx); err != nil {
			return nil, err
		}
		return navResult(s), nil
	})
}

func cmdMinimize(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		if err := s.Minimize(ctx); err != nil {
			return nil, err
		}
		return navResult(s), nil
	})
}
