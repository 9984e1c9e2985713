package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/tomyan/foxcap/internal/firefox"
)

func navResult(s *firefox.Session) NavResult {
	w := s.Window()
	return NavResult{Window: w.Index, URL: w.URL, Title: w.Title}
}

func cmdGoto(cfg *Config, url string) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		if err := s.Goto(ctx, url); err != nil {
			return nil, err
		}
		return navResult(s), nil
	})
}

func cmdBack(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		if err := s.Back(ctx); err != nil {
			return nil, err
		}
		return navResult(s), nil
	})
}

func cmdForward(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		if err := s.Forward(ctx); err != nil {
			return nil, err
		}
		return navResult(s), nil
	})
}

func cmdRefresh(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		if err := s.Refresh(ctx); err != nil {
			return nil, err
		}
		return navResult(s), nil
	})
}

// cmdWait waits for the current navigation, if any, to settle.
func cmdWait(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		if err := s.Wait(ctx); err != nil {
			return nil, err
		}
		return navResult(s), nil
	})
}

func cmdExec(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	noWait := fs.Bool("no-wait", false, "Do not wait for navigation started by the script")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}
	if fs.NArg() < 1 {
		return cmdMissingArg(cfg, "usage: foxcap exec [--no-wait] <script>")
	}
	src := fs.Arg(0)

	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		var out string
		var err error
		if *noWait {
			out, err = s.Eval(ctx, src)
		} else {
			out, err = s.Execute(ctx, src)
		}
		if err != nil {
			return nil, fmt.Errorf("exec: %w", err)
		}
		return EvalResult{Value: out}, nil
	})
}
