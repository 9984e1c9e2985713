package main

import (
	"context"
	"flag"

	"github.com/tomyan/foxcap/internal/firefox"
)

func cmdPopup(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("popup", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	text := fs.String("text", "", "Only answer popups showing exactly this text")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}
	if fs.NArg() < 1 {
		return cmdMissingArg(cfg, "usage: foxcap popup [--text <text>] <ok|cancel>")
	}
	button, err := firefox.ParsePopupButton(fs.Arg(0))
	if err != nil {
		return cmdMissingArg(cfg, "error: "+err.Error())
	}

	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		if err := s.InstallPopupResponder(ctx, button, *text); err != nil {
			return nil, err
		}
		return PopupResult{Button: button.String(), Text: *text}, nil
	})
}

func cmdPopupText(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		text, err := s.PopupText(ctx)
		if err != nil {
			return nil, err
		}
		return TextResult{Text: text}, nil
	})
}
