package main

import (
	"context"

	"github.com/tomyan/foxcap/internal/firefox"
)

func cmdURL(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		url, err := s.URL(ctx)
		if err != nil {
			return nil, err
		}
		return URLResult{URL: url}, nil
	})
}

func cmdTitle(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		title, err := s.Title(ctx)
		if err != nil {
			return nil, err
		}
		return TitleResult{Title: title}, nil
	})
}

func cmdStatus(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		status, err := s.Status(ctx)
		if err != nil {
			return nil, err
		}
		return StatusResult{Status: status}, nil
	})
}

func cmdHTML(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		html, err := s.HTML(ctx)
		if err != nil {
			return nil, err
		}
		return HTMLResult{HTML: html}, nil
	})
}

func cmdText(cfg *Config) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		text, err := s.Text(ctx)
		if err != nil {
			return nil, err
		}
		return TextResult{Text: text}, nil
	})
}

func cmdContains(cfg *Config, what string) int {
	m, err := parseMatcher(what)
	if err != nil {
		return cmdMissingArg(cfg, "error: "+err.Error())
	}
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		ok, err := s.ContainsText(ctx, m)
		if err != nil {
			return nil, err
		}
		return ContainsResult{Contains: ok}, nil
	})
}
