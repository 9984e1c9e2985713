package main

import (
	"context"
	"fmt"

	"github.com/tomyan/foxcap/internal/firefox"
)

func cmdXPath(cfg *Config, xpath string) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		return s.ElementByXPath(ctx, xpath)
	})
}

func cmdXPathAll(cfg *Config, xpath string) int {
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		els, err := s.ElementsByXPath(ctx, xpath)
		if err != nil {
			return nil, err
		}
		return ElementsResult{Count: len(els), Elements: els}, nil
	})
}

// cmdLocate resolves "<tag> <how> <what>". A tag of "*" matches any
// element.
func cmdLocate(cfg *Config, tag, how, what string) int {
	m, err := parseMatcher(what)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	loc := firefox.ByAttribute(tag, how, m)
	if how == "xpath" {
		loc = firefox.ByXPath(what)
	}
	return withSession(cfg, func(ctx context.Context, s *firefox.Session) (interface{}, error) {
		return s.Element(ctx, loc)
	})
}
