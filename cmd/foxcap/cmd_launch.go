package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/tomyan/foxcap/internal/firefox"
)

// cmdLaunch starts Firefox with the JSSh shell unless the port already
// accepts connections, and optionally navigates. The browser keeps running
// after foxcap exits.
func cmdLaunch(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	wait := fs.Duration("wait", 2*time.Second, "Startup grace period before connecting")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	opts := sessionOptions(cfg)
	opts.Launch.WaitTime = *wait

	var s *firefox.Session
	var err error
	if fs.NArg() > 0 {
		s, err = firefox.Start(ctx, fs.Arg(0), opts)
	} else {
		s, err = firefox.Launch(ctx, opts)
	}
	if err != nil {
		if s != nil {
			s.Disconnect()
		}
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return exitCode(err)
	}

	if cfg.shared {
		cfg.dropSession()
		cfg.session = s
	} else {
		defer s.Disconnect()
	}

	w := s.Window()
	result := LaunchResult{URL: w.URL, Title: w.Title}
	if inst := s.Launched(); inst != nil {
		result.Launched = true
		result.PID = inst.PID
		result.Path = inst.Path
	}
	return outputResult(cfg, result)
}
