package main

import (
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// retryable reports whether another attempt can change the outcome. Script,
// element and usage errors come out the same every time.
func retryable(code int) bool {
	return code == ExitConnFailed || code == ExitTimeout
}

func cmdRetry(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("retry", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)

	attempts := fs.Int("attempts", 3, "Maximum number of attempts")
	interval := fs.Duration("interval", 1*time.Second, "Interval between attempts")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	remaining := fs.Args()
	if len(remaining) < 1 {
		fmt.Fprintln(cfg.Stderr, "usage: foxcap retry [--attempts N] [--interval duration] <command> [args...]")
		return ExitError
	}

	cmdName := remaining[0]
	cmdArgs := remaining[1:]

	info, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", cmdName)
		return ExitError
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	code := ExitError
	for i := 1; i <= *attempts; i++ {
		code = info.Run(cfg, cmdArgs)
		if !retryable(code) || i == *attempts {
			return code
		}
		logger.Info("retrying",
			zap.String("command", cmdName),
			zap.Int("attempt", i),
			zap.Int("exit_code", code),
			zap.Duration("interval", *interval))
		// A shared session that timed out may be mid-response; redial.
		cfg.dropSession()
		time.Sleep(*interval)
	}
	return code
}
