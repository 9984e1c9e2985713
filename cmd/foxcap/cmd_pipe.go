package main

import (
	"bufio"
	"fmt"
	"strings"
)

// cmdPipe runs one command per stdin line on a shared session and stops at
// the first failure.
func cmdPipe(cfg *Config, args []string) int {
	cfg.shared = true
	defer cfg.dropSession()

	scanner := bufio.NewScanner(cfg.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := splitArgs(line)
		if len(parts) == 0 {
			continue
		}

		info, ok := commands[parts[0]]
		if !ok {
			fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", parts[0])
			continue
		}

		if code := info.Run(cfg, parts[1:]); code != ExitSuccess {
			return code
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(cfg.Stderr, "error reading stdin: %v\n", err)
		return ExitError
	}

	return ExitSuccess
}

// splitArgs splits a command line into arguments, respecting quoted strings.
func splitArgs(line string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)
	quoted := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote && c == quoteChar:
			inQuote = false
		case inQuote:
			current.WriteByte(c)
		case c == '"' || c == '\'':
			inQuote, quoteChar, quoted = true, c, true
		case c == ' ' || c == '\t':
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}

	return args
}
