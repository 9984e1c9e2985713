package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// cmdShell is an interactive loop over a shared session. Dot commands
// change settings between commands.
func cmdShell(cfg *Config, args []string) int {
	cfg.shared = true
	defer cfg.dropSession()

	scanner := bufio.NewScanner(cfg.Stdin)

	for {
		fmt.Fprint(cfg.Stdout, "foxcap> ")

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if line == ".quit" || line == ".exit" {
			return ExitSuccess
		}
		if strings.HasPrefix(line, ".window ") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, ".window")))
			if err != nil {
				fmt.Fprintf(cfg.Stderr, "invalid window index: %v\n", err)
				continue
			}
			cfg.Window = n
			cfg.dropSession()
			fmt.Fprintf(cfg.Stdout, "window set to %d\n", n)
			continue
		}
		if strings.HasPrefix(line, ".output ") {
			cfg.Output = strings.TrimSpace(strings.TrimPrefix(line, ".output"))
			fmt.Fprintf(cfg.Stdout, "output set to %q\n", cfg.Output)
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

		info.Run(cfg, parts[1:])
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(cfg.Stderr, "error reading input: %v\n", err)
		return ExitError
	}

	return ExitSuccess
}
