package main

import "fmt"

func cmdHelp(cfg *Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(cfg.Stdout, "foxcap - Firefox JSSh remote control CLI")
		fmt.Fprintln(cfg.Stdout)
		printFullCommandList(cfg)
		fmt.Fprintln(cfg.Stdout, "Run 'foxcap help <command>' for detailed help on a command.")
		return ExitSuccess
	}

	info, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", args[0])
		return ExitError
	}

	fmt.Fprintf(cfg.Stdout, "%s - %s\n\nusage: %s\n", info.Name, info.Desc, info.Usage)
	return ExitSuccess
}
