package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name     string
	Desc     string
	Usage    string
	Category string
	Run      func(cfg *Config, args []string) int
}

// commands is the registry of all available commands.
var commands = map[string]CommandInfo{
	// Navigation
	"goto": {Name: "goto", Desc: "Navigate to a URL and wait for it to load", Usage: "foxcap goto <url>", Category: "Navigate", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: foxcap goto <url>")
		}
		return cmdGoto(cfg, args[0])
	}},
	"back":    {Name: "back", Desc: "Go back in history", Usage: "foxcap back", Category: "Navigate", Run: func(cfg *Config, args []string) int { return cmdBack(cfg) }},
	"forward": {Name: "forward", Desc: "Go forward in history", Usage: "foxcap forward", Category: "Navigate", Run: func(cfg *Config, args []string) int { return cmdForward(cfg) }},
	"refresh": {Name: "refresh", Desc: "Reload the page", Usage: "foxcap refresh", Category: "Navigate", Run: func(cfg *Config, args []string) int { return cmdRefresh(cfg) }},
	"wait":    {Name: "wait", Desc: "Wait for the page to finish loading", Usage: "foxcap wait", Category: "Navigate", Run: func(cfg *Config, args []string) int { return cmdWait(cfg) }},
	"exec": {Name: "exec", Desc: "Evaluate a script, then wait for any navigation", Usage: "foxcap exec [--no-wait] <script>", Category: "Navigate", Run: func(cfg *Config, args []string) int {
		return cmdExec(cfg, args)
	}},

	// Windows
	"windows": {Name: "windows", Desc: "List browser windows", Usage: "foxcap windows", Category: "Windows", Run: func(cfg *Config, args []string) int { return cmdWindows(cfg) }},
	"attach": {Name: "attach", Desc: "Attach to the newest window matching a URL or title", Usage: "foxcap attach <url|title> <text|/pattern/>", Category: "Windows", Run: func(cfg *Config, args []string) int {
		if len(args) < 2 {
			return cmdMissingArg(cfg, "usage: foxcap attach <url|title> <text|/pattern/>")
		}
		return cmdAttach(cfg, args[0], args[1])
	}},
	"find-window": {Name: "find-window", Desc: "Find the newest window matching a URL or title", Usage: "foxcap find-window <url|title> <text|/pattern/>", Category: "Windows", Run: func(cfg *Config, args []string) int {
		if len(args) < 2 {
			return cmdMissingArg(cfg, "usage: foxcap find-window <url|title> <text|/pattern/>")
		}
		return cmdFindWindow(cfg, args[0], args[1])
	}},
	"open":      {Name: "open", Desc: "Open a browser window", Usage: "foxcap open", Category: "Windows", Run: func(cfg *Config, args []string) int { return cmdOpen(cfg) }},
	"close":     {Name: "close", Desc: "Close the active window", Usage: "foxcap close", Category: "Windows", Run: func(cfg *Config, args []string) int { return cmdClose(cfg) }},
	"close-all": {Name: "close-all", Desc: "Close every window", Usage: "foxcap close-all", Category: "Windows", Run: func(cfg *Config, args []string) int { return cmdCloseAll(cfg) }},
	"maximize":  {Name: "maximize", Desc: "Maximize the active window", Usage: "foxcap maximize", Category: "Windows", Run: func(cfg *Config, args []string) int { return cmdMaximize(cfg) }},
	"minimize":  {Name: "minimize", Desc: "Minimize the active window", Usage: "foxcap minimize", Category: "Windows", Run: func(cfg *Config, args []string) int { return cmdMinimize(cfg) }},

	// Page info
	"url":    {Name: "url", Desc: "Get the document URL", Usage: "foxcap url", Category: "Read page", Run: func(cfg *Config, args []string) int { return cmdURL(cfg) }},
	"title":  {Name: "title", Desc: "Get the document title", Usage: "foxcap title", Category: "Read page", Run: func(cfg *Config, args []string) int { return cmdTitle(cfg) }},
	"status": {Name: "status", Desc: "Get the status bar text", Usage: "foxcap status", Category: "Read page", Run: func(cfg *Config, args []string) int { return cmdStatus(cfg) }},
	"html":   {Name: "html", Desc: "Get the document HTML", Usage: "foxcap html", Category: "Read page", Run: func(cfg *Config, args []string) int { return cmdHTML(cfg) }},
	"text":   {Name: "text", Desc: "Get the body text", Usage: "foxcap text", Category: "Read page", Run: func(cfg *Config, args []string) int { return cmdText(cfg) }},
	"contains": {Name: "contains", Desc: "Check whether the body text contains text or matches a pattern", Usage: "foxcap contains <text|/pattern/>", Category: "Read page", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: foxcap contains <text|/pattern/>")
		}
		return cmdContains(cfg, args[0])
	}},

	// Elements
	"xpath": {Name: "xpath", Desc: "Resolve the first element matching an XPath", Usage: "foxcap xpath <expression>", Category: "Elements", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: foxcap xpath <expression>")
		}
		return cmdXPath(cfg, args[0])
	}},
	"xpath-all": {Name: "xpath-all", Desc: "Resolve every element matching an XPath", Usage: "foxcap xpath-all <expression>", Category: "Elements", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: foxcap xpath-all <expression>")
		}
		return cmdXPathAll(cfg, args[0])
	}},
	"locate": {Name: "locate", Desc: "Resolve an element by tag and attribute", Usage: "foxcap locate <tag> <id|name|value|text|class|title|href|src|index|xpath> <text|/pattern/>", Category: "Elements", Run: func(cfg *Config, args []string) int {
		if len(args) < 3 {
			return cmdMissingArg(cfg, "usage: foxcap locate <tag> <how> <text|/pattern/>")
		}
		return cmdLocate(cfg, args[0], args[1], args[2])
	}},

	// Popups
	"popup":      {Name: "popup", Desc: "Answer upcoming alert and confirm popups", Usage: "foxcap popup [--text <text>] <ok|cancel>", Category: "Popups", Run: func(cfg *Config, args []string) int { return cmdPopup(cfg, args) }},
	"popup-text": {Name: "popup-text", Desc: "Get the text of the last answered popup", Usage: "foxcap popup-text", Category: "Popups", Run: func(cfg *Config, args []string) int { return cmdPopupText(cfg) }},

	// Host
	"launch": {Name: "launch", Desc: "Launch Firefox with the JSSh shell if it is not running", Usage: "foxcap launch [--wait <duration>] [url]", Category: "Host", Run: func(cfg *Config, args []string) int { return cmdLaunch(cfg, args) }},
}

func init() {
	commands["shell"] = CommandInfo{Name: "shell", Desc: "Interactive command loop on one session", Usage: "foxcap shell", Category: "Utility", Run: func(cfg *Config, args []string) int { return cmdShell(cfg, args) }}
	commands["pipe"] = CommandInfo{Name: "pipe", Desc: "Run commands from stdin on one session", Usage: "foxcap pipe < commands.txt", Category: "Utility", Run: func(cfg *Config, args []string) int { return cmdPipe(cfg, args) }}
	commands["help"] = CommandInfo{Name: "help", Desc: "Show help for a command", Usage: "foxcap help [command]", Category: "Utility", Run: func(cfg *Config, args []string) int { return cmdHelp(cfg, args) }}
	commands["retry"] = CommandInfo{Name: "retry", Desc: "Retry a command on failure", Usage: "foxcap retry [--attempts N] [--interval duration] <command> [args...]", Category: "Utility", Run: func(cfg *Config, args []string) int { return cmdRetry(cfg, args) }}
}

// cmdMissingArg prints a usage message and returns ExitError.
func cmdMissingArg(cfg *Config, usage string) int {
	fmt.Fprintln(cfg.Stderr, usage)
	return ExitError
}

// categoryOrder defines the display order for command categories.
var categoryOrder = []string{
	"Navigate",
	"Windows",
	"Read page",
	"Elements",
	"Popups",
	"Host",
	"Utility",
}

type commandGroup struct {
	Category string
	Commands []CommandInfo
}

// commandsByCategory returns commands grouped by category, with sorted names within each category.
func commandsByCategory() []commandGroup {
	grouped := make(map[string][]CommandInfo)
	for _, cmd := range commands {
		grouped[cmd.Category] = append(grouped[cmd.Category], cmd)
	}

	var result []commandGroup
	for _, cat := range categoryOrder {
		cmds := grouped[cat]
		if len(cmds) == 0 {
			continue
		}
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		result = append(result, commandGroup{Category: cat, Commands: cmds})
	}
	return result
}

// printUsage prints the usage message with commands grouped by category.
func printUsage(cfg *Config, fs *flag.FlagSet) {
	fmt.Fprintln(cfg.Stderr, "usage: foxcap [flags] <command>")
	fmt.Fprintln(cfg.Stderr)

	for _, group := range commandsByCategory() {
		fmt.Fprintf(cfg.Stderr, "  %s:\n", group.Category)
		names := make([]string, len(group.Commands))
		for i, cmd := range group.Commands {
			names[i] = cmd.Name
		}
		fmt.Fprintf(cfg.Stderr, "    %s\n", strings.Join(names, ", "))
		fmt.Fprintln(cfg.Stderr)
	}

	fmt.Fprintln(cfg.Stderr, "flags:")
	fs.PrintDefaults()
}

// printFullCommandList prints every command with its description.
func printFullCommandList(cfg *Config) {
	for _, group := range commandsByCategory() {
		fmt.Fprintf(cfg.Stdout, "%s:\n", group.Category)
		for _, cmd := range group.Commands {
			fmt.Fprintf(cfg.Stdout, "  %-12s %s\n", cmd.Name, cmd.Desc)
		}
		fmt.Fprintln(cfg.Stdout)
	}
}
