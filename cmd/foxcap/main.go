package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tomyan/foxcap/internal/firefox"
	"github.com/tomyan/foxcap/internal/firefox/launcher"
	"github.com/tomyan/foxcap/internal/jssh"
	"github.com/tomyan/foxcap/internal/metrics"
	"github.com/tomyan/foxcap/internal/script"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitConnFailed = 2
	ExitTimeout    = 3
)

// Config holds the CLI configuration.
type Config struct {
	Host        string
	Port        int
	Transport   string // tcp, websocket
	Path        string // websocket path
	Timeout     time.Duration
	Output      string // json, ndjson, text
	Quiet       bool
	Window      int // window index, -1 for the most recent browser window
	LogLevel    string
	Trace       bool
	MetricsAddr string
	FirefoxPath string
	Profile     string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// PollInterval overrides the navigation poll interval for testing. Zero
	// uses the session default.
	PollInterval time.Duration

	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer

	// shared keeps one session across commands in shell and pipe mode.
	shared  bool
	session *firefox.Session
}

// DefaultConfig returns the default configuration with built-in defaults.
// The rc file, .env and environment variables are applied later.
func DefaultConfig() *Config {
	return &Config{
		Host:      jssh.DefaultHost,
		Port:      jssh.DefaultPort,
		Transport: jssh.TransportTCP,
		Timeout:   30 * time.Second,
		Output:    "json",
		Window:    -1,
		LogLevel:  "warn",
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

func main() {
	cfg := DefaultConfig()
	os.Exit(run(os.Args[1:], cfg))
}

// flagValues stores values parsed from CLI flags before they get overwritten.
type flagValues struct {
	host        string
	port        int
	transport   string
	path        string
	timeout     time.Duration
	output      string
	quiet       bool
	window      int
	logLevel    string
	trace       bool
	metricsAddr string
	firefoxPath string
	profile     string
}

func run(args []string, cfg *Config) int {
	var fv flagValues
	fs := flag.NewFlagSet("foxcap", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	fs.StringVar(&fv.host, "host", cfg.Host, "JSSh host (env: FOXCAP_HOST)")
	fs.IntVar(&fv.port, "port", cfg.Port, "JSSh port (env: FOXCAP_PORT)")
	fs.StringVar(&fv.transport, "transport", cfg.Transport, "Transport: tcp, websocket (env: FOXCAP_TRANSPORT)")
	fs.StringVar(&fv.path, "path", cfg.Path, "WebSocket path (env: FOXCAP_PATH)")
	fs.DurationVar(&fv.timeout, "timeout", cfg.Timeout, "Command timeout (env: FOXCAP_TIMEOUT)")
	fs.StringVar(&fv.output, "output", cfg.Output, "Output format: json, ndjson, text (env: FOXCAP_OUTPUT)")
	fs.BoolVar(&fv.quiet, "quiet", cfg.Quiet, "Suppress non-essential output")
	fs.IntVar(&fv.window, "window", cfg.Window, "Window index (-1 for the most recent browser window)")
	fs.StringVar(&fv.logLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error (env: FOXCAP_LOG_LEVEL)")
	fs.BoolVar(&fv.trace, "trace", cfg.Trace, "Write trace spans to stderr")
	fs.StringVar(&fv.metricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address (env: FOXCAP_METRICS_ADDR)")
	fs.StringVar(&fv.firefoxPath, "firefox", cfg.FirefoxPath, "Firefox executable for launch (env: FOXCAP_FIREFOX)")
	fs.StringVar(&fv.profile, "profile", cfg.Profile, "Firefox profile for launch (env: FOXCAP_PROFILE)")
	helpCommands := fs.Bool("help-commands", false, "List all commands with descriptions")

	fs.Usage = func() { printUsage(cfg, fs) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	explicitFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		explicitFlags[f.Name] = true
	})

	// Config precedence: built-in defaults < .foxcaprc < .env < env vars < CLI flags
	if err := loadConfigFile(cfg); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	dotenv := loadDotEnv(cfg)
	applyEnvVars(cfg, explicitFlags, dotenv)
	reapplyExplicitFlags(cfg, &fv, explicitFlags)

	if *helpCommands {
		printFullCommandList(cfg)
		return ExitSuccess
	}

	remaining := fs.Args()
	if len(remaining) < 1 {
		printUsage(cfg, fs)
		return ExitError
	}

	info, ok := commands[remaining[0]]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", remaining[0])
		return ExitError
	}

	shutdown, err := setupTelemetry(cfg)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	defer shutdown()

	return info.Run(cfg, remaining[1:])
}

// applyEnvVars applies FOXCAP_* variables to cfg, but only for fields not
// set by explicit CLI flags. The process environment wins over .env.
func applyEnvVars(cfg *Config, explicit map[string]bool, dotenv map[string]string) {
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return dotenv[key]
	}

	if v := lookup("FOXCAP_HOST"); v != "" && !explicit["host"] {
		cfg.Host = v
	}
	if v := lookup("FOXCAP_PORT"); v != "" && !explicit["port"] {
		if p, err := parsePort(v); err == nil {
			cfg.Port = p
		}
	}
	if v := lookup("FOXCAP_TRANSPORT"); v != "" && !explicit["transport"] {
		cfg.Transport = v
	}
	if v := lookup("FOXCAP_PATH"); v != "" && !explicit["path"] {
		cfg.Path = v
	}
	if v := lookup("FOXCAP_TIMEOUT"); v != "" && !explicit["timeout"] {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := lookup("FOXCAP_OUTPUT"); v != "" && !explicit["output"] {
		cfg.Output = v
	}
	if v := lookup("FOXCAP_LOG_LEVEL"); v != "" && !explicit["log-level"] {
		cfg.LogLevel = v
	}
	if v := lookup("FOXCAP_METRICS_ADDR"); v != "" && !explicit["metrics-addr"] {
		cfg.MetricsAddr = v
	}
	if v := lookup("FOXCAP_FIREFOX"); v != "" && !explicit["firefox"] {
		cfg.FirefoxPath = v
	}
	if v := lookup("FOXCAP_PROFILE"); v != "" && !explicit["profile"] {
		cfg.Profile = v
	}
}

// reapplyExplicitFlags re-applies flag values that were explicitly set on
// the command line, since the rc file may have overwritten them.
func reapplyExplicitFlags(cfg *Config, fv *flagValues, explicit map[string]bool) {
	if explicit["host"] {
		cfg.Host = fv.host
	}
	if explicit["port"] {
		cfg.Port = fv.port
	}
	if explicit["transport"] {
		cfg.Transport = fv.transport
	}
	if explicit["path"] {
		cfg.Path = fv.path
	}
	if explicit["timeout"] {
		cfg.Timeout = fv.timeout
	}
	if explicit["output"] {
		cfg.Output = fv.output
	}
	if explicit["quiet"] {
		cfg.Quiet = fv.quiet
	}
	if explicit["window"] {
		cfg.Window = fv.window
	}
	if explicit["log-level"] {
		cfg.LogLevel = fv.logLevel
	}
	if explicit["trace"] {
		cfg.Trace = fv.trace
	}
	if explicit["metrics-addr"] {
		cfg.MetricsAddr = fv.metricsAddr
	}
	if explicit["firefox"] {
		cfg.FirefoxPath = fv.firefoxPath
	}
	if explicit["profile"] {
		cfg.Profile = fv.profile
	}
}

// sessionOptions builds session options from cfg.
func sessionOptions(cfg *Config) firefox.Options {
	return firefox.Options{
		Channel: jssh.Options{
			Host:      cfg.Host,
			Port:      cfg.Port,
			Transport: cfg.Transport,
			Path:      cfg.Path,
		},
		Launch: launcher.LaunchOptions{
			FirefoxPath: cfg.FirefoxPath,
			Profile:     cfg.Profile,
		},
		PollInterval: cfg.PollInterval,
		Logger:       cfg.logger,
		Metrics:      cfg.metrics,
		Tracer:       cfg.tracer,
	}
}

// acquireSession returns the shared session in shell and pipe mode, or a
// new one the caller must release.
func acquireSession(ctx context.Context, cfg *Config) (*firefox.Session, func(), error) {
	if cfg.session != nil {
		return cfg.session, func() {}, nil
	}

	s, err := firefox.Connect(ctx, sessionOptions(cfg))
	if err != nil {
		return nil, nil, err
	}
	if cfg.Window >= 0 {
		if err := s.SelectWindow(ctx, cfg.Window); err != nil {
			s.Disconnect()
			return nil, nil, err
		}
	}

	if cfg.shared {
		cfg.session = s
		return s, func() {}, nil
	}
	return s, func() { s.Disconnect() }, nil
}

// dropSession disconnects and forgets the shared session.
func (cfg *Config) dropSession() {
	if cfg.session != nil {
		cfg.session.Disconnect()
		cfg.session = nil
	}
}

// withSession executes fn with a connected session and prints its result.
func withSession(cfg *Config, fn func(ctx context.Context, s *firefox.Session) (interface{}, error)) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	s, release, err := acquireSession(ctx, cfg)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		if errors.Is(err, jssh.ErrHostUnavailable) {
			return ExitConnFailed
		}
		return exitCode(err)
	}
	defer release()

	result, err := fn(ctx, s)
	if err != nil {
		if errors.Is(err, jssh.ErrConnectionClosed) {
			cfg.dropSession()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintln(cfg.Stderr, "error: timeout")
			return ExitTimeout
		}
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return exitCode(err)
	}

	return outputResult(cfg, result)
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, firefox.ErrNavigationTimeout):
		return ExitTimeout
	case errors.Is(err, jssh.ErrHostUnavailable), errors.Is(err, jssh.ErrConnectionClosed):
		return ExitConnFailed
	}
	return ExitError
}

// parseMatcher reads /source/ or /source/i as a pattern and anything else
// as a literal.
func parseMatcher(s string) (script.Matcher, error) {
	if len(s) >= 2 && strings.HasPrefix(s, "/") {
		switch {
		case strings.HasSuffix(s, "/i") && len(s) >= 3:
			return script.PatternFold(s[1 : len(s)-2])
		case strings.HasSuffix(s, "/"):
			return script.Pattern(s[1 : len(s)-1])
		}
	}
	return script.Literal(s), nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if p <= 0 || p > 65535 {
		return 0, fmt.Errorf("invalid port %d", p)
	}
	return p, nil
}
