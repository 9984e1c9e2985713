// Package firefox drives a Firefox host over the JSSh evaluation channel.
//
// A Session tracks the active browser window, keeps session-scoped remote
// variables bound to its window, browser, document and body, waits for
// navigations to settle, and resolves element queries into classified
// handles. A Session is not safe for concurrent use; callers that need
// concurrency create independent Sessions.
package firefox

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tomyan/foxcap/internal/firefox/launcher"
	"github.com/tomyan/foxcap/internal/jssh"
	"github.com/tomyan/foxcap/internal/metrics"
	"github.com/tomyan/foxcap/internal/script"
)

// Evaluator sends remote script to the host and returns its textual result.
// *jssh.Client implements it.
type Evaluator interface {
	Eval(ctx context.Context, script string) (string, error)
	Close() error
}

// Defaults for Options.
const (
	DefaultWaitTimeout  = 300 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
	DefaultCloseTimeout = 5 * time.Second
	DefaultMaxRedirects = 20
	DefaultStartTimeout = 30 * time.Second
)

// Options configures a Session.
type Options struct {
	Channel jssh.Options
	Launch  launcher.LaunchOptions

	WaitTimeout  time.Duration // ceiling for one load-polling phase
	PollInterval time.Duration // pause between load polls
	CloseTimeout time.Duration // how long Close waits for a window to go
	MaxRedirects int           // meta refresh hops followed per wait
	StartTimeout time.Duration // how long a launched host has to open its shell port

	// QuitRunner and GOOS drive application quit after the last window
	// of a launched host is closed.
	QuitRunner launcher.CommandRunner
	GOOS       string

	Logger  *zap.Logger
	Metrics *metrics.Collector
	Tracer  trace.Tracer
}

func (o *Options) applyDefaults() {
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.CloseTimeout <= 0 {
		o.CloseTimeout = DefaultCloseTimeout
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = DefaultMaxRedirects
	}
	if o.StartTimeout <= 0 {
		o.StartTimeout = DefaultStartTimeout
	}
	if o.GOOS == "" {
		o.GOOS = runtime.GOOS
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer("github.com/tomyan/foxcap/internal/firefox")
	}
	if o.Channel.Logger == nil {
		o.Channel.Logger = o.Logger
	}
	if o.Channel.Metrics == nil {
		o.Channel.Metrics = o.Metrics
	}
	if o.Channel.Tracer == nil {
		o.Channel.Tracer = o.Tracer
	}
}

// Session is a controlling session on one host.
type Session struct {
	ev    Evaluator
	id    string
	names Names

	window int // active window index
	opened int // window opened by this session, or NoWindow
	url    string
	title  string

	checkers []*Checker
	nextEl   int

	launched *launcher.Instance
	opts     Options

	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// NewSession creates a Session on an open evaluator, selects the most
// recent browser window and binds to it.
func NewSession(ctx context.Context, ev Evaluator, opts Options) (*Session, error) {
	opts.applyDefaults()
	id := uuid.New()

	s := &Session{
		ev:      ev,
		id:      id.String(),
		names:   newNames(id),
		window:  NoWindow,
		opened:  NoWindow,
		opts:    opts,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
	s.logger = opts.Logger.With(
		zap.String("component", "session"),
		zap.String("session", s.id),
	)

	idx, err := s.count(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.bind(ctx, idx); err != nil {
		return nil, err
	}
	s.logger.Debug("session ready", zap.Int("window", idx), zap.String("url", s.url))
	return s, nil
}

// Connect dials the host and creates a Session without launching anything.
func Connect(ctx context.Context, opts Options) (*Session, error) {
	opts.applyDefaults()
	client, err := jssh.Dial(ctx, opts.Channel)
	if err != nil {
		return nil, err
	}
	s, err := NewSession(ctx, client, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// Launch starts Firefox with the JSSh shell, waits for the shell port to
// open and connects to it. If the port already accepts connections nothing
// is launched.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	opts.applyDefaults()
	host, port := opts.Channel.Host, opts.Channel.Port
	if host == "" {
		host = jssh.DefaultHost
	}
	if port == 0 {
		port = jssh.DefaultPort
	}

	var inst *launcher.Instance
	if !launcher.IsPortOpen(host, port) {
		var err error
		inst, err = launcher.Launch(ctx, opts.Launch)
		if err != nil {
			return nil, fmt.Errorf("launching Firefox: %w", err)
		}
		opts.Logger.Info("launched Firefox", zap.Int("pid", inst.PID), zap.String("path", inst.Path))
		if err := launcher.WaitForPort(ctx, host, port, opts.StartTimeout); err != nil {
			inst.Stop()
			return nil, fmt.Errorf("waiting for the JSSh shell: %w", err)
		}
	}

	s, err := Connect(ctx, opts)
	if err != nil {
		inst.Stop()
		return nil, err
	}
	s.launched = inst
	return s, nil
}

// Start launches (or connects to) Firefox and navigates to url.
func Start(ctx context.Context, url string, opts Options) (*Session, error) {
	s, err := Launch(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := s.Goto(ctx, url); err != nil {
		return s, err
	}
	return s, nil
}

// AttachTo connects without launching and attaches to the most recent
// window matching the predicate.
func AttachTo(ctx context.Context, opts Options, how WindowHow, what script.Matcher) (*Session, error) {
	s, err := Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := s.Attach(ctx, how, what); err != nil {
		s.Disconnect()
		return nil, err
	}
	return s, nil
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Names returns the remote variables bound by this session.
func (s *Session) Names() Names {
	return s.names
}

// Window returns the active window with its cached URL and title.
func (s *Session) Window() Window {
	return Window{Index: s.window, URL: s.url, Title: s.title}
}

// Launched returns the Firefox process this session started, if any.
func (s *Session) Launched() *launcher.Instance {
	return s.launched
}

// Eval evaluates script in the host without waiting for navigation.
func (s *Session) Eval(ctx context.Context, script string) (string, error) {
	return s.ev.Eval(ctx, script)
}

func stringExpr(expr string) string {
	return "JSON.stringify(String(" + expr + "))"
}

// evalString reads expr as a string. The host returns it JSON encoded, and
// an encoded string starts with a quote, so page text shaped like
// "TypeError: ..." is never taken for an exception.
func (s *Session) evalString(ctx context.Context, expr string) (string, error) {
	out, err := s.ev.Eval(ctx, stringExpr(expr))
	if err != nil {
		return "", err
	}
	var v string
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return "", fmt.Errorf("decoding %.40q: %w", out, err)
	}
	return v, nil
}
