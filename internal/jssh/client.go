// Package jssh implements the evaluation channel to a scriptable browser
// host: a request/response link that sends remote script and returns the
// textual result.
package jssh

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tomyan/foxcap/internal/metrics"
)

// Defaults for Options.
const (
	DefaultHost        = "localhost"
	DefaultPort        = 9997
	DefaultMaxAttempts = 3
	DefaultDialTimeout = 5 * time.Second
)

// Transport names accepted in Options.Transport.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// Options configures Dial.
type Options struct {
	Host        string
	Port        int
	MaxAttempts int
	DialTimeout time.Duration // per attempt
	Transport   string        // "tcp" (default) or "websocket"
	Path        string        // WebSocket path, default "/"

	Logger  *zap.Logger
	Metrics *metrics.Collector
	Tracer  trace.Tracer
}

func (o *Options) applyDefaults() {
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.Transport == "" {
		o.Transport = TransportTCP
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer("github.com/tomyan/foxcap/internal/jssh")
	}
}

type transport interface {
	roundTrip(ctx context.Context, script string) (string, error)
	close() error
}

// Client is a live evaluation channel. Eval calls are serialised; at most
// one request is outstanding at a time.
type Client struct {
	t         transport
	addr      string
	mu        sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once

	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Dial connects to the host, retrying immediately on failure until
// MaxAttempts attempts have been made.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	opts.applyDefaults()
	logger := opts.Logger.With(zap.String("component", "jssh"))
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))

	var (
		t       transport
		lastErr error
		tries   int
	)
	for tries < opts.MaxAttempts {
		tries++
		t, lastErr = dialTransport(ctx, opts, addr)
		opts.Metrics.RecordConnectAttempt(lastErr)
		if lastErr == nil {
			break
		}
		logger.Debug("connect attempt failed",
			zap.String("addr", addr),
			zap.Int("attempt", tries),
			zap.Error(lastErr))
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return nil, &HostUnavailableError{Host: opts.Host, Port: opts.Port, Attempts: tries, Err: lastErr}
	}

	logger.Debug("connected", zap.String("addr", addr), zap.String("transport", opts.Transport))
	return &Client{
		t:       t,
		addr:    addr,
		logger:  logger,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}, nil
}

func dialTransport(ctx context.Context, opts Options, addr string) (transport, error) {
	switch opts.Transport {
	case TransportTCP:
		return dialTCP(ctx, addr, opts.DialTimeout)
	case TransportWebSocket:
		return dialWebSocket(ctx, opts.Host, opts.Port, opts.Path, opts.DialTimeout)
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.Transport)
	}
}

// Addr returns the host address the client is connected to.
func (c *Client) Addr() string {
	return c.addr
}

// Eval sends a script to the host and returns its textual result. Newlines
// in the script are replaced by spaces. If ctx has no deadline and the host
// never completes its response, Eval blocks until ctx is cancelled.
//
// An exception raised by the script is returned as a *ScriptError and the
// channel stays usable. Any transport failure closes the client and wraps
// ErrConnectionClosed.
func (c *Client) Eval(ctx context.Context, script string) (string, error) {
	if c.closed.Load() {
		return "", ErrConnectionClosed
	}

	ctx, span := c.tracer.Start(ctx, "jssh.Eval",
		trace.WithAttributes(attribute.Int("jssh.script.length", len(script))))
	defer span.End()

	line := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(script)

	c.mu.Lock()
	start := time.Now()
	resp, err := c.t.roundTrip(ctx, line)
	c.mu.Unlock()
	elapsed := time.Since(start)

	if err != nil {
		c.metrics.RecordEval(elapsed, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("eval failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		// A failed read leaves the stream out of step with requests.
		c.Close()
		return "", fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}

	c.logger.Debug("eval",
		zap.Int("script_len", len(line)),
		zap.Int("response_len", len(resp)),
		zap.Duration("elapsed", elapsed))

	if se, ok := parseScriptError(resp); ok {
		c.metrics.RecordEval(elapsed, se)
		span.SetStatus(codes.Error, se.Error())
		return "", se
	}
	c.metrics.RecordEval(elapsed, nil)
	return resp, nil
}

// Close closes the channel. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.t.close()
	})
	return err
}

// Closed reports whether the channel has been closed.
func (c *Client) Closed() bool {
	return c.closed.Load()
}
