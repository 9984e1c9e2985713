package jssh

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"
)

// prompt terminates every greeting and response on the JSSh line protocol.
const prompt = "\n> "

type tcpTransport struct {
	conn net.Conn
	buf  []byte
}

func dialTCP(ctx context.Context, addr string, timeout time.Duration) (*tcpTransport, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	t := &tcpTransport{conn: conn, buf: make([]byte, 4096)}

	// The shell greets with a banner ending in the first prompt.
	gctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := t.withDeadline(gctx, func() error {
		_, err := t.readResponse()
		return err
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading greeting: %w", err)
	}
	return t, nil
}

func (t *tcpTransport) roundTrip(ctx context.Context, script string) (string, error) {
	var resp string
	err := t.withDeadline(ctx, func() error {
		if _, err := t.conn.Write([]byte(script + ";\n")); err != nil {
			return fmt.Errorf("writing script: %w", err)
		}
		var err error
		resp, err = t.readResponse()
		return err
	})
	return resp, err
}

// withDeadline maps the context deadline and cancellation onto the socket.
func (t *tcpTransport) withDeadline(ctx context.Context, fn func() error) error {
	deadline, _ := ctx.Deadline()
	if err := t.conn.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		t.conn.SetDeadline(time.Now())
	})
	defer stop()

	return contextError(ctx, fn())
}

func (t *tcpTransport) readResponse() (string, error) {
	var out bytes.Buffer
	for {
		n, err := t.conn.Read(t.buf)
		out.Write(t.buf[:n])
		if b := out.Bytes(); bytes.HasSuffix(b, []byte(prompt)) || string(b) == "> " {
			return trimPrompt(out.String()), nil
		}
		if err != nil {
			return "", err
		}
	}
}

func trimPrompt(s string) string {
	if s == "> " {
		return ""
	}
	s = s[:len(s)-len(prompt)]
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func (t *tcpTransport) close() error {
	return t.conn.Close()
}

// contextError reports the context's error in place of a socket timeout
// caused by the context.
func contextError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return err
}
