// Package testutil provides test utilities: a fake JSSh host speaking the
// line-oriented prompt protocol, and a scriptable fake browser to drive it.
package testutil

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
)

// Banner is the greeting the fake host sends on connect.
const Banner = "Welcome to the Mozilla JavaScript Shell!\n\n> "

// Handler answers one script. The returned text is sent back followed by the
// prompt.
type Handler func(script string) string

// Host is a fake JSSh host listening on a loopback TCP port.
type Host struct {
	Port int

	ln      net.Listener
	handler Handler

	mu       sync.Mutex
	scripts  []string
	conns    map[net.Conn]struct{}
	accepted int

	wg sync.WaitGroup
}

// StartHost starts a fake host on a free loopback port. The caller must
// Stop it.
func StartHost(handler Handler) (*Host, error) {
	return ListenHost("127.0.0.1:0", handler)
}

// ListenHost starts a fake host on addr. The caller must Stop it.
func ListenHost(addr string, handler Handler) (*Host, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	h := &Host{
		Port:    ln.Addr().(*net.TCPAddr).Port,
		ln:      ln,
		handler: handler,
		conns:   make(map[net.Conn]struct{}),
	}
	h.wg.Add(1)
	go h.serve()
	return h, nil
}

// Addr returns the host:port the fake host listens on.
func (h *Host) Addr() string {
	return h.ln.Addr().String()
}

// Scripts returns every script received so far, in order, with the
// terminating ";" removed.
func (h *Host) Scripts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.scripts...)
}

// Accepted returns the number of connections accepted.
func (h *Host) Accepted() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.accepted
}

// DropConnections closes every open client connection.
func (h *Host) DropConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.Close()
	}
}

// Stop closes the listener and all connections and waits for the handlers
// to return.
func (h *Host) Stop() error {
	err := h.ln.Close()
	h.DropConnections()
	h.wg.Wait()
	return err
}

func (h *Host) serve() {
	defer h.wg.Done()
	for {
		conn, err := h.ln.Accept()
		if err != nil {
			return
		}
		h.mu.Lock()
		h.accepted++
		h.conns[conn] = struct{}{}
		h.mu.Unlock()

		h.wg.Add(1)
		go h.handle(conn)
	}
}

func (h *Host) handle(conn net.Conn) {
	defer h.wg.Done()
	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	if _, err := conn.Write([]byte(Banner)); err != nil {
		return
	}
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		script := strings.TrimSuffix(strings.TrimRight(line, "\r\n"), ";")

		h.mu.Lock()
		h.scripts = append(h.scripts, script)
		h.mu.Unlock()

		resp := ""
		if h.handler != nil {
			resp = h.handler(script)
		}
		if _, err := conn.Write([]byte(resp + "\n> ")); err != nil {
			return
		}
	}
}
