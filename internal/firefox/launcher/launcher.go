// Package launcher provides Firefox discovery, launching with the JSSh
// shell enabled, and shutdown helpers.
package launcher

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

// DefaultWaitTime is the grace period Launch sleeps after starting Firefox
// so the JSSh listener has a chance to come up.
const DefaultWaitTime = 2 * time.Second

// LaunchOptions configures Firefox launching.
type LaunchOptions struct {
	FirefoxPath string        // Path to the Firefox binary (auto-detected if empty)
	Profile     string        // Named profile; adds -no-remote -P <profile>
	WaitTime    time.Duration // Startup grace period (default 2s)
	Args        []string      // Extra arguments appended after the JSSh flags
}

// Instance represents a Firefox process started by Launch.
type Instance struct {
	cmd     *exec.Cmd
	PID     int
	Path    string
	Profile string
	done    chan struct{}
	err     error
}

// FindFirefox locates Firefox on the system. If path is non-empty and exists
// it is returned directly. Otherwise PATH and known install locations are
// searched.
func FindFirefox(path string) string {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}

	// Check PATH first
	for _, name := range []string{"firefox", "firefox-bin"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}

	// Check known locations
	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Firefox.app/Contents/MacOS/firefox-bin",
			"/Applications/Firefox.app/Contents/MacOS/firefox",
		}
	case "linux":
		paths = []string{
			"/usr/bin/firefox",
			"/usr/lib/firefox/firefox",
			"/usr/local/bin/firefox",
			"/snap/bin/firefox",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Mozilla Firefox\firefox.exe`,
			`C:\Program Files (x86)\Mozilla Firefox\firefox.exe`,
		}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// IsPortOpen checks if a TCP port is accepting connections.
func IsPortOpen(host string, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// WaitForPort waits for a TCP port to become available.
func WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if IsPortOpen(host, port) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s", net.JoinHostPort(host, strconv.Itoa(port)))
		case <-ticker.C:
		}
	}
}

// args returns the command-line arguments Launch passes to Firefox.
func (opts LaunchOptions) args() []string {
	args := []string{"-jssh"}
	if opts.Profile != "" {
		args = append(args, "-no-remote", "-P", opts.Profile)
	}
	return append(args, opts.Args...)
}

// Launch starts Firefox with the JSSh shell enabled. The process is reaped
// on its own goroutine; Launch returns after the startup grace period
// without checking that the shell is listening. Use WaitForPort for that.
func Launch(ctx context.Context, opts LaunchOptions) (*Instance, error) {
	path := FindFirefox(opts.FirefoxPath)
	if path == "" {
		return nil, fmt.Errorf("Firefox not found")
	}

	cmd := exec.Command(path, opts.args()...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start Firefox: %w", err)
	}

	inst := &Instance{
		cmd:     cmd,
		PID:     cmd.Process.Pid,
		Path:    path,
		Profile: opts.Profile,
		done:    make(chan struct{}),
	}
	go func() {
		inst.err = cmd.Wait()
		close(inst.done)
	}()

	wait := opts.WaitTime
	if wait <= 0 {
		wait = DefaultWaitTime
	}
	select {
	case <-time.After(wait):
	case <-inst.done:
		return nil, fmt.Errorf("Firefox exited during startup: %v", inst.err)
	case <-ctx.Done():
		inst.Stop()
		return nil, ctx.Err()
	}

	return inst, nil
}

// Exited reports whether the process has exited.
func (inst *Instance) Exited() bool {
	select {
	case <-inst.done:
		return true
	default:
		return false
	}
}

// Stop terminates the Firefox process if it is still running and waits for
// it to be reaped.
func (inst *Instance) Stop() error {
	if inst == nil || inst.cmd == nil || inst.cmd.Process == nil {
		return nil
	}
	if !inst.Exited() {
		inst.cmd.Process.Kill()
	}
	select {
	case <-inst.done:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("firefox process %d did not exit", inst.PID)
	}
	return nil
}
