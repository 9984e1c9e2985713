package launcher

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeFirefox writes an executable shell script standing in for Firefox.
func fakeFirefox(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a unix shell")
	}
	path := filepath.Join(t.TempDir(), "firefox")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("writing fake firefox: %v", err)
	}
	return path
}

func TestFindFirefox(t *testing.T) {
	t.Parallel()

	path := FindFirefox("")
	if path == "" {
		t.Skip("Firefox not found on this system")
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("FindFirefox returned path that doesn't exist: %s", path)
	}
}

func TestFindFirefox_ExplicitPath(t *testing.T) {
	t.Parallel()

	path := FindFirefox("/bin/sh")
	if path != "/bin/sh" {
		t.Errorf("FindFirefox with explicit path: want /bin/sh, got %s", path)
	}
}

func TestFindFirefox_ExplicitPath_NotFound(t *testing.T) {
	t.Parallel()

	path := FindFirefox("/nonexistent/firefox")
	if path != "" {
		t.Errorf("FindFirefox with nonexistent explicit path: want empty, got %s", path)
	}
}

func TestIsPortOpen(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	if !IsPortOpen("127.0.0.1", port) {
		t.Error("expected listening port to be open")
	}
	ln.Close()
	if IsPortOpen("127.0.0.1", port) {
		t.Error("expected closed port to be closed")
	}
}

func TestWaitForPort_Timeout(t *testing.T) {
	t.Parallel()

	err := WaitForPort(context.Background(), "localhost", 19999, 100*time.Millisecond)
	if err == nil {
		t.Error("expected timeout error for closed port")
	}
}

func TestLaunchOptions_Args(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts LaunchOptions
		want string
	}{
		{"default", LaunchOptions{}, "-jssh"},
		{"profile", LaunchOptions{Profile: "watir"}, "-jssh -no-remote -P watir"},
		{"extra", LaunchOptions{Args: []string{"-foreground"}}, "-jssh -foreground"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(tt.opts.args(), " "); got != tt.want {
				t.Errorf("args = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLaunchAndStop(t *testing.T) {
	t.Parallel()

	path := fakeFirefox(t, "exec sleep 30")

	inst, err := Launch(context.Background(), LaunchOptions{
		FirefoxPath: path,
		WaitTime:    50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	defer inst.Stop()

	if inst.PID == 0 {
		t.Error("expected a PID")
	}
	if inst.Exited() {
		t.Error("process should still be running after launch")
	}

	if err := inst.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !inst.Exited() {
		t.Error("process should have exited after Stop")
	}
}

func TestLaunch_ExitsDuringStartup(t *testing.T) {
	t.Parallel()

	path := fakeFirefox(t, "exit 1")

	_, err := Launch(context.Background(), LaunchOptions{
		FirefoxPath: path,
		WaitTime:    5 * time.Second,
	})
	if err == nil {
		t.Fatal("expected error when the process exits during startup")
	}
	if !strings.Contains(err.Error(), "exited during startup") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLaunch_InvalidFirefoxPath(t *testing.T) {
	t.Parallel()

	_, err := Launch(context.Background(), LaunchOptions{FirefoxPath: "/nonexistent/firefox"})
	if err == nil {
		t.Error("expected error for invalid Firefox path")
	}
}

func TestInstance_StopNil(t *testing.T) {
	t.Parallel()

	var inst *Instance
	if err := inst.Stop(); err != nil {
		t.Errorf("Stop on nil instance: %v", err)
	}
}
