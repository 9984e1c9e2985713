package launcher

import (
	"fmt"
	"os/exec"
	"time"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner executes commands via os/exec.
type DefaultCommandRunner struct{}

// Run executes a command and returns its combined output.
func (d DefaultCommandRunner) Run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

const defaultQuitTimeout = 5 * time.Second

// Quit asks the whole Firefox application to exit. On macOS closing the last
// window leaves the application running, so it is quit through AppleScript;
// on Windows lingering processes are killed with taskkill. Other platforms
// need nothing beyond closing the windows.
func Quit(runner CommandRunner, goos string) error {
	if runner == nil {
		runner = DefaultCommandRunner{}
	}
	switch goos {
	case "darwin":
		return quitFirefoxDarwin(runner, defaultQuitTimeout)
	case "windows":
		return quitFirefoxWindows(runner)
	}
	return nil
}

// quitFirefoxDarwin quits Firefox via AppleScript and waits for it to exit,
// falling back to pkill.
func quitFirefoxDarwin(runner CommandRunner, maxWait time.Duration) error {
	if _, err := runner.Run("pgrep", "-x", "firefox"); err != nil {
		// not running
		return nil
	}

	if _, err := runner.Run("osascript", "-e", `tell application "Firefox" to quit`); err != nil {
		return fmt.Errorf("osascript quit failed: %w", err)
	}

	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		if _, err := runner.Run("pgrep", "-x", "firefox"); err != nil {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}

	runner.Run("pkill", "-x", "firefox")
	return nil
}

func quitFirefoxWindows(runner CommandRunner) error {
	// taskkill exits non-zero when nothing matched, which is fine.
	runner.Run("taskkill", "/im", "firefox.exe", "/f", "/t")
	return nil
}
