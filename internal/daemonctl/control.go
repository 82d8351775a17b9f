package daemonctl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"dripl/internal/config"
)

const pollInterval = 100 * time.Millisecond

// ErrDaemonNotRunning indicates no process holds the daemon lock.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Paths locates the lock and PID files of a daemon.
type Paths struct {
	LockFile string
	PIDFile  string
}

// PathsFor derives daemon file locations from cfg.
func PathsFor(cfg *config.Config) Paths {
	return Paths{
		LockFile: filepath.Join(cfg.Paths.LogDir, "dripl.lock"),
		PIDFile:  filepath.Join(cfg.Paths.LogDir, "dripl.pid"),
	}
}

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// StopResult captures daemon stop outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Running reports whether another process holds the daemon lock and, when
// it does, the PID recorded next to it.
func Running(paths Paths) (bool, int, error) {
	lock := flock.New(paths.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("probe daemon lock: %w", err)
	}
	if locked {
		_ = lock.Unlock()
		return false, 0, nil
	}
	pid, err := readPID(paths.PIDFile)
	if err != nil {
		return true, 0, err
	}
	return true, pid, nil
}

// Launch starts a detached dripl daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	var args []string
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	args = append(args, "serve")
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForStart polls until a daemon holds the lock or timeout elapses.
func WaitForStart(paths Paths, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		running, pid, err := Running(paths)
		if running && err == nil && pid > 0 {
			return pid, nil
		}
		if time.Now().After(deadline) {
			if err == nil {
				err = errors.New("timeout waiting for daemon lock")
			}
			return 0, fmt.Errorf("daemon did not start: %w", err)
		}
		time.Sleep(pollInterval)
	}
}

// Stop sends SIGTERM to the running daemon and SIGKILL if it is still alive
// after grace. The PID file is removed once the process is gone.
func Stop(paths Paths, grace time.Duration) (StopResult, error) {
	running, pid, err := Running(paths)
	if err != nil {
		return StopResult{}, err
	}
	if !running {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid <= 0 {
		return StopResult{}, fmt.Errorf("unable to determine daemon pid (pid file: %s)", paths.PIDFile)
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}

	result := StopResult{PID: pid}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return result, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	if !waitForExit(pid, grace) {
		if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
		}
		result.ForcedKill = true
		if !waitForExit(pid, grace) {
			return result, fmt.Errorf("daemon process %d did not exit", pid)
		}
	}
	if err := os.Remove(paths.PIDFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return result, fmt.Errorf("remove pid file %q: %w", paths.PIDFile, err)
	}
	return result, nil
}

func waitForExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if errors.Is(unix.Kill(pid, 0), unix.ESRCH) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval / 2)
	}
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("parse daemon pid file %q: invalid pid %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}
