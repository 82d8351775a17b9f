package daemonctl_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"dripl/internal/daemonctl"
	"dripl/internal/testsupport"
)

func testPaths(t *testing.T) daemonctl.Paths {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	return daemonctl.PathsFor(cfg)
}

// holdLock takes the daemon lock on a separate descriptor, as a running
// daemon would.
func holdLock(t *testing.T, paths daemonctl.Paths) {
	t.Helper()
	lock := flock.New(paths.LockFile)
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquire lock: locked=%v err=%v", locked, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })
}

func startChild(t *testing.T, script string, paths daemonctl.Paths) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("/bin/sh", "-c", script)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start child: %v", err)
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		<-done
	})
	if err := os.WriteFile(paths.PIDFile, []byte(strconv.Itoa(cmd.Process.Pid)+"\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	return cmd
}

func TestRunningWithoutLockHolder(t *testing.T) {
	paths := testPaths(t)
	running, pid, err := daemonctl.Running(paths)
	if err != nil || running || pid != 0 {
		t.Fatalf("expected not running, got running=%v pid=%d err=%v", running, pid, err)
	}
}

func TestRunningReportsLockHolderPID(t *testing.T) {
	paths := testPaths(t)
	holdLock(t, paths)
	if err := os.WriteFile(paths.PIDFile, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	running, pid, err := daemonctl.Running(paths)
	if err != nil || !running || pid != 4242 {
		t.Fatalf("expected running pid 4242, got running=%v pid=%d err=%v", running, pid, err)
	}
}

func TestRunningRejectsCorruptPIDFile(t *testing.T) {
	paths := testPaths(t)
	holdLock(t, paths)
	if err := os.WriteFile(paths.PIDFile, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := daemonctl.Running(paths); err == nil {
		t.Fatal("expected corrupt pid file to be reported")
	}
}

func TestStopNotRunning(t *testing.T) {
	paths := testPaths(t)
	if _, err := daemonctl.Stop(paths, time.Second); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestStopTerminatesProcess(t *testing.T) {
	paths := testPaths(t)
	holdLock(t, paths)
	cmd := startChild(t, "exec sleep 30", paths)

	result, err := daemonctl.Stop(paths, 5*time.Second)
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if result.PID != cmd.Process.Pid || result.ForcedKill {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := os.Stat(paths.PIDFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	paths := testPaths(t)
	holdLock(t, paths)
	startChild(t, "trap '' TERM; while :; do sleep 0.05; done", paths)
	time.Sleep(200 * time.Millisecond)

	result, err := daemonctl.Stop(paths, 300*time.Millisecond)
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if !result.ForcedKill {
		t.Fatalf("expected forced kill, got %+v", result)
	}
}

func TestStopRefusesOwnPID(t *testing.T) {
	paths := testPaths(t)
	holdLock(t, paths)
	if err := os.WriteFile(paths.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := daemonctl.Stop(paths, time.Second); err == nil {
		t.Fatal("expected refusal to signal the test process")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := daemonctl.Launch(" ", daemonctl.LaunchOptions{}); err == nil {
		t.Fatal("expected empty executable to fail")
	}
	if err := daemonctl.Launch(filepath.Join(t.TempDir(), "missing"), daemonctl.LaunchOptions{}); err == nil {
		t.Fatal("expected missing executable to fail")
	}
}
