package ytdlp

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Command is one fully resolved process invocation.
type Command struct {
	Binary string
	Args   []string
	Env    []string
	// Grace is how long the process group may linger after SIGTERM before
	// SIGKILL and before abandoning its output pipes.
	Grace        time.Duration
	CaptureLimit int
}

// Executor abstracts process execution for testability. Implementations must
// honour ctx cancellation and return exactly one terminal Result.
type Executor interface {
	Execute(ctx context.Context, cmd Command) Result
}

type processExecutor struct{}

func (processExecutor) Execute(ctx context.Context, invocation Command) Result {
	start := time.Now()
	stdout := newTailBuffer(invocation.CaptureLimit)
	stderr := newTailBuffer(invocation.CaptureLimit)

	cmd := exec.CommandContext(ctx, invocation.Binary, invocation.Args...) //nolint:gosec
	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = invocation.Env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return signalGroup(cmd.Process.Pid, unix.SIGTERM)
	}
	cmd.WaitDelay = invocation.Grace

	if err := cmd.Start(); err != nil {
		return Result{
			State:    StateSpawnFailed,
			ExitCode: -1,
			Elapsed:  time.Since(start),
			Err:      err,
		}
	}
	pid := cmd.Process.Pid
	waitErr := cmd.Wait()

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(cmd, waitErr),
	}

	switch {
	case waitErr == nil:
		result.State = StateSucceeded
	case ctx.Err() != nil:
		// The leader may be gone while descendants that ignored SIGTERM still
		// hold the group; nothing may outlive the timeout.
		_ = signalGroup(pid, unix.SIGKILL)
		result.State = StateTimedOut
		result.Err = ctx.Err()
	default:
		result.State = StateExited
		result.Err = waitErr
	}
	result.Elapsed = time.Since(start)
	return result
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func signalGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return os.NewSyscallError("kill", err)
	}
	return nil
}
