package retrieval_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"dripl/internal/retrieval"
	"dripl/internal/ytdlp"
)

type step func(inv ytdlp.Invocation) ytdlp.Result

type scriptedRunner struct {
	mu    sync.Mutex
	steps []step
	calls []ytdlp.Invocation
}

func (r *scriptedRunner) Run(_ context.Context, inv ytdlp.Invocation) ytdlp.Result {
	r.mu.Lock()
	idx := len(r.calls)
	r.calls = append(r.calls, inv)
	next := r.steps[min(idx, len(r.steps)-1)]
	r.mu.Unlock()
	if err := os.MkdirAll(inv.OutputDir, 0o755); err != nil {
		return ytdlp.Result{State: ytdlp.StateSpawnFailed, ExitCode: -1, Err: err}
	}
	return next(inv)
}

func (r *scriptedRunner) Calls() []ytdlp.Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ytdlp.Invocation(nil), r.calls...)
}

func succeedWith(name string) step {
	return func(inv ytdlp.Invocation) ytdlp.Result {
		path := filepath.Join(inv.OutputDir, name)
		if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
			return ytdlp.Result{State: ytdlp.StateSpawnFailed, ExitCode: -1, Err: err}
		}
		return ytdlp.Result{State: ytdlp.StateSucceeded, Stdout: path + "\n"}
	}
}

func failWith(stderr string) step {
	return func(ytdlp.Invocation) ytdlp.Result {
		return ytdlp.Result{State: ytdlp.StateExited, ExitCode: 1, Stderr: stderr}
	}
}

type staticCredentials []string

func (c staticCredentials) Paths() []string { return c }

func newOrchestrator(t *testing.T, runner retrieval.Runner, creds []string, opts ...retrieval.Option) *retrieval.Orchestrator {
	t.Helper()
	orch, err := retrieval.New(runner, mustPool(t), staticCredentials(creds), t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("retrieval.New: %v", err)
	}
	return orch
}

func TestNewRequiresRunnerAndOutputDir(t *testing.T) {
	if _, err := retrieval.New(nil, nil, nil, t.TempDir()); err == nil {
		t.Fatal("expected error without runner")
	}
	if _, err := retrieval.New(&scriptedRunner{}, nil, nil, " "); err == nil {
		t.Fatal("expected error without output dir")
	}
}

func TestFetchSucceedsWithEmptyPools(t *testing.T) {
	runner := &scriptedRunner{steps: []step{succeedWith("clip-abc.mp4")}}
	orch := newOrchestrator(t, runner, nil)
	req := mustRequest(t, retrieval.Input{})

	outcome, err := orch.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !outcome.Succeeded() {
		t.Fatalf("expected success, got failure %+v", outcome.Failure)
	}
	if want := req.ID + "/clip-abc.mp4"; outcome.File != want {
		t.Fatalf("file = %q, want %q", outcome.File, want)
	}
	if _, err := os.Stat(outcome.Artifact); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	calls := runner.Calls()
	if len(calls) != 1 || calls[0].Route != "" || calls[0].Credential != "" {
		t.Fatalf("expected one bare attempt, got %+v", calls)
	}
	if calls[0].OutputDir != filepath.Join(orch.OutputDir(), req.ID) {
		t.Fatalf("attempt should write into the request dir, got %q", calls[0].OutputDir)
	}
}

func TestFetchSurfacesAuthFailureAfterEveryAttempt(t *testing.T) {
	runner := &scriptedRunner{steps: []step{failWith("ERROR: [youtube] abc: HTTP Error 403: Forbidden")}}
	orch := newOrchestrator(t, runner, []string{"/cookies/a.txt", "/cookies/b.txt"})
	req := mustRequest(t, retrieval.Input{})

	outcome, err := orch.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if outcome.Succeeded() || outcome.Failure == nil {
		t.Fatal("expected failure")
	}
	if len(outcome.Attempts) != 2 {
		t.Fatalf("expected both credentials tried, got %d attempts", len(outcome.Attempts))
	}
	resp := retrieval.MapFailure(outcome.Failure.Classification)
	if resp.Key != "yt_403_auth" || resp.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !strings.Contains(outcome.Failure.Raw, "403") {
		t.Fatalf("raw diagnostics not carried: %q", outcome.Failure.Raw)
	}
	if _, err := os.Stat(filepath.Join(orch.OutputDir(), req.ID)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("failed request dir should be removed, stat err=%v", err)
	}
}

func TestFetchTimesOutHungDownloader(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "pid")
	script := filepath.Join(dir, "hang.sh")
	body := "#!/bin/sh\necho $$ > \"$DRIPL_TEST_PIDFILE\"\nexec sleep 30\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	t.Setenv("DRIPL_TEST_PIDFILE", pidFile)

	sup, err := ytdlp.New(script, ytdlp.Settings{},
		ytdlp.WithTimeout(300*time.Millisecond),
		ytdlp.WithGrace(100*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("ytdlp.New: %v", err)
	}
	orch := newOrchestrator(t, sup, nil)

	start := time.Now()
	outcome, err := orch.Fetch(context.Background(), mustRequest(t, retrieval.Input{}))
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("fetch took %s, expected the timeout to bound it", elapsed)
	}
	if outcome.Failure == nil || outcome.Failure.Classification.Kind != retrieval.KindTimeout {
		t.Fatalf("expected timeout failure, got %+v", outcome.Failure)
	}
	if resp := retrieval.MapFailure(outcome.Failure.Classification); resp.Status != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", resp.Status)
	}

	raw, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		t.Fatalf("parse pid: %v", err)
	}
	if err := unix.Kill(pid, 0); !errors.Is(err, unix.ESRCH) {
		t.Fatalf("downloader pid %d still present (kill err=%v)", pid, err)
	}
}

func TestMalformedURLNeverReachesRunner(t *testing.T) {
	runner := &scriptedRunner{steps: []step{succeedWith("x.mp4")}}
	_ = newOrchestrator(t, runner, nil)

	_, err := retrieval.NewRequest(retrieval.Input{URL: "not-a-url"})
	if !errors.Is(err, retrieval.ErrBadURL) {
		t.Fatalf("expected ErrBadURL, got %v", err)
	}
	resp := retrieval.MapRequestError(err)
	if resp.Status != http.StatusBadRequest || resp.Key != "bad_url" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if n := len(runner.Calls()); n != 0 {
		t.Fatalf("expected no downloader attempts, got %d", n)
	}
}

func TestFetchDiscardsEarlierFailureOnSuccess(t *testing.T) {
	runner := &scriptedRunner{steps: []step{
		failWith("ERROR: HTTP Error 429: Too Many Requests"),
		succeedWith("song.mp3"),
	}}
	orch := newOrchestrator(t, runner, []string{"/cookies/first.txt", "/cookies/second.txt"})

	outcome, err := orch.Fetch(context.Background(), mustRequest(t, retrieval.Input{Format: "mp3"}))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !outcome.Succeeded() || outcome.Failure != nil {
		t.Fatalf("expected success, got %+v", outcome.Failure)
	}
	if len(outcome.Attempts) != 2 {
		t.Fatalf("expected two attempts, got %d", len(outcome.Attempts))
	}
	if cls := outcome.Attempts[0].Classification; cls == nil || cls.Kind != retrieval.KindRate {
		t.Fatalf("first attempt should be recorded as rate, got %+v", cls)
	}
	calls := runner.Calls()
	if calls[0].Credential != "/cookies/first.txt" || calls[1].Credential != "/cookies/second.txt" {
		t.Fatalf("credentials tried out of order: %+v", calls)
	}
	if calls[1].Format != ytdlp.FormatAudio {
		t.Fatalf("expected audio format, got %q", calls[1].Format)
	}
}

func TestFetchTreatsMissingArtifactAsFailure(t *testing.T) {
	runner := &scriptedRunner{steps: []step{
		func(ytdlp.Invocation) ytdlp.Result { return ytdlp.Result{State: ytdlp.StateSucceeded} },
		succeedWith("second.mp4"),
	}}
	orch := newOrchestrator(t, runner, []string{"/c1", "/c2"})

	outcome, err := orch.Fetch(context.Background(), mustRequest(t, retrieval.Input{}))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !outcome.Succeeded() {
		t.Fatalf("expected the loop to continue to success, got %+v", outcome.Failure)
	}
	first := outcome.Attempts[0].Classification
	if first == nil || first.Kind != retrieval.KindUnknown || first.Hint != "no output file" {
		t.Fatalf("unexpected first classification %+v", first)
	}
}

func TestFetchClearsLeftoversBetweenAttempts(t *testing.T) {
	runner := &scriptedRunner{steps: []step{
		func(inv ytdlp.Invocation) ytdlp.Result {
			_ = os.WriteFile(filepath.Join(inv.OutputDir, "partial.webm"), []byte("x"), 0o644)
			return ytdlp.Result{State: ytdlp.StateExited, ExitCode: 1, Stderr: "ERROR: boom"}
		},
		func(inv ytdlp.Invocation) ytdlp.Result {
			_ = os.WriteFile(filepath.Join(inv.OutputDir, "final.mp4"), []byte("x"), 0o644)
			return ytdlp.Result{State: ytdlp.StateSucceeded}
		},
	}}
	orch := newOrchestrator(t, runner, []string{"/c1", "/c2"})

	outcome, err := orch.Fetch(context.Background(), mustRequest(t, retrieval.Input{}))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if filepath.Base(outcome.Artifact) != "final.mp4" {
		t.Fatalf("expected final.mp4, got %q", outcome.Artifact)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(outcome.Artifact), "partial.webm")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial file from failed attempt should be gone, stat err=%v", err)
	}
}

func TestFetchFailurePolicy(t *testing.T) {
	steps := []step{
		failWith("HTTP Error 403: Forbidden"),
		failWith("ERROR: weird"),
		failWith("ERROR: Read timed out"),
	}
	creds := []string{"/c1", "/c2", "/c3"}

	tests := []struct {
		policy retrieval.Policy
		want   retrieval.Kind
	}{
		{retrieval.PolicyLast, retrieval.KindTimeout},
		{retrieval.PolicyMostSpecific, retrieval.KindAuth},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			orch := newOrchestrator(t, &scriptedRunner{steps: steps}, creds, retrieval.WithPolicy(tt.policy))
			outcome, err := orch.Fetch(context.Background(), mustRequest(t, retrieval.Input{}))
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if got := outcome.Failure.Classification.Kind; got != tt.want {
				t.Fatalf("surfaced %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchRejectsBadRouteWithoutAttempt(t *testing.T) {
	runner := &scriptedRunner{steps: []step{succeedWith("x.mp4")}}
	orch := newOrchestrator(t, runner, nil)

	_, err := orch.Fetch(context.Background(), mustRequest(t, retrieval.Input{RouteIndex: intPtr(4)}))
	if !errors.Is(err, retrieval.ErrBadRoute) {
		t.Fatalf("expected ErrBadRoute, got %v", err)
	}
	if n := len(runner.Calls()); n != 0 {
		t.Fatalf("expected no attempts, got %d", n)
	}
}

func TestFetchCapsConcurrentRequests(t *testing.T) {
	var active, peak atomic.Int32
	slow := func(inv ytdlp.Invocation) ytdlp.Result {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		active.Add(-1)
		return succeedWith("v.mp4")(inv)
	}
	orch := newOrchestrator(t, &scriptedRunner{steps: []step{slow}}, nil, retrieval.WithMaxConcurrent(2))

	reqs := make([]retrieval.Request, 6)
	for i := range reqs {
		reqs[i] = mustRequest(t, retrieval.Input{})
	}
	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := orch.Fetch(context.Background(), req); err != nil {
				t.Errorf("Fetch: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := peak.Load(); got > 2 {
		t.Fatalf("observed %d concurrent attempts, cap is 2", got)
	}
}

func TestFetchHonoursCancellationWhileQueued(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	blocking := func(inv ytdlp.Invocation) ytdlp.Result {
		close(started)
		<-release
		return succeedWith("v.mp4")(inv)
	}
	orch := newOrchestrator(t, &scriptedRunner{steps: []step{blocking}}, nil, retrieval.WithMaxConcurrent(1))

	first := mustRequest(t, retrieval.Input{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = orch.Fetch(context.Background(), first)
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := orch.Fetch(ctx, mustRequest(t, retrieval.Input{}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(release)
	<-done
}
