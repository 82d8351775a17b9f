package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/semaphore"

	"dripl/internal/logging"
	"dripl/internal/services"
	"dripl/internal/ytdlp"
)

// Policy selects which failed attempt is surfaced once all attempts fail.
type Policy string

const (
	// PolicyLast surfaces the final attempt's classification.
	PolicyLast Policy = "last"
	// PolicyMostSpecific surfaces the highest-priority known classification,
	// preferring later attempts on ties.
	PolicyMostSpecific Policy = "most_specific"
)

// DefaultMaxConcurrent bounds in-flight requests when no cap is configured.
const DefaultMaxConcurrent = 2

// Runner executes one downloader attempt.
type Runner interface {
	Run(ctx context.Context, inv ytdlp.Invocation) ytdlp.Result
}

// CredentialSource lists credential bundle paths in attempt order.
type CredentialSource interface {
	Paths() []string
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.NewComponentLogger(logger, "retrieval")
	}
}

// WithPolicy selects the surfaced failure policy.
func WithPolicy(policy Policy) Option {
	return func(o *Orchestrator) {
		if policy == PolicyLast || policy == PolicyMostSpecific {
			o.policy = policy
		}
	}
}

// WithMaxConcurrent caps in-flight requests.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// Orchestrator drives requests through planned attempts.
type Orchestrator struct {
	runner        Runner
	routes        RouteSource
	credentials   CredentialSource
	outputDir     string
	policy        Policy
	maxConcurrent int
	slots         *semaphore.Weighted
	logger        *slog.Logger
}

// New builds an orchestrator writing artifacts beneath outputDir. routes and
// credentials may be nil.
func New(runner Runner, routes RouteSource, credentials CredentialSource, outputDir string, opts ...Option) (*Orchestrator, error) {
	if runner == nil {
		return nil, errors.New("retrieval: runner required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return nil, errors.New("retrieval: output directory required")
	}
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("retrieval: resolve output directory: %w", err)
	}
	o := &Orchestrator{
		runner:        runner,
		routes:        routes,
		credentials:   credentials,
		outputDir:     abs,
		policy:        PolicyLast,
		maxConcurrent: DefaultMaxConcurrent,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.slots = semaphore.NewWeighted(int64(o.maxConcurrent))
	return o, nil
}

// OutputDir returns the absolute artifact root.
func (o *Orchestrator) OutputDir() string {
	return o.outputDir
}

// Policy returns the surfaced failure policy.
func (o *Orchestrator) Policy() Policy {
	return o.policy
}

// Fetch runs req to completion. A returned error means no attempt was
// classified (invalid route selection, cancellation while queued, or an
// unusable output directory); otherwise the Outcome carries success or the
// surfaced failure.
func (o *Orchestrator) Fetch(ctx context.Context, req Request) (Outcome, error) {
	outcome := Outcome{RequestID: req.ID}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, req.ID)
	}
	log := logging.WithContext(ctx, o.logger)

	if err := o.slots.Acquire(ctx, 1); err != nil {
		return outcome, fmt.Errorf("wait for retrieval slot: %w", err)
	}
	defer o.slots.Release(1)

	var credentials []string
	if o.credentials != nil {
		credentials = o.credentials.Paths()
	}
	plan, err := Plan(o.routes, credentials, req)
	if err != nil {
		return outcome, err
	}

	dir := filepath.Join(o.outputDir, req.ID)
	log.Info("retrieval started",
		logging.String(logging.FieldEventType, "retrieval_started"),
		logging.String("url", req.URL),
		logging.String("format", string(req.Format)),
		logging.Int("planned_attempts", len(plan)),
	)

	for i, attempt := range plan {
		// Artifacts of an earlier failed attempt must not be mistaken for ours.
		if err := os.RemoveAll(dir); err != nil {
			return outcome, services.Wrap(services.ErrConfiguration, "retrieval", "reset request dir", dir, err)
		}
		record := o.runAttempt(ctx, req, dir, i+1, attempt)
		outcome.Attempts = append(outcome.Attempts, record.AttemptRecord)

		attemptLog := log.With(
			logging.Int(logging.FieldAttempt, i+1),
			logging.String(logging.FieldRoute, attempt.Route.Redacted()),
			logging.String(logging.FieldCredential, attempt.Credential),
		)
		if record.artifact != "" {
			outcome.Artifact = record.artifact
			outcome.File = record.file
			attemptLog.Info("retrieval succeeded",
				logging.String(logging.FieldEventType, "retrieval_succeeded"),
				logging.String("file", record.file),
				logging.Duration("elapsed", record.Elapsed),
			)
			return outcome, nil
		}

		cls := *record.Classification
		logging.WarnWithContext(attemptLog, "attempt failed", "retrieval_attempt_failed",
			logging.String(logging.FieldFailureKind, string(cls.Kind)),
			logging.String("state", string(record.State)),
			logging.Int("exit_code", record.ExitCode),
			logging.Duration("elapsed", record.Elapsed),
			logging.String("hint", cls.Hint),
			logging.String(logging.FieldErrorHint, MapFailure(cls).Message),
		)
		if ctx.Err() != nil {
			break
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(log, "request dir cleanup failed", "retrieval_cleanup_failed",
			logging.String("dir", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the directory manually"),
		)
	}

	surfaced := o.surface(outcome.Attempts)
	outcome.Failure = &Failure{
		Classification: *surfaced.Classification,
		Raw:            surfaced.Raw(),
	}
	logging.WarnWithContext(log, "retrieval failed", "retrieval_exhausted",
		logging.String(logging.FieldFailureKind, string(outcome.Failure.Classification.Kind)),
		logging.Int("attempts", len(outcome.Attempts)),
		logging.String("policy", string(o.policy)),
		logging.String(logging.FieldErrorHint, MapFailure(outcome.Failure.Classification).Message),
	)
	return outcome, nil
}

type attemptResult struct {
	AttemptRecord
	artifact string
	file     string
}

func (o *Orchestrator) runAttempt(ctx context.Context, req Request, dir string, index int, attempt Attempt) attemptResult {
	res := o.runner.Run(ctx, ytdlp.Invocation{
		URL:        req.URL,
		Format:     req.Format,
		Credential: attempt.Credential,
		Route:      attempt.Route.String(),
		OutputDir:  dir,
	})
	out := attemptResult{AttemptRecord: AttemptRecord{
		Index:      index,
		Route:      attempt.Route,
		Credential: attempt.Credential,
		State:      res.State,
		ExitCode:   res.ExitCode,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		Elapsed:    res.Elapsed,
	}}
	if !res.Succeeded() {
		cls := ClassifyResult(res)
		out.Classification = &cls
		return out
	}

	artifact, err := ResolveArtifact(dir, res.PrintedPaths())
	if err == nil {
		rel, relErr := filepath.Rel(o.outputDir, artifact)
		if relErr == nil {
			out.artifact = artifact
			out.file = filepath.ToSlash(rel)
			return out
		}
		err = relErr
	}
	cls := Classification{Kind: KindUnknown, Hint: ErrNoOutput.Error()}
	if !errors.Is(err, ErrNoOutput) {
		cls.Hint = truncateRunes(ErrNoOutput.Error()+": "+err.Error(), maxHintRunes)
	}
	out.Classification = &cls
	return out
}

// surface picks the failed attempt reported to the caller. attempts is
// non-empty and every entry carries a classification.
func (o *Orchestrator) surface(attempts []AttemptRecord) AttemptRecord {
	chosen := attempts[len(attempts)-1]
	if o.policy != PolicyMostSpecific {
		return chosen
	}
	best := priority(chosen.Classification.Kind)
	for _, rec := range attempts {
		if p := priority(rec.Classification.Kind); p <= best {
			best = p
			chosen = rec
		}
	}
	return chosen
}
