package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/clusteraudit/clusteraudit/internal/k8s"
	"github.com/clusteraudit/clusteraudit/internal/models"
	"github.com/clusteraudit/clusteraudit/internal/pkg/metrics"
	"github.com/clusteraudit/clusteraudit/internal/pkg/tracing"
)

const (
	defaultConcurrency = 4
	defaultLogTail     = 100
)

// Options configures one scan run.
type Options struct {
	Scope            Scope
	Concurrency      int
	LogTail          int64
	MinServerVersion string
}

// Sink receives checker results in registry order as they complete. A nil
// sink is allowed; callers then render the returned report themselves.
type Sink interface {
	WriteResult(res models.CheckerResult) error
}

// Scanner runs every registered checker once against a cluster and collects
// their findings into a report. Checkers run concurrently, but results are
// always delivered in registry order.
type Scanner struct {
	client *k8s.Client
	opts   Options
	checks []Checker
	logger *slog.Logger
}

func New(client *k8s.Client, opts Options, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.LogTail <= 0 {
		opts.LogTail = defaultLogTail
	}
	return &Scanner{
		client: client,
		opts:   opts,
		checks: defaultCheckers(),
		logger: logger,
	}
}

// defaultCheckers is the fixed registry. Order here is the report order.
func defaultCheckers() []Checker {
	return []Checker{
		&CronJobChecker{},
		&DeploymentChecker{},
		&GatewayChecker{},
		&GatewayClassChecker{},
		&HPAChecker{},
		&HTTPRouteChecker{},
		&IngressChecker{},
		&PodChecker{},
		&PVCChecker{},
		&ServiceChecker{},
		&StatefulSetChecker{},
		&WebhookChecker{},
		&NetworkPolicyChecker{},
		&NodeChecker{},
		&PodLogChecker{},
	}
}

// Checkers returns the registry names in execution order.
func (s *Scanner) Checkers() []string {
	names := make([]string, len(s.checks))
	for i, c := range s.checks {
		names[i] = c.Name()
	}
	return names
}

// CheckerNames lists the default registry in report order without needing a
// cluster client.
func CheckerNames() []string {
	checks := defaultCheckers()
	names := make([]string, len(checks))
	for i, c := range checks {
		names[i] = c.Name()
	}
	return names
}

// Run executes every checker once. The only fatal error before completion is
// an unreachable cluster; individual checker failures are recorded as skipped
// and the scan continues. A cancelled context fails the run.
func (s *Scanner) Run(ctx context.Context, sink Sink) (*models.ScanReport, error) {
	started := time.Now().UTC()

	if err := s.client.Ping(ctx); err != nil {
		return nil, err
	}
	version, err := s.client.ServerVersion(ctx)
	if err != nil {
		s.logger.Debug("server version unavailable", "error", err)
	}
	if s.opts.MinServerVersion != "" && version != "" {
		s.warnIfBelowMinimum(version)
	}

	ctx, span := tracing.StartSpanWithAttributes(ctx, "scan.run",
		attribute.String("scan.scope", s.opts.Scope.String()),
		attribute.Int("scan.checkers", len(s.checks)),
	)
	defer span.End()

	input := Input{
		Client:    s.client.Clientset,
		Dynamic:   s.client.Dynamic,
		Discovery: s.client.Clientset.Discovery(),
		Scope:     s.opts.Scope,
		Refs:      NewReferenceValidator(s.client.Clientset, s.client.Dynamic, s.logger),
		LogTail:   s.opts.LogTail,
		Log:       s.logger,
	}

	runID := uuid.NewString()
	s.logger.Info("scan started",
		"run_id", runID, "scope", s.opts.Scope.String(),
		"checkers", len(s.checks), "concurrency", s.opts.Concurrency)

	results := make([]*models.CheckerResult, len(s.checks))
	var (
		mu      sync.Mutex
		next    int
		sinkErr error
	)
	// flush streams every contiguous completed result, so the sink sees
	// registry order no matter which checker finishes first. Callers hold mu.
	flush := func() {
		for next < len(results) && results[next] != nil {
			if sink != nil && sinkErr == nil {
				sinkErr = sink.WriteResult(*results[next])
			}
			next++
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.Concurrency)
	for idx := range s.checks {
		group.Go(func() error {
			res := s.runChecker(groupCtx, s.checks[idx], input)
			mu.Lock()
			results[idx] = &res
			flush()
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}
	if sinkErr != nil {
		return nil, fmt.Errorf("write report: %w", sinkErr)
	}

	report := &models.ScanReport{
		RunID:         runID,
		StartedAt:     started,
		CompletedAt:   time.Now().UTC(),
		ServerVersion: version,
		Namespace:     s.opts.Scope.Namespace,
		AllNamespaces: s.opts.Scope.AllNamespaces,
		Results:       make([]models.CheckerResult, len(results)),
	}
	for i := range results {
		report.Results[i] = *results[i]
	}
	report.TotalFindings = report.CountFindings()

	elapsed := report.CompletedAt.Sub(started)
	metrics.ScanDurationSeconds.Observe(elapsed.Seconds())
	s.logger.Info("scan completed",
		"run_id", report.RunID, "findings", report.TotalFindings,
		"duration_ms", elapsed.Milliseconds())
	return report, nil
}

func (s *Scanner) runChecker(ctx context.Context, checker Checker, input Input) models.CheckerResult {
	start := time.Now()
	cctx, span := tracing.StartSpanWithAttributes(ctx, "scan.checker",
		attribute.String("checker", checker.Name()))
	defer span.End()

	findings, err := checker.Run(cctx, input)
	metrics.CheckerDurationSeconds.WithLabelValues(checker.Name()).Observe(time.Since(start).Seconds())

	res := models.CheckerResult{Checker: checker.Name()}
	if err != nil {
		// A failed checker contributes zero findings and never aborts the
		// scan.
		res.Skipped = true
		res.SkipReason = err.Error()
		if apierrors.IsForbidden(err) {
			res.SkipReason = fmt.Sprintf("insufficient permissions: %v", err)
		}
		res.Findings = []models.Finding{}
		metrics.CheckersSkippedTotal.WithLabelValues(checker.Name()).Inc()
		span.RecordError(err)
		s.logger.Warn("checker skipped", "checker", checker.Name(), "reason", err)
		return res
	}
	for i := range findings {
		findings[i].Checker = checker.Name()
		metrics.FindingsTotal.WithLabelValues(checker.Name(), string(findings[i].Nature)).Inc()
	}
	if findings == nil {
		findings = []models.Finding{}
	}
	res.Findings = findings
	s.logger.Debug("checker completed", "checker", checker.Name(), "findings", len(findings))
	return res
}

func (s *Scanner) warnIfBelowMinimum(version string) {
	minimum, err := semver.NewVersion(s.opts.MinServerVersion)
	if err != nil {
		s.logger.Debug("invalid minimum server version", "minimum", s.opts.MinServerVersion, "error", err)
		return
	}
	current, err := semver.NewVersion(version)
	if err != nil {
		s.logger.Debug("unparseable server version", "version", version, "error", err)
		return
	}
	if current.LessThan(minimum) {
		s.logger.Warn("server version below supported minimum",
			"server", version, "minimum", s.opts.MinServerVersion)
	}
}
