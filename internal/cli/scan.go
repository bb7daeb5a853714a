package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clusteraudit/clusteraudit/internal/k8s"
	"github.com/clusteraudit/clusteraudit/internal/pkg/logger"
	"github.com/clusteraudit/clusteraudit/internal/pkg/metrics"
	"github.com/clusteraudit/clusteraudit/internal/pkg/tracing"
	"github.com/clusteraudit/clusteraudit/internal/pkg/validate"
	"github.com/clusteraudit/clusteraudit/internal/report"
	"github.com/clusteraudit/clusteraudit/internal/scan"
)

// FindingsError reports a completed scan whose findings should fail the run.
// main maps it to exit code 3, keeping it distinct from scan failures.
type FindingsError struct {
	Count int
}

func (e *FindingsError) Error() string {
	unit := "findings"
	if e.Count == 1 {
		unit = "finding"
	}
	return fmt.Sprintf("scan completed with %d %s", e.Count, unit)
}

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Audit cluster objects and report findings",
		Long:  "scan runs every checker against the target scope and prints one line per finding. Text output streams as checkers finish; json and yaml render the complete report at the end.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runScan(cmd)
		},
	}
}

func (a *app) runScan(cmd *cobra.Command) error {
	cfg, err := a.resolveConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.AllNamespaces && !validate.Namespace(cfg.Namespace) {
		return fmt.Errorf("invalid namespace %q", cfg.Namespace)
	}
	format, err := report.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel, cfg.LogJSON)

	if cfg.OtelEndpoint != "" {
		shutdown, err := tracing.Init("clusteraudit", cfg.OtelEndpoint, cfg.OtelSamplingRate)
		if err != nil {
			log.Warn("tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	client, err := a.newClient(k8s.Options{
		KubeconfigPath:  cfg.KubeconfigPath,
		Context:         cfg.Context,
		Timeout:         time.Duration(cfg.K8sTimeoutSec) * time.Second,
		RetryAttempts:   cfg.K8sRetryAttempts,
		RateLimitPerSec: cfg.K8sRateLimitPerSec,
		RateLimitBurst:  cfg.K8sRateLimitBurst,
	})
	if err != nil {
		return fmt.Errorf("connect to cluster: %w", err)
	}

	scanner := scan.New(client, scan.Options{
		Scope:            scan.Scope{Namespace: cfg.Namespace, AllNamespaces: cfg.AllNamespaces},
		Concurrency:      cfg.Concurrency,
		LogTail:          cfg.LogTail,
		MinServerVersion: cfg.MinServerVersion,
	}, log)

	ctx := cmd.Context()
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if cmd.Flags().Changed("timeout") {
		timeout = a.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Text streams findings as checkers finish; json and yaml need the whole
	// report first.
	var sink scan.Sink
	var text *report.TextWriter
	if format == report.FormatText {
		text = report.NewTextWriter(a.stdout)
		sink = text
	}

	rep, err := scanner.Run(ctx, sink)
	if err != nil {
		return err
	}

	total := rep.TotalFindings
	if format == report.FormatText {
		total, err = text.Finish()
	} else {
		err = report.Write(a.stdout, format, rep)
	}
	if err != nil {
		return err
	}

	if cfg.MetricsPushgatewayURL != "" {
		if err := metrics.Push(cfg.MetricsPushgatewayURL); err != nil {
			log.Warn("metrics push failed", "error", err)
		}
	}

	if cfg.FailOnFindings && total > 0 {
		return &FindingsError{Count: total}
	}
	return nil
}
