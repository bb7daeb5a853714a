// Package cli wires the clusteraudit commands. The root command runs a scan,
// so `clusteraudit` and `clusteraudit scan` are the same invocation.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clusteraudit/clusteraudit/internal/config"
	"github.com/clusteraudit/clusteraudit/internal/k8s"
	"github.com/clusteraudit/clusteraudit/internal/version"
)

type app struct {
	cfg    *config.Config
	cfgErr error

	namespace        string
	allNamespaces    bool
	kubeconfig       string
	kubeContext      string
	output           string
	logTail          int64
	concurrency      int
	timeout          time.Duration
	failOnFindings   bool
	logLevel         string
	logJSON          bool
	minServerVersion string

	stdout io.Writer
	stderr io.Writer

	// newClient builds the cluster client; tests swap in a fake.
	newClient func(k8s.Options) (*k8s.Client, error)
}

func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand(os.Stdout, os.Stderr)
	return cmd
}

func NewRootCommandWithIO(out, errOut io.Writer) *cobra.Command {
	cmd, _ := newRootCommand(out, errOut)
	return cmd
}

func newRootCommand(out, errOut io.Writer) (*cobra.Command, *app) {
	cfg, cfgErr := config.Load()
	a := &app{
		cfg:       cfg,
		cfgErr:    cfgErr,
		stdout:    out,
		stderr:    errOut,
		newClient: k8s.NewClient,
	}

	cmd := &cobra.Command{
		Use:           "clusteraudit",
		Short:         "Read-only integrity audit for Kubernetes clusters",
		Long:          "clusteraudit inspects workloads, networking, and platform objects in a cluster and reports misconfigurations, dangling references, and unhealthy dependencies. It never mutates cluster state.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runScan(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.namespace, "namespace", "n", "default", "namespace to scan")
	flags.BoolVarP(&a.allNamespaces, "all-namespaces", "A", false, "scan every namespace")
	flags.StringVar(&a.kubeconfig, "kubeconfig", "", "path to the kubeconfig file")
	flags.StringVar(&a.kubeContext, "context", "", "kubeconfig context to use")
	flags.StringVarP(&a.output, "output", "o", "text", "output format: text, json, or yaml")
	flags.Int64Var(&a.logTail, "log-tail", 100, "log lines fetched per pod")
	flags.IntVar(&a.concurrency, "concurrency", 4, "checkers run in parallel; report order is fixed regardless")
	flags.DurationVar(&a.timeout, "timeout", 0, "whole-scan timeout (0 = none)")
	flags.BoolVar(&a.failOnFindings, "fail-on-findings", false, "exit 3 when a completed scan found anything")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flags.BoolVar(&a.logJSON, "log-json", false, "emit logs as JSON")
	flags.StringVar(&a.minServerVersion, "min-server-version", "1.21", "warn when the cluster is older than this version")

	cmd.AddCommand(
		newScanCmd(a),
		newCheckersCmd(),
		newVersionCmd(),
	)

	cmd.SetVersionTemplate(fmt.Sprintf("clusteraudit {{.Version}} (commit %s, built %s)\n", version.Commit, version.BuildDate))
	cmd.SetErrPrefix("clusteraudit: ")
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	return cmd, a
}

// resolveConfig merges parsed flags over the loaded configuration. A flag set
// on the command line wins; otherwise the file/env value stands.
func (a *app) resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	if a.cfgErr != nil {
		return nil, a.cfgErr
	}
	cfg := *a.cfg
	flags := cmd.Flags()
	if flags.Changed("namespace") {
		cfg.Namespace = a.namespace
	}
	if flags.Changed("all-namespaces") {
		cfg.AllNamespaces = a.allNamespaces
	}
	if flags.Changed("kubeconfig") {
		cfg.KubeconfigPath = a.kubeconfig
	}
	if flags.Changed("context") {
		cfg.Context = a.kubeContext
	}
	if flags.Changed("output") {
		cfg.Output = a.output
	}
	if flags.Changed("log-tail") {
		cfg.LogTail = a.logTail
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = a.concurrency
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSec = int(a.timeout / time.Second)
	}
	if flags.Changed("fail-on-findings") {
		cfg.FailOnFindings = a.failOnFindings
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = a.logJSON
	}
	if flags.Changed("min-server-version") {
		cfg.MinServerVersion = a.minServerVersion
	}
	return &cfg, nil
}
