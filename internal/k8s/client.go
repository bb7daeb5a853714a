// Package k8s wraps client-go access to the audited cluster: typed clientset
// for built-in kinds, dynamic client for CRD-backed kinds, with per-call
// timeout, optional rate limiting, bounded retry, and a circuit breaker on
// the guarded paths.
package k8s

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Options configures cluster access. Zero values mean: in-cluster config with
// kubeconfig fallback, 30s per-call timeout, 3 retry attempts, no rate limit.
type Options struct {
	KubeconfigPath  string
	Context         string
	Timeout         time.Duration
	RetryAttempts   int
	RateLimitPerSec float64
	RateLimitBurst  int
}

// Client wraps Kubernetes client-go for read-only audit access.
type Client struct {
	Clientset kubernetes.Interface
	Dynamic   dynamic.Interface
	Config    *rest.Config
	Context   string

	// Timeout for outbound K8s API calls; 0 means no timeout (use request context only).
	Timeout       time.Duration
	retryAttempts int
	// limiter optionally rate-limits outbound API calls. Nil = no limit.
	limiter *rate.Limiter
	// circuitBreaker protects the guarded call paths against a flapping API server.
	circuitBreaker *CircuitBreaker

	// Health status: last successful call time, last error.
	lastSuccessTime time.Time
	lastError       error
	healthMu        sync.RWMutex
}

// NewClient creates a cluster client. With no explicit kubeconfig it tries
// in-cluster config first, then falls back to the default kubeconfig.
func NewClient(opts Options) (*Client, error) {
	var config *rest.Config
	var err error

	kubeconfigPath := opts.KubeconfigPath
	if kubeconfigPath == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			homeDir, _ := os.UserHomeDir()
			if homeDir != "" {
				kubeconfigPath = filepath.Join(homeDir, ".kube", "config")
			}
		}
	}

	if config == nil {
		config, err = buildConfigFromFlags(opts.Context, kubeconfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to build config: %w", err)
		}
	}

	// Trace every API round trip; a no-op when tracing is not initialized.
	config.Wrap(func(rt http.RoundTripper) http.RoundTripper {
		return otelhttp.NewTransport(rt)
	})

	// Throttle every typed and dynamic call client-side. Left at zero,
	// client-go applies its own defaults.
	if opts.RateLimitPerSec > 0 {
		config.QPS = float32(opts.RateLimitPerSec)
		config.Burst = rateBurst(opts)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	c := &Client{
		Clientset:       clientset,
		Dynamic:         dynamicClient,
		Config:          config,
		Context:         opts.Context,
		Timeout:         opts.Timeout,
		retryAttempts:   opts.RetryAttempts,
		circuitBreaker:  NewCircuitBreaker(),
		lastSuccessTime: time.Now(),
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.retryAttempts <= 0 {
		c.retryAttempts = defaultRetryAttempts
	}
	if opts.RateLimitPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitPerSec), rateBurst(opts))
	}
	return c, nil
}

// rateBurst returns the configured burst, defaulting to one second's worth.
func rateBurst(opts Options) int {
	if opts.RateLimitBurst > 0 {
		return opts.RateLimitBurst
	}
	return int(opts.RateLimitPerSec)
}

func buildConfigFromFlags(context, kubeconfigPath string) (*rest.Config, error) {
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath},
		&clientcmd.ConfigOverrides{
			CurrentContext: context,
		}).ClientConfig()
}

func (c *Client) waitRateLimit(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// withTimeout returns ctx with timeout applied if c.Timeout > 0; otherwise returns ctx and a no-op cancel.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return ctx, func() {}
}

// ServerVersion returns the Kubernetes server version (guarded path:
// rate limit, circuit breaker, timeout, retry).
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	if err := c.waitRateLimit(ctx); err != nil {
		return "", err
	}

	var version string
	err := c.circuitBreaker.Execute(ctx, func() error {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		var fnErr error
		version, fnErr = doWithRetryValue(ctx, c.retryAttempts, func() (string, error) {
			info, err := c.Clientset.Discovery().ServerVersion()
			if err != nil {
				return "", err
			}
			return info.GitVersion, nil
		})
		return fnErr
	})

	c.updateHealth(err)
	return version, err
}

// Ping verifies connectivity to the cluster. A failing Ping at startup is the
// only condition that aborts a scan.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("cluster unreachable: %w", err)
	}
	return nil
}

// updateHealth updates the health status of the client.
func (c *Client) updateHealth(err error) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	if err == nil {
		c.lastSuccessTime = time.Now()
		c.lastError = nil
	} else {
		c.lastError = err
	}
}

// HealthStatus returns the health status of the cluster connection.
func (c *Client) HealthStatus() (isHealthy bool, lastSuccess time.Time, lastErr error, circuitState CircuitBreakerState) {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()

	state := c.circuitBreaker.State()
	isHealthy = state == StateClosed && c.lastError == nil
	return isHealthy, c.lastSuccessTime, c.lastError, state
}

// NewClientForTest creates a Client backed by the given Clientset. Used by
// tests that only need typed API access; Config and Dynamic are nil.
func NewClientForTest(clientset kubernetes.Interface) *Client {
	return &Client{
		Clientset:       clientset,
		circuitBreaker:  NewCircuitBreaker(),
		retryAttempts:   defaultRetryAttempts,
		lastSuccessTime: time.Now(),
	}
}
