package scan

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/clusteraudit/clusteraudit/internal/k8s"
	"github.com/clusteraudit/clusteraudit/internal/models"
	"github.com/clusteraudit/clusteraudit/internal/pkg/metrics"
)

// RefOutcome classifies a resolved reference.
type RefOutcome int

const (
	// RefMissing means the referenced object could not be confirmed to
	// exist. Lookup errors land here too: a broken lookup downgrades to a
	// missing reference instead of aborting the scan.
	RefMissing RefOutcome = iota
	// RefUnhealthy means the object exists but fails its health rule.
	RefUnhealthy
	// RefHealthy means the object exists and passes its health rule.
	RefHealthy
)

// RefResult is the outcome of resolving one reference. Detail is set for
// unhealthy outcomes and describes what failed, phrased so it can be embedded
// in a finding message ("has no endpoints").
type RefResult struct {
	Outcome RefOutcome
	Detail  string
}

const refCacheSize = 4096

// ReferenceValidator resolves (kind, namespace, name) references against the
// cluster and classifies them as missing, present-but-unhealthy, or healthy.
// Results are memoized for the lifetime of one scan; a scan reads a single
// snapshot, so re-resolving the same reference is wasted API traffic.
type ReferenceValidator struct {
	client  kubernetes.Interface
	dynamic dynamic.Interface
	cache   *lru.Cache[string, RefResult]
	log     *slog.Logger
}

func NewReferenceValidator(client kubernetes.Interface, dyn dynamic.Interface, log *slog.Logger) *ReferenceValidator {
	if log == nil {
		log = slog.Default()
	}
	cache, _ := lru.New[string, RefResult](refCacheSize)
	return &ReferenceValidator{client: client, dynamic: dyn, cache: cache, log: log}
}

// Resolve classifies a reference using the kind-specific health rule:
// Services must have ready endpoint addresses, GatewayClasses must carry an
// Accepted=True condition, and every other kind is healthy if it exists.
func (v *ReferenceValidator) Resolve(ctx context.Context, ref models.ResourceRef) RefResult {
	return v.cached(ctx, "health|"+ref.String(), ref, v.resolveHealth)
}

// Exists reports whether the referenced object exists, with no health rule
// applied. Lookup errors report false.
func (v *ReferenceValidator) Exists(ctx context.Context, ref models.ResourceRef) bool {
	res := v.cached(ctx, "exists|"+ref.String(), ref, v.resolveExistence)
	return res.Outcome != RefMissing
}

func (v *ReferenceValidator) cached(ctx context.Context, key string, ref models.ResourceRef, resolve func(context.Context, models.ResourceRef) RefResult) RefResult {
	if res, ok := v.cache.Get(key); ok {
		metrics.ReferenceCacheHitsTotal.Inc()
		return res
	}
	metrics.ReferenceCacheMissesTotal.Inc()
	res := resolve(ctx, ref)
	v.cache.Add(key, res)
	return res
}

func (v *ReferenceValidator) resolveHealth(ctx context.Context, ref models.ResourceRef) RefResult {
	switch ref.Kind {
	case "Service":
		return v.resolveService(ctx, ref.Namespace, ref.Name)
	case "GatewayClass":
		return v.resolveGatewayClass(ctx, ref.Name)
	default:
		return v.resolveExistence(ctx, ref)
	}
}

// resolveService applies the endpoint health rule: a Service is healthy when
// its Endpoints object has at least one subset with a ready address and no
// subset carries not-ready addresses.
func (v *ReferenceValidator) resolveService(ctx context.Context, namespace, name string) RefResult {
	if _, err := v.client.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{}); err != nil {
		v.logLookupFailure("Service", namespace, name, err)
		return RefResult{Outcome: RefMissing}
	}
	eps, err := v.client.CoreV1().Endpoints(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return RefResult{Outcome: RefUnhealthy, Detail: "has no endpoints"}
		}
		v.logLookupFailure("Endpoints", namespace, name, err)
		return RefResult{Outcome: RefMissing}
	}
	ready := false
	for _, subset := range eps.Subsets {
		if len(subset.Addresses) > 0 {
			ready = true
		}
		if len(subset.NotReadyAddresses) > 0 {
			return RefResult{Outcome: RefUnhealthy, Detail: "has endpoint addresses that are not ready"}
		}
	}
	if !ready {
		return RefResult{Outcome: RefUnhealthy, Detail: "has no endpoints"}
	}
	return RefResult{Outcome: RefHealthy}
}

// resolveGatewayClass requires an Accepted condition with status True.
func (v *ReferenceValidator) resolveGatewayClass(ctx context.Context, name string) RefResult {
	if v.dynamic == nil {
		return RefResult{Outcome: RefMissing}
	}
	gc, err := v.dynamic.Resource(k8s.GatewayClassGVR).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		v.logLookupFailure("GatewayClass", "", name, err)
		return RefResult{Outcome: RefMissing}
	}
	status, message, found := acceptedCondition(gc)
	if !found {
		return RefResult{Outcome: RefUnhealthy, Detail: "has no Accepted condition"}
	}
	if status != "True" {
		detail := "is not accepted"
		if message != "" {
			detail = fmt.Sprintf("is not accepted: %s", message)
		}
		return RefResult{Outcome: RefUnhealthy, Detail: detail}
	}
	return RefResult{Outcome: RefHealthy}
}

func (v *ReferenceValidator) resolveExistence(ctx context.Context, ref models.ResourceRef) RefResult {
	err := v.lookup(ctx, ref)
	if err != nil {
		v.logLookupFailure(ref.Kind, ref.Namespace, ref.Name, err)
		return RefResult{Outcome: RefMissing}
	}
	return RefResult{Outcome: RefHealthy}
}

// lookup fetches the referenced object through the typed client where a typed
// accessor exists, falling back to the dynamic client for everything else.
func (v *ReferenceValidator) lookup(ctx context.Context, ref models.ResourceRef) error {
	opts := metav1.GetOptions{}
	var err error
	switch ref.Kind {
	case "Service":
		_, err = v.client.CoreV1().Services(ref.Namespace).Get(ctx, ref.Name, opts)
	case "Secret":
		_, err = v.client.CoreV1().Secrets(ref.Namespace).Get(ctx, ref.Name, opts)
	case "ConfigMap":
		_, err = v.client.CoreV1().ConfigMaps(ref.Namespace).Get(ctx, ref.Name, opts)
	case "ServiceAccount":
		_, err = v.client.CoreV1().ServiceAccounts(ref.Namespace).Get(ctx, ref.Name, opts)
	case "Pod":
		_, err = v.client.CoreV1().Pods(ref.Namespace).Get(ctx, ref.Name, opts)
	case "Node":
		_, err = v.client.CoreV1().Nodes().Get(ctx, ref.Name, opts)
	case "PersistentVolumeClaim":
		_, err = v.client.CoreV1().PersistentVolumeClaims(ref.Namespace).Get(ctx, ref.Name, opts)
	case "Deployment":
		_, err = v.client.AppsV1().Deployments(ref.Namespace).Get(ctx, ref.Name, opts)
	case "StatefulSet":
		_, err = v.client.AppsV1().StatefulSets(ref.Namespace).Get(ctx, ref.Name, opts)
	case "ReplicaSet":
		_, err = v.client.AppsV1().ReplicaSets(ref.Namespace).Get(ctx, ref.Name, opts)
	case "DaemonSet":
		_, err = v.client.AppsV1().DaemonSets(ref.Namespace).Get(ctx, ref.Name, opts)
	case "Job":
		_, err = v.client.BatchV1().Jobs(ref.Namespace).Get(ctx, ref.Name, opts)
	case "CronJob":
		_, err = v.client.BatchV1().CronJobs(ref.Namespace).Get(ctx, ref.Name, opts)
	case "StorageClass":
		_, err = v.client.StorageV1().StorageClasses().Get(ctx, ref.Name, opts)
	case "IngressClass":
		_, err = v.client.NetworkingV1().IngressClasses().Get(ctx, ref.Name, opts)
	default:
		mapping, ok := k8s.MappingForKind(ref.Kind)
		if !ok {
			return fmt.Errorf("no mapping for kind %q", ref.Kind)
		}
		if v.dynamic == nil {
			return fmt.Errorf("dynamic client unavailable for kind %q", ref.Kind)
		}
		if mapping.Namespaced {
			_, err = v.dynamic.Resource(mapping.GVR).Namespace(ref.Namespace).Get(ctx, ref.Name, opts)
		} else {
			_, err = v.dynamic.Resource(mapping.GVR).Get(ctx, ref.Name, opts)
		}
	}
	return err
}

func (v *ReferenceValidator) logLookupFailure(kind, namespace, name string, err error) {
	if apierrors.IsNotFound(err) {
		return
	}
	v.log.Debug("reference lookup failed, treating as missing",
		"kind", kind, "namespace", namespace, "name", name, "error", err)
}
