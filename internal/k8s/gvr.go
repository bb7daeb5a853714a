package k8s

import (
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
)

// Gateway API group; served by CRDs that may not be installed.
const GatewayAPIGroupVersion = "gateway.networking.k8s.io/v1"

var (
	GatewayGVR      = schema.GroupVersionResource{Group: "gateway.networking.k8s.io", Version: "v1", Resource: "gateways"}
	GatewayClassGVR = schema.GroupVersionResource{Group: "gateway.networking.k8s.io", Version: "v1", Resource: "gatewayclasses"}
	HTTPRouteGVR    = schema.GroupVersionResource{Group: "gateway.networking.k8s.io", Version: "v1", Resource: "httproutes"}
)

// KindMapping resolves a referenced kind to the resource to query and whether
// it is namespaced.
type KindMapping struct {
	GVR        schema.GroupVersionResource
	Namespaced bool
}

// kindMappings is keyed by the Kind string exactly as object specs reference
// it (HPA scaleTargetRef.Kind, webhook clientConfig, and so on). Lookups use
// the kind verbatim; there is no inference.
var kindMappings = map[string]KindMapping{
	// Core
	"Pod":                   {GVR: schema.GroupVersionResource{Version: "v1", Resource: "pods"}, Namespaced: true},
	"Service":               {GVR: schema.GroupVersionResource{Version: "v1", Resource: "services"}, Namespaced: true},
	"Secret":                {GVR: schema.GroupVersionResource{Version: "v1", Resource: "secrets"}, Namespaced: true},
	"ConfigMap":             {GVR: schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}, Namespaced: true},
	"Endpoints":             {GVR: schema.GroupVersionResource{Version: "v1", Resource: "endpoints"}, Namespaced: true},
	"PersistentVolumeClaim": {GVR: schema.GroupVersionResource{Version: "v1", Resource: "persistentvolumeclaims"}, Namespaced: true},
	"ServiceAccount":        {GVR: schema.GroupVersionResource{Version: "v1", Resource: "serviceaccounts"}, Namespaced: true},
	"Namespace":             {GVR: schema.GroupVersionResource{Version: "v1", Resource: "namespaces"}},
	"Node":                  {GVR: schema.GroupVersionResource{Version: "v1", Resource: "nodes"}},

	// Apps
	"Deployment":  {GVR: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}, Namespaced: true},
	"StatefulSet": {GVR: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "statefulsets"}, Namespaced: true},
	"ReplicaSet":  {GVR: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "replicasets"}, Namespaced: true},
	"DaemonSet":   {GVR: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "daemonsets"}, Namespaced: true},

	// Batch
	"Job":     {GVR: schema.GroupVersionResource{Group: "batch", Version: "v1", Resource: "jobs"}, Namespaced: true},
	"CronJob": {GVR: schema.GroupVersionResource{Group: "batch", Version: "v1", Resource: "cronjobs"}, Namespaced: true},

	// Networking
	"Ingress":       {GVR: schema.GroupVersionResource{Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"}, Namespaced: true},
	"NetworkPolicy": {GVR: schema.GroupVersionResource{Group: "networking.k8s.io", Version: "v1", Resource: "networkpolicies"}, Namespaced: true},
	"IngressClass":  {GVR: schema.GroupVersionResource{Group: "networking.k8s.io", Version: "v1", Resource: "ingressclasses"}},

	// Storage
	"StorageClass": {GVR: schema.GroupVersionResource{Group: "storage.k8s.io", Version: "v1", Resource: "storageclasses"}},

	// Autoscaling
	"HorizontalPodAutoscaler": {GVR: schema.GroupVersionResource{Group: "autoscaling", Version: "v2", Resource: "horizontalpodautoscalers"}, Namespaced: true},

	// Admission
	"MutatingWebhookConfiguration":   {GVR: schema.GroupVersionResource{Group: "admissionregistration.k8s.io", Version: "v1", Resource: "mutatingwebhookconfigurations"}},
	"ValidatingWebhookConfiguration": {GVR: schema.GroupVersionResource{Group: "admissionregistration.k8s.io", Version: "v1", Resource: "validatingwebhookconfigurations"}},

	// Gateway API (CRDs)
	"Gateway":      {GVR: GatewayGVR, Namespaced: true},
	"GatewayClass": {GVR: GatewayClassGVR},
	"HTTPRoute":    {GVR: HTTPRouteGVR, Namespaced: true},
}

// MappingForKind returns the GVR mapping for a referenced kind.
func MappingForKind(kind string) (KindMapping, bool) {
	m, ok := kindMappings[kind]
	return m, ok
}

// HasGroupVersion reports whether the API server serves the given group
// version. Used to detect absent CRDs (for example the Gateway API) before a
// checker lists them. A 404 from discovery means not installed, not an error.
func HasGroupVersion(d discovery.DiscoveryInterface, groupVersion string) (bool, error) {
	if d == nil {
		return false, nil
	}
	_, err := d.ServerResourcesForGroupVersion(groupVersion)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
