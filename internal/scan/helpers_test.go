package scan

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	fakediscovery "k8s.io/client-go/discovery/fake"
	"k8s.io/client-go/dynamic"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/clusteraudit/clusteraudit/internal/k8s"
)

// newTestInput wires a checker Input from fakes with the defaults a real scan
// would use.
func newTestInput(client kubernetes.Interface, dyn dynamic.Interface) Input {
	return Input{
		Client:    client,
		Dynamic:   dyn,
		Discovery: client.Discovery(),
		Scope:     Scope{AllNamespaces: true},
		Refs:      NewReferenceValidator(client, dyn, slog.Default()),
		LogTail:   100,
		Log:       slog.Default(),
	}
}

// enableGatewayAPI teaches the fake discovery that the Gateway API group is
// served.
func enableGatewayAPI(t *testing.T, client *fake.Clientset) {
	t.Helper()
	disc, ok := client.Discovery().(*fakediscovery.FakeDiscovery)
	require.True(t, ok)
	disc.Resources = append(disc.Resources, &metav1.APIResourceList{
		GroupVersion: k8s.GatewayAPIGroupVersion,
		APIResources: []metav1.APIResource{
			{Name: "gateways", Kind: "Gateway", Namespaced: true},
			{Name: "gatewayclasses", Kind: "GatewayClass", Namespaced: false},
			{Name: "httproutes", Kind: "HTTPRoute", Namespaced: true},
		},
	})
}

func newGatewayDynamicFake(objects ...runtime.Object) *dynamicfake.FakeDynamicClient {
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(),
		map[schema.GroupVersionResource]string{
			k8s.GatewayGVR:      "GatewayList",
			k8s.GatewayClassGVR: "GatewayClassList",
			k8s.HTTPRouteGVR:    "HTTPRouteList",
		})
	// Seed through the tracker at the mapped GVR: the constructor guesses the
	// resource from the kind and pluralizes Gateway to "gatewaies", stranding
	// objects where the checkers never look.
	for _, obj := range objects {
		u := obj.(*unstructured.Unstructured)
		mapping, ok := k8s.MappingForKind(u.GetKind())
		if !ok {
			panic(fmt.Sprintf("no GVR mapping for kind %q", u.GetKind()))
		}
		if err := dyn.Tracker().Create(mapping.GVR, obj, u.GetNamespace()); err != nil {
			panic(err)
		}
	}
	return dyn
}

func condition(condType, status, message string) map[string]interface{} {
	return map[string]interface{}{
		"type":    condType,
		"status":  status,
		"message": message,
	}
}

func newGateway(namespace, name, className string, conditions ...map[string]interface{}) *unstructured.Unstructured {
	spec := map[string]interface{}{}
	if className != "" {
		spec["gatewayClassName"] = className
	}
	obj := map[string]interface{}{
		"apiVersion": k8s.GatewayAPIGroupVersion,
		"kind":       "Gateway",
		"metadata": map[string]interface{}{
			"namespace": namespace,
			"name":      name,
		},
		"spec": spec,
	}
	if len(conditions) > 0 {
		conds := make([]interface{}, 0, len(conditions))
		for _, c := range conditions {
			conds = append(conds, c)
		}
		obj["status"] = map[string]interface{}{"conditions": conds}
	}
	return &unstructured.Unstructured{Object: obj}
}

func newGatewayClass(name string, conditions ...map[string]interface{}) *unstructured.Unstructured {
	obj := map[string]interface{}{
		"apiVersion": k8s.GatewayAPIGroupVersion,
		"kind":       "GatewayClass",
		"metadata": map[string]interface{}{
			"name": name,
		},
		"spec": map[string]interface{}{
			"controllerName": "example.net/gateway-controller",
		},
	}
	if len(conditions) > 0 {
		conds := make([]interface{}, 0, len(conditions))
		for _, c := range conditions {
			conds = append(conds, c)
		}
		obj["status"] = map[string]interface{}{"conditions": conds}
	}
	return &unstructured.Unstructured{Object: obj}
}

func newHTTPRoute(namespace, name string, parentRefs, backendRefs []map[string]interface{}) *unstructured.Unstructured {
	spec := map[string]interface{}{}
	if len(parentRefs) > 0 {
		refs := make([]interface{}, 0, len(parentRefs))
		for _, r := range parentRefs {
			refs = append(refs, r)
		}
		spec["parentRefs"] = refs
	}
	if len(backendRefs) > 0 {
		refs := make([]interface{}, 0, len(backendRefs))
		for _, r := range backendRefs {
			refs = append(refs, r)
		}
		spec["rules"] = []interface{}{
			map[string]interface{}{"backendRefs": refs},
		}
	}
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": k8s.GatewayAPIGroupVersion,
		"kind":       "HTTPRoute",
		"metadata": map[string]interface{}{
			"namespace": namespace,
			"name":      name,
		},
		"spec": spec,
	}}
}
