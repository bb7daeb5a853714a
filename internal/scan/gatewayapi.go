package scan

import (
	"errors"
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/clusteraudit/clusteraudit/internal/k8s"
)

// requireGatewayAPI reports an error when the Gateway API group is not served
// by the cluster. Checkers for Gateway API kinds call this first so a cluster
// without the CRDs skips them instead of failing the scan.
func requireGatewayAPI(input Input) error {
	ok, err := k8s.HasGroupVersion(input.Discovery, k8s.GatewayAPIGroupVersion)
	if err != nil {
		return fmt.Errorf("discover %s: %w", k8s.GatewayAPIGroupVersion, err)
	}
	if !ok {
		return fmt.Errorf("%s is not served by this cluster", k8s.GatewayAPIGroupVersion)
	}
	if input.Dynamic == nil {
		return errors.New("dynamic client unavailable")
	}
	return nil
}

func sortUnstructured(items []unstructured.Unstructured) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].GetNamespace() != items[j].GetNamespace() {
			return items[i].GetNamespace() < items[j].GetNamespace()
		}
		return items[i].GetName() < items[j].GetName()
	})
}

// acceptedCondition extracts the Accepted condition from an unstructured
// Gateway API object's status.
func acceptedCondition(obj *unstructured.Unstructured) (status, message string, found bool) {
	conditions, ok, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	if !ok {
		return "", "", false
	}
	for _, c := range conditions {
		cond, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if t, _ := cond["type"].(string); t != "Accepted" {
			continue
		}
		status, _ = cond["status"].(string)
		message, _ = cond["message"].(string)
		return status, message, true
	}
	return "", "", false
}
