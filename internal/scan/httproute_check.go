package scan

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/clusteraudit/clusteraudit/internal/k8s"
	"github.com/clusteraudit/clusteraudit/internal/models"
)

// HTTPRouteChecker verifies HTTPRoute parent Gateways exist and backend
// Services exist with healthy endpoints. Skips cleanly when the Gateway API
// CRDs are not installed.
type HTTPRouteChecker struct{}

func (c *HTTPRouteChecker) Name() string { return "httproutes" }

func (c *HTTPRouteChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	if err := requireGatewayAPI(input); err != nil {
		return nil, err
	}
	list, err := input.Dynamic.Resource(k8s.HTTPRouteGVR).Namespace(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list httproutes: %w", err)
	}
	sortUnstructured(list.Items)

	var findings []models.Finding
	for i := range list.Items {
		route := &list.Items[i]
		findings = append(findings, c.checkRoute(ctx, input, route)...)
	}
	return findings, nil
}

func (c *HTTPRouteChecker) checkRoute(ctx context.Context, input Input, route *unstructured.Unstructured) []models.Finding {
	ns := route.GetNamespace()
	subject := models.ResourceRef{Kind: "HTTPRoute", Namespace: ns, Name: route.GetName()}
	var findings []models.Finding

	seenGateways := map[string]bool{}
	parents, _, _ := unstructured.NestedSlice(route.Object, "spec", "parentRefs")
	for _, p := range parents {
		ref, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := ref["name"].(string)
		if name == "" {
			continue
		}
		gatewayNS := ns
		if v, ok := ref["namespace"].(string); ok && v != "" {
			gatewayNS = v
		}
		key := gatewayNS + "/" + name
		if seenGateways[key] {
			continue
		}
		seenGateways[key] = true
		if !input.Refs.Exists(ctx, models.ResourceRef{Kind: "Gateway", Namespace: gatewayNS, Name: name}) {
			findings = append(findings, models.Finding{
				Nature:  models.NatureDanglingReference,
				Subject: subject,
				Message: fmt.Sprintf("HTTPRoute %s in namespace %s references Gateway %s/%s which does not exist.",
					route.GetName(), ns, gatewayNS, name),
			})
		}
	}

	seenBackends := map[string]bool{}
	rules, _, _ := unstructured.NestedSlice(route.Object, "spec", "rules")
	for _, r := range rules {
		rule, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		backends, ok := rule["backendRefs"].([]interface{})
		if !ok {
			continue
		}
		for _, b := range backends {
			ref, ok := b.(map[string]interface{})
			if !ok {
				continue
			}
			if kind, ok := ref["kind"].(string); ok && kind != "" && kind != "Service" {
				continue
			}
			name, _ := ref["name"].(string)
			if name == "" {
				continue
			}
			serviceNS := ns
			if v, ok := ref["namespace"].(string); ok && v != "" {
				serviceNS = v
			}
			key := serviceNS + "/" + name
			if seenBackends[key] {
				continue
			}
			seenBackends[key] = true
			res := input.Refs.Resolve(ctx, models.ResourceRef{Kind: "Service", Namespace: serviceNS, Name: name})
			switch res.Outcome {
			case RefMissing:
				findings = append(findings, models.Finding{
					Nature:  models.NatureDanglingReference,
					Subject: subject,
					Message: fmt.Sprintf("HTTPRoute %s in namespace %s references Service %s/%s which does not exist.",
						route.GetName(), ns, serviceNS, name),
				})
			case RefUnhealthy:
				findings = append(findings, models.Finding{
					Nature:  models.NatureUnhealthyDependency,
					Subject: subject,
					Message: fmt.Sprintf("HTTPRoute %s in namespace %s references Service %s/%s which %s.",
						route.GetName(), ns, serviceNS, name, res.Detail),
				})
			}
		}
	}
	return findings
}
