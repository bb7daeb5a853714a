package scan

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/clusteraudit/clusteraudit/internal/k8s"
	"github.com/clusteraudit/clusteraudit/internal/models"
)

// GatewayChecker audits Gateway API Gateway objects: the referenced
// GatewayClass must exist and be accepted, and the Gateway's own first status
// condition must be True. Skips cleanly when the Gateway API CRDs are not
// installed.
type GatewayChecker struct{}

func (c *GatewayChecker) Name() string { return "gateways" }

func (c *GatewayChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	if err := requireGatewayAPI(input); err != nil {
		return nil, err
	}
	list, err := input.Dynamic.Resource(k8s.GatewayGVR).Namespace(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list gateways: %w", err)
	}
	sortUnstructured(list.Items)

	var findings []models.Finding
	for i := range list.Items {
		gw := &list.Items[i]
		subject := models.ResourceRef{Kind: "Gateway", Namespace: gw.GetNamespace(), Name: gw.GetName()}

		className, _, _ := unstructured.NestedString(gw.Object, "spec", "gatewayClassName")
		if className != "" {
			res := input.Refs.Resolve(ctx, models.ResourceRef{Kind: "GatewayClass", Name: className})
			switch res.Outcome {
			case RefMissing:
				findings = append(findings, models.Finding{
					Nature:  models.NatureDanglingReference,
					Subject: subject,
					Message: fmt.Sprintf("Gateway %s in namespace %s references GatewayClass %q which does not exist.",
						gw.GetName(), gw.GetNamespace(), className),
				})
			case RefUnhealthy:
				findings = append(findings, models.Finding{
					Nature:  models.NatureUnhealthyDependency,
					Subject: subject,
					Message: fmt.Sprintf("Gateway %s in namespace %s references GatewayClass %q which %s.",
						gw.GetName(), gw.GetNamespace(), className, res.Detail),
				})
			}
		}

		conditions, ok, _ := unstructured.NestedSlice(gw.Object, "status", "conditions")
		if !ok || len(conditions) == 0 {
			continue
		}
		cond, ok := conditions[0].(map[string]interface{})
		if !ok {
			continue
		}
		if status, _ := cond["status"].(string); status != "True" {
			condType, _ := cond["type"].(string)
			condMsg, _ := cond["message"].(string)
			text := fmt.Sprintf("Gateway %s in namespace %s condition %s is %s",
				gw.GetName(), gw.GetNamespace(), condType, status)
			if condMsg != "" {
				text += ": " + condMsg
			}
			findings = append(findings, models.Finding{
				Nature:  models.NatureConfigurationDefect,
				Subject: subject,
				Message: text + ".",
			})
		}
	}
	return findings, nil
}
