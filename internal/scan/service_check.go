package scan

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

// ServiceChecker applies the endpoint health rule to every Service: the
// Endpoints object must carry at least one ready address and no not-ready
// addresses. ExternalName services have no endpoints and are skipped.
type ServiceChecker struct{}

func (c *ServiceChecker) Name() string { return "services" }

func (c *ServiceChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	list, err := input.Client.CoreV1().Services(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	sortItems(list.Items, func(s *corev1.Service) *metav1.ObjectMeta { return &s.ObjectMeta })

	var findings []models.Finding
	for i := range list.Items {
		svc := &list.Items[i]
		if svc.Spec.Type == corev1.ServiceTypeExternalName {
			continue
		}
		res := input.Refs.Resolve(ctx, models.ResourceRef{Kind: "Service", Namespace: svc.Namespace, Name: svc.Name})
		switch res.Outcome {
		case RefUnhealthy:
			findings = append(findings, models.Finding{
				Nature:  models.NatureUnhealthyDependency,
				Subject: models.ResourceRef{Kind: "Service", Namespace: svc.Namespace, Name: svc.Name},
				Message: fmt.Sprintf("Service %s in namespace %s %s.", svc.Name, svc.Namespace, res.Detail),
			})
		case RefMissing:
			// Listed a moment ago but the lookup failed; leave it to the
			// next scan rather than guessing.
			input.logger().Debug("skipping service, lookup failed",
				"namespace", svc.Namespace, "name", svc.Name)
		}
	}
	return findings, nil
}
