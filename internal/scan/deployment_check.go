package scan

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

// DeploymentChecker compares desired replicas against the observed and
// available counts reported by the controller.
type DeploymentChecker struct{}

func (c *DeploymentChecker) Name() string { return "deployments" }

func (c *DeploymentChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	list, err := input.Client.AppsV1().Deployments(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	sortItems(list.Items, func(d *appsv1.Deployment) *metav1.ObjectMeta { return &d.ObjectMeta })

	var findings []models.Finding
	for i := range list.Items {
		d := &list.Items[i]
		desired := int32(1)
		if d.Spec.Replicas != nil {
			desired = *d.Spec.Replicas
		}
		if desired != d.Status.Replicas || desired != d.Status.AvailableReplicas {
			findings = append(findings, models.Finding{
				Nature:  models.NatureReplicaMismatch,
				Subject: models.ResourceRef{Kind: "Deployment", Namespace: d.Namespace, Name: d.Name},
				Message: fmt.Sprintf("Deployment %s in namespace %s has a replica mismatch: %d desired, %d current, %d available.",
					d.Name, d.Namespace, desired, d.Status.Replicas, d.Status.AvailableReplicas),
			})
		}
	}
	return findings, nil
}
