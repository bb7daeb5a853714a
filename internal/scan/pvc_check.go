package scan

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clusteraudit/clusteraudit/internal/k8s"
	"github.com/clusteraudit/clusteraudit/internal/models"
)

const provisioningFailedReason = "ProvisioningFailed"

// PVCChecker reports PersistentVolumeClaims stuck Pending whose most recent
// event shows a provisioning failure. A Pending claim with no such event is
// usually just waiting for a consumer and stays quiet.
type PVCChecker struct{}

func (c *PVCChecker) Name() string { return "persistentvolumeclaims" }

func (c *PVCChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	list, err := input.Client.CoreV1().PersistentVolumeClaims(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list persistentvolumeclaims: %w", err)
	}
	sortItems(list.Items, func(p *corev1.PersistentVolumeClaim) *metav1.ObjectMeta { return &p.ObjectMeta })

	var findings []models.Finding
	for i := range list.Items {
		pvc := &list.Items[i]
		if pvc.Status.Phase != corev1.ClaimPending {
			continue
		}
		events, err := k8s.EventsFor(ctx, input.Client, pvc.Namespace, "PersistentVolumeClaim", pvc.Name)
		if err != nil {
			input.logger().Debug("skipping pvc, event lookup failed",
				"namespace", pvc.Namespace, "name", pvc.Name, "error", err)
			continue
		}
		if len(events) == 0 {
			continue
		}
		latest := &events[0]
		if !strings.Contains(latest.Reason, provisioningFailedReason) && !strings.Contains(latest.Message, provisioningFailedReason) {
			continue
		}
		detail := latest.Message
		if detail == "" {
			detail = latest.Reason
		}
		findings = append(findings, models.Finding{
			Nature:  models.NatureConfigurationDefect,
			Subject: models.ResourceRef{Kind: "PersistentVolumeClaim", Namespace: pvc.Namespace, Name: pvc.Name},
			Message: fmt.Sprintf("PersistentVolumeClaim %s in namespace %s is Pending and provisioning failed: %s.",
				pvc.Name, pvc.Namespace, detail),
		})
	}
	return findings, nil
}
