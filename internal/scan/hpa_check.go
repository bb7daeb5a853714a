package scan

import (
	"context"
	"fmt"

	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

// HPAChecker resolves each HorizontalPodAutoscaler's scale target and, when
// the target exists, verifies its pod template sets resource requests or
// limits. An autoscaler cannot make utilization decisions for containers that
// declare nothing.
type HPAChecker struct{}

func (c *HPAChecker) Name() string { return "horizontalpodautoscalers" }

func (c *HPAChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	list, err := input.Client.AutoscalingV2().HorizontalPodAutoscalers(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list horizontalpodautoscalers: %w", err)
	}
	sortItems(list.Items, func(h *autoscalingv2.HorizontalPodAutoscaler) *metav1.ObjectMeta { return &h.ObjectMeta })

	var findings []models.Finding
	for i := range list.Items {
		hpa := &list.Items[i]
		subject := models.ResourceRef{Kind: "HorizontalPodAutoscaler", Namespace: hpa.Namespace, Name: hpa.Name}
		target := hpa.Spec.ScaleTargetRef

		tmpl, exists := c.targetTemplate(ctx, input, hpa.Namespace, target)
		if !exists {
			findings = append(findings, models.Finding{
				Nature:  models.NatureDanglingReference,
				Subject: subject,
				Message: fmt.Sprintf("HorizontalPodAutoscaler %s in namespace %s targets %s %q which does not exist.",
					hpa.Name, hpa.Namespace, target.Kind, target.Name),
			})
			continue
		}
		if tmpl == nil {
			// Target kind has no typed accessor here; existence is all we
			// can verify.
			continue
		}
		missing := 0
		for _, container := range tmpl.Spec.Containers {
			if len(container.Resources.Requests) == 0 && len(container.Resources.Limits) == 0 {
				missing++
			}
		}
		if missing > 0 {
			findings = append(findings, models.Finding{
				Nature:  models.NatureResourceRequestMissing,
				Subject: subject,
				Message: fmt.Sprintf("HorizontalPodAutoscaler %s in namespace %s targets %s %q where %d container(s) set no resource requests or limits.",
					hpa.Name, hpa.Namespace, target.Kind, target.Name, missing),
			})
		}
	}
	return findings, nil
}

// targetTemplate resolves the scale target. It returns the target's pod
// template for the workload kinds an HPA commonly scales, nil with exists
// true for other kinds that resolve, and exists false when the target cannot
// be found.
func (c *HPAChecker) targetTemplate(ctx context.Context, input Input, namespace string, ref autoscalingv2.CrossVersionObjectReference) (*corev1.PodTemplateSpec, bool) {
	opts := metav1.GetOptions{}
	switch ref.Kind {
	case "Deployment":
		d, err := input.Client.AppsV1().Deployments(namespace).Get(ctx, ref.Name, opts)
		if err != nil {
			return nil, false
		}
		return &d.Spec.Template, true
	case "StatefulSet":
		s, err := input.Client.AppsV1().StatefulSets(namespace).Get(ctx, ref.Name, opts)
		if err != nil {
			return nil, false
		}
		return &s.Spec.Template, true
	case "ReplicaSet":
		r, err := input.Client.AppsV1().ReplicaSets(namespace).Get(ctx, ref.Name, opts)
		if err != nil {
			return nil, false
		}
		return &r.Spec.Template, true
	default:
		ok := input.Refs.Exists(ctx, models.ResourceRef{Kind: ref.Kind, Namespace: namespace, Name: ref.Name})
		return nil, ok
	}
}
