package scan

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

// PodChecker reports pods that failed to schedule and containers stuck in a
// waiting state such as CrashLoopBackOff or ImagePullBackOff.
type PodChecker struct{}

func (c *PodChecker) Name() string { return "pods" }

func (c *PodChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	list, err := input.Client.CoreV1().Pods(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list pods: %w", err)
	}
	sortItems(list.Items, func(p *corev1.Pod) *metav1.ObjectMeta { return &p.ObjectMeta })

	var findings []models.Finding
	for i := range list.Items {
		pod := &list.Items[i]
		subject := models.ResourceRef{Kind: "Pod", Namespace: pod.Namespace, Name: pod.Name}

		for _, cond := range pod.Status.Conditions {
			if cond.Type != corev1.PodScheduled || cond.Status != corev1.ConditionFalse {
				continue
			}
			text := fmt.Sprintf("Pod %s in namespace %s is not scheduled", pod.Name, pod.Namespace)
			if cond.Reason != "" {
				text += ": " + cond.Reason
			}
			if cond.Message != "" {
				text += " (" + cond.Message + ")"
			}
			findings = append(findings, models.Finding{
				Nature:  models.NatureSchedulingIssue,
				Subject: subject,
				Message: text + ".",
			})
		}

		for _, cs := range pod.Status.ContainerStatuses {
			if cs.State.Waiting == nil || cs.State.Waiting.Reason == "" {
				continue
			}
			text := fmt.Sprintf("Pod %s in namespace %s has container %q waiting: %s",
				pod.Name, pod.Namespace, cs.Name, cs.State.Waiting.Reason)
			if cs.State.Waiting.Message != "" {
				text += " (" + cs.State.Waiting.Message + ")"
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
