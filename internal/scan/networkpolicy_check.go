package scan

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

// NetworkPolicyChecker flags policies whose pod selector is empty or matches
// no running pods in their namespace.
type NetworkPolicyChecker struct{}

func (c *NetworkPolicyChecker) Name() string { return "networkpolicies" }

func (c *NetworkPolicyChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	list, err := input.Client.NetworkingV1().NetworkPolicies(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list networkpolicies: %w", err)
	}
	sortItems(list.Items, func(np *networkingv1.NetworkPolicy) *metav1.ObjectMeta { return &np.ObjectMeta })

	var findings []models.Finding
	for i := range list.Items {
		np := &list.Items[i]
		subject := models.ResourceRef{Kind: "NetworkPolicy", Namespace: np.Namespace, Name: np.Name}

		if len(np.Spec.PodSelector.MatchLabels) == 0 && len(np.Spec.PodSelector.MatchExpressions) == 0 {
			findings = append(findings, models.Finding{
				Nature:  models.NatureConfigurationDefect,
				Subject: subject,
				Message: fmt.Sprintf("NetworkPolicy %s in namespace %s has an empty pod selector.", np.Name, np.Namespace),
			})
			continue
		}
		selector, err := metav1.LabelSelectorAsSelector(&np.Spec.PodSelector)
		if err != nil {
			findings = append(findings, models.Finding{
				Nature:  models.NatureConfigurationDefect,
				Subject: subject,
				Message: fmt.Sprintf("NetworkPolicy %s in namespace %s has an invalid pod selector: %v.", np.Name, np.Namespace, err),
			})
			continue
		}
		pods, err := input.Client.CoreV1().Pods(np.Namespace).List(ctx, metav1.ListOptions{LabelSelector: selector.String()})
		if err != nil {
			input.logger().Debug("skipping networkpolicy, pod lookup failed",
				"namespace", np.Namespace, "name", np.Name, "error", err)
			continue
		}
		running := 0
		for j := range pods.Items {
			if pods.Items[j].Status.Phase == corev1.PodRunning {
				running++
			}
		}
		if running == 0 {
			findings = append(findings, models.Finding{
				Nature:  models.NatureConfigurationDefect,
				Subject: subject,
				Message: fmt.Sprintf("NetworkPolicy %s in namespace %s matches no running pods.", np.Name, np.Namespace),
			})
		}
	}
	return findings, nil
}
