package scan

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

// NodeChecker reports node conditions that deviate from their healthy state:
// Ready should be True, every pressure and availability condition False. One
// finding per deviating condition.
type NodeChecker struct{}

func (c *NodeChecker) Name() string { return "nodes" }

func (c *NodeChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	list, err := input.Client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	sortItems(list.Items, func(n *corev1.Node) *metav1.ObjectMeta { return &n.ObjectMeta })

	var findings []models.Finding
	for i := range list.Items {
		node := &list.Items[i]
		for _, cond := range node.Status.Conditions {
			expected := corev1.ConditionFalse
			if cond.Type == corev1.NodeReady {
				expected = corev1.ConditionTrue
			}
			if cond.Status == expected {
				continue
			}
			text := fmt.Sprintf("Node %s condition %s is %s (expected %s)", node.Name, cond.Type, cond.Status, expected)
			if cond.Message != "" {
				text += ": " + cond.Message
			}
			findings = append(findings, models.Finding{
				Nature:  models.NatureSchedulingIssue,
				Subject: models.ResourceRef{Kind: "Node", Name: node.Name},
				Message: text + ".",
			})
		}
	}
	return findings, nil
}
