package scan

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clusteraudit/clusteraudit/internal/k8s"
	"github.com/clusteraudit/clusteraudit/internal/models"
)

// GatewayClassChecker verifies every GatewayClass carries an Accepted
// condition with status True, meaning some controller has claimed it.
type GatewayClassChecker struct{}

func (c *GatewayClassChecker) Name() string { return "gatewayclasses" }

func (c *GatewayClassChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	if err := requireGatewayAPI(input); err != nil {
		return nil, err
	}
	list, err := input.Dynamic.Resource(k8s.GatewayClassGVR).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list gatewayclasses: %w", err)
	}
	sortUnstructured(list.Items)

	var findings []models.Finding
	for i := range list.Items {
		gc := &list.Items[i]
		status, message, found := acceptedCondition(gc)
		if found && status == "True" {
			continue
		}
		text := fmt.Sprintf("GatewayClass %s is not accepted", gc.GetName())
		if !found {
			text = fmt.Sprintf("GatewayClass %s has no Accepted condition", gc.GetName())
		} else if message != "" {
			text += ": " + message
		}
		findings = append(findings, models.Finding{
			Nature:  models.NatureConfigurationDefect,
			Subject: models.ResourceRef{Kind: "GatewayClass", Name: gc.GetName()},
			Message: text + ".",
		})
	}
	return findings, nil
}
