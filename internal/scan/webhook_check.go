package scan

import (
	"context"
	"fmt"

	admissionregistrationv1 "k8s.io/api/admissionregistration/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

// WebhookChecker verifies admission webhook configurations point at Services
// that exist and whose selectors match at least one running pod. A webhook
// backed by nothing blocks every API operation it intercepts.
type WebhookChecker struct{}

func (c *WebhookChecker) Name() string { return "webhookconfigurations" }

func (c *WebhookChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	mutating, err := input.Client.AdmissionregistrationV1().MutatingWebhookConfigurations().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list mutatingwebhookconfigurations: %w", err)
	}
	validating, err := input.Client.AdmissionregistrationV1().ValidatingWebhookConfigurations().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list validatingwebhookconfigurations: %w", err)
	}
	sortItems(mutating.Items, func(m *admissionregistrationv1.MutatingWebhookConfiguration) *metav1.ObjectMeta { return &m.ObjectMeta })
	sortItems(validating.Items, func(v *admissionregistrationv1.ValidatingWebhookConfiguration) *metav1.ObjectMeta { return &v.ObjectMeta })

	var findings []models.Finding
	for i := range mutating.Items {
		cfg := &mutating.Items[i]
		for j := range cfg.Webhooks {
			wh := &cfg.Webhooks[j]
			findings = append(findings, c.checkService(ctx, input, "MutatingWebhookConfiguration", cfg.Name, wh.Name, wh.ClientConfig)...)
		}
	}
	for i := range validating.Items {
		cfg := &validating.Items[i]
		for j := range cfg.Webhooks {
			wh := &cfg.Webhooks[j]
			findings = append(findings, c.checkService(ctx, input, "ValidatingWebhookConfiguration", cfg.Name, wh.Name, wh.ClientConfig)...)
		}
	}
	return findings, nil
}

func (c *WebhookChecker) checkService(ctx context.Context, input Input, configKind, configName, webhookName string, cc admissionregistrationv1.WebhookClientConfig) []models.Finding {
	if cc.Service == nil {
		// URL-based webhook, nothing in-cluster to resolve.
		return nil
	}
	subject := models.ResourceRef{Kind: configKind, Name: configName}
	svc, err := input.Client.CoreV1().Services(cc.Service.Namespace).Get(ctx, cc.Service.Name, metav1.GetOptions{})
	if err != nil {
		return []models.Finding{{
			Nature:  models.NatureDanglingReference,
			Subject: subject,
			Message: fmt.Sprintf("%s %s webhook %q references Service %s/%s which does not exist.",
				configKind, configName, webhookName, cc.Service.Namespace, cc.Service.Name),
		}}
	}
	if len(svc.Spec.Selector) == 0 {
		// Selector-less services get endpoints managed by hand; pod
		// matching does not apply.
		return nil
	}
	selector := labels.SelectorFromSet(svc.Spec.Selector)
	pods, err := input.Client.CoreV1().Pods(svc.Namespace).List(ctx, metav1.ListOptions{LabelSelector: selector.String()})
	if err != nil {
		input.logger().Debug("skipping webhook service, pod lookup failed",
			"config", configName, "service", svc.Name, "error", err)
		return nil
	}
	for i := range pods.Items {
		if pods.Items[i].Status.Phase == corev1.PodRunning {
			return nil
		}
	}
	return []models.Finding{{
		Nature:  models.NatureUnhealthyDependency,
		Subject: subject,
		Message: fmt.Sprintf("%s %s webhook %q references Service %s/%s whose selector matches no running pods.",
			configKind, configName, webhookName, svc.Namespace, svc.Name),
	}}
}
