package scan

import (
	"context"
	"fmt"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

// legacyIngressClassAnnotation predates spec.ingressClassName and is still
// honored by most controllers.
const legacyIngressClassAnnotation = "kubernetes.io/ingress.class"

// IngressChecker verifies each Ingress names an ingress class, routes to
// Services that exist with healthy endpoints, and references TLS Secrets that
// exist.
type IngressChecker struct{}

func (c *IngressChecker) Name() string { return "ingresses" }

func (c *IngressChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	list, err := input.Client.NetworkingV1().Ingresses(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list ingresses: %w", err)
	}
	sortItems(list.Items, func(ing *networkingv1.Ingress) *metav1.ObjectMeta { return &ing.ObjectMeta })

	var findings []models.Finding
	for i := range list.Items {
		findings = append(findings, c.checkIngress(ctx, input, &list.Items[i])...)
	}
	return findings, nil
}

func (c *IngressChecker) checkIngress(ctx context.Context, input Input, ing *networkingv1.Ingress) []models.Finding {
	subject := models.ResourceRef{Kind: "Ingress", Namespace: ing.Namespace, Name: ing.Name}
	var findings []models.Finding

	hasClass := ing.Spec.IngressClassName != nil && *ing.Spec.IngressClassName != ""
	if !hasClass && ing.Annotations[legacyIngressClassAnnotation] != "" {
		hasClass = true
	}
	if !hasClass {
		findings = append(findings, models.Finding{
			Nature:  models.NatureConfigurationDefect,
			Subject: subject,
			Message: fmt.Sprintf("Ingress %s in namespace %s has no ingress class.", ing.Name, ing.Namespace),
		})
	}

	seenServices := map[string]bool{}
	checkBackend := func(serviceName string) {
		if serviceName == "" || seenServices[serviceName] {
			return
		}
		seenServices[serviceName] = true
		res := input.Refs.Resolve(ctx, models.ResourceRef{Kind: "Service", Namespace: ing.Namespace, Name: serviceName})
		switch res.Outcome {
		case RefMissing:
			findings = append(findings, models.Finding{
				Nature:  models.NatureDanglingReference,
				Subject: subject,
				Message: fmt.Sprintf("Ingress %s in namespace %s references Service %q which does not exist.",
					ing.Name, ing.Namespace, serviceName),
			})
		case RefUnhealthy:
			findings = append(findings, models.Finding{
				Nature:  models.NatureUnhealthyDependency,
				Subject: subject,
				Message: fmt.Sprintf("Ingress %s in namespace %s references Service %q which %s.",
					ing.Name, ing.Namespace, serviceName, res.Detail),
			})
		}
	}

	if ing.Spec.DefaultBackend != nil && ing.Spec.DefaultBackend.Service != nil {
		checkBackend(ing.Spec.DefaultBackend.Service.Name)
	}
	for _, rule := range ing.Spec.Rules {
		if rule.HTTP == nil {
			continue
		}
		for _, path := range rule.HTTP.Paths {
			if path.Backend.Service != nil {
				checkBackend(path.Backend.Service.Name)
			}
		}
	}

	seenSecrets := map[string]bool{}
	for _, tls := range ing.Spec.TLS {
		if tls.SecretName == "" || seenSecrets[tls.SecretName] {
			continue
		}
		seenSecrets[tls.SecretName] = true
		if !input.Refs.Exists(ctx, models.ResourceRef{Kind: "Secret", Namespace: ing.Namespace, Name: tls.SecretName}) {
			findings = append(findings, models.Finding{
				Nature:  models.NatureDanglingReference,
				Subject: subject,
				Message: fmt.Sprintf("Ingress %s in namespace %s references TLS secret %q which does not exist.",
					ing.Name, ing.Namespace, tls.SecretName),
			})
		}
	}
	return findings
}
