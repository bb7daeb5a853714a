package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	admissionregistrationv1 "k8s.io/api/admissionregistration/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

func newMutatingConfig(name, serviceNamespace, serviceName string) *admissionregistrationv1.MutatingWebhookConfiguration {
	return &admissionregistrationv1.MutatingWebhookConfiguration{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Webhooks: []admissionregistrationv1.MutatingWebhook{{
			Name: "hook.example.net",
			ClientConfig: admissionregistrationv1.WebhookClientConfig{
				Service: &admissionregistrationv1.ServiceReference{
					Namespace: serviceNamespace,
					Name:      serviceName,
				},
			},
		}},
	}
}

func selectorService(namespace, name string, selector map[string]string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec:       corev1.ServiceSpec{Selector: selector},
	}
}

func labeledPod(namespace, name string, labels map[string]string, phase corev1.PodPhase) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name, Labels: labels},
		Status:     corev1.PodStatus{Phase: phase},
	}
}

func TestWebhookChecker_Run(t *testing.T) {
	ctx := context.Background()
	checker := &WebhookChecker{}
	selector := map[string]string{"app": "injector"}

	// Case 1: service exists and backs a running pod
	client := fake.NewSimpleClientset(
		newMutatingConfig("sidecar-injector", "infra", "injector"),
		selectorService("infra", "injector", selector),
		labeledPod("infra", "injector-1", selector, corev1.PodRunning),
	)
	findings, err := checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	assert.Empty(t, findings)

	// Case 2: referenced service missing
	client = fake.NewSimpleClientset(newMutatingConfig("sidecar-injector", "infra", "injector"))
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.NatureDanglingReference, findings[0].Nature)
	assert.Equal(t, `MutatingWebhookConfiguration sidecar-injector webhook "hook.example.net" references Service infra/injector which does not exist.`, findings[0].Message)

	// Case 3: selector matches no running pods
	client = fake.NewSimpleClientset(
		newMutatingConfig("sidecar-injector", "infra", "injector"),
		selectorService("infra", "injector", selector),
		labeledPod("infra", "injector-1", selector, corev1.PodPending),
	)
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.NatureUnhealthyDependency, findings[0].Nature)
	assert.Contains(t, findings[0].Message, "matches no running pods")

	// Case 4: selector-less service skips the pod check
	client = fake.NewSimpleClientset(
		newMutatingConfig("sidecar-injector", "infra", "injector"),
		selectorService("infra", "injector", nil),
	)
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	assert.Empty(t, findings)

	// Case 5: validating configurations are audited the same way
	client = fake.NewSimpleClientset(&admissionregistrationv1.ValidatingWebhookConfiguration{
		ObjectMeta: metav1.ObjectMeta{Name: "policy-gate"},
		Webhooks: []admissionregistrationv1.ValidatingWebhook{{
			Name: "validate.example.net",
			ClientConfig: admissionregistrationv1.WebhookClientConfig{
				Service: &admissionregistrationv1.ServiceReference{Namespace: "infra", Name: "gone"},
			},
		}},
	})
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "ValidatingWebhookConfiguration policy-gate")

	// Case 6: URL-based webhooks have nothing to resolve
	client = fake.NewSimpleClientset(&admissionregistrationv1.MutatingWebhookConfiguration{
		ObjectMeta: metav1.ObjectMeta{Name: "external"},
		Webhooks: []admissionregistrationv1.MutatingWebhook{{
			Name:         "hook.example.net",
			ClientConfig: admissionregistrationv1.WebhookClientConfig{},
		}},
	})
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	assert.Empty(t, findings)
}
