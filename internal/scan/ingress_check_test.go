package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

func newIngress(namespace, name string, className *string, backendService, tlsSecret string) *networkingv1.Ingress {
	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec:       networkingv1.IngressSpec{IngressClassName: className},
	}
	if backendService != "" {
		pathType := networkingv1.PathTypePrefix
		ing.Spec.Rules = []networkingv1.IngressRule{{
			Host: "example.net",
			IngressRuleValue: networkingv1.IngressRuleValue{
				HTTP: &networkingv1.HTTPIngressRuleValue{
					Paths: []networkingv1.HTTPIngressPath{{
						Path:     "/",
						PathType: &pathType,
						Backend: networkingv1.IngressBackend{
							Service: &networkingv1.IngressServiceBackend{Name: backendService},
						},
					}},
				},
			},
		}}
	}
	if tlsSecret != "" {
		ing.Spec.TLS = []networkingv1.IngressTLS{{SecretName: tlsSecret}}
	}
	return ing
}

func TestIngressChecker_Run(t *testing.T) {
	ctx := context.Background()
	checker := &IngressChecker{}
	nginx := "nginx"

	service := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "web"}}
	endpoints := &corev1.Endpoints{
		ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "web"},
		Subsets: []corev1.EndpointSubset{
			{Addresses: []corev1.EndpointAddress{{IP: "10.0.0.1"}}},
		},
	}
	secret := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "web-tls"}}

	// Case 1: class set, backend healthy, secret present
	client := fake.NewSimpleClientset(service, endpoints, secret,
		newIngress("default", "web", &nginx, "web", "web-tls"))
	findings, err := checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	assert.Empty(t, findings)

	// Case 2: no class anywhere
	client = fake.NewSimpleClientset(service, endpoints,
		newIngress("default", "web", nil, "web", ""))
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.NatureConfigurationDefect, findings[0].Nature)
	assert.Equal(t, "Ingress web in namespace default has no ingress class.", findings[0].Message)

	// Case 3: legacy annotation satisfies the class requirement
	legacy := newIngress("default", "web", nil, "web", "")
	legacy.Annotations = map[string]string{legacyIngressClassAnnotation: "nginx"}
	client = fake.NewSimpleClientset(service, endpoints, legacy)
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	assert.Empty(t, findings)

	// Case 4: backend service missing
	client = fake.NewSimpleClientset(newIngress("default", "web", &nginx, "gone", ""))
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.NatureDanglingReference, findings[0].Nature)
	assert.Equal(t, `Ingress web in namespace default references Service "gone" which does not exist.`, findings[0].Message)

	// Case 5: backend service present without endpoints
	client = fake.NewSimpleClientset(service, newIngress("default", "web", &nginx, "web", ""))
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.NatureUnhealthyDependency, findings[0].Nature)
	assert.Contains(t, findings[0].Message, `references Service "web" which has no endpoints`)

	// Case 6: TLS secret missing names both the secret and the ingress
	client = fake.NewSimpleClientset(service, endpoints,
		newIngress("default", "web", &nginx, "web", "web-tls"))
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.NatureDanglingReference, findings[0].Nature)
	assert.Contains(t, findings[0].Message, "web-tls")
	assert.Contains(t, findings[0].Message, "Ingress web")
}
