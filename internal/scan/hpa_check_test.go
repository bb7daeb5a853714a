package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

func newHPA(namespace, name, targetKind, targetName string) *autoscalingv2.HorizontalPodAutoscaler {
	return &autoscalingv2.HorizontalPodAutoscaler{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec: autoscalingv2.HorizontalPodAutoscalerSpec{
			ScaleTargetRef: autoscalingv2.CrossVersionObjectReference{
				Kind: targetKind,
				Name: targetName,
			},
		},
	}
}

func deploymentWithContainers(namespace, name string, containers ...corev1.Container) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec: appsv1.DeploymentSpec{
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{Containers: containers},
			},
		},
	}
}

func TestHPAChecker_Run(t *testing.T) {
	ctx := context.Background()
	checker := &HPAChecker{}

	withRequests := corev1.Container{
		Name: "app",
		Resources: corev1.ResourceRequirements{
			Requests: corev1.ResourceList{corev1.ResourceCPU: resource.MustParse("100m")},
		},
	}
	withLimits := corev1.Container{
		Name: "limited",
		Resources: corev1.ResourceRequirements{
			Limits: corev1.ResourceList{corev1.ResourceMemory: resource.MustParse("128Mi")},
		},
	}
	bare := corev1.Container{Name: "bare"}

	// Case 1: target exists and declares requests
	client := fake.NewSimpleClientset(
		deploymentWithContainers("default", "web", withRequests),
		newHPA("default", "web-hpa", "Deployment", "web"),
	)
	findings, err := checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	assert.Empty(t, findings)

	// Case 2: limits alone still count as declared
	client = fake.NewSimpleClientset(
		deploymentWithContainers("default", "web", withLimits),
		newHPA("default", "web-hpa", "Deployment", "web"),
	)
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	assert.Empty(t, findings)

	// Case 3: two bare containers counted in one finding
	client = fake.NewSimpleClientset(
		deploymentWithContainers("default", "web", bare, corev1.Container{Name: "sidecar"}, withRequests),
		newHPA("default", "web-hpa", "Deployment", "web"),
	)
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.NatureResourceRequestMissing, findings[0].Nature)
	assert.Contains(t, findings[0].Message, "2 container(s)")

	// Case 4: missing target produces the dangling finding and nothing else
	client = fake.NewSimpleClientset(newHPA("default", "web-hpa", "Deployment", "gone"))
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.NatureDanglingReference, findings[0].Nature)
	assert.Equal(t, `HorizontalPodAutoscaler web-hpa in namespace default targets Deployment "gone" which does not exist.`, findings[0].Message)

	// Case 5: statefulset target resolves through its own accessor
	client = fake.NewSimpleClientset(
		&appsv1.StatefulSet{
			ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "db"},
			Spec: appsv1.StatefulSetSpec{
				Template: corev1.PodTemplateSpec{Spec: corev1.PodSpec{Containers: []corev1.Container{bare}}},
			},
		},
		newHPA("default", "db-hpa", "StatefulSet", "db"),
	)
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.NatureResourceRequestMissing, findings[0].Nature)
}
