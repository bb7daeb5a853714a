package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	testingk8s "k8s.io/client-go/testing"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

func newDeployment(namespace, name string, desired *int32, current, available int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec:       appsv1.DeploymentSpec{Replicas: desired},
		Status: appsv1.DeploymentStatus{
			Replicas:          current,
			AvailableReplicas: available,
		},
	}
}

func TestDeploymentChecker_Run(t *testing.T) {
	ctx := context.Background()
	checker := &DeploymentChecker{}
	three := int32(3)
	zero := int32(0)

	// Case 1: desired, current, and available all agree
	client := fake.NewSimpleClientset(newDeployment("default", "web", &three, 3, 3))
	findings, err := checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	assert.Empty(t, findings)

	// Case 2: available lags desired
	client = fake.NewSimpleClientset(newDeployment("default", "web", &three, 3, 2))
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.NatureReplicaMismatch, findings[0].Nature)
	assert.Equal(t, "Deployment web in namespace default has a replica mismatch: 3 desired, 3 current, 2 available.", findings[0].Message)

	// Case 3: nil replicas defaults to one
	client = fake.NewSimpleClientset(newDeployment("default", "web", nil, 0, 0))
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "1 desired")

	// Case 4: scaled to zero on purpose is consistent
	client = fake.NewSimpleClientset(newDeployment("default", "web", &zero, 0, 0))
	findings, err = checker.Run(ctx, newTestInput(client, nil))
	require.NoError(t, err)
	assert.Empty(t, findings)

	// Case 5: list failure fails the checker
	client = fake.NewSimpleClientset()
	client.PrependReactor("list", "deployments", func(action testingk8s.Action) (bool, runtime.Object, error) {
		return true, nil, assert.AnError
	})
	_, err = checker.Run(ctx, newTestInput(client, nil))
	assert.Error(t, err)
}
